// Package upstream is the typed client for the commerce platform REST API. It
// maps wire payloads onto the reservation domain model and rejects payloads
// that do not match the expected schema.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sool-market/service-reservation/internal/config"
	"github.com/sool-market/service-reservation/internal/platform/auth"
	"github.com/sool-market/service-reservation/internal/platform/metrics"
)

// Operation names, used for metrics and error messages.
const (
	OpTimeInfo         = "time_info"
	OpCalendar         = "calendar"
	OpPrepare          = "prepare"
	OpConfirm          = "request"
	OpChange           = "change"
	OpCancel           = "cancel"
	OpDeleteHistory    = "delete_history"
	OpMyReservations   = "my_reservations"
	OpBrewery          = "brewery"
	OpSearchBreweries  = "brewery_search"
	maxErrorBodyLength = 64 << 10
)

// Client calls the platform API on behalf of the caller whose identity is in the request context.
type Client struct {
	baseURL  string
	hc       *http.Client
	validate *validator.Validate
	logger   *zap.Logger
}

// NewClient creates a new platform client.
func NewClient(cfg config.UpstreamConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL:  cfg.BaseURL,
		hc:       &http.Client{Timeout: cfg.Timeout},
		validate: validator.New(),
		logger:   logger,
	}
}

// formField is one multipart form value, kept ordered.
type formField struct {
	name  string
	value string
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, out interface{}) error {
	return c.do(ctx, op, http.MethodGet, path, query, nil, "", out)
}

func (c *Client) delete(ctx context.Context, op, path string) error {
	return c.do(ctx, op, http.MethodDelete, path, nil, nil, "", nil)
}

func (c *Client) postForm(ctx context.Context, op, path string, fields []formField, out interface{}) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return fmt.Errorf("%s: write form field %s: %w", op, f.name, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%s: close form: %w", op, err)
	}
	return c.do(ctx, op, http.MethodPost, path, nil, &buf, w.FormDataContentType(), out)
}

func (c *Client) do(
	ctx context.Context,
	op, method, path string,
	query url.Values,
	body io.Reader,
	contentType string,
	out interface{},
) (err error) {
	started := time.Now()
	defer func() { metrics.ObserveUpstream(op, started, err) }()

	target := c.baseURL + "/" + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if id, ok := auth.IdentityFrom(ctx); ok && id.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+id.AccessToken)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{Operation: op, StatusCode: resp.StatusCode}
		var reply errorResponse
		if decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBodyLength)).Decode(&reply); decodeErr == nil {
			statusErr.Message = reply.Message
		}
		c.logger.Debug("platform rejected request",
			zap.String("operation", op),
			zap.Int("status", resp.StatusCode),
			zap.String("message", statusErr.Message),
		)
		return statusErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrUnexpectedShape, err)
	}
	if err := c.validate.StructCtx(ctx, out); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrUnexpectedShape, err)
	}
	return nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
