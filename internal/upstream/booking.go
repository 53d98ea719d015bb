package upstream

import (
	"context"
	"errors"
	"strconv"

	"github.com/sool-market/service-reservation/internal/domain/reservation"
	"github.com/sool-market/service-reservation/internal/platform/auth"
)

// PrepareRequest allocates a provisional order for a new booking.
type PrepareRequest struct {
	ExperienceID int64
	HeadCount    int
	PayerName    string
	PayerPhone   string
	Date         string
	Time         string
}

// ConfirmRequest finalizes a provisional order.
type ConfirmRequest struct {
	OrderID     string
	PaymentKey  string
	TotalAmount int64
}

// ChangeRequest rebinds an existing reservation.
type ChangeRequest struct {
	ReservationID int64
	Date          string
	Time          string
	HeadCount     int
}

// Prepare allocates a provisional order and returns the provider order id.
func (c *Client) Prepare(ctx context.Context, req PrepareRequest) (string, error) {
	var reply prepareResponse
	err := c.postForm(ctx, OpPrepare, "prepare", []formField{
		{"id", formatID(req.ExperienceID)},
		{"count", strconv.Itoa(req.HeadCount)},
		{"payer_name", req.PayerName},
		{"payer_phone", req.PayerPhone},
		{"reservation_date", req.Date},
		{"reservation_time", req.Time},
	}, &reply)
	if err != nil {
		return "", err
	}
	return reply.Content, nil
}

// Confirm finalizes a provisional order with the client-generated payment key.
func (c *Client) Confirm(ctx context.Context, req ConfirmRequest) error {
	return c.postForm(ctx, OpConfirm, "request", []formField{
		{"pg_order_id", req.OrderID},
		{"pg_payment_key", req.PaymentKey},
		{"total_amount", strconv.FormatInt(req.TotalAmount, 10)},
	}, nil)
}

// Change moves a reservation to a new date, time and head-count.
func (c *Client) Change(ctx context.Context, req ChangeRequest) error {
	return c.postForm(ctx, OpChange, "change", []formField{
		{"id", formatID(req.ReservationID)},
		{"reservation_date", req.Date},
		{"reservation_time", req.Time},
		{"count", strconv.Itoa(req.HeadCount)},
	}, nil)
}

// Cancel cancels a reservation.
func (c *Client) Cancel(ctx context.Context, reservationID int64) error {
	return c.delete(ctx, OpCancel, "cancel/"+formatID(reservationID))
}

// DeleteHistory removes a finished reservation from the caller's history.
func (c *Client) DeleteHistory(ctx context.Context, reservationID int64) error {
	return c.delete(ctx, OpDeleteHistory, "history/"+formatID(reservationID))
}

// MyReservations returns one page of the caller's reservations starting at offset.
func (c *Client) MyReservations(ctx context.Context, offset int) ([]*reservation.Reservation, bool, error) {
	id, ok := auth.IdentityFrom(ctx)
	if !ok {
		return nil, false, errors.New("my_reservations: no caller identity in context")
	}

	var reply reservationPage
	if err := c.get(ctx, OpMyReservations, "my/"+strconv.Itoa(offset), nil, &reply); err != nil {
		return nil, false, err
	}

	out := make([]*reservation.Reservation, 0, len(reply.Content))
	for _, rec := range reply.Content {
		r, err := reservation.NewReservation(
			rec.ID,
			id.UserID,
			reservation.ExperienceRef{
				ID:          rec.JoyID,
				Name:        rec.JoyName,
				BreweryID:   rec.BreweryID,
				BreweryName: rec.BreweryName,
			},
			rec.Date,
			rec.Time,
			rec.Count,
			rec.PayerName,
			rec.PayerPhone,
			*rec.TotalAmount,
			reservation.Status(rec.Status),
		)
		if err != nil {
			return nil, false, errors.Join(ErrUnexpectedShape, err)
		}
		out = append(out, r)
	}
	return out, reply.HasNext, nil
}
