package upstream

import (
	"errors"
	"fmt"
)

// ErrUnexpectedShape is returned when a response body does not match the expected schema.
var ErrUnexpectedShape = errors.New("unexpected response shape")

// StatusError is a non-2xx response from the platform.
type StatusError struct {
	Operation  string
	StatusCode int
	// Message is the platform-provided reason, if any.
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: platform returned status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("%s: platform returned status %d: %s", e.Operation, e.StatusCode, e.Message)
}

// MessageOf returns the platform-provided message carried by err, if any.
func MessageOf(err error) string {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Message
	}
	return ""
}

// IsNotFound reports whether err is a 404 from the platform.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == 404
}
