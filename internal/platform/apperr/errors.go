// Package apperr defines the typed errors shared across the reservation service.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an application error so transports can map it to a status code.
type Kind string

const (
	KindValidation   Kind = "VALIDATION_ERROR"
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
	KindInvalidState Kind = "INVALID_STATE"
	KindForbidden    Kind = "FORBIDDEN"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindUnavailable  Kind = "INFORMATION_UNAVAILABLE"
	KindUpstream     Kind = "UPSTREAM_ERROR"
	KindInternal     Kind = "INTERNAL_ERROR"
)

// Error is an application error carrying a kind and optional scoping details.
type Error struct {
	Kind    Kind
	Message string
	// Field names the form field a validation error belongs to.
	Field string
	// Step names the transaction step that failed (prepare, confirm, change...).
	Step string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Step != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Step, e.Message, e.Err)
	case e.Step != "":
		return fmt.Sprintf("%s: %s", e.Step, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches errors of the same kind, so sentinels declared with New compare by kind and message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message && t.Field == e.Field
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// NewValidationError creates a validation error without a field scope.
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// NewFieldError creates a validation error scoped to a form field.
func NewFieldError(field, message string) *Error {
	return &Error{Kind: KindValidation, Message: message, Field: field}
}

// NewNotFoundError creates a not-found error for the given entity.
func NewNotFoundError(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// NewInvalidStateError creates an error for a disallowed state transition.
func NewInvalidStateError(from, to string) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf("cannot transition from %s to %s", from, to)}
}

// NewConflictError creates a conflict error.
func NewConflictError(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// NewForbiddenError creates a forbidden error.
func NewForbiddenError(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// NewUnauthorizedError creates an unauthorized error.
func NewUnauthorizedError(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// NewUnavailableError reports that information needed to decide is missing.
func NewUnavailableError(message string) *Error {
	return &Error{Kind: KindUnavailable, Message: message}
}

// NewUpstreamError wraps a failed remote transaction step.
func NewUpstreamError(step, message string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Step: step, Err: err}
}

// KindOf returns the kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// As extracts the application error from err.
func As(err error) (*Error, bool) {
	var appErr *Error
	ok := errors.As(err, &appErr)
	return appErr, ok
}
