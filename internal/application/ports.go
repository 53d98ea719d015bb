package application

import (
	"context"

	"github.com/sool-market/service-reservation/internal/domain/reservation"
	"github.com/sool-market/service-reservation/internal/platform/kafka"
	"github.com/sool-market/service-reservation/internal/session"
	"github.com/sool-market/service-reservation/internal/upstream"
)

// Platform is the commerce platform API used by the reservation use cases.
type Platform interface {
	Prepare(ctx context.Context, req upstream.PrepareRequest) (string, error)
	Confirm(ctx context.Context, req upstream.ConfirmRequest) error
	Change(ctx context.Context, req upstream.ChangeRequest) error
	Cancel(ctx context.Context, reservationID int64) error
	DeleteHistory(ctx context.Context, reservationID int64) error
	MyReservations(ctx context.Context, offset int) ([]*reservation.Reservation, bool, error)
	Brewery(ctx context.Context, breweryID int64) (reservation.Brewery, error)
	SearchBreweries(ctx context.Context, keyword string) ([]reservation.BrewerySummary, error)
}

// Calendar answers month-level availability questions.
type Calendar interface {
	UnavailableDates(ctx context.Context, experienceID int64, year, month int) reservation.UnavailableDateSet
}

// SlotFeed fetches slots for a caller, dropping fetches a newer selection replaced.
type SlotFeed interface {
	Fetch(ctx context.Context, key string, seq, experienceID int64, date string) (reservation.SlotAvailability, error)
}

// SessionStore loads and saves booking sessions.
type SessionStore interface {
	Load(ctx context.Context, id string) (*session.Session, error)
	Save(ctx context.Context, sess *session.Session) error
	Replace(ctx context.Context, sess *session.Session) error
	Delete(ctx context.Context, id string) error
}

// EventPublisher publishes reservation lifecycle events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event kafka.CloudEvent) error
}
