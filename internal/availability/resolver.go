// Package availability resolves bookable slots and unavailable dates for an
// experience. Lookups never fail: a platform error degrades to an empty result.
package availability

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sool-market/service-reservation/internal/domain/reservation"
	"github.com/sool-market/service-reservation/internal/platform/metrics"
)

// Source is the platform calendar.
type Source interface {
	TimeInfo(ctx context.Context, experienceID int64, date string) (reservation.SlotAvailability, error)
	UnavailableDates(ctx context.Context, experienceID int64, year, month int) (reservation.UnavailableDateSet, error)
}

// Resolver reads availability from the platform calendar.
type Resolver struct {
	source Source
	logger *zap.Logger
}

// NewResolver creates a new Resolver.
func NewResolver(source Source, logger *zap.Logger) *Resolver {
	return &Resolver{source: source, logger: logger}
}

// SlotsForDate returns the bookable times of experienceID on date. On failure
// no times are returned, so nothing can be selected.
func (r *Resolver) SlotsForDate(ctx context.Context, experienceID int64, date string) reservation.SlotAvailability {
	slots, err := r.source.TimeInfo(ctx, experienceID, date)
	if err != nil {
		r.fallback(ctx, "slots", err,
			zap.Int64("experience_id", experienceID),
			zap.String("date", date),
		)
		return reservation.SlotAvailability{}
	}
	return slots
}

// UnavailableDates returns the fully booked dates of year/month. On failure
// the set is empty, so every date stays selectable until its slots are checked.
func (r *Resolver) UnavailableDates(ctx context.Context, experienceID int64, year, month int) reservation.UnavailableDateSet {
	dates, err := r.source.UnavailableDates(ctx, experienceID, year, month)
	if err != nil {
		r.fallback(ctx, "unavailable_dates", err,
			zap.Int64("experience_id", experienceID),
			zap.Int("year", year),
			zap.Int("month", month),
		)
		return reservation.UnavailableDateSet{}
	}
	if dates == nil {
		dates = reservation.UnavailableDateSet{}
	}
	return dates
}

func (r *Resolver) fallback(ctx context.Context, kind string, err error, fields ...zap.Field) {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		r.logger.Debug("availability lookup cancelled", append(fields, zap.String("kind", kind))...)
		return
	}
	metrics.AvailabilityFallback(kind)
	r.logger.Warn("availability lookup failed, using empty result",
		append(fields, zap.String("kind", kind), zap.Error(err))...)
}
