package reservation

import (
	"fmt"

	"github.com/sool-market/service-reservation/internal/platform/apperr"
)

// ChangeRequest is a new slot and head-count for an existing reservation.
type ChangeRequest struct {
	Date      string
	Time      string
	HeadCount int
}

// ChangeContext is the availability known for the requested date.
type ChangeContext struct {
	Unavailable   UnavailableDateSet
	Slots         SlotAvailability
	ExperienceMax int
}

// ValidateChange checks a change request against availability. The
// reservation's own seats count as free when the slot stays the same.
// The normalized request and the ceiling of the requested slot are returned.
func ValidateChange(r *Reservation, req ChangeRequest, in ChangeContext) (ChangeRequest, int, error) {
	if r.Status().IsTerminal() {
		return req, 0, apperr.NewInvalidStateError(string(r.Status()), string(StatusPending))
	}
	if !ValidDate(req.Date) {
		return req, 0, apperr.NewFieldError(FieldSchedule, fmt.Sprintf("invalid date %q", req.Date))
	}
	if in.Unavailable.Contains(req.Date) {
		return req, 0, apperr.NewFieldError(FieldSchedule, fmt.Sprintf("%s has no bookable times", req.Date))
	}
	slotTime, err := NormalizeTime(req.Time)
	if err != nil {
		return req, 0, apperr.NewFieldError(FieldSchedule, err.Error())
	}
	req.Time = slotTime

	if !in.Slots.Has(req.Time) {
		return req, 0, apperr.NewFieldError(FieldSchedule, fmt.Sprintf("%s is not bookable on %s", req.Time, req.Date))
	}

	own := r.Own()
	slot := in.Slots.Slot(req.Date, req.Time)
	if err := checkSlot(slot, in.ExperienceMax, own); err != nil {
		return req, 0, err
	}
	ceiling := EffectiveMax(slot, in.ExperienceMax, own)
	switch {
	case req.HeadCount < 1:
		return req, ceiling, apperr.NewFieldError(FieldCount, "head-count must be at least 1")
	case req.HeadCount > ceiling:
		return req, ceiling, apperr.NewFieldError(FieldCount, fmt.Sprintf("at most %d people can book this time", ceiling))
	}
	return req, ceiling, nil
}
