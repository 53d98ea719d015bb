package reservation

import (
	"fmt"
	"strings"
	"time"

	"github.com/sool-market/service-reservation/internal/platform/apperr"
)

// ExperienceRef is the part of an experience a confirmed reservation remembers.
type ExperienceRef struct {
	ID          int64
	Name        string
	BreweryID   int64
	BreweryName string
}

// Reservation is the aggregate root for a confirmed experience booking.
type Reservation struct {
	id         int64
	ownerID    string
	experience ExperienceRef
	date       string
	time       string
	headCount  int
	payerName  string
	payerPhone string
	totalPrice int64
	status     Status

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewReservation creates a reservation as reported by the platform after a successful booking.
func NewReservation(
	id int64,
	ownerID string,
	experience ExperienceRef,
	date, slotTime string,
	headCount int,
	payerName, payerPhone string,
	totalPrice int64,
	status Status,
) (*Reservation, error) {
	if id <= 0 {
		return nil, apperr.NewValidationError("reservation ID is required")
	}
	if strings.TrimSpace(ownerID) == "" {
		return nil, apperr.NewValidationError("owner ID is required")
	}
	if !ValidDate(date) {
		return nil, apperr.NewValidationError(fmt.Sprintf("invalid reservation date: %q", date))
	}
	normalized, err := NormalizeTime(slotTime)
	if err != nil {
		return nil, apperr.NewValidationError(err.Error())
	}
	if headCount < 1 {
		return nil, apperr.NewValidationError("head-count must be at least 1")
	}
	if totalPrice < 0 {
		return nil, apperr.NewValidationError("total price must not be negative")
	}
	if !status.IsValid() {
		return nil, apperr.NewValidationError(fmt.Sprintf("invalid reservation status: %s", status))
	}

	now := time.Now().UTC()
	return &Reservation{
		id:         id,
		ownerID:    ownerID,
		experience: experience,
		date:       date,
		time:       normalized,
		headCount:  headCount,
		payerName:  payerName,
		payerPhone: payerPhone,
		totalPrice: totalPrice,
		status:     status,
		version:    1,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// ReconstructReservation rebuilds a Reservation from persistence data (no validation).
func ReconstructReservation(
	id int64,
	ownerID string,
	experience ExperienceRef,
	date, slotTime string,
	headCount int,
	payerName, payerPhone string,
	totalPrice int64,
	status Status,
	version int64,
	createdAt, updatedAt time.Time,
) *Reservation {
	return &Reservation{
		id:         id,
		ownerID:    ownerID,
		experience: experience,
		date:       date,
		time:       slotTime,
		headCount:  headCount,
		payerName:  payerName,
		payerPhone: payerPhone,
		totalPrice: totalPrice,
		status:     status,
		version:    version,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}

// --- Getters ---

func (r *Reservation) ID() int64                 { return r.id }
func (r *Reservation) OwnerID() string           { return r.ownerID }
func (r *Reservation) Experience() ExperienceRef { return r.experience }
func (r *Reservation) Date() string              { return r.date }
func (r *Reservation) Time() string              { return r.time }
func (r *Reservation) HeadCount() int            { return r.headCount }
func (r *Reservation) PayerName() string         { return r.payerName }
func (r *Reservation) PayerPhone() string        { return r.payerPhone }
func (r *Reservation) TotalPrice() int64         { return r.totalPrice }
func (r *Reservation) Status() Status            { return r.status }
func (r *Reservation) Version() int64            { return r.version }
func (r *Reservation) CreatedAt() time.Time      { return r.createdAt }
func (r *Reservation) UpdatedAt() time.Time      { return r.updatedAt }

// Own returns the seats this reservation already holds, for capacity reconciliation.
func (r *Reservation) Own() *OwnBooking {
	return &OwnBooking{Date: r.date, Time: r.time, HeadCount: r.headCount}
}

// --- Behavior ---

// Reschedule rebinds the reservation to a new slot and head-count after the platform
// accepted the change. The total is rescaled from the previous per-person price and
// the reservation goes back to PENDING until it is confirmed again.
func (r *Reservation) Reschedule(date, slotTime string, headCount int) error {
	if r.status.IsTerminal() {
		return apperr.NewInvalidStateError(string(r.status), string(StatusPending))
	}
	if !ValidDate(date) {
		return apperr.NewFieldError(FieldSchedule, fmt.Sprintf("invalid reservation date: %q", date))
	}
	normalized, err := NormalizeTime(slotTime)
	if err != nil {
		return apperr.NewFieldError(FieldSchedule, err.Error())
	}
	if headCount < 1 {
		return apperr.NewFieldError(FieldCount, "head-count must be at least 1")
	}

	r.totalPrice = RescaleTotal(r.totalPrice, r.headCount, headCount)
	r.date = date
	r.time = normalized
	r.headCount = headCount
	r.status = StatusPending
	r.updatedAt = time.Now().UTC()
	return nil
}

// Cancel transitions the reservation to CANCELLED if it is not in a terminal state.
func (r *Reservation) Cancel() error {
	if !r.status.CanBeCancelled() {
		return apperr.NewInvalidStateError(string(r.status), string(StatusCancelled))
	}
	r.status = StatusCancelled
	r.updatedAt = time.Now().UTC()
	return nil
}

// CanDelete reports whether the reservation may be removed from history.
func (r *Reservation) CanDelete() bool {
	return r.status.IsTerminal()
}

// EnsureDeletable returns an invalid-state error unless the reservation is terminal.
func (r *Reservation) EnsureDeletable() error {
	if !r.CanDelete() {
		return apperr.New(apperr.KindInvalidState,
			fmt.Sprintf("only cancelled or completed reservations can be deleted, current status is %s", r.status))
	}
	return nil
}

// SyncStatus applies a status reported by the platform. The platform is the
// authority, so any known status is accepted. It reports whether anything changed.
func (r *Reservation) SyncStatus(status Status) (bool, error) {
	if !status.IsValid() {
		return false, apperr.NewValidationError(fmt.Sprintf("invalid reservation status: %s", status))
	}
	if status == r.status {
		return false, nil
	}
	r.status = status
	r.updatedAt = time.Now().UTC()
	return true, nil
}

// IncrementVersion bumps the version for optimistic locking.
func (r *Reservation) IncrementVersion() {
	r.version++
	r.updatedAt = time.Now().UTC()
}
