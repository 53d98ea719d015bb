package application

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sool-market/service-reservation/internal/availability"
	"github.com/sool-market/service-reservation/internal/domain/reservation"
	"github.com/sool-market/service-reservation/internal/platform/apperr"
	"github.com/sool-market/service-reservation/internal/platform/auth"
	"github.com/sool-market/service-reservation/internal/platform/metrics"
	"github.com/sool-market/service-reservation/internal/upstream"
)

// EditService is the application service for changing an existing reservation.
type EditService struct {
	repo     reservation.ReservationRepository
	platform Platform
	calendar Calendar
	slots    SlotFeed
	lookup   *ExperienceLookup
	events   eventPublisher
	logger   *zap.Logger
}

// NewEditService creates a new EditService.
func NewEditService(
	repo reservation.ReservationRepository,
	platform Platform,
	calendar Calendar,
	slots SlotFeed,
	producer EventPublisher,
	eventsTopic string,
	logger *zap.Logger,
) *EditService {
	return &EditService{
		repo:     repo,
		platform: platform,
		calendar: calendar,
		slots:    slots,
		lookup:   NewExperienceLookup(platform),
		events:   eventPublisher{producer: producer, topic: eventsTopic, logger: logger},
		logger:   logger,
	}
}

// editContext is what is known about a candidate date.
type editContext struct {
	reservation.ChangeContext
	Month string
}

// View shows the candidate date of a change. An empty date means the current
// one. On the current date the current time and head-count are preselected;
// on any other date the time is cleared and the head-count is 1.
func (s *EditService) View(ctx context.Context, caller auth.Identity, sessionID string, reservationID int64, date string) (*EditView, error) {
	r, err := s.findChangeable(ctx, caller, reservationID)
	if err != nil {
		return nil, err
	}
	if date == "" {
		date = r.Date()
	}
	in, err := s.resolve(ctx, sessionID, r, date)
	if err != nil {
		return nil, err
	}

	own := r.Own()
	sel := reservation.Selection{Date: date, Slots: in.Slots}
	view := &EditView{
		Reservation:      toReservationDTO(r),
		Date:             date,
		Month:            in.Month,
		UnavailableDates: in.Unavailable.Sorted(),
		Times:            sel.SlotViews(in.ExperienceMax, own),
		HeadCount:        1,
		ExperienceMax:    in.ExperienceMax,
		CapacityKnown:    in.ExperienceMax > 0,
	}
	if date == r.Date() {
		view.Time = r.Time()
		view.HeadCount = r.HeadCount()
	}
	return view, nil
}

// Submit validates a change against current availability and applies it on the
// platform. The local copy is only updated after the platform accepted it.
func (s *EditService) Submit(ctx context.Context, caller auth.Identity, sessionID string, reservationID int64, req ChangeReservationRequest) (*ReservationDTO, error) {
	r, err := s.findChangeable(ctx, caller, reservationID)
	if err != nil {
		return nil, err
	}
	in, err := s.resolve(ctx, sessionID, r, req.Date)
	if err != nil {
		return nil, err
	}

	change, _, err := reservation.ValidateChange(r, reservation.ChangeRequest{
		Date:      req.Date,
		Time:      req.Time,
		HeadCount: req.HeadCount,
	}, in.ChangeContext)
	if err != nil {
		metrics.Submission("change", "invalid")
		return nil, err
	}

	if err := s.platform.Change(ctx, upstream.ChangeRequest{
		ReservationID: r.ID(),
		Date:          change.Date,
		Time:          change.Time,
		HeadCount:     change.HeadCount,
	}); err != nil {
		metrics.Submission("change", "change_failed")
		return nil, transactionError(StepChange, "the reservation could not be changed", err)
	}
	metrics.Submission("change", "success")

	previous := *r.Own()
	reschedule := func(res *reservation.Reservation) error {
		return res.Reschedule(change.Date, change.Time, change.HeadCount)
	}
	if err := reschedule(r); err != nil {
		return nil, err
	}
	r, err = storeAccepted(ctx, s.repo, r, reschedule)
	if err != nil {
		s.logger.Error("failed to update cached reservation after change",
			zap.Int64("reservation_id", reservationID),
			zap.Error(err),
		)
		return nil, err
	}

	s.events.publish(ctx, EventReservationChanged, reservationKey(r.ID()), ReservationChangedEvent{
		ReservationID:     r.ID(),
		UserID:            r.OwnerID(),
		PreviousDate:      previous.Date,
		PreviousTime:      previous.Time,
		PreviousHeadCount: previous.HeadCount,
		Date:              r.Date(),
		Time:              r.Time(),
		HeadCount:         r.HeadCount(),
		TotalPrice:        r.TotalPrice(),
		Status:            string(r.Status()),
		OccurredAt:        time.Now().UTC(),
	})

	result := toReservationDTO(r)
	return &result, nil
}

func (s *EditService) findChangeable(ctx context.Context, caller auth.Identity, reservationID int64) (*reservation.Reservation, error) {
	r, err := findOwned(ctx, s.repo, caller, reservationID)
	if err != nil {
		return nil, err
	}
	if r.Status().IsTerminal() {
		return nil, apperr.NewInvalidStateError(string(r.Status()), string(reservation.StatusPending))
	}
	return r, nil
}

// resolve gathers the experience maximum, the unavailable dates of the month
// and the slots of date.
func (s *EditService) resolve(ctx context.Context, sessionID string, r *reservation.Reservation, date string) (editContext, error) {
	day, err := time.Parse(reservation.DateLayout, date)
	if err != nil {
		return editContext{}, apperr.NewFieldError(reservation.FieldSchedule, "invalid date "+date)
	}

	experienceMax := 0
	exp, err := s.lookup.Find(ctx, r.Experience())
	if err != nil {
		metrics.AvailabilityFallback("experience_max")
		s.logger.Warn("experience maximum unavailable",
			zap.Int64("reservation_id", r.ID()),
			zap.Int64("experience_id", r.Experience().ID),
			zap.Error(err),
		)
	} else {
		experienceMax = exp.MaxCount
	}

	experienceID := r.Experience().ID
	unavailable := s.calendar.UnavailableDates(ctx, experienceID, day.Year(), int(day.Month()))
	// edit views keep no selection state, so arrival order decides
	slots, err := s.slots.Fetch(ctx, editFeedKey(sessionID, r.ID()), time.Now().UnixNano(), experienceID, date)
	if err != nil {
		if errors.Is(err, availability.ErrSuperseded) {
			return editContext{}, apperr.NewConflictError("a newer date selection replaced this one")
		}
		return editContext{}, err
	}

	return editContext{
		ChangeContext: reservation.ChangeContext{
			Unavailable:   unavailable,
			Slots:         slots,
			ExperienceMax: experienceMax,
		},
		Month: day.Format(reservation.MonthLayout),
	}, nil
}

func editFeedKey(sessionID string, reservationID int64) string {
	return "edit:" + sessionID + ":" + reservationKey(reservationID)
}

// storeAccepted writes a change the platform already accepted to the local
// copy. On a version conflict the copy is reloaded and apply runs on it again.
func storeAccepted(
	ctx context.Context,
	repo reservation.ReservationRepository,
	r *reservation.Reservation,
	apply func(*reservation.Reservation) error,
) (*reservation.Reservation, error) {
	for attempt := 1; ; attempt++ {
		r.IncrementVersion()
		err := repo.Update(ctx, r)
		if err == nil {
			return r, nil
		}
		if apperr.KindOf(err) != apperr.KindConflict || attempt == maxSaveAttempts {
			return nil, cacheWriteError(err)
		}

		fresh, err := repo.FindByID(ctx, r.ID())
		if err != nil {
			return nil, cacheWriteError(err)
		}
		if err := apply(fresh); err != nil {
			return nil, cacheWriteError(err)
		}
		r = fresh
	}
}

func cacheWriteError(err error) error {
	return &apperr.Error{
		Kind:    apperr.KindInternal,
		Message: "the platform accepted the request but the local copy could not be updated",
		Err:     err,
	}
}

// findOwned loads a cached reservation and checks that caller owns it.
func findOwned(ctx context.Context, repo reservation.ReservationRepository, caller auth.Identity, reservationID int64) (*reservation.Reservation, error) {
	r, err := repo.FindByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if r.OwnerID() != caller.UserID {
		return nil, apperr.NewForbiddenError("reservation belongs to another user")
	}
	return r, nil
}
