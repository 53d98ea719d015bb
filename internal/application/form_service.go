package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sool-market/service-reservation/internal/availability"
	"github.com/sool-market/service-reservation/internal/domain/reservation"
	"github.com/sool-market/service-reservation/internal/platform/apperr"
	"github.com/sool-market/service-reservation/internal/platform/auth"
	"github.com/sool-market/service-reservation/internal/platform/metrics"
	"github.com/sool-market/service-reservation/internal/session"
	"github.com/sool-market/service-reservation/internal/upstream"
)

// Transaction steps named in submission errors.
const (
	StepPrepare = "prepare"
	StepConfirm = "confirm"
	StepChange  = "change"
	StepCancel  = "cancel"
	StepDelete  = "delete"
)

const maxSaveAttempts = 3

// FormService is the application service driving the new-booking form.
type FormService struct {
	sessions SessionStore
	platform Platform
	calendar Calendar
	slots    SlotFeed
	events   eventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewFormService creates a new FormService.
func NewFormService(
	sessions SessionStore,
	platform Platform,
	calendar Calendar,
	slots SlotFeed,
	producer EventPublisher,
	eventsTopic string,
	logger *zap.Logger,
) *FormService {
	return &FormService{
		sessions: sessions,
		platform: platform,
		calendar: calendar,
		slots:    slots,
		events:   eventPublisher{producer: producer, topic: eventsTopic, logger: logger},
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// StartSession creates or resets the caller's booking session.
func (s *FormService) StartSession(ctx context.Context, caller auth.Identity, sessionID string) (*FormView, error) {
	existing, err := s.sessions.Load(ctx, sessionID)
	switch {
	case err == nil:
		if !existing.OwnedBy(caller.UserID) {
			return nil, apperr.NewForbiddenError("session belongs to another user")
		}
	case !errors.Is(err, session.ErrSessionNotFound):
		return nil, err
	}

	sess := session.New(sessionID, caller.UserID, caller.Nickname, s.now())
	if err := s.sessions.Replace(ctx, sess); err != nil {
		return nil, err
	}
	return toFormView(sess, s.now()), nil
}

// EndSession removes the caller's booking session and its draft.
func (s *FormService) EndSession(ctx context.Context, caller auth.Identity, sessionID string) error {
	if _, err := s.load(ctx, caller, sessionID); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// View returns the current draft.
func (s *FormService) View(ctx context.Context, caller auth.Identity, sessionID string) (*FormView, error) {
	sess, err := s.load(ctx, caller, sessionID)
	if err != nil {
		return nil, err
	}
	return toFormView(sess, s.now()), nil
}

// SelectExperience switches the draft to an experience and loads the unavailable
// dates of the current month for it.
func (s *FormService) SelectExperience(ctx context.Context, caller auth.Identity, sessionID string, req SelectExperienceRequest) (*FormView, error) {
	brewery, err := s.platform.Brewery(ctx, req.BreweryID)
	if err != nil {
		if upstream.IsNotFound(err) {
			return nil, apperr.NewNotFoundError("Brewery", reservationKey(req.BreweryID))
		}
		return nil, apperr.NewUpstreamError("brewery", "could not load the brewery", err)
	}
	exp, ok := brewery.FindExperience(req.ExperienceID, "")
	if !ok {
		return nil, apperr.NewNotFoundError("Experience", reservationKey(req.ExperienceID))
	}

	now := s.now()
	unavailable := s.calendar.UnavailableDates(ctx, exp.ID, now.Year(), int(now.Month()))

	sess, err := s.mutate(ctx, caller, sessionID, func(f *reservation.Form) error {
		f.SelectExperience(exp)
		f.SetUnavailable(now.Format(reservation.MonthLayout), unavailable)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toFormView(sess, s.now()), nil
}

// ChangeMonth loads the unavailable dates of another month.
func (s *FormService) ChangeMonth(ctx context.Context, caller auth.Identity, sessionID string, req ChangeMonthRequest) (*FormView, error) {
	current, err := s.load(ctx, caller, sessionID)
	if err != nil {
		return nil, err
	}
	if current.Form.Experience == nil {
		return nil, apperr.NewFieldError(reservation.FieldExperience, "select an experience first")
	}
	experienceID := current.Form.Experience.ID
	month := time.Date(req.Year, time.Month(req.Month), 1, 0, 0, 0, 0, time.UTC).Format(reservation.MonthLayout)
	unavailable := s.calendar.UnavailableDates(ctx, experienceID, req.Year, req.Month)

	sess, err := s.mutate(ctx, caller, sessionID, func(f *reservation.Form) error {
		if f.Experience == nil || f.Experience.ID != experienceID {
			return apperr.NewConflictError("the experience changed while the calendar was loading")
		}
		f.SetUnavailable(month, unavailable)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toFormView(sess, s.now()), nil
}

// SelectDate picks a date and fetches its slots once. A selection replaced by
// a newer one while its slots were loading fails with a conflict.
func (s *FormService) SelectDate(ctx context.Context, caller auth.Identity, sessionID string, req SelectDateRequest) (*FormView, error) {
	var experienceID, seq int64
	if _, err := s.mutate(ctx, caller, sessionID, func(f *reservation.Form) error {
		if err := f.SelectDate(req.Date); err != nil {
			return err
		}
		experienceID = f.Experience.ID
		seq = f.FetchSeq
		return nil
	}); err != nil {
		return nil, err
	}

	slots, err := s.slots.Fetch(ctx, formFeedKey(sessionID), seq, experienceID, req.Date)
	if err != nil {
		if errors.Is(err, availability.ErrSuperseded) {
			return nil, apperr.NewConflictError("a newer date selection replaced this one")
		}
		return nil, err
	}

	sess, err := s.mutate(ctx, caller, sessionID, func(f *reservation.Form) error {
		if !f.ApplySlots(seq, req.Date, slots) {
			return apperr.NewConflictError("a newer date selection replaced this one")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toFormView(sess, s.now()), nil
}

// SelectTime picks one of the fetched times.
func (s *FormService) SelectTime(ctx context.Context, caller auth.Identity, sessionID string, req SelectTimeRequest) (*FormView, error) {
	sess, err := s.mutate(ctx, caller, sessionID, func(f *reservation.Form) error {
		return f.SelectTime(req.Time)
	})
	if err != nil {
		return nil, err
	}
	return toFormView(sess, s.now()), nil
}

// SetHeadCount sets the head-count, lowering it to the slot ceiling with a notice.
func (s *FormService) SetHeadCount(ctx context.Context, caller auth.Identity, sessionID string, req SetHeadCountRequest) (*FormView, error) {
	sess, err := s.mutate(ctx, caller, sessionID, func(f *reservation.Form) error {
		return f.SetHeadCount(req.HeadCount)
	})
	if err != nil {
		return nil, err
	}
	return toFormView(sess, s.now()), nil
}

// SetContact records the payer.
func (s *FormService) SetContact(ctx context.Context, caller auth.Identity, sessionID string, req SetContactRequest) (*FormView, error) {
	sess, err := s.mutate(ctx, caller, sessionID, func(f *reservation.Form) error {
		f.SetContact(req.PayerName, req.PayerPhone)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toFormView(sess, s.now()), nil
}

// Discard throws the draft away.
func (s *FormService) Discard(ctx context.Context, caller auth.Identity, sessionID string) (*FormView, error) {
	sess, err := s.mutateSession(ctx, caller, sessionID, func(sess *session.Session) error {
		sess.ResetForm()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toFormView(sess, s.now()), nil
}

// Submit validates the draft and books it with prepare then confirm. Nothing
// changes locally unless both steps succeed.
func (s *FormService) Submit(ctx context.Context, caller auth.Identity, sessionID string) (*SubmitResult, error) {
	sess, err := s.load(ctx, caller, sessionID)
	if err != nil {
		return nil, err
	}
	f := sess.Form

	if err := s.checkSubmittable(f); err != nil {
		f.RecordError(err, s.now())
		s.saveQuietly(ctx, sess)
		metrics.Submission("new", "invalid")
		return nil, err
	}

	orderID, err := s.platform.Prepare(ctx, upstream.PrepareRequest{
		ExperienceID: f.Experience.ID,
		HeadCount:    f.HeadCount,
		PayerName:    f.PayerName,
		PayerPhone:   f.PayerPhone,
		Date:         f.Date,
		Time:         f.Time,
	})
	if err != nil {
		metrics.Submission("new", "prepare_failed")
		return nil, transactionError(StepPrepare, "the reservation could not be prepared", err)
	}

	result := &SubmitResult{
		OrderID:     orderID,
		PaymentKey:  uuid.NewString(),
		TotalAmount: f.TotalAmount(),
		Status:      string(reservation.StatusPending),
	}
	if err := s.platform.Confirm(ctx, upstream.ConfirmRequest{
		OrderID:     result.OrderID,
		PaymentKey:  result.PaymentKey,
		TotalAmount: result.TotalAmount,
	}); err != nil {
		metrics.Submission("new", "confirm_failed")
		s.logger.Warn("reservation left unconfirmed",
			zap.String("order_id", orderID),
			zap.String("user_id", caller.UserID),
			zap.Error(err),
		)
		return nil, transactionError(StepConfirm, "the reservation could not be confirmed", err)
	}
	metrics.Submission("new", "success")

	s.events.publish(ctx, EventReservationRequested, orderID, ReservationRequestedEvent{
		OrderID:      orderID,
		PaymentKey:   result.PaymentKey,
		UserID:       caller.UserID,
		ExperienceID: f.Experience.ID,
		BreweryID:    f.Experience.BreweryID,
		Date:         f.Date,
		Time:         f.Time,
		HeadCount:    f.HeadCount,
		TotalAmount:  result.TotalAmount,
		OccurredAt:   s.now(),
	})

	sess.ResetForm()
	s.saveQuietly(ctx, sess)

	s.logger.Info("reservation requested",
		zap.String("order_id", orderID),
		zap.String("user_id", caller.UserID),
		zap.Int64("total_amount", result.TotalAmount),
	)
	return result, nil
}

func (s *FormService) checkSubmittable(f *reservation.Form) error {
	if err := f.Validate(s.now()); err != nil {
		return err
	}
	if !f.CurrentCapacityKnown() {
		return reservation.ErrCapacityUnknown
	}
	if f.CurrentMax() < f.HeadCount {
		return apperr.NewFieldError(reservation.FieldCount,
			fmt.Sprintf("at most %d people can book this time", f.CurrentMax()))
	}
	return nil
}

func (s *FormService) load(ctx context.Context, caller auth.Identity, sessionID string) (*session.Session, error) {
	sess, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, sessionError(err)
	}
	if !sess.OwnedBy(caller.UserID) {
		return nil, apperr.NewForbiddenError("session belongs to another user")
	}
	return sess, nil
}

// mutate applies fn to the draft and saves it, reloading and reapplying when
// another request saved the session first. A field error from fn is shown on
// the form and returned.
func (s *FormService) mutate(ctx context.Context, caller auth.Identity, sessionID string, fn func(f *reservation.Form) error) (*session.Session, error) {
	return s.mutateSession(ctx, caller, sessionID, func(sess *session.Session) error {
		return fn(sess.Form)
	})
}

func (s *FormService) mutateSession(ctx context.Context, caller auth.Identity, sessionID string, fn func(sess *session.Session) error) (*session.Session, error) {
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		sess, err := s.load(ctx, caller, sessionID)
		if err != nil {
			return nil, err
		}

		if fnErr := fn(sess); fnErr != nil {
			if appErr, ok := apperr.As(fnErr); ok && appErr.Field != "" {
				sess.Form.RecordError(fnErr, s.now())
				s.saveQuietly(ctx, sess)
			}
			return nil, fnErr
		}

		err = s.sessions.Save(ctx, sess)
		if errors.Is(err, session.ErrStaleSession) {
			continue
		}
		if err != nil {
			return nil, sessionError(err)
		}
		return sess, nil
	}
	return nil, sessionError(session.ErrStaleSession)
}

// saveQuietly saves sess when losing the write is acceptable.
func (s *FormService) saveQuietly(ctx context.Context, sess *session.Session) {
	if err := s.sessions.Save(ctx, sess); err != nil {
		s.logger.Debug("session not saved", zap.String("session_id", sess.ID), zap.Error(err))
	}
}

func formFeedKey(sessionID string) string {
	return "form:" + sessionID
}

func sessionError(err error) error {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return apperr.New(apperr.KindNotFound, "booking session not found or expired, start a new one")
	case errors.Is(err, session.ErrStaleSession):
		return apperr.NewConflictError("the booking session was changed by another request, reload and retry")
	}
	return err
}

// transactionError names the failed step and carries the platform message when there is one.
func transactionError(step, fallback string, err error) error {
	message := upstream.MessageOf(err)
	if message == "" {
		message = fallback
	}
	return apperr.NewUpstreamError(step, message, err)
}
