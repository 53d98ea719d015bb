package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sool-market/service-reservation/internal/domain/reservation"
	"github.com/sool-market/service-reservation/internal/platform/apperr"
	"github.com/sool-market/service-reservation/internal/platform/auth"
)

// cachedPageSize is the page size used when serving the local copy.
const cachedPageSize = 10

// HistoryService is the application service for the caller's reservation history.
type HistoryService struct {
	repo     reservation.ReservationRepository
	platform Platform
	events   eventPublisher
	logger   *zap.Logger
}

// NewHistoryService creates a new HistoryService.
func NewHistoryService(
	repo reservation.ReservationRepository,
	platform Platform,
	producer EventPublisher,
	eventsTopic string,
	logger *zap.Logger,
) *HistoryService {
	return &HistoryService{
		repo:     repo,
		platform: platform,
		events:   eventPublisher{producer: producer, topic: eventsTopic, logger: logger},
		logger:   logger,
	}
}

// List returns one page of the caller's reservations and refreshes the local
// copy. When the platform is unreachable the page is served from the local copy.
func (s *HistoryService) List(ctx context.Context, caller auth.Identity, offset int) (*ReservationPage, error) {
	if offset < 0 {
		return nil, apperr.NewValidationError("offset must not be negative")
	}

	items, hasNext, err := s.platform.MyReservations(ctx, offset)
	if err != nil {
		s.logger.Warn("platform reservation list failed, serving cached copy",
			zap.String("user_id", caller.UserID),
			zap.Error(err),
		)
		cached, total, cacheErr := s.repo.FindByOwnerID(ctx, caller.UserID, offset, cachedPageSize)
		if cacheErr != nil {
			return nil, transactionError("list", "reservations are unavailable", err)
		}
		return &ReservationPage{
			Items:   toReservationDTOs(cached),
			Offset:  offset,
			HasNext: int64(offset+len(cached)) < total,
			Cached:  true,
		}, nil
	}

	for _, r := range items {
		if err := s.repo.Upsert(ctx, r); err != nil {
			s.logger.Error("failed to cache reservation",
				zap.Int64("reservation_id", r.ID()),
				zap.Error(err),
			)
		}
	}
	return &ReservationPage{
		Items:   toReservationDTOs(items),
		Offset:  offset,
		HasNext: hasNext,
	}, nil
}

// Get returns one cached reservation of the caller.
func (s *HistoryService) Get(ctx context.Context, caller auth.Identity, reservationID int64) (*ReservationDTO, error) {
	r, err := findOwned(ctx, s.repo, caller, reservationID)
	if err != nil {
		return nil, err
	}
	result := toReservationDTO(r)
	return &result, nil
}

// Cancel cancels a reservation on the platform, then in the local copy.
func (s *HistoryService) Cancel(ctx context.Context, caller auth.Identity, reservationID int64) (*ReservationDTO, error) {
	r, err := findOwned(ctx, s.repo, caller, reservationID)
	if err != nil {
		return nil, err
	}
	if err := r.Cancel(); err != nil {
		return nil, err
	}

	if err := s.platform.Cancel(ctx, r.ID()); err != nil {
		return nil, transactionError(StepCancel, "the reservation could not be cancelled", err)
	}

	r, err = storeAccepted(ctx, s.repo, r, func(res *reservation.Reservation) error {
		_, err := res.SyncStatus(reservation.StatusCancelled)
		return err
	})
	if err != nil {
		s.logger.Error("failed to update cached reservation after cancel",
			zap.Int64("reservation_id", reservationID),
			zap.Error(err),
		)
		return nil, err
	}
	s.events.publishStatus(ctx, EventReservationCancelled, r)

	result := toReservationDTO(r)
	return &result, nil
}

// Delete removes a cancelled or completed reservation from the caller's history.
func (s *HistoryService) Delete(ctx context.Context, caller auth.Identity, reservationID int64) error {
	r, err := findOwned(ctx, s.repo, caller, reservationID)
	if err != nil {
		return err
	}
	if err := r.EnsureDeletable(); err != nil {
		return err
	}

	if err := s.platform.DeleteHistory(ctx, r.ID()); err != nil {
		return transactionError(StepDelete, "the reservation could not be deleted", err)
	}
	if err := s.repo.Delete(ctx, r.ID()); err != nil {
		return fmt.Errorf("failed to delete cached reservation: %w", err)
	}
	s.events.publishStatus(ctx, EventReservationDeleted, r)
	return nil
}

// SyncStatus applies a status the platform reported for a reservation.
// Reservations that are not cached are ignored.
func (s *HistoryService) SyncStatus(ctx context.Context, reservationID int64, rawStatus string) error {
	status, err := reservation.ParseStatus(rawStatus)
	if err != nil {
		s.logger.Warn("ignoring status update", zap.Int64("reservation_id", reservationID), zap.Error(err))
		return nil
	}

	r, err := s.repo.FindByID(ctx, reservationID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil
		}
		return err
	}

	changed, err := r.SyncStatus(status)
	if err != nil || !changed {
		return err
	}
	r.IncrementVersion()
	if err := s.repo.Update(ctx, r); err != nil {
		return fmt.Errorf("failed to sync reservation %d status: %w", reservationID, err)
	}

	s.logger.Info("reservation status synced",
		zap.Int64("reservation_id", reservationID),
		zap.String("status", string(status)),
	)
	return nil
}
