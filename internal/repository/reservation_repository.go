package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sool-market/service-reservation/internal/domain/reservation"
	"github.com/sool-market/service-reservation/internal/platform/apperr"
)

// ReservationModel is the GORM model for the reservations table.
type ReservationModel struct {
	ID              int64     `gorm:"primaryKey;autoIncrement:false"`
	OwnerID         string    `gorm:"index;not null;size:64"`
	ExperienceID    int64     `gorm:"not null"`
	ExperienceName  string    `gorm:"not null;size:200"`
	BreweryID       int64     `gorm:""`
	BreweryName     string    `gorm:"size:200"`
	ReservationDate string    `gorm:"not null;size:10;index"`
	ReservationTime string    `gorm:"not null;size:5"`
	HeadCount       int       `gorm:"not null"`
	PayerName       string    `gorm:"size:100"`
	PayerPhone      string    `gorm:"size:30"`
	TotalPrice      int64     `gorm:"not null"`
	Status          string    `gorm:"not null;size:20;index"`
	Version         int64     `gorm:"not null;default:1"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (ReservationModel) TableName() string {
	return "reservations"
}

// refreshedColumns are overwritten when the platform reports a fresher copy.
var refreshedColumns = []string{
	"owner_id",
	"experience_id",
	"experience_name",
	"brewery_id",
	"brewery_name",
	"reservation_date",
	"reservation_time",
	"head_count",
	"payer_name",
	"payer_phone",
	"total_price",
	"status",
	"updated_at",
}

// GormReservationRepository is the GORM-based implementation of ReservationRepository.
type GormReservationRepository struct {
	db *gorm.DB
}

// NewGormReservationRepository creates a new GormReservationRepository.
func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

// FindByID retrieves a cached reservation by its platform identifier.
func (r *GormReservationRepository) FindByID(ctx context.Context, id int64) (*reservation.Reservation, error) {
	var model ReservationModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewNotFoundError("Reservation", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("failed to find reservation by ID: %w", err)
	}
	return toDomainReservation(&model), nil
}

// FindByOwnerID retrieves an owner's cached reservations, latest schedule first.
func (r *GormReservationRepository) FindByOwnerID(ctx context.Context, ownerID string, offset, limit int) ([]*reservation.Reservation, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&ReservationModel{}).Where("owner_id = ?", ownerID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count owner reservations: %w", err)
	}

	var models []ReservationModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("reservation_date DESC").
		Order("reservation_time DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find owner reservations: %w", err)
	}

	reservations := make([]*reservation.Reservation, len(models))
	for i := range models {
		reservations[i] = toDomainReservation(&models[i])
	}
	return reservations, total, nil
}

// Upsert inserts a reservation, or overwrites the cached copy and bumps its version.
func (r *GormReservationRepository) Upsert(ctx context.Context, res *reservation.Reservation) error {
	model := toReservationModel(res)

	updates := clause.AssignmentColumns(refreshedColumns)
	updates = append(updates, clause.Assignment{
		Column: clause.Column{Name: "version"},
		Value:  gorm.Expr("reservations.version + 1"),
	})

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: updates,
		}).
		Create(model).Error
	if err != nil {
		return fmt.Errorf("failed to upsert reservation: %w", err)
	}
	return nil
}

// Update persists changes to a cached reservation with optimistic locking.
func (r *GormReservationRepository) Update(ctx context.Context, res *reservation.Reservation) error {
	model := toReservationModel(res)

	// IncrementVersion was called on the aggregate, so the stored row is one behind.
	expectedVersion := res.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&ReservationModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"reservation_date": model.ReservationDate,
			"reservation_time": model.ReservationTime,
			"head_count":       model.HeadCount,
			"payer_name":       model.PayerName,
			"payer_phone":      model.PayerPhone,
			"total_price":      model.TotalPrice,
			"status":           model.Status,
			"version":          model.Version,
			"updated_at":       model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update reservation: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return apperr.NewConflictError("reservation was modified by another transaction")
	}

	return nil
}

// Delete removes a reservation from the cache. Deleting a missing row is not an error.
func (r *GormReservationRepository) Delete(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&ReservationModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	return nil
}

// --- Mapping helpers ---

func toReservationModel(res *reservation.Reservation) *ReservationModel {
	exp := res.Experience()
	return &ReservationModel{
		ID:              res.ID(),
		OwnerID:         res.OwnerID(),
		ExperienceID:    exp.ID,
		ExperienceName:  exp.Name,
		BreweryID:       exp.BreweryID,
		BreweryName:     exp.BreweryName,
		ReservationDate: res.Date(),
		ReservationTime: res.Time(),
		HeadCount:       res.HeadCount(),
		PayerName:       res.PayerName(),
		PayerPhone:      res.PayerPhone(),
		TotalPrice:      res.TotalPrice(),
		Status:          string(res.Status()),
		Version:         res.Version(),
		CreatedAt:       res.CreatedAt(),
		UpdatedAt:       res.UpdatedAt(),
	}
}

func toDomainReservation(m *ReservationModel) *reservation.Reservation {
	return reservation.ReconstructReservation(
		m.ID,
		m.OwnerID,
		reservation.ExperienceRef{
			ID:          m.ExperienceID,
			Name:        m.ExperienceName,
			BreweryID:   m.BreweryID,
			BreweryName: m.BreweryName,
		},
		m.ReservationDate,
		m.ReservationTime,
		m.HeadCount,
		m.PayerName,
		m.PayerPhone,
		m.TotalPrice,
		reservation.Status(m.Status),
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	)
}
