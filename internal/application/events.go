package application

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sool-market/service-reservation/internal/domain/reservation"
	"github.com/sool-market/service-reservation/internal/platform/kafka"
)

const eventSource = "service-reservation"

// Reservation lifecycle event types.
const (
	EventReservationRequested = "reservation.requested"
	EventReservationChanged   = "reservation.changed"
	EventReservationCancelled = "reservation.cancelled"
	EventReservationDeleted   = "reservation.deleted"
)

// ReservationRequestedEvent is published after a booking passed prepare and confirm.
type ReservationRequestedEvent struct {
	OrderID      string    `json:"order_id"`
	PaymentKey   string    `json:"payment_key"`
	UserID       string    `json:"user_id"`
	ExperienceID int64     `json:"experience_id"`
	BreweryID    int64     `json:"brewery_id"`
	Date         string    `json:"reservation_date"`
	Time         string    `json:"reservation_time"`
	HeadCount    int       `json:"head_count"`
	TotalAmount  int64     `json:"total_amount"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// ReservationChangedEvent is published after the platform accepted a change.
type ReservationChangedEvent struct {
	ReservationID     int64     `json:"reservation_id"`
	UserID            string    `json:"user_id"`
	PreviousDate      string    `json:"previous_date"`
	PreviousTime      string    `json:"previous_time"`
	PreviousHeadCount int       `json:"previous_head_count"`
	Date              string    `json:"reservation_date"`
	Time              string    `json:"reservation_time"`
	HeadCount         int       `json:"head_count"`
	TotalPrice        int64     `json:"total_price"`
	Status            string    `json:"status"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// ReservationStatusEvent is published on cancel and delete.
type ReservationStatusEvent struct {
	ReservationID int64     `json:"reservation_id"`
	UserID        string    `json:"user_id"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// eventPublisher wraps the producer so that a broker failure never fails a use case.
type eventPublisher struct {
	producer EventPublisher
	topic    string
	logger   *zap.Logger
}

func (p eventPublisher) publish(ctx context.Context, eventType, key string, data interface{}) {
	if p.producer == nil {
		return
	}
	cloudEvent, err := kafka.NewCloudEvent(eventSource, eventType, data)
	if err != nil {
		p.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := p.producer.PublishEvent(ctx, p.topic, key, cloudEvent); err != nil {
		p.logger.Error("failed to publish event",
			zap.String("topic", p.topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

func (p eventPublisher) publishStatus(ctx context.Context, eventType string, r *reservation.Reservation) {
	p.publish(ctx, eventType, reservationKey(r.ID()), ReservationStatusEvent{
		ReservationID: r.ID(),
		UserID:        r.OwnerID(),
		Status:        string(r.Status()),
		OccurredAt:    time.Now().UTC(),
	})
}

func reservationKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
