package events

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sool-market/service-reservation/internal/platform/kafka"
)

// EventReservationStatusChanged is the platform event carrying a new reservation status.
const EventReservationStatusChanged = "reservation.status_changed"

// StatusChangedEvent is the data of a status change event.
type StatusChangedEvent struct {
	ReservationID int64  `json:"reservation_id"`
	Status        string `json:"status"`
}

// StatusSyncer applies platform status changes to the local reservation copy.
type StatusSyncer interface {
	SyncStatus(ctx context.Context, reservationID int64, status string) error
}

// StatusEventConsumer listens to platform status events and syncs the reservation cache.
type StatusEventConsumer struct {
	consumer *kafka.Consumer
	syncer   StatusSyncer
	logger   *zap.Logger
}

// NewStatusEventConsumer creates a new StatusEventConsumer.
func NewStatusEventConsumer(
	brokers []string,
	groupID string,
	topic string,
	syncer StatusSyncer,
	logger *zap.Logger,
) *StatusEventConsumer {
	return &StatusEventConsumer{
		consumer: kafka.NewConsumer(brokers, groupID, topic, logger),
		syncer:   syncer,
		logger:   logger,
	}
}

// Start begins consuming status events. This blocks until the context is cancelled.
func (c *StatusEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *StatusEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *StatusEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from status topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // malformed messages are never retried
	}

	switch cloudEvent.Type {
	case EventReservationStatusChanged:
		return c.handleStatusChanged(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled status event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *StatusEventConsumer) handleStatusChanged(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt StatusChangedEvent
	if err := cloudEvent.ParseData(&evt); err != nil || evt.ReservationID <= 0 {
		c.logger.Error("failed to parse StatusChangedEvent data",
			zap.String("event_id", cloudEvent.ID),
			zap.Error(err),
		)
		return nil
	}

	if err := c.syncer.SyncStatus(ctx, evt.ReservationID, evt.Status); err != nil {
		c.logger.Error("failed to sync reservation status",
			zap.Int64("reservation_id", evt.ReservationID),
			zap.String("status", evt.Status),
			zap.Error(err),
		)
		return err
	}
	return nil
}
