package events

import (
	"context"

	"github.com/google/uuid"
	"github.com/ridemax/service-booking/internal/application"
	"github.com/ridemax/service-booking/internal/contract"
	"github.com/ridemax/service-booking/internal/platform/domain"
	"github.com/ridemax/service-booking/internal/platform/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const dispatchActor = "dispatch"

// BookingTransitioner is the slice of BookingService the consumer drives.
type BookingTransitioner interface {
	ConfirmBooking(ctx context.Context, bookingID uuid.UUID, actor string) (*application.BookingDTO, error)
	CompleteBooking(ctx context.Context, bookingID uuid.UUID, actor string) (*application.BookingDTO, error)
	CancelBooking(ctx context.Context, bookingID uuid.UUID, actor, reason string) (*application.BookingDTO, error)
}

// DispatchEventConsumer applies driver dispatch outcomes to bookings.
type DispatchEventConsumer struct {
	consumer *kafka.Consumer
	bookings BookingTransitioner
	logger   *zap.Logger
}

// NewDispatchEventConsumer subscribes to the dispatch topic.
func NewDispatchEventConsumer(
	brokers []string,
	groupID string,
	bookings BookingTransitioner,
	logger *zap.Logger,
) *DispatchEventConsumer {
	return &DispatchEventConsumer{
		consumer: kafka.NewConsumer(brokers, groupID, contract.TopicDispatchEvents, logger),
		bookings: bookings,
		logger:   logger,
	}
}

// Start blocks until ctx is cancelled.
func (c *DispatchEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying reader.
func (c *DispatchEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *DispatchEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	ce, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from dispatch topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // malformed messages are not retried
	}
	return c.handle(ctx, ce)
}

func (c *DispatchEventConsumer) handle(ctx context.Context, ce kafka.CloudEvent) error {
	switch ce.Type {
	case contract.DispatchBookingConfirmed, contract.DispatchTripCompleted, contract.DispatchBookingRejected:
	default:
		c.logger.Debug("ignoring unhandled dispatch event type", zap.String("type", ce.Type))
		return nil
	}

	var evt contract.DispatchEvent
	if err := ce.ParseData(&evt); err != nil || evt.BookingID == uuid.Nil {
		c.logger.Error("failed to parse DispatchEvent data",
			zap.String("type", ce.Type),
			zap.String("event_id", ce.ID),
			zap.Error(err),
		)
		return nil
	}

	log := c.logger.With(
		zap.String("type", ce.Type),
		zap.String("booking_id", evt.BookingID.String()),
	)

	var err error
	switch ce.Type {
	case contract.DispatchBookingConfirmed:
		_, err = c.bookings.ConfirmBooking(ctx, evt.BookingID, dispatchActor)
	case contract.DispatchTripCompleted:
		_, err = c.bookings.CompleteBooking(ctx, evt.BookingID, dispatchActor)
	case contract.DispatchBookingRejected:
		reason := evt.Reason
		if reason == "" {
			reason = "rejected by dispatch"
		}
		_, err = c.bookings.CancelBooking(ctx, evt.BookingID, dispatchActor, reason)
	}

	if err != nil {
		if appErr, ok := domain.AsAppError(err); ok && !appErr.Retryable() {
			// Redelivery cannot fix a missing booking or an illegal transition.
			log.Warn("dispatch event not applied", zap.Error(err))
			return nil
		}
		log.Error("failed to apply dispatch event", zap.Error(err))
		return err
	}

	log.Info("dispatch event applied", zap.String("driver", evt.DriverName))
	return nil
}
