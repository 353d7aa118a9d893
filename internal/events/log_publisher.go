package events

import (
	"context"

	"github.com/ridemax/service-booking/internal/platform/kafka"
	"go.uber.org/zap"
)

// LogPublisher stands in for the Kafka producer when no broker is configured.
// Events are written to the log so operators can still follow the booking flow.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// PublishEvent logs the event envelope and never fails.
func (p *LogPublisher) PublishEvent(_ context.Context, topic string, ce kafka.CloudEvent) error {
	p.logger.Info("event published (kafka disabled)",
		zap.String("topic", topic),
		zap.String("type", ce.Type),
		zap.String("id", ce.ID),
		zap.String("subject", ce.Subject),
		zap.ByteString("data", ce.Data),
	)
	return nil
}

// Close is a no-op.
func (p *LogPublisher) Close() error { return nil }
