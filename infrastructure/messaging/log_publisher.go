package messaging

import (
	"context"

	"watchlist-backend/application/ports"
	"watchlist-backend/domain/events"

	"go.uber.org/zap"
)

// LogPublisher stands in for the event bus in local mode and only logs
type LogPublisher struct {
	logger *zap.Logger
}

var _ ports.EventPublisher = (*LogPublisher)(nil)

// NewLogPublisher creates a publisher that writes events to the log
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.Named("event_bus")}
}

// PublishBatch logs each event at debug level
func (p *LogPublisher) PublishBatch(ctx context.Context, evs []events.DomainEvent) error {
	for _, e := range evs {
		p.logger.Debug("Event published locally",
			zap.String("eventID", e.EventID()),
			zap.String("eventType", e.EventType()),
			zap.String("aggregateID", e.AggregateID()))
	}
	return nil
}
