package listeners

import (
	"context"

	appevents "watchlist-backend/application/events"
	"watchlist-backend/application/ports"
	"watchlist-backend/domain/events"

	"go.uber.org/zap"
)

// ActivityPublisher forwards watchlist facts to the external event bus.
// Delivery is best effort; a failure surfaces as a handler error on the commit.
type ActivityPublisher struct {
	publisher ports.EventPublisher
	logger    *zap.Logger
}

// NewActivityPublisher creates a new activity publisher
func NewActivityPublisher(publisher ports.EventPublisher, logger *zap.Logger) *ActivityPublisher {
	return &ActivityPublisher{
		publisher: publisher,
		logger:    logger.Named("activity_publisher"),
	}
}

// Subscribe registers the publisher for every user-visible watchlist fact
func (p *ActivityPublisher) Subscribe(d *appevents.Dispatcher) error {
	const name = "activity_publisher"
	if err := appevents.Register(d, name, publish[events.ItemAdded](p)); err != nil {
		return err
	}
	if err := appevents.Register(d, name, publish[events.ItemWatched](p)); err != nil {
		return err
	}
	if err := appevents.Register(d, name, publish[events.ItemRated](p)); err != nil {
		return err
	}
	if err := appevents.Register(d, name, publish[events.ItemFavorited](p)); err != nil {
		return err
	}
	return appevents.Register(d, name, publish[events.ItemRemoved](p))
}

func publish[E events.DomainEvent](p *ActivityPublisher) appevents.HandlerFunc[E] {
	return func(ctx context.Context, event E) error {
		if err := p.publisher.PublishBatch(ctx, []events.DomainEvent{event}); err != nil {
			return err
		}
		p.logger.Debug("Event published",
			zap.String("eventID", event.EventID()),
			zap.String("eventType", event.EventType()),
		)
		return nil
	}
}
