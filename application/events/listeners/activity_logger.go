package listeners

import (
	"context"

	appevents "watchlist-backend/application/events"
	"watchlist-backend/domain/events"

	"go.uber.org/zap"
)

// ActivityLogger writes one log line per watchlist fact a user would recognise
type ActivityLogger struct {
	logger *zap.Logger
}

// NewActivityLogger creates a new activity logger
func NewActivityLogger(logger *zap.Logger) *ActivityLogger {
	return &ActivityLogger{logger: logger.Named("activity")}
}

// Subscribe registers the logger's handlers
func (l *ActivityLogger) Subscribe(d *appevents.Dispatcher) error {
	if err := appevents.Register(d, "activity_logger", l.HandleItemAdded); err != nil {
		return err
	}
	if err := appevents.Register(d, "activity_logger", l.HandleItemWatched); err != nil {
		return err
	}
	return appevents.Register(d, "activity_logger", l.HandleItemRemoved)
}

// HandleItemAdded logs a movie being put on a watchlist
func (l *ActivityLogger) HandleItemAdded(ctx context.Context, event events.ItemAdded) error {
	l.logger.Info("Movie added to watchlist",
		zap.String("eventID", event.EventID()),
		zap.String("eventType", event.EventType()),
		zap.Int64("userID", event.UserID().Int64()),
		zap.Int64("movieID", event.MovieID.Int64()),
		zap.String("status", event.InitialStatus.String()),
	)
	return nil
}

// HandleItemWatched logs a movie being watched for the first time
func (l *ActivityLogger) HandleItemWatched(ctx context.Context, event events.ItemWatched) error {
	l.logger.Info("Movie watched",
		zap.String("eventID", event.EventID()),
		zap.String("eventType", event.EventType()),
		zap.Int64("userID", event.UserID().Int64()),
		zap.Int64("movieID", event.MovieID.Int64()),
		zap.Time("watchedAt", event.WatchedAt),
	)
	return nil
}

// HandleItemRemoved logs a movie leaving a watchlist
func (l *ActivityLogger) HandleItemRemoved(ctx context.Context, event events.ItemRemoved) error {
	l.logger.Info("Movie removed from watchlist",
		zap.String("eventID", event.EventID()),
		zap.String("eventType", event.EventType()),
		zap.Int64("userID", event.UserID().Int64()),
		zap.Int64("movieID", event.MovieID.Int64()),
		zap.String("finalStatus", event.FinalStatus.String()),
	)
	return nil
}
