package listeners

import (
	"context"

	appevents "watchlist-backend/application/events"
	"watchlist-backend/application/ports"
	"watchlist-backend/domain/core/valueobjects"
	"watchlist-backend/domain/events"
	pkgerrors "watchlist-backend/pkg/errors"
	"watchlist-backend/pkg/observability"

	"go.uber.org/zap"
)

// StatisticsInvalidator clears a user's cached statistics whenever a fact that
// feeds them changes. Clearing is coarse and idempotent: the next read recomputes.
type StatisticsInvalidator struct {
	sessions ports.SessionFactory
	metrics  *observability.Collector
	logger   *zap.Logger
}

// NewStatisticsInvalidator creates a new statistics invalidator
func NewStatisticsInvalidator(sessions ports.SessionFactory, metrics *observability.Collector, logger *zap.Logger) *StatisticsInvalidator {
	return &StatisticsInvalidator{
		sessions: sessions,
		metrics:  metrics,
		logger:   logger.Named("statistics_invalidator"),
	}
}

// Subscribe registers the invalidator's handlers
func (s *StatisticsInvalidator) Subscribe(d *appevents.Dispatcher) error {
	const name = "statistics_invalidator"
	if err := appevents.Register(d, name, func(ctx context.Context, e events.ItemAdded) error {
		return s.Invalidate(ctx, e.UserID())
	}); err != nil {
		return err
	}
	if err := appevents.Register(d, name, func(ctx context.Context, e events.ItemRemoved) error {
		return s.Invalidate(ctx, e.UserID())
	}); err != nil {
		return err
	}
	if err := appevents.Register(d, name, func(ctx context.Context, e events.ItemWatched) error {
		return s.Invalidate(ctx, e.UserID())
	}); err != nil {
		return err
	}
	if err := appevents.Register(d, name, func(ctx context.Context, e events.ItemRated) error {
		return s.Invalidate(ctx, e.UserID())
	}); err != nil {
		return err
	}
	if err := appevents.Register(d, name, func(ctx context.Context, e events.ItemFavorited) error {
		return s.Invalidate(ctx, e.UserID())
	}); err != nil {
		return err
	}
	return appevents.Register(d, name, func(ctx context.Context, e events.StatisticsInvalidated) error {
		return s.Invalidate(ctx, e.UserID())
	})
}

// Invalidate drops the cached statistics of one user in a fresh session.
// The write always lands, even on an empty cache, so that a recompute running
// concurrently sees its generation move and does not store a stale result.
func (s *StatisticsInvalidator) Invalidate(ctx context.Context, userID valueobjects.UserID) error {
	session := s.sessions.NewSession()

	user, err := session.Users().Get(ctx, userID)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			s.logger.Warn("Skipping invalidation for unknown user", zap.Int64("userID", userID.Int64()))
			return nil
		}
		return pkgerrors.Wrap(err, "failed to load user for invalidation")
	}

	cleared := user.InvalidateStatistics()
	s.metrics.RecordInvalidation(cleared)

	session.Users().SaveStatistics(user)
	if _, err := session.PersistPendingChanges(ctx); err != nil {
		return err
	}

	if cleared {
		s.logger.Debug("Statistics cache cleared", zap.Int64("userID", userID.Int64()))
	}
	return nil
}
