package queries

import (
	"context"
	"time"

	"watchlist-backend/application/ports"
	"watchlist-backend/domain/core/aggregates"
	"watchlist-backend/domain/core/valueobjects"
	pkgerrors "watchlist-backend/pkg/errors"
	"watchlist-backend/pkg/observability"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// StatisticsService serves per-user watchlist statistics. A cached payload is
// returned as is; an absent one is recomputed from the full watchlist and
// stored before returning.
type StatisticsService struct {
	sessions ports.SessionFactory
	clock    func() time.Time
	metrics  *observability.Collector
	logger   *zap.Logger
	tracer   trace.Tracer
}

// NewStatisticsService creates a statistics service. A nil clock means time.Now.
func NewStatisticsService(sessions ports.SessionFactory, clock func() time.Time, metrics *observability.Collector, logger *zap.Logger) *StatisticsService {
	if clock == nil {
		clock = time.Now
	}
	return &StatisticsService{
		sessions: sessions,
		clock:    clock,
		metrics:  metrics,
		logger:   logger,
		tracer:   otel.Tracer("watchlist-backend/application/queries"),
	}
}

// GetOrRecompute returns the user's statistics, recomputing them when the cache is empty
func (s *StatisticsService) GetOrRecompute(ctx context.Context, userID valueobjects.UserID) (aggregates.StatisticsSnapshot, error) {
	ctx, span := s.tracer.Start(ctx, "statistics.get_or_recompute",
		trace.WithAttributes(attribute.Int64("user.id", userID.Int64())),
	)
	defer span.End()

	session := s.sessions.NewSession()
	user, err := session.Users().Get(ctx, userID)
	if err != nil {
		return aggregates.StatisticsSnapshot{}, err
	}

	if cached, ok := user.CachedStatistics(); ok {
		var snap aggregates.StatisticsSnapshot
		decodeErr := json.Unmarshal(cached.Payload, &snap)
		if decodeErr == nil {
			s.metrics.RecordStatisticsRead("hit")
			span.SetAttributes(attribute.Bool("statistics.cache_hit", true))
			return snap, nil
		}
		s.logger.Warn("Discarding unreadable statistics cache", zap.Int64("userID", userID.Int64()), zap.Error(decodeErr))
	}

	items, err := session.Watchlist().ListByUser(ctx, userID)
	if err != nil {
		return aggregates.StatisticsSnapshot{}, err
	}

	snap := aggregates.ComputeStatistics(userID, items, s.clock().UTC())
	payload, err := json.Marshal(snap)
	if err != nil {
		return aggregates.StatisticsSnapshot{}, pkgerrors.NewInternal("failed to encode statistics", err)
	}

	s.metrics.RecordStatisticsRead("recompute")
	user.StoreStatistics(payload, snap.ComputedAt)
	session.Users().SaveStatistics(user)
	if _, err := session.PersistPendingChanges(ctx); err != nil {
		if !pkgerrors.IsConflict(err) {
			return aggregates.StatisticsSnapshot{}, err
		}
		// Invalidated while computing: serve the result but leave the cache empty.
		s.logger.Debug("Statistics changed during recompute, not caching", zap.Int64("userID", userID.Int64()))
		return snap, nil
	}

	span.SetAttributes(attribute.Bool("statistics.cache_hit", false), attribute.Int("statistics.items", len(items)))
	s.logger.Debug("Statistics recomputed",
		zap.Int64("userID", userID.Int64()),
		zap.Int("items", len(items)),
	)
	return snap, nil
}
