package persistence

import (
	"context"
	"time"

	"watchlist-backend/application/ports"
	pkgerrors "watchlist-backend/pkg/errors"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig holds configuration for the store circuit breaker
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the breaker settings used in production
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// BreakerSessionFactory wraps a SessionFactory so commits fail fast while
// the store keeps failing. Domain outcomes such as conflicts do not count
// as failures; only persistence errors do.
type BreakerSessionFactory struct {
	next ports.SessionFactory
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerSessionFactory decorates next with a circuit breaker
func NewBreakerSessionFactory(next ports.SessionFactory, config BreakerConfig, logger *zap.Logger) *BreakerSessionFactory {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !pkgerrors.IsPersistence(err)
		},
	})

	return &BreakerSessionFactory{next: next, cb: cb}
}

// NewSession opens a guarded session
func (f *BreakerSessionFactory) NewSession() ports.Session {
	return &breakerSession{Session: f.next.NewSession(), cb: f.cb}
}

// State reports the breaker state
func (f *BreakerSessionFactory) State() gobreaker.State {
	return f.cb.State()
}

type breakerSession struct {
	ports.Session
	cb *gobreaker.CircuitBreaker
}

func (s *breakerSession) PersistPendingChanges(ctx context.Context) (int, error) {
	result, err := s.cb.Execute(func() (interface{}, error) {
		return s.Session.PersistPendingChanges(ctx)
	})
	switch err {
	case nil:
		return result.(int), nil
	case gobreaker.ErrOpenState, gobreaker.ErrTooManyRequests:
		return 0, pkgerrors.NewPersistence("store temporarily unavailable", err)
	default:
		return 0, err
	}
}
