package uow

import (
	"context"
	"time"

	appevents "watchlist-backend/application/events"
	"watchlist-backend/application/ports"
	"watchlist-backend/domain/core/aggregates"
	"watchlist-backend/domain/events"
	pkgerrors "watchlist-backend/pkg/errors"
	"watchlist-backend/pkg/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// State is the lifecycle position of a unit of work
type State int

const (
	StateCollecting State = iota
	StateCommitting
	StateCommitted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCollecting:
		return "collecting"
	case StateCommitting:
		return "committing"
	case StateCommitted:
		return "committed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// EventDispatcher delivers a batch of events and reports every handler failure
type EventDispatcher interface {
	DispatchMany(ctx context.Context, evs []events.DomainEvent) []appevents.HandlerError
}

// CommitOutcome describes a successful commit. HandlerErrors are warnings:
// the write is durable regardless.
type CommitOutcome struct {
	ChangeCount   int
	EventCount    int
	HandlerErrors []appevents.HandlerError
}

// HasHandlerErrors reports whether any handler failed after the write
func (o CommitOutcome) HasHandlerErrors() bool {
	return len(o.HandlerErrors) > 0
}

// UnitOfWork collects aggregate changes in a session, persists them in one
// transaction and then dispatches the events those aggregates raised.
// A UnitOfWork belongs to a single goroutine.
type UnitOfWork struct {
	session    ports.Session
	dispatcher EventDispatcher
	logger     *zap.Logger
	metrics    *observability.Collector
	tracer     trace.Tracer
	state      State
}

// New starts a unit of work over session
func New(session ports.Session, dispatcher EventDispatcher, logger *zap.Logger, metrics *observability.Collector) *UnitOfWork {
	return &UnitOfWork{
		session:    session,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
		tracer:     otel.Tracer("watchlist-backend/application/uow"),
		state:      StateCollecting,
	}
}

// Watchlist returns the watchlist repository bound to this unit of work
func (u *UnitOfWork) Watchlist() ports.WatchlistRepository {
	return u.session.Watchlist()
}

// Users returns the user repository bound to this unit of work
func (u *UnitOfWork) Users() ports.UserRepository {
	return u.session.Users()
}

// State returns the current lifecycle state
func (u *UnitOfWork) State() State {
	return u.state
}

// Commit persists staged changes and then dispatches every pending event of
// the tracked aggregates, oldest first. If the write fails nothing is
// dispatched and the aggregates keep their events. Once the write succeeds,
// dispatch runs to completion even if ctx is cancelled, and the dispatched
// events are cleared from their aggregates whatever the handlers returned.
func (u *UnitOfWork) Commit(ctx context.Context) (CommitOutcome, error) {
	if u.state != StateCollecting {
		pkgerrors.InvariantViolation("commit on a unit of work that is %s", u.state)
	}
	return u.commit(ctx)
}

// Retry re-runs a failed commit against the same aggregates
func (u *UnitOfWork) Retry(ctx context.Context) (CommitOutcome, error) {
	if u.state != StateFailed {
		pkgerrors.InvariantViolation("retry on a unit of work that is %s", u.state)
	}
	u.state = StateCollecting
	return u.commit(ctx)
}

type snapshotEntry struct {
	source aggregates.EventSource
	count  int
}

func (u *UnitOfWork) commit(ctx context.Context) (CommitOutcome, error) {
	u.state = StateCommitting
	start := time.Now()

	ctx, span := u.tracer.Start(ctx, "uow.commit")
	defer span.End()

	var (
		snapshot []snapshotEntry
		pending  []events.DomainEvent
	)
	for _, source := range u.session.Tracked() {
		evs := source.GetUncommittedEvents()
		if len(evs) == 0 {
			continue
		}
		snapshot = append(snapshot, snapshotEntry{source: source, count: len(evs)})
		pending = append(pending, evs...)
	}
	span.SetAttributes(
		attribute.Int("uow.aggregates", len(snapshot)),
		attribute.Int("uow.events", len(pending)),
	)

	changeCount, err := u.session.PersistPendingChanges(ctx)
	if err != nil {
		u.state = StateFailed
		u.metrics.RecordCommit("failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		u.logger.Error("Unit of work commit failed",
			zap.Int("pendingEvents", len(pending)),
			zap.Error(err),
		)
		if pkgerrors.GetAppError(err) != nil {
			return CommitOutcome{}, err
		}
		return CommitOutcome{}, pkgerrors.NewPersistence("failed to persist changes", err)
	}

	handlerErrors := u.dispatcher.DispatchMany(context.WithoutCancel(ctx), pending)

	for _, entry := range snapshot {
		entry.source.MarkEventsAsCommitted(entry.count)
	}

	u.state = StateCommitted
	u.metrics.RecordCommit("committed")
	if len(handlerErrors) > 0 {
		span.SetAttributes(attribute.Int("uow.handler_errors", len(handlerErrors)))
		u.logger.Warn("Unit of work committed with handler errors",
			zap.Int("changes", changeCount),
			zap.Int("events", len(pending)),
			zap.Int("handlerErrors", len(handlerErrors)),
		)
	} else {
		u.logger.Debug("Unit of work committed",
			zap.Int("changes", changeCount),
			zap.Int("events", len(pending)),
			zap.Duration("duration", time.Since(start)),
		)
	}

	return CommitOutcome{
		ChangeCount:   changeCount,
		EventCount:    len(pending),
		HandlerErrors: handlerErrors,
	}, nil
}

// Factory opens units of work over fresh sessions
type Factory struct {
	sessions   ports.SessionFactory
	dispatcher EventDispatcher
	logger     *zap.Logger
	metrics    *observability.Collector
}

// NewFactory creates a unit of work factory
func NewFactory(sessions ports.SessionFactory, dispatcher EventDispatcher, logger *zap.Logger, metrics *observability.Collector) *Factory {
	return &Factory{
		sessions:   sessions,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// Begin starts a new unit of work
func (f *Factory) Begin() *UnitOfWork {
	return New(f.sessions.NewSession(), f.dispatcher, f.logger, f.metrics)
}
