package events

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"watchlist-backend/domain/events"
	"watchlist-backend/pkg/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrRegistrySealed is returned when a handler is registered after dispatching started
var ErrRegistrySealed = errors.New("handler registry is sealed: register handlers before the first dispatch")

// HandlerFunc handles one concrete event type
type HandlerFunc[E events.DomainEvent] func(ctx context.Context, event E) error

// HandlerError records one failed (event, handler) pair
type HandlerError struct {
	EventID   string
	EventType string
	Handler   string
	Err       error
}

func (e HandlerError) Error() string {
	return fmt.Sprintf("handler %s failed on %s (%s): %v", e.Handler, e.EventType, e.EventID, e.Err)
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

type registration struct {
	name   string
	invoke func(ctx context.Context, event events.DomainEvent) error
}

// Dispatcher delivers events to the handlers registered for their exact
// concrete type. Handlers run one at a time in registration order.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[reflect.Type][]registration
	sealed   atomic.Bool
	timeout  time.Duration
	logger   *zap.Logger
	metrics  *observability.Collector
	tracer   trace.Tracer
}

// NewDispatcher creates an empty dispatcher. A zero handlerTimeout leaves
// handler contexts without a deadline.
func NewDispatcher(logger *zap.Logger, metrics *observability.Collector, handlerTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[reflect.Type][]registration),
		timeout:  handlerTimeout,
		logger:   logger,
		metrics:  metrics,
		tracer:   otel.Tracer("watchlist-backend/application/events"),
	}
}

// Register adds a handler for the concrete event type E. The type is resolved
// here once, so dispatch is a single map lookup.
func Register[E events.DomainEvent](d *Dispatcher, name string, fn HandlerFunc[E]) error {
	if fn == nil {
		return fmt.Errorf("handler %q cannot be nil", name)
	}
	if name == "" {
		return fmt.Errorf("handler name cannot be empty")
	}

	eventType := reflect.TypeFor[E]()
	if eventType.Kind() == reflect.Interface {
		return fmt.Errorf("handler %q must subscribe to a concrete event type, not %s", name, eventType)
	}

	return d.add(eventType, registration{
		name: name,
		invoke: func(ctx context.Context, event events.DomainEvent) error {
			return fn(ctx, event.(E))
		},
	})
}

// MustRegister is Register for process wiring, where a failure is a programming error
func MustRegister[E events.DomainEvent](d *Dispatcher, name string, fn HandlerFunc[E]) {
	if err := Register(d, name, fn); err != nil {
		panic(err)
	}
}

func (d *Dispatcher) add(eventType reflect.Type, reg registration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sealed.Load() {
		return ErrRegistrySealed
	}

	d.handlers[eventType] = append(d.handlers[eventType], reg)

	d.logger.Info("Registered event handler",
		zap.String("handler", reg.name),
		zap.String("eventType", eventType.Name()),
		zap.Int("position", len(d.handlers[eventType])),
	)
	return nil
}

// HandlerNames lists the handlers that would receive event, in call order
func (d *Dispatcher) HandlerNames(event events.DomainEvent) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	regs := d.handlers[reflect.TypeOf(event)]
	names := make([]string, len(regs))
	for i, r := range regs {
		names[i] = r.name
	}
	return names
}

// Dispatch runs every handler registered for the event's concrete type.
// Failures and panics do not stop later handlers; each becomes a HandlerError.
func (d *Dispatcher) Dispatch(ctx context.Context, event events.DomainEvent) []HandlerError {
	d.sealed.Store(true)

	if event == nil {
		d.logger.Warn("Ignoring nil event")
		return nil
	}

	d.mu.RLock()
	regs := d.handlers[reflect.TypeOf(event)]
	d.mu.RUnlock()

	d.metrics.RecordEventDispatched(event.EventType())

	if len(regs) == 0 {
		d.logger.Debug("No handlers registered for event type",
			zap.String("eventType", event.EventType()),
		)
		return nil
	}

	var failures []HandlerError
	for _, reg := range regs {
		if err := d.run(ctx, reg, event); err != nil {
			failures = append(failures, HandlerError{
				EventID:   event.EventID(),
				EventType: event.EventType(),
				Handler:   reg.name,
				Err:       err,
			})
		}
	}

	return failures
}

// DispatchMany dispatches events in order. A failing handler never prevents
// later handlers or later events from running; all failures are returned.
func (d *Dispatcher) DispatchMany(ctx context.Context, evs []events.DomainEvent) []HandlerError {
	var failures []HandlerError
	for _, event := range evs {
		failures = append(failures, d.Dispatch(ctx, event)...)
	}

	if len(failures) > 0 {
		d.logger.Warn("Batch dispatch completed with errors",
			zap.Int("events", len(evs)),
			zap.Int("failures", len(failures)),
		)
	}
	return failures
}

func (d *Dispatcher) run(ctx context.Context, reg registration, event events.DomainEvent) (err error) {
	ctx, span := d.tracer.Start(ctx, "event.handle",
		trace.WithAttributes(
			attribute.String("event.type", event.EventType()),
			attribute.String("event.id", event.EventID()),
			attribute.String("handler", reg.name),
		),
	)
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}

		duration := time.Since(start)
		d.metrics.RecordHandlerRun(event.EventType(), reg.name, err, duration)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			d.logger.Warn("Event handler failed",
				zap.String("handler", reg.name),
				zap.String("eventType", event.EventType()),
				zap.String("eventID", event.EventID()),
				zap.Error(err),
				zap.Duration("duration", duration),
			)
		} else {
			d.logger.Debug("Event handler succeeded",
				zap.String("handler", reg.name),
				zap.String("eventType", event.EventType()),
				zap.Duration("duration", duration),
			)
		}
		span.End()
	}()

	return reg.invoke(ctx, event)
}
