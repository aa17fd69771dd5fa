package aggregates

import (
	"time"

	"watchlist-backend/domain/events"
	pkgerrors "watchlist-backend/pkg/errors"
)

// EventSource is implemented by every aggregate that raises domain events.
// The unit of work reads pending events with GetUncommittedEvents and, once they
// have been dispatched, clears exactly that many with MarkEventsAsCommitted.
type EventSource interface {
	AggregateID() string
	GetUncommittedEvents() []events.DomainEvent
	MarkEventsAsCommitted(count int)
}

// EventBuffer is the ordered queue of events an aggregate has raised but that
// have not been delivered yet. The zero value is ready to use.
type EventBuffer struct {
	pending []events.DomainEvent
	last    time.Time
	clock   func() time.Time
}

// stamp returns the timestamp for the next event. Timestamps never go backwards
// within one aggregate instance, even if the wall clock does.
func (b *EventBuffer) stamp() time.Time {
	now := time.Now
	if b.clock != nil {
		now = b.clock
	}
	t := now().UTC()
	if t.Before(b.last) {
		t = b.last
	}
	b.last = t
	return t
}

func (b *EventBuffer) append(event events.DomainEvent) {
	b.pending = append(b.pending, event)
}

// Peek returns a copy of the pending events without clearing them
func (b *EventBuffer) Peek() []events.DomainEvent {
	out := make([]events.DomainEvent, len(b.pending))
	copy(out, b.pending)
	return out
}

// Drain returns the pending events and empties the buffer
func (b *EventBuffer) Drain() []events.DomainEvent {
	out := b.pending
	b.pending = nil
	return out
}

// DrainFirst removes the oldest count events, the ones a previous Peek handed out.
// Asking for more than is pending means the same snapshot is being cleared twice.
func (b *EventBuffer) DrainFirst(count int) []events.DomainEvent {
	if count > len(b.pending) {
		pkgerrors.InvariantViolation("clearing %d events from a buffer holding %d", count, len(b.pending))
	}
	out := make([]events.DomainEvent, count)
	copy(out, b.pending[:count])
	rest := make([]events.DomainEvent, len(b.pending)-count)
	copy(rest, b.pending[count:])
	b.pending = rest
	return out
}

// Len returns the number of pending events
func (b *EventBuffer) Len() int {
	return len(b.pending)
}
