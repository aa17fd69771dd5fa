package events

import (
	"time"

	"watchlist-backend/domain/core/valueobjects"

	"github.com/google/uuid"
)

// DomainEvent is an immutable record of something that already happened to an aggregate.
// The set of implementations is closed: every event type lives in this package.
type DomainEvent interface {
	// EventID is unique per raised event and assigned at raise time
	EventID() string

	// EventType is the stable dotted name, e.g. "watchlist.item_added"
	EventType() string

	// AggregateID identifies the aggregate instance that raised the event
	AggregateID() string

	// UserID is the account the fact belongs to
	UserID() valueobjects.UserID

	// OccurredAt is when the aggregate raised the event
	OccurredAt() time.Time

	domainEvent()
}

// BaseEvent provides common event fields
type BaseEvent struct {
	ID        string              `json:"event_id"`
	Type      string              `json:"event_type"`
	Aggregate string              `json:"aggregate_id"`
	User      valueobjects.UserID `json:"user_id"`
	Timestamp time.Time           `json:"occurred_at"`
}

func newBaseEvent(eventType, aggregateID string, userID valueobjects.UserID, at time.Time) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Aggregate: aggregateID,
		User:      userID,
		Timestamp: at,
	}
}

func (e BaseEvent) EventID() string             { return e.ID }
func (e BaseEvent) EventType() string           { return e.Type }
func (e BaseEvent) AggregateID() string         { return e.Aggregate }
func (e BaseEvent) UserID() valueobjects.UserID { return e.User }
func (e BaseEvent) OccurredAt() time.Time       { return e.Timestamp }
func (BaseEvent) domainEvent()                  {}
