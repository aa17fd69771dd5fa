package ports

import (
	"context"

	"watchlist-backend/domain/core/aggregates"
	"watchlist-backend/domain/core/entities"
	"watchlist-backend/domain/core/valueobjects"
	"watchlist-backend/domain/events"
)

// WatchlistRepository reads and stages watchlist items inside one session.
// Loaded and staged aggregates are tracked by the session so their events
// can be collected at commit.
type WatchlistRepository interface {
	// Get loads one item. Returns a NOT_FOUND AppError when absent.
	Get(ctx context.Context, key valueobjects.WatchlistItemKey) (*aggregates.WatchlistItem, error)

	// ListByUser loads every item on a user's watchlist
	ListByUser(ctx context.Context, userID valueobjects.UserID) ([]*aggregates.WatchlistItem, error)

	// Add stages a new item for insertion
	Add(item *aggregates.WatchlistItem)

	// Update stages the current state of an item
	Update(item *aggregates.WatchlistItem)

	// Remove stages deletion of an item
	Remove(item *aggregates.WatchlistItem)
}

// UserRepository reads and stages users inside one session
type UserRepository interface {
	// Get loads a user. Returns a NOT_FOUND AppError when absent.
	Get(ctx context.Context, id valueobjects.UserID) (*aggregates.User, error)

	// GetByUsername loads a user by login name
	GetByUsername(ctx context.Context, username string) (*aggregates.User, error)

	// NextID reserves a fresh user id
	NextID(ctx context.Context) (valueobjects.UserID, error)

	// Add stages a new user for insertion
	Add(user *aggregates.User)

	// Update stages the current profile of a user. The statistics cache is
	// left as stored.
	Update(user *aggregates.User)

	// SaveStatistics stages a write of the user's statistics cache alone.
	// Storing a cache fails with CONFLICT when the cache was invalidated
	// since the user was loaded; clearing always succeeds.
	SaveStatistics(user *aggregates.User)
}

// Session is one persistence scope. Nothing reaches the store until
// PersistPendingChanges, which applies every staged change atomically.
type Session interface {
	Watchlist() WatchlistRepository
	Users() UserRepository

	// PersistPendingChanges writes all staged changes in a single transaction
	// and returns how many records changed
	PersistPendingChanges(ctx context.Context) (int, error)

	// Tracked returns the aggregates seen by this session, in first-seen order
	Tracked() []aggregates.EventSource
}

// SessionFactory opens fresh sessions
type SessionFactory interface {
	NewSession() Session
}

// MovieCatalog resolves movie references from the upstream catalog (TMDB)
type MovieCatalog interface {
	GetMovie(ctx context.Context, id valueobjects.MovieID) (*entities.Movie, error)
}

// EventPublisher forwards domain events to an external bus
type EventPublisher interface {
	PublishBatch(ctx context.Context, evs []events.DomainEvent) error
}

// PasswordHasher hashes and verifies account passwords
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}
