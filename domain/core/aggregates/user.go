package aggregates

import (
	"strings"
	"time"
	"unicode/utf8"

	"watchlist-backend/domain/core/valueobjects"
	"watchlist-backend/domain/events"
	pkgerrors "watchlist-backend/pkg/errors"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
)

// StatisticsCache is the serialized statistics payload and when it was computed
type StatisticsCache struct {
	Payload    []byte
	ComputedAt time.Time
}

// User is the account aggregate. It also owns the cached watchlist statistics.
type User struct {
	id           valueobjects.UserID
	username     string
	passwordHash string
	createdAt    time.Time
	lastLoginAt  *time.Time
	statistics   *StatisticsCache
	generation   int64
	buffer       EventBuffer
}

// UserState is the persisted form of a User
type UserState struct {
	ID           valueobjects.UserID
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	LastLoginAt  *time.Time
	Statistics   *StatisticsCache

	// StatisticsGeneration counts invalidations. A cache write only lands
	// when the stored generation still matches the one it was computed under.
	StatisticsGeneration int64
}

// RegisterUser creates a new account and raises UserRegistered
func RegisterUser(id valueobjects.UserID, username, passwordHash string) (*User, error) {
	if id <= 0 {
		return nil, pkgerrors.NewValidation("user ID must be positive")
	}
	username = strings.TrimSpace(username)
	if n := utf8.RuneCountInString(username); n < MinUsernameLength || n > MaxUsernameLength {
		return nil, pkgerrors.NewValidation("username must be between 3 and 50 characters")
	}
	if passwordHash == "" {
		return nil, pkgerrors.NewValidation("password hash is required")
	}

	user := &User{
		id:           id,
		username:     username,
		passwordHash: passwordHash,
	}
	user.createdAt = user.buffer.stamp()
	user.buffer.append(events.NewUserRegistered(id, username, user.createdAt))

	return user, nil
}

// ReconstituteUser rebuilds a user from storage without raising events
func ReconstituteUser(state UserState) (*User, error) {
	if state.ID <= 0 {
		return nil, pkgerrors.NewValidation("user ID must be positive")
	}

	return &User{
		id:           state.ID,
		username:     state.Username,
		passwordHash: state.PasswordHash,
		createdAt:    state.CreatedAt,
		lastLoginAt:  state.LastLoginAt,
		statistics:   state.Statistics,
		generation:   state.StatisticsGeneration,
	}, nil
}

// RecordLogin stamps the login time and raises UserLoggedIn
func (u *User) RecordLogin() {
	at := u.buffer.stamp()
	u.lastLoginAt = &at
	u.buffer.append(events.NewUserLoggedIn(u.id, at))
}

// ChangePassword replaces the credential hash and raises PasswordChanged
func (u *User) ChangePassword(passwordHash string) error {
	if passwordHash == "" {
		return pkgerrors.NewValidation("password hash is required")
	}
	u.passwordHash = passwordHash
	u.buffer.append(events.NewPasswordChanged(u.id, u.buffer.stamp()))
	return nil
}

// IssueRefreshToken records that a refresh token was handed out
func (u *User) IssueRefreshToken(tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return pkgerrors.NewValidation("token ID is required")
	}
	at := u.buffer.stamp()
	if !expiresAt.After(at) {
		return pkgerrors.NewValidation("refresh token must expire in the future")
	}
	u.buffer.append(events.NewRefreshTokenIssued(u.id, tokenID, expiresAt, at))
	return nil
}

// InvalidateStatistics drops the cached statistics. It reports whether a cache
// was present; clearing an absent cache changes nothing.
func (u *User) InvalidateStatistics() bool {
	if u.statistics == nil {
		return false
	}
	u.statistics = nil
	return true
}

// StoreStatistics caches a freshly computed payload
func (u *User) StoreStatistics(payload []byte, computedAt time.Time) {
	p := make([]byte, len(payload))
	copy(p, payload)
	u.statistics = &StatisticsCache{Payload: p, ComputedAt: computedAt}
}

// CachedStatistics returns the cached payload, if any
func (u *User) CachedStatistics() (StatisticsCache, bool) {
	if u.statistics == nil {
		return StatisticsCache{}, false
	}
	return *u.statistics, true
}

// Getters

func (u *User) ID() valueobjects.UserID { return u.id }
func (u *User) Username() string        { return u.username }
func (u *User) PasswordHash() string    { return u.passwordHash }
func (u *User) CreatedAt() time.Time    { return u.createdAt }
func (u *User) LastLoginAt() *time.Time { return u.lastLoginAt }

// StatisticsGeneration is the invalidation generation the user was loaded with
func (u *User) StatisticsGeneration() int64 { return u.generation }

// State returns the persisted form of the user
func (u *User) State() UserState {
	return UserState{
		ID:           u.id,
		Username:     u.username,
		PasswordHash: u.passwordHash,
		CreatedAt:    u.createdAt,
		LastLoginAt:  u.lastLoginAt,
		Statistics:   u.statistics,

		StatisticsGeneration: u.generation,
	}
}

// AggregateID returns the user id
func (u *User) AggregateID() string {
	return u.id.String()
}

// GetUncommittedEvents returns a copy of the pending events
func (u *User) GetUncommittedEvents() []events.DomainEvent {
	return u.buffer.Peek()
}

// MarkEventsAsCommitted clears the oldest count pending events
func (u *User) MarkEventsAsCommitted(count int) {
	u.buffer.DrainFirst(count)
}
