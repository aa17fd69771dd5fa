package valueobjects

import (
	"fmt"
	"strconv"
	"strings"

	pkgerrors "watchlist-backend/pkg/errors"
)

// UserID identifies an account. Valid ids are strictly positive.
type UserID int64

// NewUserID validates and wraps a raw user id
func NewUserID(id int64) (UserID, error) {
	if id <= 0 {
		return 0, pkgerrors.NewValidation(fmt.Sprintf("user ID must be positive, got %d", id))
	}
	return UserID(id), nil
}

// ParseUserID parses a decimal user id, typically from a header or path segment
func ParseUserID(raw string) (UserID, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, pkgerrors.NewValidation("user ID must be a number")
	}
	return NewUserID(id)
}

// Int64 returns the raw id
func (id UserID) Int64() int64 {
	return int64(id)
}

// String returns the decimal representation
func (id UserID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// IsZero reports whether the id is unset
func (id UserID) IsZero() bool {
	return id == 0
}

// MovieID is the catalog (TMDB) identifier of a movie
type MovieID int64

// NewMovieID validates and wraps a raw movie id
func NewMovieID(id int64) (MovieID, error) {
	if id <= 0 {
		return 0, pkgerrors.NewValidation(fmt.Sprintf("movie ID must be positive, got %d", id))
	}
	return MovieID(id), nil
}

// ParseMovieID parses a decimal movie id
func ParseMovieID(raw string) (MovieID, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, pkgerrors.NewValidation("movie ID must be a number")
	}
	return NewMovieID(id)
}

// Int64 returns the raw id
func (id MovieID) Int64() int64 {
	return int64(id)
}

// String returns the decimal representation
func (id MovieID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// WatchlistItemKey is the identity of a watchlist entry: one row per (user, movie)
type WatchlistItemKey struct {
	UserID  UserID
	MovieID MovieID
}

// String renders the key as "user/movie", used as the event aggregate id
func (k WatchlistItemKey) String() string {
	return k.UserID.String() + "/" + k.MovieID.String()
}
