package entities

import (
	"time"

	"watchlist-backend/domain/core/valueobjects"
	pkgerrors "watchlist-backend/pkg/errors"
)

// Movie is the catalog snapshot a watchlist item refers to.
// The catalog owns this data; the domain only reads it.
type Movie struct {
	id          valueobjects.MovieID
	title       string
	genres      []string
	releaseDate *time.Time
	voteAverage float64
}

// NewMovie builds a movie reference from catalog data
func NewMovie(id valueobjects.MovieID, title string, genres []string, releaseDate *time.Time, voteAverage float64) (*Movie, error) {
	if id <= 0 {
		return nil, pkgerrors.NewValidation("movie ID must be positive")
	}
	if voteAverage < 0 || voteAverage > 10 {
		return nil, pkgerrors.NewValidation("vote average must be between 0 and 10")
	}

	g := make([]string, len(genres))
	copy(g, genres)

	return &Movie{
		id:          id,
		title:       title,
		genres:      g,
		releaseDate: releaseDate,
		voteAverage: voteAverage,
	}, nil
}

// ID returns the catalog id
func (m *Movie) ID() valueobjects.MovieID {
	return m.id
}

// Title returns the display title
func (m *Movie) Title() string {
	return m.title
}

// Genres returns the genres in catalog order
func (m *Movie) Genres() []string {
	g := make([]string, len(m.genres))
	copy(g, m.genres)
	return g
}

// ReleaseDate returns the release date, if known
func (m *Movie) ReleaseDate() *time.Time {
	return m.releaseDate
}

// ReleaseYear returns the release year and whether it is known
func (m *Movie) ReleaseYear() (int, bool) {
	if m.releaseDate == nil {
		return 0, false
	}
	return m.releaseDate.Year(), true
}

// VoteAverage is the catalog's base rating, 0-10
func (m *Movie) VoteAverage() float64 {
	return m.voteAverage
}
