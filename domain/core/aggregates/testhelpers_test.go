package aggregates

import (
	"testing"
	"time"

	"watchlist-backend/domain/core/entities"
	"watchlist-backend/domain/core/valueobjects"
	"watchlist-backend/domain/events"

	"github.com/stretchr/testify/require"
)

func newTestMovie(t testing.TB, id int64, genres []string, year int, vote float64) *entities.Movie {
	t.Helper()
	var release *time.Time
	if year > 0 {
		d := time.Date(year, time.June, 1, 0, 0, 0, 0, time.UTC)
		release = &d
	}
	movie, err := entities.NewMovie(valueobjects.MovieID(id), "Movie", genres, release, vote)
	require.NoError(t, err)
	return movie
}

func eventTypes(evs []events.DomainEvent) []string {
	out := make([]string, len(evs))
	for i, e := range evs {
		out[i] = e.EventType()
	}
	return out
}
