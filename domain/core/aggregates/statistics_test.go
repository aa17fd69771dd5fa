package aggregates

import (
	"testing"
	"time"

	"watchlist-backend/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reconstitute(t *testing.T, state WatchlistItemState) *WatchlistItem {
	t.Helper()
	item, err := ReconstituteWatchlistItem(state)
	require.NoError(t, err)
	return item
}

func TestComputeStatistics_Empty(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	snap := ComputeStatistics(1, nil, now)

	assert.Equal(t, 0, snap.TotalItems)
	assert.Nil(t, snap.AverageUserRating)
	assert.Nil(t, snap.AverageBaseRating)
	assert.Empty(t, snap.GenreCounts)
	assert.Empty(t, snap.WatchedByYear)
	assert.Equal(t, "", snap.MostWatchedGenre)
	assert.Equal(t, now, snap.ComputedAt)
}

func TestComputeStatistics_Fold(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	lastYear := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	thisYear := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	r8, r6 := valueobjects.MustRating(8), valueobjects.MustRating(6)

	items := []*WatchlistItem{
		reconstitute(t, WatchlistItemState{
			UserID: 1, Movie: newTestMovie(t, 3, []string{"Comedy", "Drama"}, 2001, 6),
			Status: valueobjects.StatusWatched, AddedAt: thisYear, Rating: &r6,
		}),
		reconstitute(t, WatchlistItemState{
			UserID: 1, Movie: newTestMovie(t, 2, []string{"Drama", "Comedy"}, 2010, 8),
			Status: valueobjects.StatusWatched, AddedAt: lastYear, Rating: &r8, IsFavorite: true,
		}),
		reconstitute(t, WatchlistItemState{
			UserID: 1, Movie: newTestMovie(t, 5, []string{"Horror"}, 2020, 4),
			Status: valueobjects.StatusPlanned, AddedAt: thisYear,
		}),
		reconstitute(t, WatchlistItemState{
			UserID: 1, Movie: newTestMovie(t, 9, []string{"Horror"}, 0, 10),
			Status: valueobjects.StatusDropped, AddedAt: lastYear, IsFavorite: true,
		}),
	}

	snap := ComputeStatistics(1, items, now)

	assert.Equal(t, 4, snap.TotalItems)
	assert.Equal(t, 1, snap.PlannedCount)
	assert.Equal(t, 0, snap.WatchingCount)
	assert.Equal(t, 2, snap.WatchedCount)
	assert.Equal(t, 1, snap.DroppedCount)
	assert.Equal(t, 2, snap.FavoriteCount)
	assert.Equal(t, 2, snap.AddedThisYear)

	require.NotNil(t, snap.AverageUserRating)
	assert.InDelta(t, 7.0, *snap.AverageUserRating, 1e-9)
	require.NotNil(t, snap.AverageBaseRating)
	assert.InDelta(t, 7.0, *snap.AverageBaseRating, 1e-9)

	// movie 2 was added first, so Drama is met before Comedy
	assert.Equal(t, []GenreCount{{Genre: "Drama", Count: 2}, {Genre: "Comedy", Count: 2}}, snap.GenreCounts)
	assert.Equal(t, "Drama", snap.MostWatchedGenre)
	assert.Equal(t, []YearCount{{Year: 2010, Count: 1}, {Year: 2001, Count: 1}}, snap.WatchedByYear)
}

func TestComputeStatistics_SameAddedAtOrdersByMovieID(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []*WatchlistItem{
		reconstitute(t, WatchlistItemState{
			UserID: 1, Movie: newTestMovie(t, 20, []string{"Western"}, 1960, 7),
			Status: valueobjects.StatusWatched, AddedAt: at,
		}),
		reconstitute(t, WatchlistItemState{
			UserID: 1, Movie: newTestMovie(t, 10, []string{"Noir"}, 1950, 7),
			Status: valueobjects.StatusWatched, AddedAt: at,
		}),
	}

	snap := ComputeStatistics(1, items, at)

	assert.Equal(t, "Noir", snap.MostWatchedGenre)
}
