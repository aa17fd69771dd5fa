package aggregates

import (
	"testing"
	"time"

	"watchlist-backend/domain/core/valueobjects"
	"watchlist-backend/domain/events"
	pkgerrors "watchlist-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWatchlistItem(t *testing.T) {
	movie := newTestMovie(t, 12345, []string{"Drama"}, 2010, 7.5)

	tests := []struct {
		name      string
		ownerID   valueobjects.UserID
		withMovie bool
		checkErr  func(error) bool
	}{
		{name: "valid item", ownerID: 1, withMovie: true},
		{name: "zero owner", ownerID: 0, withMovie: true, checkErr: pkgerrors.IsValidation},
		{name: "negative owner", ownerID: -4, withMovie: true, checkErr: pkgerrors.IsValidation},
		{name: "nil movie", ownerID: 1, withMovie: false, checkErr: pkgerrors.IsNullReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := movie
			if !tt.withMovie {
				m = nil
			}

			item, err := NewWatchlistItem(tt.ownerID, m)

			if tt.checkErr != nil {
				require.Error(t, err)
				assert.True(t, tt.checkErr(err))
				assert.Nil(t, item)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, valueobjects.StatusPlanned, item.Status())
			assert.False(t, item.IsFavorite())
			assert.Nil(t, item.WatchedAt())
			assert.Equal(t, "1/12345", item.AggregateID())

			pending := item.GetUncommittedEvents()
			require.Len(t, pending, 1)
			added, ok := pending[0].(events.ItemAdded)
			require.True(t, ok)
			assert.Equal(t, valueobjects.MovieID(12345), added.MovieID)
			assert.Equal(t, valueobjects.StatusPlanned, added.InitialStatus)
			assert.Equal(t, valueobjects.UserID(1), added.UserID())
			assert.Equal(t, item.AddedAt(), added.OccurredAt())
		})
	}
}

func TestWatchlistItem_MarkAsWatched(t *testing.T) {
	// Arrange
	item, err := NewWatchlistItem(1, newTestMovie(t, 12345, nil, 0, 5))
	require.NoError(t, err)

	// Act
	item.MarkAsWatched()

	// Assert
	assert.Equal(t, []string{
		events.TypeItemAdded,
		events.TypeStatisticsInvalidated,
		events.TypeItemWatched,
	}, eventTypes(item.GetUncommittedEvents()))
	assert.Equal(t, valueobjects.StatusWatched, item.Status())
	require.NotNil(t, item.WatchedAt())

	watched := item.GetUncommittedEvents()[2].(events.ItemWatched)
	assert.Equal(t, *item.WatchedAt(), watched.WatchedAt)
}

func TestWatchlistItem_MarkAsWatchedIsIdempotent(t *testing.T) {
	item, err := NewWatchlistItem(1, newTestMovie(t, 1, nil, 0, 5))
	require.NoError(t, err)

	item.MarkAsWatched()
	once := len(item.GetUncommittedEvents())
	firstWatchedAt := *item.WatchedAt()

	item.MarkAsWatched()

	assert.Equal(t, once, len(item.GetUncommittedEvents()))
	assert.Equal(t, firstWatchedAt, *item.WatchedAt())
}

func TestWatchlistItem_UpdateStatus(t *testing.T) {
	t.Run("leaving watched keeps the watched time", func(t *testing.T) {
		item, err := NewWatchlistItem(1, newTestMovie(t, 1, nil, 0, 5))
		require.NoError(t, err)
		item.MarkAsWatched()
		watchedAt := *item.WatchedAt()

		require.NoError(t, item.UpdateStatus(valueobjects.StatusDropped))

		assert.Equal(t, valueobjects.StatusDropped, item.Status())
		require.NotNil(t, item.WatchedAt())
		assert.Equal(t, watchedAt, *item.WatchedAt())
		pending := item.GetUncommittedEvents()
		assert.Equal(t, events.TypeStatisticsInvalidated, pending[len(pending)-1].EventType())
	})

	t.Run("non-watched status does not stamp watched time", func(t *testing.T) {
		item, err := NewWatchlistItem(1, newTestMovie(t, 1, nil, 0, 5))
		require.NoError(t, err)

		require.NoError(t, item.UpdateStatus(valueobjects.StatusWatching))

		assert.Nil(t, item.WatchedAt())
		assert.Equal(t, []string{events.TypeItemAdded, events.TypeStatisticsInvalidated},
			eventTypes(item.GetUncommittedEvents()))
	})

	t.Run("same status still invalidates", func(t *testing.T) {
		item, err := NewWatchlistItem(1, newTestMovie(t, 1, nil, 0, 5))
		require.NoError(t, err)

		require.NoError(t, item.UpdateStatus(valueobjects.StatusPlanned))

		assert.Len(t, item.GetUncommittedEvents(), 2)
	})

	t.Run("unknown status is rejected without an event", func(t *testing.T) {
		item, err := NewWatchlistItem(1, newTestMovie(t, 1, nil, 0, 5))
		require.NoError(t, err)

		err = item.UpdateStatus(valueobjects.WatchStatus("binged"))

		assert.True(t, pkgerrors.IsValidation(err))
		assert.Len(t, item.GetUncommittedEvents(), 1)
	})
}

func TestWatchlistItem_SetRating(t *testing.T) {
	item, err := NewWatchlistItem(1, newTestMovie(t, 1, nil, 0, 5))
	require.NoError(t, err)

	require.Error(t, item.SetRating(nil))
	assert.Len(t, item.GetUncommittedEvents(), 1)

	first := valueobjects.MustRating(6)
	require.NoError(t, item.SetRating(&first))
	second := valueobjects.MustRating(8)
	require.NoError(t, item.SetRating(&second))

	pending := item.GetUncommittedEvents()
	assert.Equal(t, []string{
		events.TypeItemAdded,
		events.TypeItemRated,
		events.TypeStatisticsInvalidated,
		events.TypeItemRated,
		events.TypeStatisticsInvalidated,
	}, eventTypes(pending))

	firstRated := pending[1].(events.ItemRated)
	assert.Nil(t, firstRated.PreviousRating)
	assert.Equal(t, 6, firstRated.Rating.Value())

	secondRated := pending[3].(events.ItemRated)
	require.NotNil(t, secondRated.PreviousRating)
	assert.Equal(t, 6, secondRated.PreviousRating.Value())
	assert.Equal(t, 8, item.Rating().Value())
}

func TestWatchlistItem_SetFavorite(t *testing.T) {
	item, err := NewWatchlistItem(1, newTestMovie(t, 1, nil, 0, 5))
	require.NoError(t, err)

	item.SetFavorite(false)
	assert.Len(t, item.GetUncommittedEvents(), 1, "setting the current value raises nothing")

	item.SetFavorite(true)
	item.SetFavorite(true)

	assert.True(t, item.IsFavorite())
	assert.Equal(t, []string{
		events.TypeItemAdded,
		events.TypeItemFavorited,
		events.TypeStatisticsInvalidated,
	}, eventTypes(item.GetUncommittedEvents()))
}

func TestWatchlistItem_UpdateNotesRaisesNothing(t *testing.T) {
	item, err := NewWatchlistItem(1, newTestMovie(t, 1, nil, 0, 5))
	require.NoError(t, err)

	item.UpdateNotes("rewatch with subtitles")
	require.NotNil(t, item.Notes())
	assert.Equal(t, "rewatch with subtitles", *item.Notes())

	item.UpdateNotes("")
	assert.Nil(t, item.Notes())
	assert.Len(t, item.GetUncommittedEvents(), 1)
}

func TestWatchlistItem_MarkForRemoval(t *testing.T) {
	item, err := NewWatchlistItem(1, newTestMovie(t, 1, nil, 0, 5))
	require.NoError(t, err)
	require.NoError(t, item.UpdateStatus(valueobjects.StatusWatching))

	item.MarkForRemoval()

	pending := item.GetUncommittedEvents()
	removed, ok := pending[len(pending)-1].(events.ItemRemoved)
	require.True(t, ok)
	assert.Equal(t, valueobjects.StatusWatching, removed.FinalStatus)
	assert.Equal(t, valueobjects.StatusWatching, item.Status())
}

func TestReconstituteWatchlistItem(t *testing.T) {
	watchedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rating := valueobjects.MustRating(9)

	item, err := ReconstituteWatchlistItem(WatchlistItemState{
		UserID:     7,
		Movie:      newTestMovie(t, 42, []string{"Sci-Fi"}, 1999, 8.1),
		Status:     valueobjects.StatusWatched,
		IsFavorite: true,
		Rating:     &rating,
		AddedAt:    watchedAt.Add(-time.Hour),
		WatchedAt:  &watchedAt,
	})

	require.NoError(t, err)
	assert.Empty(t, item.GetUncommittedEvents())
	assert.Equal(t, valueobjects.WatchlistItemKey{UserID: 7, MovieID: 42}, item.Key())

	item.MarkAsWatched()
	assert.Empty(t, item.GetUncommittedEvents(), "already watched when loaded")

	_, err = ReconstituteWatchlistItem(WatchlistItemState{UserID: 7, Status: valueobjects.StatusPlanned})
	assert.True(t, pkgerrors.IsNullReference(err))
}

func TestWatchlistItem_EventTimestampsNeverGoBackwards(t *testing.T) {
	item, err := NewWatchlistItem(1, newTestMovie(t, 1, nil, 0, 5))
	require.NoError(t, err)

	past := item.AddedAt().Add(-time.Hour)
	item.buffer.clock = func() time.Time { return past }

	item.SetFavorite(true)

	pending := item.GetUncommittedEvents()
	for i := 1; i < len(pending); i++ {
		assert.False(t, pending[i].OccurredAt().Before(pending[i-1].OccurredAt()))
	}
}
