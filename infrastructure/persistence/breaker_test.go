package persistence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"watchlist-backend/domain/core/aggregates"
	"watchlist-backend/domain/core/entities"
	"watchlist-backend/domain/core/valueobjects"
	"watchlist-backend/infrastructure/persistence"
	"watchlist-backend/infrastructure/persistence/memory"
	pkgerrors "watchlist-backend/pkg/errors"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() persistence.BreakerConfig {
	config := persistence.DefaultBreakerConfig("test-store")
	config.MinRequests = 2
	config.FailureThreshold = 1.0
	config.Timeout = time.Hour
	return config
}

func stagedItem(t *testing.T, movieID int64) *aggregates.WatchlistItem {
	t.Helper()
	movie, err := entities.NewMovie(valueobjects.MovieID(movieID), "Heat", []string{"Crime"}, nil, 8.3)
	require.NoError(t, err)
	item, err := aggregates.NewWatchlistItem(valueobjects.UserID(1), movie)
	require.NoError(t, err)
	return item
}

func TestBreakerSessionFactory_OpensOnPersistenceFailures(t *testing.T) {
	// Arrange
	store := memory.NewStore()
	factory := persistence.NewBreakerSessionFactory(store, testConfig(), zap.NewNop())
	ctx := context.Background()

	// Act
	for i := 0; i < 2; i++ {
		store.FailNextPersist(errors.New("disk full"))
		session := factory.NewSession()
		session.Watchlist().Add(stagedItem(t, int64(i+1)))
		_, err := session.PersistPendingChanges(ctx)
		require.Error(t, err)
	}

	session := factory.NewSession()
	session.Watchlist().Add(stagedItem(t, 10))
	_, err := session.PersistPendingChanges(ctx)

	// Assert
	assert.Equal(t, gobreaker.StateOpen, factory.State())
	assert.True(t, pkgerrors.IsPersistence(err))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Zero(t, store.Commits())
}

func TestBreakerSessionFactory_ConflictsDoNotTrip(t *testing.T) {
	store := memory.NewStore()
	factory := persistence.NewBreakerSessionFactory(store, testConfig(), zap.NewNop())
	ctx := context.Background()

	first := factory.NewSession()
	first.Watchlist().Add(stagedItem(t, 1))
	count, err := first.PersistPendingChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	for i := 0; i < 3; i++ {
		session := factory.NewSession()
		session.Watchlist().Add(stagedItem(t, 1))
		_, err := session.PersistPendingChanges(ctx)
		assert.True(t, pkgerrors.IsConflict(err))
	}

	assert.Equal(t, gobreaker.StateClosed, factory.State())
}

func TestBreakerSessionFactory_TracksThroughWrapper(t *testing.T) {
	factory := persistence.NewBreakerSessionFactory(memory.NewStore(), testConfig(), zap.NewNop())
	session := factory.NewSession()
	item := stagedItem(t, 3)

	session.Watchlist().Add(item)

	require.Len(t, session.Tracked(), 1)
	assert.Same(t, item, session.Tracked()[0])
}
