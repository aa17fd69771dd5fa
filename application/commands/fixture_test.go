package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	appevents "watchlist-backend/application/events"
	"watchlist-backend/application/events/listeners"
	"watchlist-backend/application/queries"
	"watchlist-backend/application/uow"
	"watchlist-backend/domain/core/aggregates"
	"watchlist-backend/domain/core/entities"
	"watchlist-backend/domain/core/valueobjects"
	"watchlist-backend/infrastructure/catalog"
	"watchlist-backend/infrastructure/persistence/memory"
	"watchlist-backend/pkg/observability"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// plainHasher keeps tests fast; argon2 is covered in pkg/auth
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain:" + password, nil }

func (plainHasher) Compare(hash, password string) error {
	if hash != "plain:"+password {
		return errors.New("mismatch")
	}
	return nil
}

type fixture struct {
	store     *memory.Store
	catalog   *catalog.StaticCatalog
	metrics   *observability.Collector
	logs      *observer.ObservedLogs
	now       time.Time
	watchlist *WatchlistHandler
	accounts  *AccountHandler
	stats     *queries.StatisticsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	f := &fixture{
		store:   memory.NewStore(),
		catalog: catalog.NewStaticCatalog(),
		metrics: observability.NewCollector("test"),
		logs:    logs,
		now:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	d := appevents.NewDispatcher(zap.NewNop(), f.metrics, 0)
	require.NoError(t, listeners.NewActivityLogger(logger).Subscribe(d))
	require.NoError(t, listeners.NewStatisticsInvalidator(f.store, f.metrics, zap.NewNop()).Subscribe(d))
	require.NoError(t, listeners.NewSecurityAuditLogger(zap.NewNop()).Subscribe(d))

	uows := uow.NewFactory(f.store, d, zap.NewNop(), f.metrics)
	f.watchlist = NewWatchlistHandler(uows, f.catalog, zap.NewNop())
	f.accounts = NewAccountHandler(uows, plainHasher{}, 24*time.Hour, zap.NewNop())
	f.stats = queries.NewStatisticsService(f.store, func() time.Time { return f.now }, f.metrics, zap.NewNop())

	return f
}

func (f *fixture) addMovie(t *testing.T, id int64, genres ...string) {
	t.Helper()
	release := time.Date(2010, 7, 16, 0, 0, 0, 0, time.UTC)
	movie, err := entities.NewMovie(valueobjects.MovieID(id), "Movie", genres, &release, 7.5)
	require.NoError(t, err)
	f.catalog.Put(movie)
}

func (f *fixture) register(t *testing.T, username string) *aggregates.User {
	t.Helper()
	user, err := f.accounts.RegisterUser(context.Background(), RegisterUserCommand{Username: username, Password: "password123"})
	require.NoError(t, err)
	return user
}

// activity returns the messages the activity logger wrote, in order
func (f *fixture) activity() []string {
	var out []string
	entries := f.logs.Filter(func(e observer.LoggedEntry) bool { return e.LoggerName == "activity" })
	for _, entry := range entries.All() {
		out = append(out, entry.Message)
	}
	return out
}
