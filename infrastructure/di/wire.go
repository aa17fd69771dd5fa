//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"watchlist-backend/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogLevel,
	ProvideLogger,
	ProvideMetrics,
	ProvideTracer,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideSessionFactory,
	ProvideEventPublisher,
	ProvideMovieCatalog,
	ProvideDispatcher,
	ProvideUnitOfWorkFactory,
	ProvidePasswordHasher,
	ProvideWatchlistCommands,
	ProvideAccountCommands,
	ProvideWatchlistReader,
	ProvideStatisticsService,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil
}
