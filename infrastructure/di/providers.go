package di

import (
	"context"

	"watchlist-backend/application/commands"
	appevents "watchlist-backend/application/events"
	"watchlist-backend/application/events/listeners"
	"watchlist-backend/application/ports"
	"watchlist-backend/application/queries"
	"watchlist-backend/application/uow"
	"watchlist-backend/infrastructure/catalog"
	"watchlist-backend/infrastructure/config"
	"watchlist-backend/infrastructure/messaging"
	"watchlist-backend/infrastructure/messaging/eventbridge"
	"watchlist-backend/infrastructure/persistence"
	"watchlist-backend/infrastructure/persistence/dynamodb"
	"watchlist-backend/infrastructure/persistence/memory"
	"watchlist-backend/interfaces/http/rest"
	"watchlist-backend/pkg/auth"
	"watchlist-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

// ProvideLogLevel creates the runtime-adjustable log level
func ProvideLogLevel(cfg *config.Config) zap.AtomicLevel {
	return zap.NewAtomicLevelAt(observability.ParseLevel(cfg.LogLevel))
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config, level zap.AtomicLevel) (*zap.Logger, error) {
	return observability.NewLogger(cfg.Environment, level)
}

// ProvideMetrics creates the Prometheus collector
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector("watchlist")
}

// ProvideTracer installs OpenTelemetry when enabled. Returns nil otherwise.
func ProvideTracer(ctx context.Context, cfg *config.Config) (*observability.TracerProvider, error) {
	if !cfg.Tracing.Enabled {
		return nil, nil
	}
	return observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName: "watchlist-backend",
		Environment: cfg.Environment,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRate:  cfg.Tracing.SampleRate,
	})
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideSessionFactory selects the store and guards it with a circuit breaker
func ProvideSessionFactory(
	cfg *config.Config,
	client *awsdynamodb.Client,
	logger *zap.Logger,
	metrics *observability.Collector,
) ports.SessionFactory {
	var store ports.SessionFactory
	switch cfg.StoreType {
	case config.StoreDynamoDB:
		store = dynamodb.NewStore(client, cfg.DynamoDBTable, logger, metrics)
	default:
		logger.Warn("Using in-memory store; data is lost on restart")
		store = memory.NewStore()
	}
	return persistence.NewBreakerSessionFactory(store, persistence.DefaultBreakerConfig(cfg.StoreType), logger)
}

// ProvideEventPublisher selects EventBridge in AWS and a logging stand-in locally
func ProvideEventPublisher(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) ports.EventPublisher {
	if cfg.StoreType == config.StoreDynamoDB && cfg.EventBusName != "" {
		return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
	}
	return messaging.NewLogPublisher(logger)
}

// ProvideMovieCatalog loads the movie catalog file, or starts empty without one
func ProvideMovieCatalog(cfg *config.Config, logger *zap.Logger) (ports.MovieCatalog, error) {
	if cfg.CatalogPath == "" {
		logger.Warn("No catalog configured; every movie lookup will miss")
		return catalog.NewStaticCatalog(), nil
	}
	movies, err := catalog.LoadStaticCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	logger.Info("Movie catalog loaded", zap.Int("movies", movies.Len()))
	return movies, nil
}

// ProvideDispatcher builds the dispatcher and registers every handler.
// The registry is complete before the first request is served.
func ProvideDispatcher(
	cfg *config.Config,
	sessions ports.SessionFactory,
	publisher ports.EventPublisher,
	logger *zap.Logger,
	metrics *observability.Collector,
) (*appevents.Dispatcher, error) {
	d := appevents.NewDispatcher(logger, metrics, cfg.HandlerTimeout)

	subscribers := []interface {
		Subscribe(*appevents.Dispatcher) error
	}{
		listeners.NewActivityLogger(logger),
		listeners.NewStatisticsInvalidator(sessions, metrics, logger),
		listeners.NewActivityPublisher(publisher, logger),
		listeners.NewSecurityAuditLogger(logger),
	}
	for _, s := range subscribers {
		if err := s.Subscribe(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// ProvideUnitOfWorkFactory creates the unit of work factory
func ProvideUnitOfWorkFactory(
	sessions ports.SessionFactory,
	dispatcher *appevents.Dispatcher,
	logger *zap.Logger,
	metrics *observability.Collector,
) *uow.Factory {
	return uow.NewFactory(sessions, dispatcher, logger, metrics)
}

// ProvidePasswordHasher creates the argon2id hasher
func ProvidePasswordHasher() ports.PasswordHasher {
	return auth.NewArgon2Hasher()
}

// ProvideWatchlistCommands creates the watchlist command handler
func ProvideWatchlistCommands(uows *uow.Factory, movies ports.MovieCatalog, logger *zap.Logger) *commands.WatchlistHandler {
	return commands.NewWatchlistHandler(uows, movies, logger)
}

// ProvideAccountCommands creates the account command handler
func ProvideAccountCommands(uows *uow.Factory, hasher ports.PasswordHasher, cfg *config.Config, logger *zap.Logger) *commands.AccountHandler {
	return commands.NewAccountHandler(uows, hasher, cfg.RefreshTokenTTL, logger)
}

// ProvideWatchlistReader creates the watchlist query side
func ProvideWatchlistReader(sessions ports.SessionFactory) *queries.WatchlistReader {
	return queries.NewWatchlistReader(sessions)
}

// ProvideStatisticsService creates the statistics query service
func ProvideStatisticsService(sessions ports.SessionFactory, metrics *observability.Collector, logger *zap.Logger) *queries.StatisticsService {
	return queries.NewStatisticsService(sessions, nil, metrics, logger)
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	cfg *config.Config,
	watchlist *commands.WatchlistHandler,
	accounts *commands.AccountHandler,
	reader *queries.WatchlistReader,
	statistics *queries.StatisticsService,
	metrics *observability.Collector,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(watchlist, accounts, reader, statistics, metrics, rest.Options{
		AllowedOrigins:    cfg.CORSAllowedOrigins,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
		ExposeMetrics:     cfg.EnableMetrics,
	}, logger)
}
