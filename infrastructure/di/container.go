package di

import (
	"context"

	"watchlist-backend/application/ports"
	"watchlist-backend/infrastructure/config"
	"watchlist-backend/interfaces/http/rest"
	"watchlist-backend/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	LogLevel zap.AtomicLevel
	Metrics  *observability.Collector
	Tracer   *observability.TracerProvider
	Sessions ports.SessionFactory
	Router   *rest.Router
}

// Shutdown flushes telemetry and logs
func (c *Container) Shutdown(ctx context.Context) error {
	err := c.Tracer.Shutdown(ctx)
	_ = c.Logger.Sync()
	return err
}
