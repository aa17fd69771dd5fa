package rest

import (
	"net/http"

	"watchlist-backend/application/commands"
	"watchlist-backend/application/queries"
	"watchlist-backend/interfaces/http/rest/handlers"
	"watchlist-backend/interfaces/http/rest/middleware"
	"watchlist-backend/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Options tunes the HTTP surface
type Options struct {
	AllowedOrigins []string
	// RequestsPerSecond of zero disables rate limiting
	RequestsPerSecond float64
	Burst             int
	ExposeMetrics     bool
}

// Router creates and configures the HTTP router
type Router struct {
	watchlist  *handlers.WatchlistHandler
	accounts   *handlers.AccountHandler
	statistics *handlers.StatisticsHandler
	metrics    *observability.Collector
	options    Options
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	watchlistCommands *commands.WatchlistHandler,
	accountCommands *commands.AccountHandler,
	reader *queries.WatchlistReader,
	statistics *queries.StatisticsService,
	metrics *observability.Collector,
	options Options,
	logger *zap.Logger,
) *Router {
	return &Router{
		watchlist:  handlers.NewWatchlistHandler(watchlistCommands, reader, logger),
		accounts:   handlers.NewAccountHandler(accountCommands, logger),
		statistics: handlers.NewStatisticsHandler(statistics, logger),
		metrics:    metrics,
		options:    options,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() *chi.Mux {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	router.Use(middleware.Metrics(rt.metrics))

	origins := rt.options.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", middleware.UserIDHeader},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	var limiter func(http.Handler) http.Handler
	if rt.options.RequestsPerSecond > 0 {
		limiter = middleware.RateLimit(middleware.NewRateLimiter(rt.options.RequestsPerSecond, rt.options.Burst))
	}

	router.Get("/health", rt.healthCheck)
	if rt.options.ExposeMetrics {
		router.Handle("/metrics", rt.metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		// Public account endpoints, limited per client IP
		r.Group(func(r chi.Router) {
			if limiter != nil {
				r.Use(limiter)
			}
			r.Post("/auth/register", rt.accounts.Register)
			r.Post("/auth/login", rt.accounts.Login)
		})

		// Everything else is per user
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(rt.logger))
			if limiter != nil {
				r.Use(limiter)
			}

			r.Put("/auth/password", rt.accounts.ChangePassword)

			r.Route("/watchlist", func(r chi.Router) {
				r.Get("/", rt.watchlist.ListItems)
				r.Post("/", rt.watchlist.AddItem)
				r.Delete("/{movieID}", rt.watchlist.RemoveItem)
				r.Put("/{movieID}/status", rt.watchlist.UpdateStatus)
				r.Post("/{movieID}/watched", rt.watchlist.MarkWatched)
				r.Put("/{movieID}/rating", rt.watchlist.RateItem)
				r.Put("/{movieID}/favorite", rt.watchlist.SetFavorite)
				r.Put("/{movieID}/notes", rt.watchlist.UpdateNotes)
			})

			r.Get("/statistics", rt.statistics.GetStatistics)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}
