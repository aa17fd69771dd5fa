package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application.
// A nil *Collector is valid and records nothing.
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Commit pipeline metrics
	Commits          *prometheus.CounterVec
	EventsDispatched *prometheus.CounterVec
	HandlerRuns      *prometheus.CounterVec
	HandlerDuration  *prometheus.HistogramVec

	// Statistics cache metrics
	StatisticsReads         *prometheus.CounterVec
	StatisticsInvalidations *prometheus.CounterVec

	// Repository metrics
	DBOperations *prometheus.CounterVec
	DBDuration   *prometheus.HistogramVec
}

// NewCollector creates a new metrics collector with its own registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Commits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uow_commits_total",
				Help:      "Unit of work commits by outcome",
			},
			[]string{"outcome"},
		),
		EventsDispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_dispatched_total",
				Help:      "Domain events handed to the dispatcher",
			},
			[]string{"event_type"},
		),
		HandlerRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "event_handler_runs_total",
				Help:      "Event handler invocations by result",
			},
			[]string{"event_type", "handler", "status"},
		),
		HandlerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "event_handler_duration_seconds",
				Help:      "Event handler duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"event_type", "handler"},
		),
		StatisticsReads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "statistics_reads_total",
				Help:      "Statistics reads served from cache or recomputed",
			},
			[]string{"result"},
		),
		StatisticsInvalidations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "statistics_invalidations_total",
				Help:      "Statistics invalidation requests by effect",
			},
			[]string{"result"},
		),
		DBOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_operations_total",
				Help:      "Total number of database operations",
			},
			[]string{"operation", "table", "status"},
		),
		DBDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_operation_duration_seconds",
				Help:      "Database operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "table"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Commits,
		c.EventsDispatched,
		c.HandlerRuns,
		c.HandlerDuration,
		c.StatisticsReads,
		c.StatisticsInvalidations,
		c.DBOperations,
		c.DBDuration,
	)

	return c
}

// Registry exposes the underlying registry, mainly for tests
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one served request
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordCommit records a unit of work outcome: committed, failed
func (c *Collector) RecordCommit(outcome string) {
	if c == nil {
		return
	}
	c.Commits.WithLabelValues(outcome).Inc()
}

// RecordEventDispatched counts an event handed to the dispatcher
func (c *Collector) RecordEventDispatched(eventType string) {
	if c == nil {
		return
	}
	c.EventsDispatched.WithLabelValues(eventType).Inc()
}

// RecordHandlerRun records one handler invocation
func (c *Collector) RecordHandlerRun(eventType, handler string, err error, duration time.Duration) {
	if c == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.HandlerRuns.WithLabelValues(eventType, handler, status).Inc()
	c.HandlerDuration.WithLabelValues(eventType, handler).Observe(duration.Seconds())
}

// RecordStatisticsRead records a statistics read: hit, recompute
func (c *Collector) RecordStatisticsRead(result string) {
	if c == nil {
		return
	}
	c.StatisticsReads.WithLabelValues(result).Inc()
}

// RecordInvalidation records whether an invalidation actually cleared a cache
func (c *Collector) RecordInvalidation(cleared bool) {
	if c == nil {
		return
	}
	result := "noop"
	if cleared {
		result = "cleared"
	}
	c.StatisticsInvalidations.WithLabelValues(result).Inc()
}

// RecordDBOperation records one store round trip
func (c *Collector) RecordDBOperation(operation, table string, err error, duration time.Duration) {
	if c == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.DBOperations.WithLabelValues(operation, table, status).Inc()
	c.DBDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}
