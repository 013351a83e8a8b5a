// Package observability provides Prometheus metrics and OpenTelemetry tracing
// for the optio backend.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
)

// Collector holds all Prometheus metrics for the application. It satisfies
// cache.Recorder and chain.CallRecorder.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Chain metrics
	ChainCalls    *prometheus.CounterVec
	ChainDuration *prometheus.HistogramVec
	BreakerState  *prometheus.GaugeVec

	// Cache metrics
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
	CacheInvalidations prometheus.Counter

	// Session metrics
	ActiveConnections prometheus.Gauge
	NotificationsSent *prometheus.CounterVec

	namespace string
}

// NewCollector creates a collector with its own registry, so tests can create
// as many as they like.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry:  registry,
		namespace: namespace,
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
		ChainCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chain_calls_total",
				Help:      "Total number of contract calls and transactions",
			},
			[]string{"method", "status"},
		),
		ChainDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "chain_call_duration_seconds",
				Help:      "Contract call duration in seconds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{"breaker"},
		),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of nexus cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of nexus cache misses",
		}),
		CacheInvalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidations_total",
			Help:      "Total number of nexus cache invalidations",
		}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections",
			Help:      "Number of open WebSocket connections",
		}),
		NotificationsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_sent_total",
				Help:      "Total number of messages pushed to WebSocket clients",
			},
			[]string{"type"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.ChainCalls,
		c.ChainDuration,
		c.BreakerState,
		c.CacheHits,
		c.CacheMisses,
		c.CacheInvalidations,
		c.ActiveConnections,
		c.NotificationsSent,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the collector's registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) CacheHit()          { c.CacheHits.Inc() }
func (c *Collector) CacheMiss()         { c.CacheMisses.Inc() }
func (c *Collector) CacheInvalidation() { c.CacheInvalidations.Inc() }

// ObserveCall records one contract call or transaction submission
func (c *Collector) ObserveCall(method string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.ChainCalls.WithLabelValues(method, status).Inc()
	c.ChainDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// BreakerStateChanged tracks the state of a circuit breaker
func (c *Collector) BreakerStateChanged(name string, to gobreaker.State) {
	var v float64
	switch to {
	case gobreaker.StateHalfOpen:
		v = 1
	case gobreaker.StateOpen:
		v = 2
	}
	c.BreakerState.WithLabelValues(name).Set(v)
}

// ObserveHTTP records one HTTP request
func (c *Collector) ObserveHTTP(method, route string, status int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackSessions exports count as the number of live exploration sessions.
// It is sampled on every scrape.
func (c *Collector) TrackSessions(count func() int) {
	c.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: c.namespace,
			Name:      "active_sessions",
			Help:      "Number of live exploration sessions",
		},
		func() float64 { return float64(count()) },
	))
}

// ConnectionOpened and ConnectionClosed track WebSocket clients
func (c *Collector) ConnectionOpened() { c.ActiveConnections.Inc() }
func (c *Collector) ConnectionClosed() { c.ActiveConnections.Dec() }

// MessageSent counts a pushed WebSocket message
func (c *Collector) MessageSent(messageType string) {
	c.NotificationsSent.WithLabelValues(messageType).Inc()
}
