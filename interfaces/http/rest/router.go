// Package rest exposes the exploration sessions, the narrative and the
// treasury over HTTP.
package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"optio-backend/application/commands/bus"
	"optio-backend/application/ports"
	querybus "optio-backend/application/queries/bus"
	"optio-backend/application/session"
	"optio-backend/infrastructure/observability"
	"optio-backend/interfaces/http/rest/handlers"
	"optio-backend/interfaces/http/rest/middleware"
	"optio-backend/interfaces/websocket"
	pkgerrors "optio-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// ReadinessCheck reports whether a dependency can serve traffic
type ReadinessCheck func(ctx context.Context) error

// RouterConfig holds the HTTP surface settings
type RouterConfig struct {
	CORSOrigins    []string
	EnableMetrics  bool
	EnableTracing  bool
	ServiceName    string
	WriteRateLimit float64
	WriteBurst     int
	// RequestTimeout bounds API requests, including transaction confirmation
	RequestTimeout time.Duration
}

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	sessions   *session.Manager
	notifier   ports.SessionNotifier
	ws         *websocket.Server
	metrics    *observability.Collector
	checks     map[string]ReadinessCheck
	config     RouterConfig
	errors     *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewRouter creates a new router instance. metrics and ws may be nil.
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	sessions *session.Manager,
	notifier ports.SessionNotifier,
	ws *websocket.Server,
	metrics *observability.Collector,
	errorHandler *pkgerrors.ErrorHandler,
	config RouterConfig,
	logger *zap.Logger,
) *Router {
	return &Router{
		commandBus: commandBus,
		queryBus:   queryBus,
		sessions:   sessions,
		notifier:   notifier,
		ws:         ws,
		metrics:    metrics,
		checks:     make(map[string]ReadinessCheck),
		config:     config,
		errors:     errorHandler,
		logger:     logger,
	}
}

// AddReadinessCheck registers a dependency probed by /ready
func (rt *Router) AddReadinessCheck(name string, check ReadinessCheck) {
	rt.checks[name] = check
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.metrics != nil {
		router.Use(rt.metrics.MetricsMiddleware)
	}
	if rt.config.EnableTracing {
		router.Use(observability.TracingMiddleware(rt.config.ServiceName))
	}

	origins := rt.config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.metrics != nil && rt.config.EnableMetrics {
		router.Handle("/metrics", rt.metrics.Handler())
	}
	if rt.ws != nil {
		router.Get("/ws/sessions/{id}", rt.ws.HandleWebSocket)
	}

	writes := middleware.NewRateLimiter(rt.config.WriteRateLimit, rt.config.WriteBurst, rt.errors, rt.logger)

	router.Route("/api/v1", func(r chi.Router) {
		if rt.config.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(rt.config.RequestTimeout))
		}
		sessionHandler := handlers.NewSessionHandler(rt.queryBus, rt.sessions, rt.notifier, rt.errors, rt.logger)
		narrativeHandler := handlers.NewNarrativeHandler(rt.commandBus, rt.queryBus, rt.errors, rt.logger)
		treasuryHandler := handlers.NewTreasuryHandler(rt.commandBus, rt.queryBus, rt.errors, rt.logger)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.CreateSession)
			r.Get("/{id}", sessionHandler.GetSession)
			r.Delete("/{id}", sessionHandler.DeleteSession)
			r.Post("/{id}/follow", sessionHandler.Follow)
			r.Post("/{id}/back", sessionHandler.Back)
			r.Post("/{id}/refresh", sessionHandler.Refresh)
			r.Get("/{id}/paths", sessionHandler.GetPaths)
			r.Get("/{id}/destinations", sessionHandler.GetDestinations)
		})

		r.Get("/nexus/{id}", narrativeHandler.GetNexus)
		r.Get("/treasury", treasuryHandler.GetTreasury)

		// Contract writes
		r.Group(func(r chi.Router) {
			r.Use(writes.Handler)
			r.Post("/nexus", narrativeHandler.Contribute)
			r.Post("/optios", narrativeHandler.Bind)
			r.Post("/names", narrativeHandler.RegisterName)
			r.Post("/treasury/sacrifice", treasuryHandler.Sacrifice)
			r.Post("/treasury/withdraw", treasuryHandler.Withdraw)
		})
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck runs every registered check with a short deadline
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(rt.checks))
	for name, check := range rt.checks {
		if err := check(ctx); err != nil {
			rt.logger.Warn("Readiness check failed", zap.String("check", name), zap.Error(err))
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	body := map[string]interface{}{"status": "ready", "checks": results}
	if status != http.StatusOK {
		body["status"] = "not ready"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
