package di

import (
	"context"
	"fmt"

	"optio-backend/application/cache"
	"optio-backend/application/commands/bus"
	commandhandlers "optio-backend/application/commands/handlers"
	"optio-backend/application/ports"
	querybus "optio-backend/application/queries/bus"
	queryhandlers "optio-backend/application/queries/handlers"
	"optio-backend/application/session"
	"optio-backend/application/watcher"
	"optio-backend/domain/core/valueobjects"
	"optio-backend/infrastructure/chain"
	"optio-backend/infrastructure/config"
	"optio-backend/infrastructure/observability"
	"optio-backend/interfaces/http/rest"
	"optio-backend/interfaces/websocket"
	pkgerrors "optio-backend/pkg/errors"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// metricsNamespace prefixes every exported metric
const metricsNamespace = "optio"

// ProvideLogger creates a new logger instance at the configured level
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.IsProduction() {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}

	if cfg.LogLevel != "" {
		level, err := zap.ParseAtomicLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
		}
		zc.Level = level
	}

	return zc.Build()
}

// ProvideErrorHandler creates the HTTP error mapper. Internal details are
// exposed only in development.
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideMetrics creates the Prometheus collector
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector(metricsNamespace)
}

// ProvideTracing installs the OTLP tracer provider. It returns nil when
// tracing is disabled.
func ProvideTracing(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	if !cfg.Observability.EnableTracing {
		return nil, func() {}, nil
	}

	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName: cfg.Observability.ServiceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.Observability.OTLPEndpoint,
		SampleRate:  cfg.Observability.SampleRate,
		Contract:    cfg.Chain.ContractAddress,
		ChainID:     cfg.Chain.ChainID,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	logger.Info("Tracing enabled", zap.String("endpoint", cfg.Observability.OTLPEndpoint))

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

// ProvideChainClient dials the RPC endpoint and binds the narrative contract
func ProvideChainClient(ctx context.Context, cfg *config.Config, metrics *observability.Collector, logger *zap.Logger) (*chain.Client, func(), error) {
	breaker := chain.DefaultBreakerConfig("narrative-rpc")
	if cfg.Chain.BreakerMaxFailures > 0 {
		breaker.MaxFailures = cfg.Chain.BreakerMaxFailures
	}
	if cfg.Chain.BreakerTimeout > 0 {
		breaker.Timeout = cfg.Chain.BreakerTimeout
	}

	client, err := chain.Dial(ctx, chain.Options{
		RPCURL:         cfg.Chain.RPCURL,
		Contract:       common.HexToAddress(cfg.Chain.ContractAddress),
		CallTimeout:    cfg.Chain.CallTimeout,
		Breaker:        breaker,
		Recorder:       metrics,
		OnBreakerState: metrics.BreakerStateChanged,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return client, client.Close, nil
}

// ProvideNarrativeReader returns the contract reader, wrapped in client spans
// when tracing is on.
func ProvideNarrativeReader(client *chain.Client, tracing *observability.TracerProvider) ports.NarrativeReader {
	if tracing == nil {
		return client
	}
	return observability.NewTracedReader(client)
}

// ProvideTreasuryReader exposes the client's treasury reads
func ProvideTreasuryReader(client *chain.Client) ports.TreasuryReader {
	return client
}

// ProvideWallet loads the signing key. Without one the service is read-only
// and a nil writer is returned.
func ProvideWallet(client *chain.Client, cfg *config.Config, logger *zap.Logger) (ports.NarrativeWriter, error) {
	if !cfg.HasWallet() {
		logger.Warn("No wallet configured, contract writes are disabled")
		return nil, nil
	}
	wallet, err := chain.NewWallet(client, cfg.Chain.PrivateKey, cfg.Chain.ChainID, logger)
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// ProvideEventSource dials the subscription endpoint. Subscriptions need a
// websocket or IPC transport, so EventsURL falls back to RPCURL only when unset.
func ProvideEventSource(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.OptioEventSource, func(), error) {
	url := cfg.Chain.EventsURL
	if url == "" {
		url = cfg.Chain.RPCURL
	}
	source, err := chain.DialEvents(ctx, url, common.HexToAddress(cfg.Chain.ContractAddress), logger)
	if err != nil {
		return nil, nil, err
	}
	return source, source.Close, nil
}

// ProvideCache creates the read-through cache shared by every session
func ProvideCache(reader ports.NarrativeReader, metrics *observability.Collector, logger *zap.Logger) *cache.ReadThrough {
	return cache.NewReadThrough(reader, logger, cache.WithRecorder(metrics))
}

// ProvideSessionManager creates the session registry and exports its size
func ProvideSessionManager(c *cache.ReadThrough, cfg *config.Config, metrics *observability.Collector, logger *zap.Logger) *session.Manager {
	sessions := session.NewManager(c, valueobjects.NexusID(cfg.Narrative.StartNexus), logger)
	metrics.TrackSessions(sessions.Count)
	return sessions
}

// ProvideHub creates the websocket hub. It is the session notifier for the
// whole application.
func ProvideHub(metrics *observability.Collector, logger *zap.Logger) *websocket.Hub {
	return websocket.NewHub(logger, metrics)
}

// ProvideNotifier exposes the hub as a ports.SessionNotifier
func ProvideNotifier(hub *websocket.Hub) ports.SessionNotifier {
	return hub
}

// ProvideWebSocketServer creates the upgrade handler for session subscriptions
func ProvideWebSocketServer(hub *websocket.Hub, sessions *session.Manager, cfg *config.Config, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *websocket.Server {
	wsConfig := websocket.DefaultServerConfig()
	wsConfig.AllowedOrigins = cfg.HTTP.CORSOrigins
	return websocket.NewServer(hub, sessions, wsConfig, errorHandler, logger)
}

// ProvideCommandBus creates a command bus with all handlers registered
func ProvideCommandBus(
	cfg *config.Config,
	writer ports.NarrativeWriter,
	reader ports.NarrativeReader,
	treasury ports.TreasuryReader,
	sessions *session.Manager,
	notifier ports.SessionNotifier,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	fee, err := cfg.Fee()
	if err != nil {
		return nil, err
	}

	middlewares := []bus.Middleware{bus.LoggingMiddleware(logger)}
	if cfg.Observability.EnableTracing {
		middlewares = append(middlewares, bus.TracingMiddleware())
	}
	commandBus := bus.NewCommandBus(middlewares...)
	err = commandhandlers.RegisterAll(commandBus, commandhandlers.Deps{
		Writer:   writer,
		Reader:   reader,
		Treasury: treasury,
		Sessions: sessions,
		Notifier: notifier,
		Settings: commandhandlers.Settings{
			Fee:              fee,
			MaxContentLength: cfg.Narrative.MaxContentLength,
			MaxNameLength:    cfg.Narrative.MaxNameLength,
			TxTimeout:        cfg.Chain.TxTimeout,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register command handlers: %w", err)
	}
	return commandBus, nil
}

// ProvideQueryBus creates a query bus with all handlers registered
func ProvideQueryBus(
	c *cache.ReadThrough,
	sessions *session.Manager,
	treasury ports.TreasuryReader,
	writer ports.NarrativeWriter,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	account := ""
	if writer != nil {
		account = writer.Account()
	}

	queryBus := querybus.NewQueryBus(logger)
	if err := queryhandlers.RegisterAll(queryBus, c, sessions, treasury, account, logger); err != nil {
		return nil, fmt.Errorf("failed to register query handlers: %w", err)
	}
	return queryBus, nil
}

// ProvideOptioWatcher creates the LinkedOptio subscriber
func ProvideOptioWatcher(source ports.OptioEventSource, sessions *session.Manager, notifier ports.SessionNotifier, cfg *config.Config, logger *zap.Logger) *watcher.OptioWatcher {
	return watcher.NewOptioWatcher(source, sessions, notifier, cfg.Chain.ResubscribeDelay, logger)
}

// ProvideRefresher creates the periodic view refresher
func ProvideRefresher(sessions *session.Manager, notifier ports.SessionNotifier, cfg *config.Config, logger *zap.Logger) *watcher.Refresher {
	return watcher.NewRefresher(
		sessions,
		notifier,
		cfg.Refresh.UpdateInterval,
		cfg.Refresh.CacheDuration,
		cfg.Refresh.SessionIdle,
		logger,
	)
}

// ProvideRouter creates the HTTP router with its readiness checks
func ProvideRouter(
	cfg *config.Config,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	sessions *session.Manager,
	notifier ports.SessionNotifier,
	ws *websocket.Server,
	metrics *observability.Collector,
	errorHandler *pkgerrors.ErrorHandler,
	client *chain.Client,
	logger *zap.Logger,
) *rest.Router {
	router := rest.NewRouter(commandBus, queryBus, sessions, notifier, ws, metrics, errorHandler, rest.RouterConfig{
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		EnableMetrics:  cfg.Observability.EnableMetrics,
		EnableTracing:  cfg.Observability.EnableTracing,
		ServiceName:    cfg.Observability.ServiceName,
		WriteRateLimit: cfg.HTTP.WriteRateLimit,
		WriteBurst:     cfg.HTTP.WriteBurst,
		RequestTimeout: cfg.HTTP.RequestTimeout,
	}, logger)
	router.AddReadinessCheck("rpc", client.Ping)
	return router
}
