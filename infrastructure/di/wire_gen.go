// Injector for wire.go, kept in step with its provider sets by hand.
// Running wire regenerates it from the same graph.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package di

import (
	"context"

	"optio-backend/infrastructure/config"
)

// Injectors from wire.go:

// InitializeContainer creates a fully wired container. The returned cleanup
// releases connections in reverse order of creation.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	collector := ProvideMetrics()
	tracerProvider, cleanup, err := ProvideTracing(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	client, cleanup2, err := ProvideChainClient(ctx, cfg, collector, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	narrativeWriter, err := ProvideWallet(client, cfg, logger)
	if err != nil {
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	narrativeReader := ProvideNarrativeReader(client, tracerProvider)
	readThrough := ProvideCache(narrativeReader, collector, logger)
	manager := ProvideSessionManager(readThrough, cfg, collector, logger)
	hub := ProvideHub(collector, logger)
	sessionNotifier := ProvideNotifier(hub)
	treasuryReader := ProvideTreasuryReader(client)
	commandBus, err := ProvideCommandBus(cfg, narrativeWriter, narrativeReader, treasuryReader, manager, sessionNotifier, logger)
	if err != nil {
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	queryBus, err := ProvideQueryBus(readThrough, manager, treasuryReader, narrativeWriter, logger)
	if err != nil {
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	optioEventSource, cleanup3, err := ProvideEventSource(ctx, cfg, logger)
	if err != nil {
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	optioWatcher := ProvideOptioWatcher(optioEventSource, manager, sessionNotifier, cfg, logger)
	refresher := ProvideRefresher(manager, sessionNotifier, cfg, logger)
	errorHandler := ProvideErrorHandler(cfg, logger)
	server := ProvideWebSocketServer(hub, manager, cfg, errorHandler, logger)
	router := ProvideRouter(cfg, commandBus, queryBus, manager, sessionNotifier, server, collector, errorHandler, client, logger)
	container := &Container{
		Config:     cfg,
		Logger:     logger,
		Metrics:    collector,
		Tracing:    tracerProvider,
		Chain:      client,
		Writer:     narrativeWriter,
		Cache:      readThrough,
		Sessions:   manager,
		Hub:        hub,
		CommandBus: commandBus,
		QueryBus:   queryBus,
		Watcher:    optioWatcher,
		Refresher:  refresher,
		Router:     router,
	}
	return container, func() {
		cleanup3()
		cleanup2()
		cleanup()
	}, nil
}
