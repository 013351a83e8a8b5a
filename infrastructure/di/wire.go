//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"optio-backend/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideErrorHandler,
	ProvideMetrics,
	ProvideTracing,
	ProvideChainClient,
	ProvideNarrativeReader,
	ProvideTreasuryReader,
	ProvideWallet,
	ProvideEventSource,
	ProvideCache,
	ProvideSessionManager,
	ProvideHub,
	ProvideNotifier,
	ProvideWebSocketServer,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideOptioWatcher,
	ProvideRefresher,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. The returned cleanup
// releases connections in reverse order of creation.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
