// Package di wires the application's dependencies.
package di

import (
	"time"

	"optio-backend/application/cache"
	"optio-backend/application/commands/bus"
	"optio-backend/application/ports"
	querybus "optio-backend/application/queries/bus"
	"optio-backend/application/session"
	"optio-backend/application/watcher"
	"optio-backend/infrastructure/chain"
	"optio-backend/infrastructure/config"
	"optio-backend/infrastructure/observability"
	"optio-backend/interfaces/http/rest"
	"optio-backend/interfaces/websocket"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *observability.Collector
	Tracing    *observability.TracerProvider
	Chain      *chain.Client
	Writer     ports.NarrativeWriter
	Cache      *cache.ReadThrough
	Sessions   *session.Manager
	Hub        *websocket.Hub
	CommandBus *bus.CommandBus
	QueryBus   *querybus.QueryBus
	Watcher    *watcher.OptioWatcher
	Refresher  *watcher.Refresher
	Router     *rest.Router
}
