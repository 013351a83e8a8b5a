// Package bus routes commands to the handler registered for their type.
package bus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrHandlerNotFound is returned by Send for an unregistered command type
var ErrHandlerNotFound = errors.New("command handler not found")

// Command represents a command that changes contract state
type Command interface {
	Validate() error
}

// CommandResult is what a command leaves behind: the transactions it submitted
// and any payload the caller needs, such as a new nexus ID.
type CommandResult struct {
	Success  bool        `json:"success"`
	TxHashes []string    `json:"txHashes,omitempty"`
	Data     interface{} `json:"data,omitempty"`
}

// CommandHandler handles a specific command type
type CommandHandler interface {
	Handle(ctx context.Context, cmd Command) (*CommandResult, error)
}

// CommandHandlerFunc is an adapter to allow functions to be used as handlers
type CommandHandlerFunc func(ctx context.Context, cmd Command) (*CommandResult, error)

// Handle implements CommandHandler
func (f CommandHandlerFunc) Handle(ctx context.Context, cmd Command) (*CommandResult, error) {
	return f(ctx, cmd)
}

// Middleware decorates a handler
type Middleware func(next CommandHandler) CommandHandler

// chain applies middlewares so the first one runs outermost
func chain(handler CommandHandler, middlewares []Middleware) CommandHandler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

// CommandBus dispatches commands to their handlers
type CommandBus struct {
	middlewares []Middleware

	mu       sync.RWMutex
	handlers map[reflect.Type]CommandHandler
}

// NewCommandBus creates a new command bus. Middlewares wrap every handler,
// outermost first.
func NewCommandBus(middlewares ...Middleware) *CommandBus {
	return &CommandBus{
		middlewares: middlewares,
		handlers:    make(map[reflect.Type]CommandHandler),
	}
}

// Register binds handler to the dynamic type of cmd
func (b *CommandBus) Register(cmd Command, handler CommandHandler) error {
	t := reflect.TypeOf(cmd)

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.handlers[t]; exists {
		return fmt.Errorf("handler already registered for command type %s", t.Name())
	}
	b.handlers[t] = chain(handler, b.middlewares)
	return nil
}

// Send validates a command and dispatches it to its handler. Errors from
// Validate and from the handler are returned unwrapped so callers can map
// them to responses.
func (b *CommandBus) Send(ctx context.Context, cmd Command) (*CommandResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	handler, exists := b.handlers[reflect.TypeOf(cmd)]
	b.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %T", ErrHandlerNotFound, cmd)
	}

	return handler.Handle(ctx, cmd)
}

// LoggingMiddleware logs each command with the transactions it produced
func LoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) (*CommandResult, error) {
			name := reflect.TypeOf(cmd).Name()
			start := time.Now()
			logger.Info("Executing command", zap.String("type", name))

			result, err := next.Handle(ctx, cmd)
			fields := []zap.Field{
				zap.String("type", name),
				zap.Duration("duration", time.Since(start)),
			}
			if err != nil {
				logger.Error("Command failed", append(fields, zap.Error(err))...)
				return result, err
			}
			if result != nil {
				fields = append(fields, zap.Strings("txHashes", result.TxHashes))
			}
			logger.Info("Command succeeded", fields...)
			return result, nil
		})
	}
}

// TracingMiddleware opens a span per command. Transaction hashes are
// attached so a trace can be matched to the chain.
func TracingMiddleware() Middleware {
	tracer := otel.Tracer("optio-backend/commands")
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) (*CommandResult, error) {
			ctx, span := tracer.Start(ctx, "command "+reflect.TypeOf(cmd).Name(),
				trace.WithSpanKind(trace.SpanKindInternal))
			defer span.End()

			result, err := next.Handle(ctx, cmd)
			if result != nil && len(result.TxHashes) > 0 {
				span.SetAttributes(attribute.StringSlice("tx.hashes", result.TxHashes))
			}
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return result, err
		})
	}
}
