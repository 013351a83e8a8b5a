// Package bus routes read-only queries to their handlers.
package bus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	pkgerrors "optio-backend/pkg/errors"

	"go.uber.org/zap"
)

// DefaultSlowThreshold is the duration after which a query is logged as slow.
// Cache hits answer in microseconds; anything slower went to the RPC endpoint.
const DefaultSlowThreshold = time.Second

// ErrHandlerNotFound is returned by Ask for an unregistered query type
var ErrHandlerNotFound = errors.New("query handler not found")

// Query represents a read-only query
type Query interface {
	Validate() error
}

// QueryHandler handles a specific query type
type QueryHandler interface {
	Handle(ctx context.Context, query Query) (interface{}, error)
}

// QueryHandlerFunc is an adapter to allow functions to be used as handlers
type QueryHandlerFunc func(ctx context.Context, query Query) (interface{}, error)

// Handle implements QueryHandler
func (f QueryHandlerFunc) Handle(ctx context.Context, query Query) (interface{}, error) {
	return f(ctx, query)
}

// QueryBus dispatches queries to their handlers
type QueryBus struct {
	logger        *zap.Logger
	slowThreshold time.Duration
	now           func() time.Time

	mu       sync.RWMutex
	handlers map[reflect.Type]QueryHandler
}

// NewQueryBus creates a new query bus
func NewQueryBus(logger *zap.Logger) *QueryBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryBus{
		logger:        logger,
		slowThreshold: DefaultSlowThreshold,
		now:           time.Now,
		handlers:      make(map[reflect.Type]QueryHandler),
	}
}

// Register binds handler to the dynamic type of query. One handler may serve
// several query types.
func (b *QueryBus) Register(query Query, handler QueryHandler) error {
	t := reflect.TypeOf(query)

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.handlers[t]; exists {
		return fmt.Errorf("handler already registered for query type %s", t.Name())
	}
	b.handlers[t] = handler
	return nil
}

// Ask validates a query and returns its handler's result
func (b *QueryBus) Ask(ctx context.Context, query Query) (interface{}, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	handler, exists := b.handlers[reflect.TypeOf(query)]
	b.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %T", ErrHandlerNotFound, query)
	}

	start := b.now()
	result, err := handler.Handle(ctx, query)
	elapsed := b.now().Sub(start)

	name := reflect.TypeOf(query).Name()
	switch {
	case err != nil:
		b.logger.Debug("Query failed", zap.String("type", name), zap.Duration("duration", elapsed), zap.Error(err))
		return nil, err
	case elapsed >= b.slowThreshold:
		b.logger.Warn("Slow query", zap.String("type", name), zap.Duration("duration", elapsed))
	}
	return result, nil
}

// Ask dispatches query on b and asserts the result type
func Ask[T any](ctx context.Context, b *QueryBus, query Query) (T, error) {
	var zero T
	result, err := b.Ask(ctx, query)
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, pkgerrors.NewInternalError(fmt.Sprintf("query %T answered with %T", query, result))
	}
	return typed, nil
}
