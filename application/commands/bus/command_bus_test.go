package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

type pingCommand struct {
	Valid bool
}

func (c pingCommand) Validate() error {
	if !c.Valid {
		return errors.New("ping is invalid")
	}
	return nil
}

type otherCommand struct{}

func (otherCommand) Validate() error { return nil }

func TestCommandBus_Send(t *testing.T) {
	b := NewCommandBus(LoggingMiddleware(zap.NewNop()))
	var handled int
	require.NoError(t, b.Register(pingCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) (*CommandResult, error) {
		handled++
		return &CommandResult{Success: true, TxHashes: []string{"0xabc"}}, nil
	})))

	result, err := b.Send(context.Background(), pingCommand{Valid: true})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"0xabc"}, result.TxHashes)
	assert.Equal(t, 1, handled)
}

func TestCommandBus_ValidationStopsDispatch(t *testing.T) {
	b := NewCommandBus()
	called := false
	require.NoError(t, b.Register(pingCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) (*CommandResult, error) {
		called = true
		return nil, nil
	})))

	_, err := b.Send(context.Background(), pingCommand{})

	assert.EqualError(t, err, "ping is invalid")
	assert.False(t, called)
}

func TestCommandBus_RegisterTwiceFails(t *testing.T) {
	b := NewCommandBus()
	h := CommandHandlerFunc(func(ctx context.Context, cmd Command) (*CommandResult, error) { return nil, nil })

	require.NoError(t, b.Register(pingCommand{}, h))
	assert.Error(t, b.Register(pingCommand{}, h))
}

func TestCommandBus_UnknownCommand(t *testing.T) {
	b := NewCommandBus()

	_, err := b.Send(context.Background(), otherCommand{})

	assert.ErrorIs(t, err, ErrHandlerNotFound)
}

func TestMiddlewares_RunOutermostFirst(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next CommandHandler) CommandHandler {
			return CommandHandlerFunc(func(ctx context.Context, cmd Command) (*CommandResult, error) {
				order = append(order, name)
				return next.Handle(ctx, cmd)
			})
		}
	}
	b := NewCommandBus(mark("outer"), mark("inner"))
	require.NoError(t, b.Register(pingCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) (*CommandResult, error) {
		order = append(order, "handler")
		return &CommandResult{Success: true}, nil
	})))

	_, err := b.Send(context.Background(), pingCommand{Valid: true})

	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestTracingMiddleware_RecordsCommandSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	b := NewCommandBus(TracingMiddleware())
	require.NoError(t, b.Register(pingCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) (*CommandResult, error) {
		return &CommandResult{Success: true, TxHashes: []string{"0x01", "0x02"}}, errors.New("second transaction reverted")
	})))

	_, err := b.Send(context.Background(), pingCommand{Valid: true})
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "command pingCommand", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Contains(t, spans[0].Attributes, attribute.StringSlice("tx.hashes", []string{"0x01", "0x02"}))
}
