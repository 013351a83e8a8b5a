package observability

import (
	"context"

	"optio-backend/application/ports"
	"optio-backend/domain/core/entities"
	"optio-backend/domain/core/valueobjects"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const readerTracerName = "optio-backend/chain"

// TracedReader records a client span around every contract read
type TracedReader struct {
	next   ports.NarrativeReader
	tracer trace.Tracer
}

// NewTracedReader decorates next. It uses the global tracer provider.
func NewTracedReader(next ports.NarrativeReader) *TracedReader {
	return &TracedReader{next: next, tracer: otel.Tracer(readerTracerName)}
}

func (r *TracedReader) GetFullNexusBatch(ctx context.Context, ids []valueobjects.NexusID) ([]entities.Nexus, error) {
	ctx, span := r.start(ctx, "NarrativeReader.GetFullNexusBatch", attribute.Int("batch.size", len(ids)))
	defer span.End()

	nexuses, err := r.next.GetFullNexusBatch(ctx, ids)
	finish(span, err)
	return nexuses, err
}

func (r *TracedReader) GetFullOptioBatch(ctx context.Context, ids []valueobjects.OptioID) ([]entities.Optio, error) {
	ctx, span := r.start(ctx, "NarrativeReader.GetFullOptioBatch", attribute.Int("batch.size", len(ids)))
	defer span.End()

	optios, err := r.next.GetFullOptioBatch(ctx, ids)
	finish(span, err)
	return optios, err
}

func (r *TracedReader) NexusCount(ctx context.Context) (uint64, error) {
	ctx, span := r.start(ctx, "NarrativeReader.NexusCount")
	defer span.End()

	n, err := r.next.NexusCount(ctx)
	if err == nil {
		span.SetAttributes(attribute.Int64("nexus.count", int64(n)))
	}
	finish(span, err)
	return n, err
}

func (r *TracedReader) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(attrs, attribute.String("rpc.system", "ethereum"))...),
	)
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}
