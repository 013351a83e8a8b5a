package observability

import (
	"context"
	"fmt"
	"net"
	"os"
	"runtime/debug"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const defaultOTLPEndpoint = "localhost:4317"

// TracerProvider owns the SDK provider installed as the global one
type TracerProvider struct {
	provider *sdktrace.TracerProvider
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	ServiceName string
	Environment string
	Endpoint    string

	// SampleRate is the fraction of new traces kept. Zero picks a rate from
	// the environment. Traces started upstream follow the caller's decision.
	SampleRate float64

	// Contract and ChainID tag every span with the deployment being served
	Contract string
	ChainID  int64
}

// InitTracing exports spans over OTLP/gRPC and installs the provider and the
// W3C propagators globally
func InitTracing(ctx context.Context, cfg TracingConfig) (*TracerProvider, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultOTLPEndpoint
	}
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
	if isLoopback(endpoint) {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter for %s: %w", endpoint, err)
	}

	res, err := resource.Merge(resource.Default(), serviceResource(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to build trace resource: %w", err)
	}

	return newTracerProvider(cfg, sdktrace.WithBatcher(exporter), sdktrace.WithResource(res)), nil
}

func newTracerProvider(cfg TracingConfig, opts ...sdktrace.TracerProviderOption) *TracerProvider {
	opts = append(opts, sdktrace.WithSampler(sampler(cfg)))
	tp := sdktrace.NewTracerProvider(opts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return &TracerProvider{provider: tp}
}

func sampler(cfg TracingConfig) sdktrace.Sampler {
	rate := cfg.SampleRate
	if rate == 0 {
		// sample less where traffic is real
		rate = 1
		if cfg.Environment == "production" {
			rate = 0.1
		}
	}
	if rate >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
}

func serviceResource(cfg TracingConfig) *resource.Resource {
	name := cfg.ServiceName
	if name == "" {
		name = "optio-backend"
	}
	attrs := []attribute.KeyValue{
		semconv.ServiceName(name),
		semconv.ServiceVersion(buildVersion()),
		attribute.String("deployment.environment", cfg.Environment),
	}
	if cfg.Contract != "" {
		attrs = append(attrs,
			attribute.String("optio.contract", cfg.Contract),
			attribute.Int64("optio.chain_id", cfg.ChainID),
		)
	}
	if host, err := os.Hostname(); err == nil {
		attrs = append(attrs, semconv.HostName(host))
	}
	return resource.NewWithAttributes(semconv.SchemaURL, attrs...)
}

// buildVersion prefers an explicit SERVICE_VERSION over the module version
// stamped by the Go toolchain
func buildVersion() string {
	if v := os.Getenv("SERVICE_VERSION"); v != "" {
		return v
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "unknown"
}

func isLoopback(endpoint string) bool {
	host, _, err := net.SplitHostPort(endpoint)
	if err != nil {
		host = endpoint
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Shutdown flushes pending spans and stops the provider
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	return tp.provider.Shutdown(ctx)
}
