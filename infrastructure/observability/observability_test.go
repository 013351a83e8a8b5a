package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"optio-backend/application/ports/mocks"
	"optio-backend/domain/core/entities"
	"optio-backend/domain/core/valueobjects"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	otelcodes "go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestCollector_CacheAndChainMetrics(t *testing.T) {
	c := NewCollector("test")

	c.CacheHit()
	c.CacheHit()
	c.CacheMiss()
	c.CacheInvalidation()
	c.ObserveCall("getFullNexusBatch", 20*time.Millisecond, nil)
	c.ObserveCall("getFullNexusBatch", time.Second, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.CacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheMisses))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheInvalidations))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ChainCalls.WithLabelValues("getFullNexusBatch", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ChainCalls.WithLabelValues("getFullNexusBatch", "error")))
}

func TestCollector_BreakerState(t *testing.T) {
	c := NewCollector("test")

	c.BreakerStateChanged("narrative-rpc", gobreaker.StateOpen)
	assert.Equal(t, 2.0, testutil.ToFloat64(c.BreakerState.WithLabelValues("narrative-rpc")))

	c.BreakerStateChanged("narrative-rpc", gobreaker.StateClosed)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.BreakerState.WithLabelValues("narrative-rpc")))
}

func TestCollector_TrackSessionsAndHandler(t *testing.T) {
	c := NewCollector("test")
	c.TrackSessions(func() int { return 3 })
	c.ConnectionOpened()
	c.MessageSent("VIEW")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "test_active_sessions 3")
	assert.Contains(t, body, "test_websocket_connections 1")
	assert.Contains(t, body, `test_notifications_sent_total{type="VIEW"} 1`)
}

func TestMetricsMiddleware_LabelsByRoute(t *testing.T) {
	c := NewCollector("test")
	r := chi.NewRouter()
	r.Use(c.MetricsMiddleware)
	r.Get("/api/v1/nexus/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/nexus/7", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/nexus/8", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/api/v1/nexus/{id}", "404")))
}

func TestTracingMiddleware_RecordsServerSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := newTracerProvider(TracingConfig{ServiceName: "test", SampleRate: 1}, sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	r := chi.NewRouter()
	r.Use(TracingMiddleware("test"))
	r.Get("/api/v1/nexus/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/nexus/7", nil))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/v1/nexus/{id}", spans[0].Name)
	assert.Equal(t, otelcodes.Error, spans[0].Status.Code)
}

func TestTracedReader_DelegatesAndRecordsErrors(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := newTracerProvider(TracingConfig{ServiceName: "test", SampleRate: 1}, sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	inner := new(mocks.MockNarrativeReader)
	inner.On("GetFullNexusBatch", mock.Anything, []valueobjects.NexusID{1}).
		Return([]entities.Nexus{{ID: 1, Content: "x"}}, nil)
	inner.On("NexusCount", mock.Anything).Return(uint64(0), errors.New("rpc down"))
	reader := NewTracedReader(inner)

	nexuses, err := reader.GetFullNexusBatch(context.Background(), []valueobjects.NexusID{1})
	require.NoError(t, err)
	assert.Len(t, nexuses, 1)

	_, err = reader.NexusCount(context.Background())
	assert.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "NarrativeReader.GetFullNexusBatch", spans[0].Name)
	assert.Equal(t, otelcodes.Ok, spans[0].Status.Code)
	assert.True(t, strings.HasSuffix(spans[1].Name, "NexusCount"))
	assert.Equal(t, otelcodes.Error, spans[1].Status.Code)
	inner.AssertExpectations(t)
}

func TestSampler(t *testing.T) {
	tests := []struct {
		name string
		cfg  TracingConfig
		want string
	}{
		{"development keeps everything", TracingConfig{Environment: "development"}, "AlwaysOnSampler"},
		{"production defaults to a tenth", TracingConfig{Environment: "production"}, "TraceIDRatioBased{0.1}"},
		{"explicit rate wins", TracingConfig{Environment: "production", SampleRate: 0.25}, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, sampler(tt.cfg).Description(), tt.want)
		})
	}
}

func TestIsLoopback(t *testing.T) {
	assert.True(t, isLoopback("localhost:4317"))
	assert.True(t, isLoopback("127.0.0.1:4317"))
	assert.True(t, isLoopback("[::1]:4317"))
	assert.False(t, isLoopback("otel-collector:4317"))
	assert.False(t, isLoopback("10.0.0.5:4317"))
}
