package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// untraced paths are hit by probes and scrapers
var untraced = map[string]bool{
	"/health":  true,
	"/ready":   true,
	"/metrics": true,
}

// routed runs next and reports the chi route and final status afterwards
func routed(w http.ResponseWriter, r *http.Request, next http.Handler, done func(route string, status int)) {
	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
	next.ServeHTTP(ww, r)

	route := ""
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		route = rctx.RoutePattern()
	}
	status := ww.Status()
	if status == 0 {
		// hijacked websocket or empty body
		status = http.StatusOK
	}
	done(route, status)
}

// TracingMiddleware starts a server span per request. Incoming W3C trace
// context is continued and the span is named after the route once chi has
// matched it.
func TracingMiddleware(serviceName string) func(http.Handler) http.Handler {
	tracer := otel.Tracer(serviceName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if untraced[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, r.Method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
					semconv.UserAgentOriginal(r.UserAgent()),
					attribute.String("http.request_id", middleware.GetReqID(r.Context())),
				),
			)
			defer span.End()

			routed(w, r.WithContext(ctx), next, func(route string, status int) {
				if route != "" {
					span.SetName(r.Method + " " + route)
					span.SetAttributes(semconv.HTTPRoute(route))
				}
				if id := chi.URLParamFromCtx(ctx, "id"); id != "" {
					span.SetAttributes(attribute.String("optio.path_id", id))
				}
				span.SetAttributes(semconv.HTTPResponseStatusCode(status))
				if status >= http.StatusInternalServerError {
					span.SetStatus(codes.Error, http.StatusText(status))
				}
			})
		})
	}
}

// MetricsMiddleware records request counts and latencies by route
func (c *Collector) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		routed(w, r, next, func(route string, status int) {
			if route == "" {
				// keep label cardinality bounded for 404 scans
				route = "unmatched"
			}
			c.ObserveHTTP(r.Method, route, status, time.Since(start))
		})
	})
}
