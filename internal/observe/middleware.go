package observe

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/trace"
)

// probePaths are logged at debug level so that orchestrator probes and
// scrapes do not drown out query logs.
var probePaths = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

// unmatchedRoute labels requests that no mux pattern served.
const unmatchedRoute = "unmatched"

// statusWriter remembers the status written by the wrapped handler. A handler
// that never calls WriteHeader answered 200.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware instruments an HTTP handler. Each request continues the W3C
// trace in its headers (or starts one) inside a server span, and the trace ID
// is returned as X-Correlation-ID. When the handler returns, the latency is
// recorded on [Metrics.HTTPRequestDuration] by method, route and status class,
// 5xx responses mark the span failed, and one log record is written; probe
// paths log at debug level.
func Middleware(m *Metrics) func(http.Handler) http.Handler {
	prop := propagation.TraceContext{}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := prop.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := StartSpan(ctx, "HTTP "+r.Method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
				),
			)
			defer span.End()

			if cid := CorrelationID(ctx); cid != "" {
				w.Header().Set("X-Correlation-ID", cid)
			}
			prop.Inject(ctx, propagation.HeaderCarrier(w.Header()))

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			req := r.WithContext(ctx)
			next.ServeHTTP(sw, req)

			path := route(req)
			if path == "" {
				path = unmatchedRoute
			} else {
				span.SetAttributes(semconv.HTTPRoute(path))
			}
			span.SetName("HTTP " + r.Method + " " + path)

			elapsed := time.Since(start)
			m.HTTPRequestDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("path", path),
				attribute.String("status", statusClass(sw.status)),
			))
			span.SetAttributes(semconv.HTTPResponseStatusCode(sw.status))
			if sw.status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(sw.status))
			}
			logRequest(ctx, r, sw.status, elapsed)
		})
	}
}

func logRequest(ctx context.Context, r *http.Request, status int, elapsed time.Duration) {
	level := slog.LevelInfo
	if probePaths[r.URL.Path] {
		level = slog.LevelDebug
	}
	slog.LogAttrs(ctx, level, "request completed",
		slog.String("trace_id", CorrelationID(ctx)),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("query", r.URL.RawQuery),
		slog.Int("status", status),
		slog.Duration("duration", elapsed),
	)
}

// route returns the path of the ServeMux pattern that served r, or "" when
// no pattern matched.
func route(r *http.Request) string {
	if _, path, ok := strings.Cut(r.Pattern, " "); ok {
		return path
	}
	return r.Pattern
}

// statusClass maps 404 to "4xx".
func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}
