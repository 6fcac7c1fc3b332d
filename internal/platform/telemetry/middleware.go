package telemetry

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/Hatice4217/lum-nex-next-sub000/internal/platform/telemetry"

// TraceIDHeader echoes the trace id back so clients can correlate reports.
const TraceIDHeader = "X-Trace-Id"

// Middleware opens a server span per request and records request count and
// latency. It reads the globals at construction time, so call it after Init.
func Middleware() echo.MiddlewareFunc {
	tracer := otel.Tracer(instrumentationName)
	meter := otel.Meter(instrumentationName)

	requestCounter, _ := meter.Int64Counter(
		"http_server_request_count",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	requestDuration, _ := meter.Float64Histogram(
		"http_server_request_duration_ms",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := otel.GetTextMapPropagator().Extract(req.Context(), propagation.HeaderCarrier(req.Header))

			// Route pattern, not the concrete path, keeps cardinality bounded.
			route := c.Path()
			if route == "" {
				route = req.URL.Path
			}

			ctx, span := tracer.Start(ctx, req.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.method", req.Method),
					attribute.String("http.route", route),
					attribute.String("http.user_agent", req.UserAgent()),
					attribute.String("http.client_ip", c.RealIP()),
				),
			)
			defer span.End()

			c.SetRequest(req.WithContext(ctx))
			if span.SpanContext().HasTraceID() {
				c.Response().Header().Set(TraceIDHeader, span.SpanContext().TraceID().String())
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				// Render now so the recorded status is the real one. The error handler
				// skips committed responses when it sees err again.
				c.Error(err)
			}
			elapsed := float64(time.Since(start).Microseconds()) / 1000

			status := c.Response().Status
			span.SetAttributes(attribute.Int("http.status_code", status))
			if tid, ok := c.Get("tenant_id").(string); ok && tid != "" {
				span.SetAttributes(attribute.String("tenant.id", tid))
			}

			attrs := metric.WithAttributes(
				attribute.String("http.method", req.Method),
				attribute.String("http.route", route),
				attribute.String("http.status_code", strconv.Itoa(status)),
			)
			requestCounter.Add(ctx, 1, attrs)
			requestDuration.Record(ctx, elapsed, attrs)

			if status >= 500 {
				span.SetStatus(codes.Error, "HTTP "+strconv.Itoa(status))
				if err != nil {
					span.RecordError(err)
				}
			} else {
				span.SetStatus(codes.Ok, "")
			}

			return err
		}
	}
}
