package telemetry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()

	if cfg.ServiceName != "clinic-server" {
		t.Errorf("expected default service name, got %q", cfg.ServiceName)
	}
	if cfg.SamplingRate != 1.0 {
		t.Errorf("expected sampling rate 1.0, got %f", cfg.SamplingRate)
	}
	if cfg.Environment != "development" {
		t.Errorf("expected development, got %q", cfg.Environment)
	}
}

func newInstrumentedServer(t *testing.T) (*echo.Echo, *Provider) {
	t.Helper()
	p, err := Init(context.Background(), Config{ServiceName: "clinic-test"})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	e := echo.New()
	e.Use(Middleware())
	e.GET("/api/v1/appointments/:id", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/boom", func(c echo.Context) error {
		return errors.New("boom")
	})
	e.GET("/metrics", p.MetricsHandler())
	return e, p
}

func TestMiddleware_SetsTraceHeader(t *testing.T) {
	e, _ := newInstrumentedServer(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/appointments/123", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(TraceIDHeader) == "" {
		t.Error("expected trace id header on sampled request")
	}
}

func TestMiddleware_RecordsErrorStatus(t *testing.T) {
	e, _ := newInstrumentedServer(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestMetricsHandler_ExposesRequestCounter(t *testing.T) {
	e, _ := newInstrumentedServer(t)

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/appointments/1", nil))
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/appointments/2", nil))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	out := string(body)
	if !strings.Contains(out, "http_server_request_count") {
		t.Fatalf("expected request counter in exposition:\n%s", out)
	}
	if !strings.Contains(out, `http_route="/api/v1/appointments/:id"`) {
		t.Error("expected the route pattern label, not the concrete path")
	}
}
