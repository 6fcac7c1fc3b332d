package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/apperr"
)

func newTimeoutContext() echo.Context {
	return echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil), httptest.NewRecorder())
}

func TestRequestTimeout_DeadlineExceeded(t *testing.T) {
	err := RequestTimeout(20 * time.Millisecond)(func(c echo.Context) error {
		<-c.Request().Context().Done()
		return c.Request().Context().Err()
	})(newTimeoutContext())

	ae := apperr.From(err)
	if ae.Status != http.StatusGatewayTimeout || ae.Code != apperr.CodeTimeout {
		t.Fatalf("expected 504 %s, got %d %s", apperr.CodeTimeout, ae.Status, ae.Code)
	}
	if !errors.Is(err, ErrRequestTimeout) {
		t.Error("expected errors.Is to match ErrRequestTimeout")
	}
}

func TestRequestTimeout_PassThrough(t *testing.T) {
	notFound := apperr.NotFound("APPOINTMENT_NOT_FOUND", "appointment not found")

	tests := []struct {
		name    string
		handler echo.HandlerFunc
		want    error
	}{
		{
			name: "success",
			handler: func(c echo.Context) error {
				if _, ok := c.Request().Context().Deadline(); !ok {
					t.Error("request context has no deadline")
				}
				return nil
			},
		},
		{
			name:    "handler error before deadline",
			handler: func(echo.Context) error { return notFound },
			want:    notFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequestTimeout(5 * time.Second)(tt.handler)(newTimeoutContext())
			if err != tt.want {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}
