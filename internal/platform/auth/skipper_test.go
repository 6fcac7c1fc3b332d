package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestInfraSkipper(t *testing.T) {
	e := echo.New()
	for path, want := range map[string]bool{
		"/health":                    true,
		"/health/db":                 true,
		"/metrics":                   true,
		"/api/v1/directory/doctors":  false,
		"/api/v1/auth/login":         false,
	} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, path, nil), httptest.NewRecorder())
		if got := InfraSkipper(c); got != want {
			t.Errorf("InfraSkipper(%q) = %v, want %v", path, got, want)
		}
		if IsInfraPath(path) != want {
			t.Errorf("IsInfraPath(%q) mismatch", path)
		}
	}
}
