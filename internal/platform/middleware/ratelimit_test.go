package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

// limiterProbe fires one request through the middleware as tenant.
type limiterProbe struct {
	h echo.HandlerFunc
}

func newLimiterProbe(cfg RateLimitConfig) limiterProbe {
	return limiterProbe{h: RateLimit(cfg)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})}
}

func (p limiterProbe) hit(tenant string) (*httptest.ResponseRecorder, error) {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/doctors", nil), rec)
	if tenant != "" {
		c.Set("jwt_tenant_id", tenant)
	}
	return rec, p.h(c)
}

func TestRateLimit_BurstThenLimited(t *testing.T) {
	p := newLimiterProbe(RateLimitConfig{RequestsPerSecond: 2, BurstSize: 3})

	for i := 0; i < 3; i++ {
		rec, err := p.hit("north")
		if err != nil {
			t.Fatalf("request %d within burst rejected: %v", i+1, err)
		}
		if rec.Header().Get("X-RateLimit-Limit") != "2" {
			t.Errorf("X-RateLimit-Limit = %q", rec.Header().Get("X-RateLimit-Limit"))
		}
	}

	rec, err := p.hit("north")
	if statusOf(err) != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	retry, convErr := strconv.Atoi(rec.Header().Get("Retry-After"))
	if convErr != nil || retry < 1 {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("X-RateLimit-Remaining = %q", rec.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimit_BucketsPerTenant(t *testing.T) {
	p := newLimiterProbe(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})

	steps := []struct {
		tenant  string
		limited bool
	}{
		{"north", false},
		{"north", true},
		{"south", false},
		{"", false},
		{"", true},
	}
	for i, s := range steps {
		_, err := p.hit(s.tenant)
		if limited := statusOf(err) == http.StatusTooManyRequests; limited != s.limited {
			t.Errorf("step %d tenant %q: limited=%v, want %v", i, s.tenant, limited, s.limited)
		}
	}
}

func TestRateLimit_ZeroRateNeverRefills(t *testing.T) {
	p := newLimiterProbe(RateLimitConfig{RequestsPerSecond: 0, BurstSize: 1})
	_, _ = p.hit("north")

	rec, err := p.hit("north")
	if err == nil {
		t.Fatal("expected the second request to be limited")
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q, want 1", rec.Header().Get("Retry-After"))
	}
}

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	if cfg.RequestsPerSecond <= 0 || cfg.BurstSize < int(cfg.RequestsPerSecond) || cfg.IdleTTL <= 0 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestRateLimiterStore(t *testing.T) {
	store := newRateLimiterStore(RateLimitConfig{RequestsPerSecond: 10, BurstSize: 5, IdleTTL: time.Minute})
	now := time.Now()
	store.now = func() time.Time { return now }

	a := store.get("north:10.0.0.1")
	if store.get("north:10.0.0.1") != a {
		t.Error("same key should reuse its limiter")
	}
	if store.get("south:10.0.0.1") == a {
		t.Error("different keys should not share a limiter")
	}

	now = now.Add(2 * time.Minute)
	store.get("south:10.0.0.1")
	store.sweep()
	if store.size() != 1 {
		t.Errorf("expected only the active client to survive, got %d", store.size())
	}
}
