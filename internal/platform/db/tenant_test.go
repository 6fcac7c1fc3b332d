package db

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestExtractTenantID_FromHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-ID", "clinic_abc")
	c := e.NewContext(req, httptest.NewRecorder())

	if tid := extractTenantID(c, "default"); tid != "clinic_abc" {
		t.Errorf("expected clinic_abc, got %s", tid)
	}
}

func TestExtractTenantID_FromJWT(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-ID", "header")
	c := e.NewContext(req, httptest.NewRecorder())
	c.Set("jwt_tenant_id", "jwt_tenant")

	// JWT takes priority over the header
	if tid := extractTenantID(c, "default"); tid != "jwt_tenant" {
		t.Errorf("expected jwt_tenant, got %s", tid)
	}
}

func TestExtractTenantID_Default(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?tenant_id=ignored", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	if tid := extractTenantID(c, "default"); tid != "default" {
		t.Errorf("expected default, got %s", tid)
	}
}

func TestValidTenantID(t *testing.T) {
	for _, v := range []string{"abc", "clinic_1", "tenant_abc_123", "A1B2"} {
		if !ValidTenantID(v) {
			t.Errorf("expected %s to be valid", v)
		}
	}
	for _, v := range []string{"a-b", "a.b", "a b", "'; DROP TABLE", "a/b", ""} {
		if ValidTenantID(v) {
			t.Errorf("expected %q to be invalid", v)
		}
	}
}

func TestSchemaName(t *testing.T) {
	if got := SchemaName("north"); got != "tenant_north" {
		t.Errorf("expected tenant_north, got %s", got)
	}
}

func TestTenantMiddleware_InvalidTenant(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-ID", "bad-tenant!")
	c := e.NewContext(req, httptest.NewRecorder())

	called := false
	h := TenantMiddleware(nil, "default", nil)(func(c echo.Context) error {
		called = true
		return nil
	})
	if err := h(c); err != ErrInvalidTenant {
		t.Errorf("expected ErrInvalidTenant, got %v", err)
	}
	if called {
		t.Error("handler must not run for an invalid tenant")
	}
}

func TestTenantMiddleware_Skipper(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	called := false
	skip := func(echo.Context) bool { return true }
	h := TenantMiddleware(nil, "default", skip)(func(c echo.Context) error {
		called = true
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected skipped request to reach the handler")
	}
}

func TestConnFromContext_Nil(t *testing.T) {
	if conn := ConnFromContext(context.Background()); conn != nil {
		t.Error("expected nil conn from empty context")
	}
	ctx := context.WithValue(context.Background(), DBConnKey, "not-a-conn")
	if conn := ConnFromContext(ctx); conn != nil {
		t.Error("expected nil when context value is wrong type")
	}
}

func TestTenantFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), TenantIDKey, "test_tenant")
	if tid := TenantFromContext(ctx); tid != "test_tenant" {
		t.Errorf("expected test_tenant, got %s", tid)
	}
	if empty := TenantFromContext(context.Background()); empty != "" {
		t.Errorf("expected empty string, got %s", empty)
	}
	wrong := context.WithValue(context.Background(), TenantIDKey, 12345)
	if tid := TenantFromContext(wrong); tid != "" {
		t.Errorf("expected empty string for wrong type, got %q", tid)
	}
}

func TestCreateTenantSchema_InvalidID(t *testing.T) {
	if err := CreateTenantSchema(context.Background(), nil, "invalid-id!", nil); err == nil {
		t.Error("expected error for invalid tenant ID")
	}
}

func TestWithTenant_InvalidID(t *testing.T) {
	err := WithTenant(context.Background(), nil, "x y", func(context.Context) error { return nil })
	if err == nil {
		t.Error("expected error for invalid tenant ID")
	}
}

func TestTxFromContext(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Error("expected nil tx from empty context")
	}
	ctx := context.WithValue(context.Background(), DBTxKey, "not-a-tx")
	if tx := TxFromContext(ctx); tx != nil {
		t.Error("expected nil when context value is wrong type")
	}
}

func TestWithTx_NoConnection(t *testing.T) {
	_, _, err := WithTx(context.Background())
	if err != ErrNoConnInContext {
		t.Errorf("expected ErrNoConnInContext, got %v", err)
	}
}

func TestTxRunner_NoConnectionNoPool(t *testing.T) {
	r := NewTxRunner(nil)
	called := false
	err := r.InTx(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	if err == nil {
		t.Error("expected error without a connection or pool")
	}
	if called {
		t.Error("fn must not run without a transaction")
	}
}
