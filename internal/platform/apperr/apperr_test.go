package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestError_IsMatchesByCode(t *testing.T) {
	slotTaken := Conflict("SLOT_NOT_AVAILABLE", "slot not available")
	wrapped := fmt.Errorf("create appointment: %w", slotTaken.Wrap(errors.New("overlap")))

	if !errors.Is(wrapped, slotTaken) {
		t.Error("expected wrapped copy to match the sentinel")
	}
	if errors.Is(wrapped, ErrConflict) {
		t.Error("different codes must not match")
	}
}

func TestError_CopiesDoNotMutateSentinel(t *testing.T) {
	base := NotFound("DOCTOR_NOT_FOUND", "doctor not found")
	_ = base.WithMessage("doctor %s not found", "x")
	_ = base.WithDetails(map[string]string{"id": "x"})
	_ = base.Wrap(errors.New("no rows"))

	if base.Message != "doctor not found" || base.Details != nil || base.Unwrap() != nil {
		t.Errorf("sentinel was mutated: %+v", base)
	}
}

func TestFrom(t *testing.T) {
	if From(nil) != nil {
		t.Error("expected nil for nil error")
	}
	ae := From(errors.New("disk on fire"))
	if ae.Status != http.StatusInternalServerError || ae.Code != CodeInternal {
		t.Errorf("expected internal error, got %d %s", ae.Status, ae.Code)
	}
	v := Invalid("date must not be in the past")
	if From(fmt.Errorf("wrap: %w", v)) != v {
		t.Error("expected classified error to be returned as is")
	}
}

func serveError(t *testing.T, err error) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	Handler(zerolog.Nop())(err, c)

	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return rec, env
}

func TestHandler_ClassifiedError(t *testing.T) {
	rec, env := serveError(t, Conflict("SLOT_NOT_AVAILABLE", "slot not available"))

	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
	if env.Success {
		t.Error("expected success=false")
	}
	if env.Error == nil || env.Error.Code != "SLOT_NOT_AVAILABLE" || env.Error.Message != "slot not available" {
		t.Errorf("unexpected error body: %+v", env.Error)
	}
}

func TestHandler_EchoHTTPError(t *testing.T) {
	rec, env := serveError(t, echo.NewHTTPError(http.StatusForbidden, "required role: ADMIN"))

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
	if env.Error.Code != CodeForbidden || env.Error.Message != "required role: ADMIN" {
		t.Errorf("unexpected error body: %+v", env.Error)
	}
}

func TestHandler_Timeout(t *testing.T) {
	rec, env := serveError(t, Timeout(CodeTimeout, "too slow").Wrap(fmt.Errorf("query canceled")))

	if rec.Code != http.StatusGatewayTimeout || env.Error.Code != CodeTimeout {
		t.Errorf("expected 504 %s, got %d %s", CodeTimeout, rec.Code, env.Error.Code)
	}
	if codeForStatus(http.StatusGatewayTimeout) != CodeTimeout {
		t.Error("bare 504 should map to REQUEST_TIMEOUT")
	}
}

func TestHandler_UnclassifiedErrorHidesCause(t *testing.T) {
	rec, env := serveError(t, errors.New("pq: password authentication failed"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if env.Error.Code != CodeInternal {
		t.Errorf("expected INTERNAL_ERROR, got %s", env.Error.Code)
	}
	if env.Error.Message != "internal server error" {
		t.Errorf("cause leaked to the client: %q", env.Error.Message)
	}
}

func TestOK(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	if err := OK(c, http.StatusCreated, map[string]string{"id": "1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["success"] != true {
		t.Errorf("expected success=true, got %v", body["success"])
	}
	if _, ok := body["error"]; ok {
		t.Error("success envelope must not carry an error")
	}
}
