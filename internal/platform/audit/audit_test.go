package audit

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/apperr"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/middleware"
)

func seed(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	now := time.Now().UTC()
	entries := []*Entry{
		{UserID: "u1", Action: "appointment.create", EntityType: "appointment", EntityID: "a1", CreatedAt: now.Add(-3 * time.Hour)},
		{UserID: "u2", Action: "appointment.confirm", EntityType: "appointment", EntityID: "a1", CreatedAt: now.Add(-2 * time.Hour)},
		{UserID: "u1", Action: "payment.create", EntityType: "payment", EntityID: "p1", CreatedAt: now.Add(-1 * time.Hour)},
	}
	for _, e := range entries {
		if err := s.Record(context.Background(), e); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func TestMemoryStore_SearchFilters(t *testing.T) {
	s := seed(t)
	ctx := context.Background()

	got, total, _ := s.Search(ctx, SearchParams{UserID: "u1"})
	if total != 2 || len(got) != 2 {
		t.Fatalf("expected 2 entries for u1, got %d", total)
	}
	if got[0].Action != "payment.create" {
		t.Errorf("expected newest first, got %s", got[0].Action)
	}

	_, total, _ = s.Search(ctx, SearchParams{EntityType: "appointment", Action: "appointment.confirm"})
	if total != 1 {
		t.Errorf("expected 1 confirm entry, got %d", total)
	}

	from := time.Now().UTC().Add(-90 * time.Minute)
	_, total, _ = s.Search(ctx, SearchParams{From: &from})
	if total != 1 {
		t.Errorf("expected 1 entry after from, got %d", total)
	}
}

func TestMemoryStore_Pagination(t *testing.T) {
	s := seed(t)
	got, total, _ := s.Search(context.Background(), SearchParams{Limit: 2, Offset: 2})
	if total != 3 {
		t.Errorf("expected total 3, got %d", total)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 entry on second page, got %d", len(got))
	}

	got, _, _ = s.Search(context.Background(), SearchParams{Offset: 10})
	if len(got) != 0 {
		t.Errorf("expected empty page past the end, got %d", len(got))
	}
}

func TestMemoryStore_AssignsID(t *testing.T) {
	s := NewMemoryStore()
	e := &Entry{Action: "x"}
	_ = s.Record(context.Background(), e)
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Errorf("expected id and timestamp, got %+v", e)
	}
}

func TestRequestRecorder(t *testing.T) {
	s := NewMemoryStore()
	r := RequestRecorder{Store: s}
	err := r.RecordAccess(context.Background(), middleware.AuditEntry{
		UserID:     "u1",
		Role:       "PATIENT",
		EntityType: "appointments",
		EntityID:   "a1",
		Action:     "create",
		Method:     http.MethodPost,
		Path:       "/api/v1/appointments",
		StatusCode: http.StatusCreated,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entries := s.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Action != "request.create" || e.EntityType != "appointments" {
		t.Errorf("unexpected entry: %+v", e)
	}
	if e.Details["status"] != http.StatusCreated || e.Details["role"] != "PATIENT" {
		t.Errorf("unexpected details: %+v", e.Details)
	}
}

func TestHandler_List(t *testing.T) {
	h := NewHandler(seed(t))
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/audit-logs?user_id=u1&limit=1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Success    bool     `json:"success"`
		Data       []*Entry `json:"data"`
		Pagination struct {
			Total   int  `json:"total"`
			HasMore bool `json:"has_more"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.Success || len(body.Data) != 1 || body.Pagination.Total != 2 || !body.Pagination.HasMore {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandler_List_BadTime(t *testing.T) {
	h := NewHandler(NewMemoryStore())
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/audit-logs?from=yesterday", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	err := h.List(c)
	if ae := apperr.From(err); ae == nil || ae.Status != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_ExportCSV(t *testing.T) {
	h := NewHandler(seed(t))
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/audit-logs/export?entity_type=appointment", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ExportCSV(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "text/csv" {
		t.Errorf("expected text/csv, got %s", ct)
	}
	records, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("expected header + 2 rows, got %d", len(records))
	}
}
