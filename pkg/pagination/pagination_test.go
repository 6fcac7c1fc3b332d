package pagination

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func contextFor(target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestFromContext_Defaults(t *testing.T) {
	p := FromContext(contextFor("/"))

	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected default offset 0, got %d", p.Offset)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := FromContext(contextFor("/?limit=50&offset=10"))

	if p.Limit != 50 || p.Offset != 10 {
		t.Errorf("expected 50/10, got %d/%d", p.Limit, p.Offset)
	}
}

func TestFromContext_PageParams(t *testing.T) {
	p := FromContext(contextFor("/?page=3&per_page=25"))

	if p.Limit != 25 {
		t.Errorf("expected limit 25, got %d", p.Limit)
	}
	if p.Offset != 50 {
		t.Errorf("expected offset 50, got %d", p.Offset)
	}
}

func TestFromContext_MaxLimit(t *testing.T) {
	p := FromContext(contextFor("/?limit=1000"))

	if p.Limit != MaxLimit {
		t.Errorf("expected limit capped at %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_NegativeOffset(t *testing.T) {
	p := FromContext(contextFor("/?offset=-5"))

	if p.Offset != 0 {
		t.Errorf("expected offset 0 for negative input, got %d", p.Offset)
	}
}

func TestNewResponse(t *testing.T) {
	resp := NewResponse([]string{"a", "b"}, 45, Params{Limit: 20, Offset: 20})

	if !resp.Success {
		t.Error("expected success=true")
	}
	if resp.Pagination.Total != 45 || resp.Pagination.Page != 2 {
		t.Errorf("unexpected meta: %+v", resp.Pagination)
	}
	if !resp.Pagination.HasMore {
		t.Error("expected has_more on page 2 of 3")
	}

	last := NewResponse(nil, 45, Params{Limit: 20, Offset: 40})
	if last.Pagination.HasMore {
		t.Error("expected no more results on the last page")
	}
}

func TestJSON_EmptySliceNotNull(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	var items []int
	if err := JSON(c, items, 0, Params{Limit: 20}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var body struct {
		Data []int `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data == nil {
		t.Error("expected data to be an empty array, not null")
	}
}

func TestParams_HasPrevious(t *testing.T) {
	if (Params{Limit: 10}).HasPrevious() {
		t.Error("first page has no previous page")
	}
	if !(Params{Limit: 10, Offset: 10}).HasPrevious() {
		t.Error("second page has a previous page")
	}
}
