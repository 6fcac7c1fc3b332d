package pagination

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Limit  int
	Offset int
}

// FromContext reads limit/offset, or page/per_page, from the query string.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit, _ = strconv.Atoi(c.QueryParam("per_page"))
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset <= 0 {
		if page, _ := strconv.Atoi(c.QueryParam("page")); page > 1 {
			offset = (page - 1) * limit
		}
	}
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// Meta describes the page returned alongside the data.
type Meta struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Page    int  `json:"page"`
	HasMore bool `json:"has_more"`
}

// Response wraps a paginated API response in the standard envelope.
type Response struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data"`
	Pagination Meta        `json:"pagination"`
}

func NewResponse(data interface{}, total int, p Params) *Response {
	page := 1
	if p.Limit > 0 {
		page = p.Offset/p.Limit + 1
	}
	return &Response{
		Success: true,
		Data:    data,
		Pagination: Meta{
			Total:   total,
			Limit:   p.Limit,
			Offset:  p.Offset,
			Page:    page,
			HasMore: p.HasNext(total),
		},
	}
}

// JSON writes a 200 paginated response.
func JSON[T any](c echo.Context, items []T, total int, p Params) error {
	if items == nil {
		items = []T{}
	}
	return c.JSON(http.StatusOK, NewResponse(items, total, p))
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

// HasPrevious returns true if there are results before the current page.
func (p Params) HasPrevious() bool {
	return p.Offset > 0
}
