package audit

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/apperr"
	"github.com/Hatice4217/lum-nex-next-sub000/pkg/pagination"
)

// Handler serves the admin audit log.
type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes mounts under the admin group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/audit-logs", h.List)
	g.GET("/audit-logs/export", h.ExportCSV)
}

func parseSearchParams(c echo.Context) (SearchParams, error) {
	p := SearchParams{
		UserID:     c.QueryParam("user_id"),
		EntityType: c.QueryParam("entity_type"),
		EntityID:   c.QueryParam("entity_id"),
		Action:     c.QueryParam("action"),
	}
	for name, dst := range map[string]**time.Time{"from": &p.From, "to": &p.To} {
		v := c.QueryParam(name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return p, apperr.Invalid("%s must be an RFC3339 timestamp", name)
		}
		*dst = &t
	}
	return p, nil
}

func (h *Handler) List(c echo.Context) error {
	p, err := parseSearchParams(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	p.Limit, p.Offset = pg.Limit, pg.Offset

	items, total, err := h.store.Search(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return pagination.JSON(c, items, total, pg)
}

// ExportCSV streams up to 1000 matching entries.
func (h *Handler) ExportCSV(c echo.Context) error {
	p, err := parseSearchParams(c)
	if err != nil {
		return err
	}
	p.Limit = 1000

	items, _, err := h.store.Search(c.Request().Context(), p)
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=\"audit_export_%s.csv\"", time.Now().UTC().Format("20060102_150405")))
	c.Response().WriteHeader(http.StatusOK)

	cw := csv.NewWriter(c.Response())
	if err := cw.Write([]string{"id", "created_at", "user_id", "action", "entity_type", "entity_id", "ip_address", "user_agent", "details"}); err != nil {
		return err
	}
	for _, e := range items {
		var details string
		if len(e.Details) > 0 {
			b, _ := json.Marshal(e.Details)
			details = string(b)
		}
		if err := cw.Write([]string{
			e.ID, e.CreatedAt.Format(time.RFC3339), e.UserID, e.Action,
			e.EntityType, e.EntityID, e.IPAddress, e.UserAgent, details,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
