package billing

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/apperr"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/auth"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/validate"
	"github.com/Hatice4217/lum-nex-next-sub000/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	p := api.Group("/payments")
	p.POST("", h.Pay)
	p.GET("", h.List)
	p.GET("/:id", h.Get)

	api.POST("/admin/payments/:id/refund", h.Refund, auth.RequireRole(auth.RoleAdmin))
}

func parseID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperr.Invalid("invalid %s", name)
	}
	return id, nil
}

func (h *Handler) Pay(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var req PayRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	payment, err := h.svc.Pay(c.Request().Context(), p, &req)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusCreated, payment)
}

func (h *Handler) List(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	f := PaymentFilter{Status: c.QueryParam("status"), Purpose: c.QueryParam("purpose")}
	if v := c.QueryParam("user_id"); v != "" && p.IsAdmin() {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperr.Invalid("invalid user_id")
		}
		f.UserID = &id
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), p, f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return pagination.JSON(c, items, total, pg)
}

func (h *Handler) Get(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	payment, err := h.svc.Get(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, payment)
}

func (h *Handler) Refund(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	payment, err := h.svc.Refund(c.Request().Context(), p.UID(), id)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, payment)
}
