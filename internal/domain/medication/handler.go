package medication

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
	d := api.Group("/doctor/prescriptions")
	d.POST("", h.Create)
	d.GET("", h.ListForDoctor)
	d.GET("/:id", h.Get)

	p := api.Group("/patient/prescriptions")
	p.GET("", h.ListForPatient)
	p.GET("/:id", h.Get)
}

func parseID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperr.Invalid("invalid %s", name)
	}
	return id, nil
}

func (h *Handler) Create(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var req CreateRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	rx, err := h.svc.Create(c.Request().Context(), p, &req)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusCreated, rx)
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
	rx, err := h.svc.Get(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, rx)
}

func (h *Handler) ListForDoctor(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var patientID *uuid.UUID
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperr.Invalid("invalid patient_id")
		}
		patientID = &id
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListForDoctor(c.Request().Context(), p.UID(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return pagination.JSON(c, items, total, pg)
}

func (h *Handler) ListForPatient(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListForPatient(c.Request().Context(), p.UID(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return pagination.JSON(c, items, total, pg)
}
