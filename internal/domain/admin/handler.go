package admin

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
	dir := api.Group("/directory")
	dir.GET("/hospitals", h.DirectoryHospitals)
	dir.GET("/hospitals/:id", h.DirectoryHospital)
	dir.GET("/hospitals/:id/departments", h.DirectoryDepartments)

	adm := api.Group("/admin")
	adm.GET("/hospitals", h.ListHospitals)
	adm.POST("/hospitals", h.CreateHospital)
	adm.GET("/hospitals/:id", h.GetHospital)
	adm.PUT("/hospitals/:id", h.UpdateHospital)
	adm.DELETE("/hospitals/:id", h.DeleteHospital)

	adm.GET("/departments", h.ListDepartments)
	adm.POST("/departments", h.CreateDepartment)
	adm.GET("/departments/:id", h.GetDepartment)
	adm.PUT("/departments/:id", h.UpdateDepartment)
	adm.DELETE("/departments/:id", h.DeleteDepartment)

	adm.GET("/licenses", h.ListLicenses)
	adm.POST("/licenses", h.CreateLicense)
	adm.PUT("/licenses/:id/status", h.SetLicenseStatus)

	adm.GET("/stats", h.Stats)
}

func parseID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperr.Invalid("invalid %s", name)
	}
	return id, nil
}

func optionalID(c echo.Context, name string) (*uuid.UUID, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, apperr.Invalid("invalid %s", name)
	}
	return &id, nil
}

// -- Directory --

func (h *Handler) DirectoryHospitals(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := HospitalFilter{City: c.QueryParam("city"), Query: c.QueryParam("q"), ActiveOnly: true}
	items, total, err := h.svc.ListHospitals(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return pagination.JSON(c, items, total, pg)
}

func (h *Handler) DirectoryHospital(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	hosp, err := h.svc.PublicHospital(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, hosp)
}

func (h *Handler) DirectoryDepartments(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.PublicDepartments(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return pagination.JSON(c, items, total, pg)
}

// -- Hospitals --

func (h *Handler) ListHospitals(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := HospitalFilter{City: c.QueryParam("city"), Query: c.QueryParam("q"), ActiveOnly: c.QueryParam("active") == "true"}
	items, total, err := h.svc.ListHospitals(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return pagination.JSON(c, items, total, pg)
}

func (h *Handler) CreateHospital(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var req HospitalRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	hosp, err := h.svc.CreateHospital(c.Request().Context(), p.UID(), &req)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusCreated, hosp)
}

func (h *Handler) GetHospital(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	hosp, err := h.svc.GetHospital(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, hosp)
}

func (h *Handler) UpdateHospital(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req HospitalRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	hosp, err := h.svc.UpdateHospital(c.Request().Context(), p.UID(), id, &req)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, hosp)
}

func (h *Handler) DeleteHospital(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeactivateHospital(c.Request().Context(), p.UID(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Departments --

func (h *Handler) ListDepartments(c echo.Context) error {
	hospitalID, err := optionalID(c, "hospital_id")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDepartments(c.Request().Context(), hospitalID, c.QueryParam("active") == "true", pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return pagination.JSON(c, items, total, pg)
}

func (h *Handler) CreateDepartment(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var req CreateDepartmentRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	d, err := h.svc.CreateDepartment(c.Request().Context(), p.UID(), &req)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusCreated, d)
}

func (h *Handler) GetDepartment(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.svc.GetDepartment(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, d)
}

func (h *Handler) UpdateDepartment(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req UpdateDepartmentRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	d, err := h.svc.UpdateDepartment(c.Request().Context(), p.UID(), id, &req)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, d)
}

func (h *Handler) DeleteDepartment(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeactivateDepartment(c.Request().Context(), p.UID(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Licenses --

func (h *Handler) ListLicenses(c echo.Context) error {
	hospitalID, err := optionalID(c, "hospital_id")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListLicenses(c.Request().Context(), hospitalID, c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return pagination.JSON(c, items, total, pg)
}

func (h *Handler) CreateLicense(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var req CreateLicenseRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	l, err := h.svc.CreateLicense(c.Request().Context(), p.UID(), &req)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusCreated, l)
}

func (h *Handler) SetLicenseStatus(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req LicenseStatusRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	l, err := h.svc.SetLicenseStatus(c.Request().Context(), p.UID(), id, req.Status)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, l)
}

func (h *Handler) Stats(c echo.Context) error {
	st, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, st)
}
