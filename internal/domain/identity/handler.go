package identity

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

// RegisterRoutes mounts on the /api/v1 group. Access per prefix is decided
// by the route table.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	a := api.Group("/auth")
	a.POST("/register", h.Register)
	a.POST("/login", h.Login)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", h.Logout)
	a.GET("/me", h.Me)
	a.PUT("/me", h.UpdateMe)
	a.PUT("/password", h.ChangePassword)

	api.GET("/directory/doctors", h.SearchDoctors)
	api.GET("/directory/doctors/:id", h.GetDoctor)

	api.GET("/patient/profile", h.GetPatientProfile)
	api.PUT("/patient/profile", h.UpdatePatientProfile)

	api.GET("/doctor/profile", h.GetDoctorProfile)
	api.PUT("/doctor/profile", h.UpdateDoctorProfile)

	api.GET("/admin/users", h.ListUsers)
	api.PUT("/admin/users/:id/status", h.SetUserStatus)
	api.POST("/admin/doctors", h.CreateDoctor)
}

func parseID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperr.Invalid("invalid %s", name)
	}
	return id, nil
}

// -- Auth --

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	res, err := h.svc.Register(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusCreated, res)
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	res, err := h.svc.Login(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, res)
}

func (h *Handler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	res, err := h.svc.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, res)
}

func (h *Handler) Logout(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var req LogoutRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return apperr.Invalid("malformed request body")
		}
	}
	if err := h.svc.Logout(c.Request().Context(), p, req.RefreshToken); err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *Handler) Me(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	u, err := h.svc.Me(c.Request().Context(), p.UID())
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, u)
}

func (h *Handler) UpdateMe(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var req UpdateMeRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	u, err := h.svc.UpdateMe(c.Request().Context(), p.UID(), &req)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, u)
}

func (h *Handler) ChangePassword(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var req ChangePasswordRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	if err := h.svc.ChangePassword(c.Request().Context(), p.UID(), &req); err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, map[string]string{"message": "password updated"})
}

// -- Directory --

func (h *Handler) SearchDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := DoctorFilter{
		Specialty: c.QueryParam("specialty"),
		Query:     c.QueryParam("q"),
	}
	if v := c.QueryParam("hospital_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperr.Invalid("invalid hospital_id")
		}
		f.HospitalID = &id
	}
	if v := c.QueryParam("department_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperr.Invalid("invalid department_id")
		}
		f.DepartmentID = &id
	}
	items, total, err := h.svc.SearchDoctors(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return pagination.JSON(c, items, total, pg)
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.svc.PublicDoctor(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, d)
}

// -- Profiles --

func (h *Handler) GetPatientProfile(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	prof, err := h.svc.GetPatientProfile(c.Request().Context(), p.UID())
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, prof)
}

func (h *Handler) UpdatePatientProfile(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var req PatientProfileRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	prof, err := h.svc.UpdatePatientProfile(c.Request().Context(), p.UID(), &req)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, prof)
}

func (h *Handler) GetDoctorProfile(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	d, err := h.svc.DoctorByUserID(c.Request().Context(), p.UID())
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, d)
}

func (h *Handler) UpdateDoctorProfile(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var req DoctorProfileRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	d, err := h.svc.UpdateDoctorProfile(c.Request().Context(), p.UID(), &req)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, d)
}

// -- Admin --

func (h *Handler) ListUsers(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListUsers(c.Request().Context(), c.QueryParam("role"), c.QueryParam("q"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return pagination.JSON(c, items, total, pg)
}

func (h *Handler) SetUserStatus(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req UserStatusRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	u, err := h.svc.SetUserActive(c.Request().Context(), p.UID(), id, *req.IsActive)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, u)
}

func (h *Handler) CreateDoctor(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var req CreateDoctorRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	d, err := h.svc.CreateDoctor(c.Request().Context(), p.UID(), &req)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusCreated, d)
}
