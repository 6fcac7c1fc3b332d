package scheduling

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
	a := api.Group("/appointments")
	a.POST("", h.Book)
	a.GET("", h.List)
	a.GET("/check", h.Check)
	a.GET("/:id", h.Get)
	a.POST("/:id/confirm", h.Confirm)
	a.POST("/:id/cancel", h.Cancel)
	a.POST("/:id/complete", h.Complete)

	api.GET("/directory/doctors/:id/availability", h.Availability)

	d := api.Group("/doctor")
	d.GET("/schedule", h.GetSchedule)
	d.PUT("/schedule", h.ReplaceSchedule)
	d.GET("/blocked-slots", h.ListBlockedSlots)
	d.POST("/blocked-slots", h.CreateBlockedSlot)
	d.DELETE("/blocked-slots/:id", h.DeleteBlockedSlot)
	d.GET("/dashboard", h.Dashboard)
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

func dateParam(c echo.Context, name string) (string, error) {
	v := c.QueryParam(name)
	if v != "" && !validate.IsDate(v) {
		return "", apperr.Invalid("%s must be YYYY-MM-DD", name)
	}
	return v, nil
}

// -- Appointments --

func (h *Handler) Book(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	if !p.Is(auth.RolePatient) {
		return apperr.ErrForbidden.WithMessage("only patients can book appointments")
	}
	var req BookRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	a, err := h.svc.Book(c.Request().Context(), p.UID(), &req)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusCreated, a)
}

func (h *Handler) List(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	f := AppointmentFilter{Status: Status(c.QueryParam("status"))}
	if f.DateFrom, err = dateParam(c, "date_from"); err != nil {
		return err
	}
	if f.DateTo, err = dateParam(c, "date_to"); err != nil {
		return err
	}
	if p.IsAdmin() {
		if f.PatientID, err = optionalID(c, "patient_id"); err != nil {
			return err
		}
		if f.DoctorID, err = optionalID(c, "doctor_id"); err != nil {
			return err
		}
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), p, f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return pagination.JSON(c, items, total, pg)
}

func (h *Handler) Check(c echo.Context) error {
	doctorID, err := uuid.Parse(c.QueryParam("doctor_id"))
	if err != nil {
		return apperr.Invalid("invalid doctor_id")
	}
	date := c.QueryParam("date")
	conflict, err := h.svc.CheckConflict(c.Request().Context(), doctorID, date,
		c.QueryParam("start_time"), c.QueryParam("end_time"))
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, map[string]any{
		"doctor_id":  doctorID,
		"date":       date,
		"start_time": c.QueryParam("start_time"),
		"end_time":   c.QueryParam("end_time"),
		"conflict":   conflict,
		"available":  !conflict,
	})
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
	a, err := h.svc.Get(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, a)
}

func (h *Handler) Confirm(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.svc.Confirm(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, a)
}

func (h *Handler) Cancel(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req CancelRequest
	if c.Request().ContentLength > 0 {
		if err := validate.Bind(c, &req); err != nil {
			return err
		}
	}
	a, err := h.svc.Cancel(c.Request().Context(), p, id, req.Reason)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, a)
}

func (h *Handler) Complete(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.svc.Complete(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, a)
}

// -- Directory --

func (h *Handler) Availability(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	date := c.QueryParam("date")
	if date == "" {
		return apperr.Invalid("date is required")
	}
	av, err := h.svc.Availability(c.Request().Context(), id, date)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, av)
}

// -- Doctor workspace --

func (h *Handler) GetSchedule(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	hours, err := h.svc.GetWorkingHours(c.Request().Context(), p.UID())
	if err != nil {
		return err
	}
	if hours == nil {
		hours = []*WorkingHours{}
	}
	return apperr.OK(c, http.StatusOK, hours)
}

func (h *Handler) ReplaceSchedule(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var req WorkingHoursRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	hours, err := h.svc.ReplaceWorkingHours(c.Request().Context(), p.UID(), &req)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, hours)
}

func (h *Handler) ListBlockedSlots(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	from, err := dateParam(c, "date_from")
	if err != nil {
		return err
	}
	to, err := dateParam(c, "date_to")
	if err != nil {
		return err
	}
	items, err := h.svc.ListBlockedSlots(c.Request().Context(), p.UID(), from, to)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*BlockedSlot{}
	}
	return apperr.OK(c, http.StatusOK, items)
}

func (h *Handler) CreateBlockedSlot(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var req BlockedSlotRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	b, err := h.svc.CreateBlockedSlot(c.Request().Context(), p.UID(), &req)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusCreated, b)
}

func (h *Handler) DeleteBlockedSlot(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteBlockedSlot(c.Request().Context(), p.UID(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Dashboard(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	d, err := h.svc.Dashboard(c.Request().Context(), p.UID())
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, d)
}
