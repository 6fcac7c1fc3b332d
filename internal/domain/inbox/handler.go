package inbox

import (
	"net/http"
	"strconv"

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
	m := api.Group("/messages")
	m.POST("", h.Send)
	m.GET("", h.List)
	m.GET("/unread-count", h.UnreadCount)
	m.GET("/:id", h.Get)

	n := api.Group("/notifications")
	n.GET("", h.ListNotifications)
	n.POST("/read-all", h.MarkAllNotificationsRead)
	n.POST("/:id/read", h.MarkNotificationRead)
}

func parseID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperr.Invalid("invalid %s", name)
	}
	return id, nil
}

func (h *Handler) Send(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var req SendRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	m, err := h.svc.Send(c.Request().Context(), p.UID(), &req)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusCreated, m)
}

func (h *Handler) List(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), p.UID(), c.QueryParam("box"), pg.Limit, pg.Offset)
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
	m, err := h.svc.Get(c.Request().Context(), p.UID(), id)
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, m)
}

func (h *Handler) UnreadCount(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	messages, err := h.svc.UnreadCount(ctx, p.UID())
	if err != nil {
		return err
	}
	notifications, err := h.svc.UnreadNotifications(ctx, p.UID())
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, map[string]int{"messages": messages, "notifications": notifications})
}

func (h *Handler) ListNotifications(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var unread bool
	if v := c.QueryParam("unread"); v != "" {
		if unread, err = strconv.ParseBool(v); err != nil {
			return apperr.Invalid("unread must be true or false")
		}
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.Notifications(c.Request().Context(), p.UID(), unread, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return pagination.JSON(c, items, total, pg)
}

func (h *Handler) MarkNotificationRead(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.MarkNotificationRead(c.Request().Context(), p.UID(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) MarkAllNotificationsRead(c echo.Context) error {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	n, err := h.svc.MarkAllNotificationsRead(c.Request().Context(), p.UID())
	if err != nil {
		return err
	}
	return apperr.OK(c, http.StatusOK, map[string]int64{"updated": n})
}
