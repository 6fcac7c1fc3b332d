package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/apperr"
)

// RequireRole returns middleware that checks if the user has at least one of
// the specified roles. Use it for single routes that are narrower than their
// prefix in the route table.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := RequirePrincipal(c); err != nil {
				return err
			}
			if len(lo.Intersect(RolesFromContext(c.Request().Context()), roles)) == 0 {
				return apperr.ErrForbidden.WithMessage("required role: %s", strings.Join(roles, " or "))
			}
			return next(c)
		}
	}
}
