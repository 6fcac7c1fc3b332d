package auth

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/apperr"
)

type contextKey string

const (
	UserRolesKey contextKey = "user_roles"
	PrincipalKey contextKey = "principal"
)

// authErrorKey holds the reason a presented token was rejected, so Guard
// can report it when the route needs authentication.
const authErrorKey = "auth_error"

// Authenticate resolves the bearer token, if any, into a Principal. It never
// rejects a request on its own; Guard decides whether a caller is required.
func Authenticate(issuer *TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return next(c)
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				c.Set(authErrorKey, apperr.ErrUnauthorized.WithMessage("invalid authorization format"))
				return next(c)
			}

			ctx := c.Request().Context()
			claims, err := issuer.Parse(ctx, strings.TrimSpace(parts[1]))
			if err != nil {
				var ae *apperr.Error
				if !errors.As(err, &ae) {
					// The revocation store is down: fail closed.
					return apperr.Internal(err)
				}
				c.Set(authErrorKey, ae)
				return next(c)
			}

			p := &Principal{
				UserID:   claims.Subject,
				TenantID: claims.TenantID,
				Role:     claims.Role(),
				TokenID:  claims.ID,
				Claims:   claims,
			}

			// Read by the tenant middleware.
			c.Set("jwt_tenant_id", claims.TenantID)
			c.Set("user_id", p.UserID)
			c.SetRequest(c.Request().WithContext(WithPrincipal(ctx, p)))

			return next(c)
		}
	}
}

// RequirePrincipal returns the caller or the reason there is none.
func RequirePrincipal(c echo.Context) (*Principal, error) {
	if p := PrincipalFromContext(c.Request().Context()); p != nil {
		return p, nil
	}
	if err, ok := c.Get(authErrorKey).(*apperr.Error); ok {
		return nil, err
	}
	return nil, apperr.ErrUnauthorized
}
