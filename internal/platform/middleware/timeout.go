package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/apperr"
)

// ErrRequestTimeout is returned in place of the handler's error when the
// request deadline cut the work short.
var ErrRequestTimeout = apperr.Timeout(apperr.CodeTimeout, "the request took too long to process")

// RequestTimeout bounds the request context. Repositories hand that context
// to pgx, so a slow query is cancelled at the deadline.
func RequestTimeout(limit time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), limit)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if err == nil || !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return err
			}
			return ErrRequestTimeout.Wrap(err)
		}
	}
}
