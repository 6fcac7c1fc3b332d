package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/apperr"
)

// maxStack bounds the stack trace attached to the panic log line.
const maxStack = 8 << 10

// Recovery turns a handler panic into an INTERNAL_ERROR response and logs
// the stack with enough request context to find the caller.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				stack := debug.Stack()
				if len(stack) > maxStack {
					stack = stack[:maxStack]
				}
				logger.Error().
					Str("request_id", contextString(c, "request_id")).
					Str("tenant", contextString(c, "tenant_id")).
					Str("method", c.Request().Method).
					Str("route", routeOf(c)).
					Interface("panic", r).
					Bytes("stack", stack).
					Msg("handler panicked")

				err = apperr.Internal(fmt.Errorf("panic: %v", r))
			}()
			return next(c)
		}
	}
}

func contextString(c echo.Context, key string) string {
	s, _ := c.Get(key).(string)
	return s
}

// routeOf prefers the registered route template so ids do not explode log
// cardinality. Unmatched requests fall back to the raw path.
func routeOf(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return c.Request().URL.Path
}
