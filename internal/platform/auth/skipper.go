package auth

import (
	"github.com/labstack/echo/v4"
)

// infraPaths bypass tenant resolution. They never touch tenant data.
var infraPaths = map[string]bool{
	"/health":    true,
	"/health/db": true,
	"/metrics":   true,
}

// InfraSkipper returns true for health and metrics endpoints. Pass it to the
// tenant middleware so probes work without a tenant connection.
func InfraSkipper(c echo.Context) bool {
	return infraPaths[c.Request().URL.Path]
}

// IsInfraPath reports whether path is a health or metrics endpoint.
func IsInfraPath(path string) bool {
	return infraPaths[path]
}
