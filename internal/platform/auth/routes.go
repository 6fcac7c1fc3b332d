package auth

import (
	"context"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/apperr"
)

var ErrLicenseRequired = apperr.Forbidden("LICENSE_REQUIRED", "an active clinic license is required")

// Rule is the access policy for every path under Prefix.
type Rule struct {
	Prefix          string
	AuthRequired    bool
	Roles           []string // empty means any authenticated role
	LicenseRequired bool
}

// DefaultRules is the access table of the API.
var DefaultRules = []Rule{
	{Prefix: "/health"},
	{Prefix: "/metrics"},
	{Prefix: "/api/v1/auth/register"},
	{Prefix: "/api/v1/auth/login"},
	{Prefix: "/api/v1/auth/refresh"},
	{Prefix: "/api/v1/auth", AuthRequired: true},
	{Prefix: "/api/v1/directory"},
	{Prefix: "/api/v1/admin", AuthRequired: true, Roles: []string{RoleAdmin}},
	{Prefix: "/api/v1/doctor", AuthRequired: true, Roles: []string{RoleDoctor}, LicenseRequired: true},
	{Prefix: "/api/v1/patient", AuthRequired: true, Roles: []string{RolePatient}},
	{Prefix: "/api/v1/appointments", AuthRequired: true},
	{Prefix: "/api/v1/payments", AuthRequired: true, Roles: []string{RolePatient, RoleAdmin}},
	{Prefix: "/api/v1/messages", AuthRequired: true},
	{Prefix: "/api/v1/notifications", AuthRequired: true},
}

// fallbackRule applies to paths that match no prefix.
var fallbackRule = Rule{AuthRequired: true}

// RouteTable resolves a request path to its Rule. The longest matching
// prefix wins; a prefix matches whole path segments only.
type RouteTable struct {
	rules []Rule
}

func NewRouteTable(rules []Rule) *RouteTable {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})
	return &RouteTable{rules: sorted}
}

func (t *RouteTable) Match(path string) Rule {
	for _, r := range t.rules {
		if path == r.Prefix || strings.HasPrefix(path, strings.TrimSuffix(r.Prefix, "/")+"/") {
			return r
		}
	}
	return fallbackRule
}

// LicenseChecker reports whether a doctor's hospital holds an active,
// unexpired license.
type LicenseChecker interface {
	DoctorHasActiveLicense(ctx context.Context, userID string) (bool, error)
}

// Guard enforces the route table: 401 without a caller where one is
// required, 403 for a role outside the rule, 403 LICENSE_REQUIRED when the
// rule needs a license the caller's hospital does not hold. A nil checker
// skips the license step.
func Guard(table *RouteTable, licenses LicenseChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rule := table.Match(c.Request().URL.Path)
			if !rule.AuthRequired {
				return next(c)
			}

			p, err := RequirePrincipal(c)
			if err != nil {
				return err
			}

			if len(rule.Roles) > 0 && !lo.Contains(rule.Roles, p.Role) {
				return apperr.ErrForbidden.WithMessage("required role: %s", strings.Join(rule.Roles, " or "))
			}

			if rule.LicenseRequired && licenses != nil {
				ok, err := licenses.DoctorHasActiveLicense(c.Request().Context(), p.UserID)
				if err != nil {
					return apperr.Internal(err)
				}
				if !ok {
					return ErrLicenseRequired
				}
			}

			return next(c)
		}
	}
}
