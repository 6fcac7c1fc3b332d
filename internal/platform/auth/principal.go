package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	RolePatient = "PATIENT"
	RoleDoctor  = "DOCTOR"
	RoleAdmin   = "ADMIN"
)

// AllRoles lists every role a user can hold.
var AllRoles = []string{RolePatient, RoleDoctor, RoleAdmin}

// ValidRole reports whether role is one of AllRoles.
func ValidRole(role string) bool {
	return lo.Contains(AllRoles, role)
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID   string
	TenantID string
	Role     string
	TokenID  string
	Claims   *Claims
}

func (p *Principal) Is(roles ...string) bool {
	return p != nil && lo.Contains(roles, p.Role)
}

func (p *Principal) IsAdmin() bool { return p.Is(RoleAdmin) }

// UID is UserID as a uuid. Tokens are only issued for uuid user ids.
func (p *Principal) UID() uuid.UUID {
	id, _ := uuid.Parse(p.UserID)
	return id
}

// WithPrincipal stores p and its roles in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	ctx = context.WithValue(ctx, PrincipalKey, p)
	ctx = context.WithValue(ctx, UserRolesKey, []string{p.Role})
	return ctx
}

// PrincipalFromContext returns the caller, or nil for anonymous requests.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(PrincipalKey).(*Principal)
	return p
}

func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(UserRolesKey).([]string)
	return roles
}
