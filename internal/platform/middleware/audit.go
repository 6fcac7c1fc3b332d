package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/apperr"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/auth"
)

// AuditEntry is one mutating API request as seen by the audit middleware.
type AuditEntry struct {
	UserID     string
	Role       string
	EntityType string
	EntityID   string
	Action     string // create, update, delete
	IPAddress  string
	UserAgent  string
	Path       string
	Method     string
	Timestamp  time.Time
	RequestID  string
	StatusCode int
}

// AuditRecorder persists audit entries. The context carries the tenant
// connection of the request.
type AuditRecorder interface {
	RecordAccess(ctx context.Context, entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(ctx context.Context, entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(ctx context.Context, entry AuditEntry) error {
	return f(ctx, entry)
}

// Audit records every mutating request under /api/v1/ after the handler
// has run, so the entry carries the final status. Reads are not recorded.
// A failing recorder is logged and never fails the request.
func Audit(logger zerolog.Logger, recorder AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path

			if !isAuditable(req.Method, path) {
				return next(c)
			}

			err := next(c)

			status := responseStatus(c, err)

			entityType, entityID := entityFromPath(path)
			entry := AuditEntry{
				Timestamp:  time.Now().UTC(),
				Path:       path,
				Method:     req.Method,
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				StatusCode: status,
				Action:     httpMethodToAction(req.Method),
				EntityType: entityType,
				EntityID:   entityID,
			}
			if p := auth.PrincipalFromContext(req.Context()); p != nil {
				entry.UserID = p.UserID
				entry.Role = p.Role
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}

			if recorder != nil {
				if recErr := recorder.RecordAccess(req.Context(), entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Str("role", entry.Role).
				Str("entity_type", entry.EntityType).
				Str("entity_id", entry.EntityID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Int("status", entry.StatusCode).
				Msg("api_mutation")

			return err
		}
	}
}

// responseStatus is the status the error handler will write for err.
func responseStatus(c echo.Context, err error) int {
	if err == nil || c.Response().Committed {
		return c.Response().Status
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

func isAuditable(method, path string) bool {
	if !strings.HasPrefix(path, "/api/v1/") {
		return false
	}
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

func httpMethodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return strings.ToLower(method)
	}
}

// entityFromPath picks the resource segment and the first UUID after it.
//
//	/api/v1/appointments/<id>/cancel   -> appointments, <id>
//	/api/v1/doctor/blocked-slots/<id>  -> blocked-slots, <id>
//	/api/v1/admin/hospitals            -> hospitals, ""
func entityFromPath(path string) (string, string) {
	segments := strings.Split(strings.Trim(strings.TrimPrefix(path, "/api/v1/"), "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return "unknown", ""
	}

	// Workspace prefixes are scopes, not entities.
	start := 0
	switch segments[0] {
	case "admin", "doctor", "patient":
		if len(segments) > 1 {
			start = 1
		}
	}
	entity := segments[start]

	for _, s := range segments[start+1:] {
		if _, err := uuid.Parse(s); err == nil {
			return entity, s
		}
	}
	return entity, ""
}
