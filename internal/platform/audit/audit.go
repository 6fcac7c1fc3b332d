// Package audit persists the audit trail: explicit entries written by the
// domain services and one entry per mutating API request.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/db"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/middleware"
)

// Entry is one row of audit_logs.
type Entry struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id,omitempty"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	IPAddress  string         `json:"ip_address,omitempty"`
	UserAgent  string         `json:"user_agent,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// SearchParams filters the trail. Zero fields do not filter.
type SearchParams struct {
	UserID     string
	EntityType string
	EntityID   string
	Action     string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

func (p *SearchParams) applyDefaults() {
	if p.Limit <= 0 {
		p.Limit = 100
	}
	if p.Limit > 1000 {
		p.Limit = 1000
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// Store is implemented by PGStore and MemoryStore.
type Store interface {
	Record(ctx context.Context, e *Entry) error
	Search(ctx context.Context, p SearchParams) ([]*Entry, int, error)
}

// RequestRecorder adapts a Store to the audit middleware.
type RequestRecorder struct {
	Store Store
}

// RecordAccess stores a request entry as "request.<action>".
func (r RequestRecorder) RecordAccess(ctx context.Context, e middleware.AuditEntry) error {
	return r.Store.Record(ctx, &Entry{
		UserID:     e.UserID,
		Action:     "request." + e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		IPAddress:  e.IPAddress,
		UserAgent:  e.UserAgent,
		CreatedAt:  e.Timestamp,
		Details: map[string]any{
			"method":     e.Method,
			"path":       e.Path,
			"status":     e.StatusCode,
			"role":       e.Role,
			"request_id": e.RequestID,
		},
	})
}

// PGStore writes to the audit_logs table of the current tenant.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Record(ctx context.Context, e *Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	var details []byte
	if len(e.Details) > 0 {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("audit: encode details: %w", err)
		}
		details = b
	}

	return db.Conn(ctx, s.pool).QueryRow(ctx, `
		INSERT INTO audit_logs (user_id, action, entity_type, entity_id, details, ip_address, user_agent, created_at)
		VALUES (NULLIF($1, '')::uuid, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), NULLIF($7, ''), $8)
		RETURNING id::text`,
		e.UserID, e.Action, e.EntityType, e.EntityID, details, e.IPAddress, e.UserAgent, e.CreatedAt,
	).Scan(&e.ID)
}

func (s *PGStore) Search(ctx context.Context, p SearchParams) ([]*Entry, int, error) {
	p.applyDefaults()
	q := db.Conn(ctx, s.pool)

	where := " WHERE 1=1"
	var args []any
	idx := 1
	add := func(clause string, v any) {
		where += fmt.Sprintf(" AND "+clause, idx)
		args = append(args, v)
		idx++
	}
	if p.UserID != "" {
		add("user_id = $%d::uuid", p.UserID)
	}
	if p.EntityType != "" {
		add("entity_type = $%d", p.EntityType)
	}
	if p.EntityID != "" {
		add("entity_id = $%d", p.EntityID)
	}
	if p.Action != "" {
		add("action = $%d", p.Action)
	}
	if p.From != nil {
		add("created_at >= $%d", *p.From)
	}
	if p.To != nil {
		add("created_at <= $%d", *p.To)
	}

	var total int
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM audit_logs"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id::text, COALESCE(user_id::text, ''), action, entity_type, COALESCE(entity_id, ''),
		details, COALESCE(ip_address, ''), COALESCE(user_agent, ''), created_at
		FROM audit_logs` + where + fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, p.Limit, p.Offset)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e := &Entry{}
		var details []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.EntityType, &e.EntityID,
			&details, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		if len(details) > 0 {
			_ = json.Unmarshal(details, &e.Details)
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}
