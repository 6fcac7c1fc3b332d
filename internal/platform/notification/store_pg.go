package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/apperr"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/db"
)

var ErrNotificationNotFound = apperr.NotFound(apperr.CodeNotFound, "notification not found")

type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const notificationCols = `id::text, user_id::text, type, title, message, COALESCE(link, ''), is_read, created_at`

func (s *PGStore) Create(ctx context.Context, n *Notification) error {
	return db.Conn(ctx, s.pool).QueryRow(ctx, `
		INSERT INTO notifications (user_id, type, title, message, link)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		RETURNING id::text, is_read, created_at`,
		n.UserID, n.Type, n.Title, n.Message, n.Link,
	).Scan(&n.ID, &n.IsRead, &n.CreatedAt)
}

func (s *PGStore) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	q := db.Conn(ctx, s.pool)
	where := "user_id = $1"
	if unreadOnly {
		where += " AND is_read = false"
	}

	var total int
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM notifications WHERE "+where, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM notifications WHERE %s ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		notificationCols, where), userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Notification
	for rows.Next() {
		n := &Notification{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Link, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}

func (s *PGStore) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := db.Conn(ctx, s.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false`, userID).Scan(&n)
	return n, err
}

func (s *PGStore) MarkRead(ctx context.Context, id, userID string) error {
	var got string
	err := db.Conn(ctx, s.pool).QueryRow(ctx,
		`UPDATE notifications SET is_read = true WHERE id = $1 AND user_id = $2 RETURNING id::text`, id, userID).Scan(&got)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotificationNotFound
	}
	return err
}

func (s *PGStore) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	tag, err := db.Conn(ctx, s.pool).Exec(ctx,
		`UPDATE notifications SET is_read = true WHERE user_id = $1 AND is_read = false`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
