package inbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/db"
)

type messageRepoPG struct{ pool *pgxpool.Pool }

func NewMessageRepoPG(pool *pgxpool.Pool) MessageRepository {
	return &messageRepoPG{pool: pool}
}

const messageSelect = `
	SELECT m.id, m.sender_id, m.receiver_id, m.subject, m.content, m.is_read, m.read_at, m.created_at,
		su.first_name || ' ' || su.last_name,
		ru.first_name || ' ' || ru.last_name
	FROM messages m
	JOIN users su ON su.id = m.sender_id
	JOIN users ru ON ru.id = m.receiver_id`

func scanMessage(row pgx.Row) (*Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Subject, &m.Content, &m.IsRead, &m.ReadAt, &m.CreatedAt,
		&m.SenderName, &m.ReceiverName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMessageNotFound
	}
	return &m, err
}

func (r *messageRepoPG) Create(ctx context.Context, m *Message) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO messages (sender_id, receiver_id, subject, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, is_read, created_at`,
		m.SenderID, m.ReceiverID, m.Subject, m.Content,
	).Scan(&m.ID, &m.IsRead, &m.CreatedAt)
}

func (r *messageRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Message, error) {
	return scanMessage(db.Conn(ctx, r.pool).QueryRow(ctx, messageSelect+` WHERE m.id = $1`, id))
}

func (r *messageRepoPG) List(ctx context.Context, userID uuid.UUID, box string, limit, offset int) ([]*Message, int, error) {
	column := "receiver_id"
	if box == BoxSent {
		column = "sender_id"
	}
	where := fmt.Sprintf(` WHERE m.%s = $1`, column)

	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM messages m`+where, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := conn.Query(ctx, messageSelect+where+` ORDER BY m.created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

func (r *messageRepoPG) MarkRead(ctx context.Context, id, receiverID uuid.UUID, at time.Time) (bool, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE messages SET is_read = true, read_at = $3
		WHERE id = $1 AND receiver_id = $2 AND is_read = false`, id, receiverID, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *messageRepoPG) CountUnread(ctx context.Context, receiverID uuid.UUID) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE receiver_id = $1 AND is_read = false`, receiverID).Scan(&n)
	return n, err
}
