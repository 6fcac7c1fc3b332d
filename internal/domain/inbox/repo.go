package inbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*Message, error)
	// List returns the user's received (inbox) or sent messages, newest first.
	List(ctx context.Context, userID uuid.UUID, box string, limit, offset int) ([]*Message, int, error)
	// MarkRead flags an unread message of receiverID as read. It reports
	// whether a row changed.
	MarkRead(ctx context.Context, id, receiverID uuid.UUID, at time.Time) (bool, error)
	CountUnread(ctx context.Context, receiverID uuid.UUID) (int, error)
}
