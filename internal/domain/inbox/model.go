package inbox

import (
	"time"

	"github.com/google/uuid"
)

// Mailboxes a user can list.
const (
	BoxInbox = "inbox"
	BoxSent  = "sent"
)

type Message struct {
	ID         uuid.UUID  `json:"id"`
	SenderID   uuid.UUID  `json:"sender_id"`
	ReceiverID uuid.UUID  `json:"receiver_id"`
	Subject    string     `json:"subject"`
	Content    string     `json:"content"`
	IsRead     bool       `json:"is_read"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`

	SenderName   string `json:"sender_name,omitempty"`
	ReceiverName string `json:"receiver_name,omitempty"`
}

type SendRequest struct {
	ReceiverID uuid.UUID `json:"receiver_id" validate:"required"`
	Subject    string    `json:"subject" validate:"required,max=200"`
	Content    string    `json:"content" validate:"required,max=5000"`
}
