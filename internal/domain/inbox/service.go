package inbox

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/apperr"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/notification"
)

var (
	ErrMessageNotFound   = apperr.NotFound("MESSAGE_NOT_FOUND", "message not found")
	ErrRecipientNotFound = apperr.NotFound("RECIPIENT_NOT_FOUND", "recipient not found")
)

// Users resolves display names; "" means the user does not exist.
type Users interface {
	DisplayName(ctx context.Context, userID uuid.UUID) string
}

type Notifier interface {
	Notify(ctx context.Context, m notification.Message) error
}

// Service covers user-to-user messages and the in-app notification feed.
type Service struct {
	messages      MessageRepository
	notifications notification.Store
	users         Users
	notifier      Notifier
	logger        zerolog.Logger
	now           func() time.Time
}

func NewService(messages MessageRepository, notifications notification.Store, users Users, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		messages:      messages,
		notifications: notifications,
		users:         users,
		notifier:      notifier,
		logger:        logger,
		now:           time.Now,
	}
}

// -- Messages --

// Send delivers a message and notifies the receiver.
func (s *Service) Send(ctx context.Context, senderID uuid.UUID, req *SendRequest) (*Message, error) {
	if req.ReceiverID == senderID {
		return nil, apperr.Invalid("cannot send a message to yourself")
	}
	receiverName := s.users.DisplayName(ctx, req.ReceiverID)
	if receiverName == "" {
		return nil, ErrRecipientNotFound
	}

	m := &Message{
		SenderID:     senderID,
		ReceiverID:   req.ReceiverID,
		Subject:      strings.TrimSpace(req.Subject),
		Content:      req.Content,
		SenderName:   s.users.DisplayName(ctx, senderID),
		ReceiverName: receiverName,
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, err
	}
	s.logger.Debug().Str("message_id", m.ID.String()).Msg("message sent")

	if s.notifier != nil {
		n := notification.Message{
			UserID:   m.ReceiverID.String(),
			Template: notification.MessageReceived,
			Data:     map[string]string{"sender_name": m.SenderName, "subject": m.Subject},
			Link:     "/messages/" + m.ID.String(),
		}
		if err := s.notifier.Notify(ctx, n); err != nil {
			s.logger.Error().Err(err).Str("message_id", m.ID.String()).Msg("notification failed")
		}
	}
	return m, nil
}

// Get returns a message to its sender or receiver. The receiver reading an
// unread message marks it read.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Message, error) {
	m, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.SenderID != userID && m.ReceiverID != userID {
		return nil, ErrMessageNotFound
	}
	if m.ReceiverID == userID && !m.IsRead {
		at := s.now()
		changed, err := s.messages.MarkRead(ctx, id, userID, at)
		if err != nil {
			return nil, err
		}
		if changed {
			m.IsRead = true
			m.ReadAt = &at
		}
	}
	return m, nil
}

// List returns the inbox by default, or the sent box.
func (s *Service) List(ctx context.Context, userID uuid.UUID, box string, limit, offset int) ([]*Message, int, error) {
	switch box {
	case "":
		box = BoxInbox
	case BoxInbox, BoxSent:
	default:
		return nil, 0, apperr.Invalid("box must be inbox or sent")
	}
	return s.messages.List(ctx, userID, box, limit, offset)
}

func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.messages.CountUnread(ctx, userID)
}

// -- Notifications --

func (s *Service) Notifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*notification.Notification, int, error) {
	return s.notifications.ListByUser(ctx, userID.String(), unreadOnly, limit, offset)
}

func (s *Service) UnreadNotifications(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.notifications.CountUnread(ctx, userID.String())
}

func (s *Service) MarkNotificationRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.notifications.MarkRead(ctx, id.String(), userID.String())
}

func (s *Service) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.notifications.MarkAllRead(ctx, userID.String())
}
