// Package notification delivers in-app notifications and, when SMTP is
// configured, the same message by email.
package notification

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Categories shown to the client.
const (
	TypeAppointment  = "APPOINTMENT"
	TypePrescription = "PRESCRIPTION"
	TypeTestResult   = "TEST_RESULT"
	TypeMessage      = "MESSAGE"
	TypePayment      = "PAYMENT"
	TypeSystem       = "SYSTEM"
)

// Template IDs.
const (
	AppointmentCreated   = "appointment-created"
	AppointmentConfirmed = "appointment-confirmed"
	AppointmentCancelled = "appointment-cancelled"
	AppointmentCompleted = "appointment-completed"
	AppointmentReminder  = "appointment-reminder"
	PrescriptionCreated  = "prescription-created"
	TestResultReady      = "test-result-ready"
	MessageReceived      = "message-received"
	PaymentCompleted     = "payment-completed"
	LicenseActivated     = "license-activated"
)

// Notification is one in-app notification row.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is what domain services hand to the Notifier.
type Message struct {
	UserID   string
	Template string
	Data     map[string]string
	Link     string
}

// Template defines a reusable notification.
type Template struct {
	ID    string
	Type  string
	Title string
	Body  string
}

// TemplateEngine renders {{key}} placeholders.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]*Template)}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{AppointmentCreated, TypeAppointment, "New appointment request",
			"{{patient_name}} requested an appointment on {{date}} at {{time}} ({{number}})."},
		{AppointmentConfirmed, TypeAppointment, "Appointment confirmed",
			"Your appointment {{number}} on {{date}} at {{time}} with {{doctor_name}} is confirmed."},
		{AppointmentCancelled, TypeAppointment, "Appointment cancelled",
			"Appointment {{number}} on {{date}} at {{time}} was cancelled. Reason: {{reason}}"},
		{AppointmentCompleted, TypeAppointment, "Appointment completed",
			"Appointment {{number}} on {{date}} has been completed."},
		{AppointmentReminder, TypeAppointment, "Appointment reminder",
			"Reminder: you have an appointment with {{doctor_name}} on {{date}} at {{time}} ({{number}})."},
		{PrescriptionCreated, TypePrescription, "New prescription",
			"{{doctor_name}} wrote prescription {{number}} for you."},
		{TestResultReady, TypeTestResult, "Test result ready",
			"Your {{test_name}} result is available."},
		{MessageReceived, TypeMessage, "New message",
			"{{sender_name}} sent you a message: {{subject}}"},
		{PaymentCompleted, TypePayment, "Payment received",
			"We received your payment of {{amount}} {{currency}} (ref {{ref}})."},
		{LicenseActivated, TypeSystem, "License activated",
			"The {{plan}} license for {{hospital}} is active until {{expires_at}}."},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render fills the template. Keys absent from data are left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (*Template, error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("template %q not found", templateID)
	}

	out := *t
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		out.Title = strings.ReplaceAll(out.Title, placeholder, v)
		out.Body = strings.ReplaceAll(out.Body, placeholder, v)
	}
	return &out, nil
}

// Store persists in-app notifications.
type Store interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]*Notification, int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

// RecipientLookup resolves the email address of a user.
type RecipientLookup interface {
	ContactFor(ctx context.Context, userID string) (email, name string, err error)
}

// Notifier writes the in-app row and emails the same text in the background.
type Notifier struct {
	store      Store
	templates  *TemplateEngine
	email      EmailSender
	recipients RecipientLookup
	logger     zerolog.Logger
	timeout    time.Duration
	wg         sync.WaitGroup
}

// NewNotifier builds a Notifier. A nil email sender disables email.
func NewNotifier(store Store, templates *TemplateEngine, email EmailSender, recipients RecipientLookup, logger zerolog.Logger) *Notifier {
	return &Notifier{
		store:      store,
		templates:  templates,
		email:      email,
		recipients: recipients,
		logger:     logger,
		timeout:    30 * time.Second,
	}
}

// Notify stores the notification for m.UserID. Only the store write can
// fail the call; email problems are logged.
func (n *Notifier) Notify(ctx context.Context, m Message) error {
	t, err := n.templates.Render(m.Template, m.Data)
	if err != nil {
		return err
	}

	row := &Notification{
		UserID:  m.UserID,
		Type:    t.Type,
		Title:   t.Title,
		Message: t.Body,
		Link:    m.Link,
	}
	if err := n.store.Create(ctx, row); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	if n.email == nil || n.recipients == nil {
		return nil
	}

	// The lookup needs the request's tenant connection, so it runs now.
	to, name, err := n.recipients.ContactFor(ctx, m.UserID)
	if err != nil || to == "" {
		n.logger.Warn().Err(err).Str("user_id", m.UserID).Str("template", m.Template).Msg("no email recipient")
		return nil
	}

	body := t.Body
	if name != "" {
		body = "Dear " + name + ",\n\n" + body
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()
		if err := n.email.SendEmail(sendCtx, to, t.Title, body); err != nil {
			n.logger.Error().Err(err).Str("user_id", m.UserID).Str("template", m.Template).Msg("email delivery failed")
		}
	}()
	return nil
}

// Wait blocks until queued emails have been handed to the relay.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
