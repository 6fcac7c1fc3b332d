package billing

import (
	"time"

	"github.com/google/uuid"
)

const (
	PurposeAppointment  = "APPOINTMENT"
	PurposeSubscription = "SUBSCRIPTION"
)

const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
	StatusRefunded  = "REFUNDED"
)

type Payment struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	Purpose        string     `json:"purpose"`
	AppointmentID  *uuid.UUID `json:"appointment_id,omitempty"`
	LicenseID      *uuid.UUID `json:"license_id,omitempty"`
	Amount         int64      `json:"amount"` // minor units
	Currency       string     `json:"currency"`
	Status         string     `json:"status"`
	Provider       string     `json:"provider"`
	TransactionRef *string    `json:"transaction_ref,omitempty"`
	CardLast4      *string    `json:"card_last4,omitempty"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// PaymentFilter narrows payment listings. A nil UserID matches all users.
type PaymentFilter struct {
	UserID  *uuid.UUID
	Status  string
	Purpose string
}

// PayRequest carries the card in clear text; only its last four digits are
// ever stored.
type PayRequest struct {
	Purpose       string     `json:"purpose" validate:"required,oneof=APPOINTMENT SUBSCRIPTION"`
	AppointmentID *uuid.UUID `json:"appointment_id" validate:"required_if=Purpose APPOINTMENT"`
	HospitalID    *uuid.UUID `json:"hospital_id" validate:"required_if=Purpose SUBSCRIPTION"`
	Plan          string     `json:"plan" validate:"required_if=Purpose SUBSCRIPTION"`
	CardNumber    string     `json:"card_number" validate:"required,credit_card"`
	CardHolder    string     `json:"card_holder" validate:"required,max=100"`
	Expiry        string     `json:"expiry" validate:"required,len=5"` // MM/YY
	CVV           string     `json:"cvv" validate:"required,numeric,min=3,max=4"`
}
