package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type PaymentRepository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	// Complete records the gateway receipt on a PENDING payment.
	Complete(ctx context.Context, id uuid.UUID, ref, last4 string, paidAt time.Time) error
	// SetStatus moves the payment from one status to another and returns
	// ErrInvalidPaymentStatus when it is no longer in from.
	SetStatus(ctx context.Context, id uuid.UUID, from, to string) error
	AttachLicense(ctx context.Context, id, licenseID uuid.UUID) error
	List(ctx context.Context, f PaymentFilter, limit, offset int) ([]*Payment, int, error)
}
