package medication

import (
	"context"

	"github.com/google/uuid"
)

type PrescriptionRepository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Prescription, int, error)
	NextNumber(ctx context.Context, year int) (int64, error)
}
