package diagnostics

import (
	"context"

	"github.com/google/uuid"
)

type TestResultRepository interface {
	Create(ctx context.Context, r *TestResult) error
	GetByID(ctx context.Context, id uuid.UUID) (*TestResult, error)
	Update(ctx context.Context, r *TestResult) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*TestResult, int, error)
}
