package identity

import (
	"context"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	TouchLogin(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, role, q string, limit, offset int) ([]*User, int, error)
}

type PatientRepository interface {
	Create(ctx context.Context, p *PatientProfile) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*PatientProfile, error)
	Update(ctx context.Context, p *PatientProfile) error
}

type DoctorRepository interface {
	Create(ctx context.Context, d *DoctorProfile) error
	GetByID(ctx context.Context, id uuid.UUID) (*DoctorProfile, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*DoctorProfile, error)
	Update(ctx context.Context, d *DoctorProfile) error
	CountByHospital(ctx context.Context, hospitalID uuid.UUID) (int, error)
	Search(ctx context.Context, f DoctorFilter, limit, offset int) ([]*DoctorProfile, int, error)
}
