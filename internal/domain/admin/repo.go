package admin

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type HospitalRepository interface {
	Create(ctx context.Context, h *Hospital) error
	GetByID(ctx context.Context, id uuid.UUID) (*Hospital, error)
	Update(ctx context.Context, h *Hospital) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	List(ctx context.Context, f HospitalFilter, limit, offset int) ([]*Hospital, int, error)
}

type DepartmentRepository interface {
	Create(ctx context.Context, d *Department) error
	GetByID(ctx context.Context, id uuid.UUID) (*Department, error)
	Update(ctx context.Context, d *Department) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	// List returns departments of one hospital, or of all when hospitalID is nil.
	List(ctx context.Context, hospitalID *uuid.UUID, activeOnly bool, limit, offset int) ([]*Department, int, error)
}

type LicenseRepository interface {
	Create(ctx context.Context, l *License) error
	GetByID(ctx context.Context, id uuid.UUID) (*License, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	// Extend moves a license onto plan with a new expiry.
	Extend(ctx context.Context, id uuid.UUID, plan string, maxDoctors int, expiresAt time.Time) error
	List(ctx context.Context, hospitalID *uuid.UUID, status string, limit, offset int) ([]*License, int, error)
	// Current returns the usable license of a hospital with the latest expiry.
	Current(ctx context.Context, hospitalID uuid.UUID, now time.Time) (*License, error)
	// CurrentForDoctor reports whether the hospital of the doctor user holds
	// a usable license.
	CurrentForDoctor(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

type StatsRepository interface {
	Stats(ctx context.Context) (*Stats, error)
}
