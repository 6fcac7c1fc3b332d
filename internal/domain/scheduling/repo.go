package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// ActiveForDoctorDate returns the PENDING and CONFIRMED appointments of a
	// doctor on date.
	ActiveForDoctorDate(ctx context.Context, doctorID uuid.UUID, date string) ([]*Appointment, error)
	// Transition applies t only if the appointment is still in t.From and
	// returns ErrInvalidStatus otherwise.
	Transition(ctx context.Context, t Transition) error
	Search(ctx context.Context, f AppointmentFilter, limit, offset int) ([]*Appointment, int, error)
	CountByStatus(ctx context.Context, doctorID uuid.UUID) (map[Status]int, error)
	// EndedBefore returns CONFIRMED appointments whose end lies before
	// cutoff, a local wall-clock timestamp.
	EndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*Appointment, error)
	// StartingBetween returns CONFIRMED, unreminded appointments starting in
	// [from, to), both local wall-clock timestamps.
	StartingBetween(ctx context.Context, from, to time.Time, limit int) ([]*Appointment, error)
	MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error

	// LockDoctorDay serializes bookings of one doctor on one date until the
	// surrounding transaction ends.
	LockDoctorDay(ctx context.Context, doctorID uuid.UUID, date string) error
	// NextNumber returns the next per-year appointment counter.
	NextNumber(ctx context.Context, year int) (int64, error)
}

type WorkingHoursRepository interface {
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*WorkingHours, error)
	// Replace swaps the whole weekly plan of a doctor.
	Replace(ctx context.Context, doctorID uuid.UUID, hours []*WorkingHours) error
}

type BlockedSlotRepository interface {
	Create(ctx context.Context, b *BlockedSlot) error
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, dateFrom, dateTo string) ([]*BlockedSlot, error)
	Delete(ctx context.Context, doctorID, id uuid.UUID) error
}
