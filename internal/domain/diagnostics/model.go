package diagnostics

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
)

type TestResult struct {
	ID            uuid.UUID  `json:"id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	DoctorID      uuid.UUID  `json:"doctor_id"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	TestName      string     `json:"test_name"`
	TestType      string     `json:"test_type"`
	Result        *string    `json:"result,omitempty"`
	Unit          *string    `json:"unit,omitempty"`
	NormalRange   *string    `json:"normal_range,omitempty"`
	IsAbnormal    bool       `json:"is_abnormal"`
	Status        string     `json:"status"`
	TestDate      string     `json:"test_date"` // YYYY-MM-DD
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	DoctorName  string `json:"doctor_name,omitempty"`
	PatientName string `json:"patient_name,omitempty"`
}

// Filter narrows result listings. Nil fields match everything.
type Filter struct {
	DoctorID  *uuid.UUID
	PatientID *uuid.UUID
	Status    string
}

type CreateRequest struct {
	PatientID     uuid.UUID  `json:"patient_id" validate:"required"`
	AppointmentID *uuid.UUID `json:"appointment_id"`
	TestName      string     `json:"test_name" validate:"required,max=200"`
	TestType      string     `json:"test_type" validate:"required,max=100"`
	Result        *string    `json:"result" validate:"omitempty,max=2000"`
	Unit          *string    `json:"unit" validate:"omitempty,max=50"`
	NormalRange   *string    `json:"normal_range" validate:"omitempty,max=100"`
	IsAbnormal    bool       `json:"is_abnormal"`
	Status        string     `json:"status" validate:"omitempty,oneof=PENDING COMPLETED"`
	TestDate      string     `json:"test_date" validate:"required,date"`
}

// UpdateRequest changes only the fields that are set.
type UpdateRequest struct {
	Result      *string `json:"result" validate:"omitempty,max=2000"`
	Unit        *string `json:"unit" validate:"omitempty,max=50"`
	NormalRange *string `json:"normal_range" validate:"omitempty,max=100"`
	IsAbnormal  *bool   `json:"is_abnormal"`
	Status      *string `json:"status" validate:"omitempty,oneof=PENDING COMPLETED"`
}
