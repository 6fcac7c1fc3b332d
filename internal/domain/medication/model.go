package medication

import (
	"time"

	"github.com/google/uuid"
)

// Item is one line of a prescription.
type Item struct {
	Name      string `json:"name" validate:"required,max=200"`
	Dosage    string `json:"dosage" validate:"required,max=100"`
	Frequency string `json:"frequency" validate:"required,max=100"`
	Duration  string `json:"duration" validate:"required,max=100"`
	Notes     string `json:"notes,omitempty" validate:"max=500"`
}

type Prescription struct {
	ID                 uuid.UUID `json:"id"`
	PrescriptionNumber string    `json:"prescription_number"`
	AppointmentID      uuid.UUID `json:"appointment_id"`
	DoctorID           uuid.UUID `json:"doctor_id"`
	PatientID          uuid.UUID `json:"patient_id"`
	Diagnosis          string    `json:"diagnosis"`
	Medications        []Item    `json:"medications"`
	Notes              *string   `json:"notes,omitempty"`
	ValidUntil         *string   `json:"valid_until,omitempty"` // YYYY-MM-DD
	CreatedAt          time.Time `json:"created_at"`

	DoctorName        string `json:"doctor_name,omitempty"`
	PatientName       string `json:"patient_name,omitempty"`
	AppointmentNumber string `json:"appointment_number,omitempty"`
}

// Filter narrows prescription listings. Nil fields match everything.
type Filter struct {
	DoctorID  *uuid.UUID
	PatientID *uuid.UUID
}

type CreateRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id" validate:"required"`
	Diagnosis     string    `json:"diagnosis" validate:"required,max=1000"`
	Medications   []Item    `json:"medications" validate:"required,min=1,max=20,dive"`
	Notes         *string   `json:"notes" validate:"omitempty,max=2000"`
	ValidUntil    *string   `json:"valid_until" validate:"omitempty,date"`
}
