package scheduling

import (
	"time"

	"github.com/google/uuid"
)

type Appointment struct {
	ID                uuid.UUID `json:"id"`
	AppointmentNumber string    `json:"appointment_number"`
	PatientID         uuid.UUID `json:"patient_id"`
	DoctorID          uuid.UUID `json:"doctor_id"`
	HospitalID        uuid.UUID `json:"hospital_id"`
	DepartmentID      uuid.UUID `json:"department_id"`

	Date      string `json:"date"`       // YYYY-MM-DD
	StartTime string `json:"start_time"` // HH:MM
	EndTime   string `json:"end_time"`
	Duration  int    `json:"duration"` // minutes

	Status   Status  `json:"status"`
	Reason   *string `json:"reason,omitempty"`
	Symptoms *string `json:"symptoms,omitempty"`
	Notes    *string `json:"notes,omitempty"`

	IsOnline   bool    `json:"is_online"`
	MeetingURL *string `json:"meeting_url,omitempty"`

	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy        *uuid.UUID `json:"cancelled_by,omitempty"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	ReminderSentAt     *time.Time `json:"reminder_sent_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	// Joined for display.
	PatientName    string    `json:"patient_name,omitempty"`
	DoctorName     string    `json:"doctor_name,omitempty"`
	DoctorUserID   uuid.UUID `json:"doctor_user_id"`
	HospitalName   string    `json:"hospital_name,omitempty"`
	DepartmentName string    `json:"department_name,omitempty"`
}

// Slot returns the appointment's time range.
func (a *Appointment) Slot() Slot {
	return Slot{Start: a.StartTime, End: a.EndTime}
}

// Transition is a conditional status change: it applies only while the
// appointment is still in From.
type Transition struct {
	ID     uuid.UUID
	From   Status
	To     Status
	At     time.Time
	Reason *string
	By     *uuid.UUID
}

// WorkingHours is one weekly working window of a doctor.
type WorkingHours struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	DayOfWeek int       `json:"day_of_week"` // 0 = Sunday
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	IsActive  bool      `json:"is_active"`
}

type BlockedSlot struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	Date      string    `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Reason    *string   `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (b *BlockedSlot) Slot() Slot {
	return Slot{Start: b.StartTime, End: b.EndTime}
}

// AppointmentFilter narrows appointment listings. Nil ids match all.
type AppointmentFilter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    Status
	DateFrom  string
	DateTo    string
}

// Dashboard is the doctor's view of the day.
type Dashboard struct {
	Date     string         `json:"date"`
	Today    []*Appointment `json:"today"`
	ByStatus map[Status]int `json:"by_status"`
	Pending  int            `json:"pending"`
	Upcoming int            `json:"upcoming"`
}

// -- requests --

type BookRequest struct {
	DoctorID  uuid.UUID `json:"doctor_id" validate:"required"`
	Date      string    `json:"date" validate:"required,date"`
	StartTime string    `json:"start_time" validate:"required,clock"`
	EndTime   string    `json:"end_time" validate:"omitempty,clock"`
	Duration  int       `json:"duration" validate:"omitempty,min=5,max=480"`
	Reason    *string   `json:"reason" validate:"omitempty,max=1000"`
	Symptoms  *string   `json:"symptoms" validate:"omitempty,max=2000"`
	Notes     *string   `json:"notes" validate:"omitempty,max=2000"`
	IsOnline  bool      `json:"is_online"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=1000"`
}

type WorkingHoursEntry struct {
	DayOfWeek int    `json:"day_of_week" validate:"min=0,max=6"`
	StartTime string `json:"start_time" validate:"required,clock"`
	EndTime   string `json:"end_time" validate:"required,clock"`
}

type WorkingHoursRequest struct {
	Hours []WorkingHoursEntry `json:"hours" validate:"max=50,dive"`
}

type BlockedSlotRequest struct {
	Date      string  `json:"date" validate:"required,date"`
	StartTime string  `json:"start_time" validate:"required,clock"`
	EndTime   string  `json:"end_time" validate:"required,clock"`
	Reason    *string `json:"reason" validate:"omitempty,max=500"`
}
