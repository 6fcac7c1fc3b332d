package admin

import (
	"time"

	"github.com/google/uuid"
)

type Hospital struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	City      string    `json:"city"`
	Address   *string   `json:"address,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Email     *string   `json:"email,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Department struct {
	ID          uuid.UUID `json:"id"`
	HospitalID  uuid.UUID `json:"hospital_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

const (
	PlanTrial   = "TRIAL"
	PlanBasic   = "BASIC"
	PlanPremium = "PREMIUM"

	LicenseActive    = "ACTIVE"
	LicenseExpired   = "EXPIRED"
	LicenseSuspended = "SUSPENDED"
)

// PlanTerms is what a subscription plan buys.
type PlanTerms struct {
	Period     time.Duration
	MaxDoctors int
	Price      int64 // minor units
	Currency   string
}

var plans = map[string]PlanTerms{
	PlanTrial:   {Period: 14 * 24 * time.Hour, MaxDoctors: 2, Price: 0, Currency: "TRY"},
	PlanBasic:   {Period: 30 * 24 * time.Hour, MaxDoctors: 10, Price: 99900, Currency: "TRY"},
	PlanPremium: {Period: 365 * 24 * time.Hour, MaxDoctors: 50, Price: 999900, Currency: "TRY"},
}

// Terms returns the terms of plan.
func Terms(plan string) (PlanTerms, bool) {
	t, ok := plans[plan]
	return t, ok
}

type License struct {
	ID         uuid.UUID `json:"id"`
	LicenseKey string    `json:"license_key"`
	HospitalID uuid.UUID `json:"hospital_id"`
	Plan       string    `json:"plan"`
	Status     string    `json:"status"`
	MaxDoctors int       `json:"max_doctors"`
	StartsAt   time.Time `json:"starts_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Usable reports whether the license grants access at now.
func (l *License) Usable(now time.Time) bool {
	return l.Status == LicenseActive && !now.Before(l.StartsAt) && now.Before(l.ExpiresAt)
}

// Stats is the admin dashboard summary.
type Stats struct {
	UsersByRole          map[string]int   `json:"users_by_role"`
	AppointmentsByStatus map[string]int   `json:"appointments_by_status"`
	Revenue              map[string]int64 `json:"revenue"` // completed payments per currency
	Hospitals            int              `json:"hospitals"`
	ActiveLicenses       int              `json:"active_licenses"`
}

type HospitalFilter struct {
	City       string
	Query      string
	ActiveOnly bool
}

// -- requests --

type HospitalRequest struct {
	Name    string  `json:"name" validate:"required,max=200"`
	City    string  `json:"city" validate:"required,max=100"`
	Address *string `json:"address" validate:"omitempty,max=500"`
	Phone   *string `json:"phone" validate:"omitempty,phone"`
	Email   *string `json:"email" validate:"omitempty,email"`
}

type CreateDepartmentRequest struct {
	HospitalID  uuid.UUID `json:"hospital_id" validate:"required"`
	Name        string    `json:"name" validate:"required,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=2000"`
}

type UpdateDepartmentRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

type CreateLicenseRequest struct {
	HospitalID uuid.UUID  `json:"hospital_id" validate:"required"`
	Plan       string     `json:"plan" validate:"required,oneof=TRIAL BASIC PREMIUM"`
	MaxDoctors int        `json:"max_doctors" validate:"omitempty,min=1,max=10000"`
	StartsAt   *time.Time `json:"starts_at"`
}

type LicenseStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE EXPIRED SUSPENDED"`
}
