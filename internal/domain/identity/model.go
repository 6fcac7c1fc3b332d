package identity

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Phone        *string    `json:"phone,omitempty"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

type PatientProfile struct {
	ID                    uuid.UUID `json:"id"`
	UserID                uuid.UUID `json:"user_id"`
	DateOfBirth           *string   `json:"date_of_birth,omitempty"`
	Gender                *string   `json:"gender,omitempty"`
	BloodType             *string   `json:"blood_type,omitempty"`
	Allergies             []string  `json:"allergies"`
	ChronicDiseases       []string  `json:"chronic_diseases"`
	EmergencyContactName  *string   `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone *string   `json:"emergency_contact_phone,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

type DoctorProfile struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	HospitalID      uuid.UUID `json:"hospital_id"`
	DepartmentID    uuid.UUID `json:"department_id"`
	Title           *string   `json:"title,omitempty"`
	Specialty       string    `json:"specialty"`
	LicenseNumber   *string   `json:"license_number,omitempty"`
	ConsultationFee int64     `json:"consultation_fee"`
	Currency        string    `json:"currency"`
	SlotMinutes     int       `json:"slot_minutes"`
	Bio             *string   `json:"bio,omitempty"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Joined for display.
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	HospitalName   string `json:"hospital_name,omitempty"`
	DepartmentName string `json:"department_name,omitempty"`
}

// DisplayName is "Title First Last".
func (d *DoctorProfile) DisplayName() string {
	name := d.FirstName + " " + d.LastName
	if d.Title != nil && *d.Title != "" {
		return *d.Title + " " + name
	}
	return name
}

// DoctorFilter narrows the public doctor directory.
type DoctorFilter struct {
	HospitalID   *uuid.UUID
	DepartmentID *uuid.UUID
	Specialty    string
	Query        string
}

// -- requests --

type RegisterRequest struct {
	Email       string  `json:"email" validate:"required,email,max=255"`
	Password    string  `json:"password" validate:"required,min=8,max=72"`
	FirstName   string  `json:"first_name" validate:"required,max=100"`
	LastName    string  `json:"last_name" validate:"required,max=100"`
	Phone       *string `json:"phone" validate:"omitempty,phone"`
	DateOfBirth *string `json:"date_of_birth" validate:"omitempty,date"`
	Gender      *string `json:"gender" validate:"omitempty,oneof=MALE FEMALE OTHER"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type UpdateMeRequest struct {
	FirstName string  `json:"first_name" validate:"required,max=100"`
	LastName  string  `json:"last_name" validate:"required,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,phone"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72,nefield=CurrentPassword"`
}

type PatientProfileRequest struct {
	DateOfBirth           *string  `json:"date_of_birth" validate:"omitempty,date"`
	Gender                *string  `json:"gender" validate:"omitempty,oneof=MALE FEMALE OTHER"`
	BloodType             *string  `json:"blood_type" validate:"omitempty,oneof=A+ A- B+ B- AB+ AB- 0+ 0-"`
	Allergies             []string `json:"allergies" validate:"omitempty,dive,max=100"`
	ChronicDiseases       []string `json:"chronic_diseases" validate:"omitempty,dive,max=100"`
	EmergencyContactName  *string  `json:"emergency_contact_name" validate:"omitempty,max=200"`
	EmergencyContactPhone *string  `json:"emergency_contact_phone" validate:"omitempty,phone"`
}

type DoctorProfileRequest struct {
	Title           *string `json:"title" validate:"omitempty,max=50"`
	Specialty       string  `json:"specialty" validate:"required,max=100"`
	ConsultationFee int64   `json:"consultation_fee" validate:"gte=0"`
	SlotMinutes     int     `json:"slot_minutes" validate:"required,min=5,max=240"`
	Bio             *string `json:"bio" validate:"omitempty,max=2000"`
}

type CreateDoctorRequest struct {
	Email           string    `json:"email" validate:"required,email,max=255"`
	Password        string    `json:"password" validate:"required,min=8,max=72"`
	FirstName       string    `json:"first_name" validate:"required,max=100"`
	LastName        string    `json:"last_name" validate:"required,max=100"`
	Phone           *string   `json:"phone" validate:"omitempty,phone"`
	HospitalID      uuid.UUID `json:"hospital_id" validate:"required"`
	DepartmentID    uuid.UUID `json:"department_id" validate:"required"`
	Title           *string   `json:"title" validate:"omitempty,max=50"`
	Specialty       string    `json:"specialty" validate:"required,max=100"`
	LicenseNumber   *string   `json:"license_number" validate:"omitempty,max=50"`
	ConsultationFee int64     `json:"consultation_fee" validate:"gte=0"`
	Currency        string    `json:"currency" validate:"omitempty,len=3,uppercase"`
	SlotMinutes     int       `json:"slot_minutes" validate:"omitempty,min=5,max=240"`
}

type UserStatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// AuthResult is returned by register, login and refresh.
type AuthResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	User         *User  `json:"user"`
}
