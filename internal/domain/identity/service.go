package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/apperr"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/audit"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/auth"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/db"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/validate"
)

var (
	ErrEmailTaken         = apperr.Conflict("EMAIL_TAKEN", "email is already registered")
	ErrInvalidCredentials = apperr.Unauthorized("INVALID_CREDENTIALS", "invalid email or password")
	ErrAccountDisabled    = apperr.Unauthorized("ACCOUNT_DISABLED", "account is disabled")
	ErrWrongPassword      = apperr.Validation("INVALID_PASSWORD", "current password is incorrect")
	ErrUserNotFound       = apperr.NotFound("USER_NOT_FOUND", "user not found")
	ErrProfileNotFound    = apperr.NotFound("PROFILE_NOT_FOUND", "profile not found")
	ErrDoctorNotFound     = apperr.NotFound("DOCTOR_NOT_FOUND", "doctor not found")
	ErrDepartmentMismatch = apperr.Validation("INVALID_DEPARTMENT", "department does not belong to the hospital")
	ErrLicenseLimit       = apperr.Conflict("LICENSE_LIMIT", "the hospital license does not allow more doctors")
)

// TxRunner runs fn in one transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Tokens issues and revokes session tokens.
type Tokens interface {
	Issue(ctx context.Context, userID, tenantID, role string) (*auth.TokenPair, error)
	Consume(ctx context.Context, refresh string) (*auth.RefreshSession, error)
	Revoke(ctx context.Context, claims *auth.Claims, refresh string) error
}

// Clinics answers the hospital questions asked when a doctor is created.
type Clinics interface {
	DepartmentBelongs(ctx context.Context, hospitalID, departmentID uuid.UUID) (bool, error)
	// MaxDoctors is the doctor limit of the hospital's active license, or 0
	// when it has none.
	MaxDoctors(ctx context.Context, hospitalID uuid.UUID) (int, error)
}

type Auditor interface {
	Record(ctx context.Context, e *audit.Entry) error
}

type Service struct {
	users    UserRepository
	patients PatientRepository
	doctors  DoctorRepository
	tx       TxRunner
	tokens   Tokens
	clinics  Clinics
	auditor  Auditor
	logger   zerolog.Logger

	phoneRegion string
	slotMinutes int
	hashCost    int
}

func NewService(users UserRepository, patients PatientRepository, doctors DoctorRepository,
	tx TxRunner, tokens Tokens, clinics Clinics, auditor Auditor, logger zerolog.Logger) *Service {
	return &Service{
		users:       users,
		patients:    patients,
		doctors:     doctors,
		tx:          tx,
		tokens:      tokens,
		clinics:     clinics,
		auditor:     auditor,
		logger:      logger,
		phoneRegion: "TR",
		slotMinutes: 30,
		hashCost:    bcrypt.DefaultCost,
	}
}

// WithDefaults sets the phone region and the default slot length for new
// doctors.
func (s *Service) WithDefaults(phoneRegion string, slotMinutes int) *Service {
	if phoneRegion != "" {
		s.phoneRegion = phoneRegion
	}
	if slotMinutes > 0 {
		s.slotMinutes = slotMinutes
	}
	return s
}

func (s *Service) record(ctx context.Context, e *audit.Entry) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Record(ctx, e); err != nil {
		s.logger.Error().Err(err).Str("action", e.Action).Msg("audit write failed")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) normalizePhone(phone *string) (*string, error) {
	if phone == nil || strings.TrimSpace(*phone) == "" {
		return nil, nil
	}
	e164, err := validate.NormalizePhone(*phone, s.phoneRegion)
	if err != nil {
		return nil, apperr.Invalid("invalid phone number")
	}
	return &e164, nil
}

func (s *Service) issue(ctx context.Context, u *User) (*AuthResult, error) {
	pair, err := s.tokens.Issue(ctx, u.ID.String(), db.TenantFromContext(ctx), u.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
		User:         u,
	}, nil
}

// -- Auth --

// Register creates a patient account and its empty profile.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*AuthResult, error) {
	phone, err := s.normalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		Email:        normalizeEmail(req.Email),
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Phone:        phone,
		Role:         auth.RolePatient,
		IsActive:     true,
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.users.GetByEmail(ctx, u.Email); err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, ErrUserNotFound) {
			return err
		}
		if err := s.users.Create(ctx, u); err != nil {
			return err
		}
		return s.patients.Create(ctx, &PatientProfile{
			UserID:      u.ID,
			DateOfBirth: req.DateOfBirth,
			Gender:      req.Gender,
		})
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, &audit.Entry{UserID: u.ID.String(), Action: "user.register", EntityType: "user", EntityID: u.ID.String()})
	return s.issue(ctx, u)
}

func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResult, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}

	if err := s.users.TouchLogin(ctx, u.ID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", u.ID.String()).Msg("failed to record login time")
	}
	s.record(ctx, &audit.Entry{UserID: u.ID.String(), Action: "user.login", EntityType: "user", EntityID: u.ID.String()})
	return s.issue(ctx, u)
}

// Refresh rotates a refresh token. The old token cannot be used again.
func (s *Service) Refresh(ctx context.Context, refresh string) (*AuthResult, error) {
	sess, err := s.tokens.Consume(ctx, refresh)
	if err != nil {
		return nil, err
	}
	if tenant := db.TenantFromContext(ctx); tenant != "" && sess.TenantID != tenant {
		return nil, auth.ErrRefreshInvalid
	}

	id, err := uuid.Parse(sess.UserID)
	if err != nil {
		return nil, auth.ErrRefreshInvalid
	}
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, ErrUserNotFound) {
		return nil, auth.ErrRefreshInvalid
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}
	return s.issue(ctx, u)
}

func (s *Service) Logout(ctx context.Context, p *auth.Principal, refresh string) error {
	return s.tokens.Revoke(ctx, p.Claims, refresh)
}

// -- Account --

func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *Service) UpdateMe(ctx context.Context, userID uuid.UUID, req *UpdateMeRequest) (*User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	phone, err := s.normalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}
	u.FirstName = strings.TrimSpace(req.FirstName)
	u.LastName = strings.TrimSpace(req.LastName)
	u.Phone = phone
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, req *ChangePasswordRequest) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.CurrentPassword)) != nil {
		return ErrWrongPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}
	s.record(ctx, &audit.Entry{UserID: userID.String(), Action: "user.password_change", EntityType: "user", EntityID: userID.String()})
	return nil
}

// ContactFor returns the email and display name of a user. It lets the
// notifier address emails.
func (s *Service) ContactFor(ctx context.Context, userID string) (string, string, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return "", "", ErrUserNotFound
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return "", "", err
	}
	if !u.IsActive {
		return "", "", ErrAccountDisabled
	}
	return u.Email, u.FullName(), nil
}

// DisplayName is the user's full name, or "" when it cannot be resolved.
func (s *Service) DisplayName(ctx context.Context, userID uuid.UUID) string {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return ""
	}
	return u.FullName()
}

// -- Patient profile --

func (s *Service) GetPatientProfile(ctx context.Context, userID uuid.UUID) (*PatientProfile, error) {
	return s.patients.GetByUserID(ctx, userID)
}

func (s *Service) UpdatePatientProfile(ctx context.Context, userID uuid.UUID, req *PatientProfileRequest) (*PatientProfile, error) {
	p, err := s.patients.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	ecPhone, err := s.normalizePhone(req.EmergencyContactPhone)
	if err != nil {
		return nil, err
	}
	p.DateOfBirth = req.DateOfBirth
	p.Gender = req.Gender
	p.BloodType = req.BloodType
	p.Allergies = req.Allergies
	p.ChronicDiseases = req.ChronicDiseases
	p.EmergencyContactName = req.EmergencyContactName
	p.EmergencyContactPhone = ecPhone
	if p.Allergies == nil {
		p.Allergies = []string{}
	}
	if p.ChronicDiseases == nil {
		p.ChronicDiseases = []string{}
	}
	if err := s.patients.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// -- Doctors --

func (s *Service) DoctorByID(ctx context.Context, id uuid.UUID) (*DoctorProfile, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) DoctorByUserID(ctx context.Context, userID uuid.UUID) (*DoctorProfile, error) {
	return s.doctors.GetByUserID(ctx, userID)
}

// PublicDoctor returns an active doctor for the directory.
func (s *Service) PublicDoctor(ctx context.Context, id uuid.UUID) (*DoctorProfile, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.IsActive {
		return nil, ErrDoctorNotFound
	}
	return d, nil
}

func (s *Service) SearchDoctors(ctx context.Context, f DoctorFilter, limit, offset int) ([]*DoctorProfile, int, error) {
	return s.doctors.Search(ctx, f, limit, offset)
}

func (s *Service) UpdateDoctorProfile(ctx context.Context, userID uuid.UUID, req *DoctorProfileRequest) (*DoctorProfile, error) {
	d, err := s.doctors.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	d.Title = req.Title
	d.Specialty = req.Specialty
	d.ConsultationFee = req.ConsultationFee
	d.SlotMinutes = req.SlotMinutes
	d.Bio = req.Bio
	if err := s.doctors.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// CreateDoctor creates a DOCTOR account with its profile. The hospital must
// hold an active license with room for one more doctor.
func (s *Service) CreateDoctor(ctx context.Context, actorID uuid.UUID, req *CreateDoctorRequest) (*DoctorProfile, error) {
	phone, err := s.normalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}
	ok, err := s.clinics.DepartmentBelongs(ctx, req.HospitalID, req.DepartmentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDepartmentMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		Email:        normalizeEmail(req.Email),
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Phone:        phone,
		Role:         auth.RoleDoctor,
		IsActive:     true,
	}
	d := &DoctorProfile{
		HospitalID:      req.HospitalID,
		DepartmentID:    req.DepartmentID,
		Title:           req.Title,
		Specialty:       req.Specialty,
		LicenseNumber:   req.LicenseNumber,
		ConsultationFee: req.ConsultationFee,
		Currency:        req.Currency,
		SlotMinutes:     req.SlotMinutes,
		IsActive:        true,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
	}
	if d.Currency == "" {
		d.Currency = "TRY"
	}
	if d.SlotMinutes == 0 {
		d.SlotMinutes = s.slotMinutes
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		allowed, err := s.clinics.MaxDoctors(ctx, req.HospitalID)
		if err != nil {
			return err
		}
		count, err := s.doctors.CountByHospital(ctx, req.HospitalID)
		if err != nil {
			return err
		}
		if count >= allowed {
			return ErrLicenseLimit.WithMessage("the hospital license allows %d doctors", allowed)
		}

		if _, err := s.users.GetByEmail(ctx, u.Email); err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, ErrUserNotFound) {
			return err
		}
		if err := s.users.Create(ctx, u); err != nil {
			return err
		}
		d.UserID = u.ID
		return s.doctors.Create(ctx, d)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, &audit.Entry{
		UserID: actorID.String(), Action: "doctor.create", EntityType: "doctor", EntityID: d.ID.String(),
		Details: map[string]any{"user_id": u.ID.String(), "hospital_id": d.HospitalID.String()},
	})
	return d, nil
}

// -- Admin --

func (s *Service) ListUsers(ctx context.Context, role, q string, limit, offset int) ([]*User, int, error) {
	if role != "" && !auth.ValidRole(role) {
		return nil, 0, apperr.Invalid("unknown role %q", role)
	}
	return s.users.Search(ctx, role, q, limit, offset)
}

// SetUserActive enables or disables an account. Admins cannot disable
// themselves.
func (s *Service) SetUserActive(ctx context.Context, actorID, userID uuid.UUID, active bool) (*User, error) {
	if actorID == userID && !active {
		return nil, apperr.Invalid("you cannot deactivate your own account")
	}
	if err := s.users.SetActive(ctx, userID, active); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.record(ctx, &audit.Entry{
		UserID: actorID.String(), Action: "user.status", EntityType: "user", EntityID: userID.String(),
		Details: map[string]any{"is_active": active},
	})
	return u, nil
}
