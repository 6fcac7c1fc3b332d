package admin

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/apperr"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/audit"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/validate"
)

var (
	ErrHospitalNotFound   = apperr.NotFound("HOSPITAL_NOT_FOUND", "hospital not found")
	ErrDepartmentNotFound = apperr.NotFound("DEPARTMENT_NOT_FOUND", "department not found")
	ErrLicenseNotFound    = apperr.NotFound("LICENSE_NOT_FOUND", "license not found")
	ErrDepartmentExists   = apperr.Conflict("DEPARTMENT_EXISTS", "the hospital already has a department with this name")
	ErrHospitalInactive   = apperr.Conflict("HOSPITAL_INACTIVE", "hospital is not active")
	ErrInvalidPlan        = apperr.Validation("INVALID_PLAN", "unknown or unpurchasable plan")
)

type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Auditor interface {
	Record(ctx context.Context, e *audit.Entry) error
}

type Service struct {
	hospitals   HospitalRepository
	departments DepartmentRepository
	licenses    LicenseRepository
	stats       StatsRepository
	tx          TxRunner
	auditor     Auditor
	logger      zerolog.Logger

	phoneRegion string
	now         func() time.Time
}

func NewService(hospitals HospitalRepository, departments DepartmentRepository, licenses LicenseRepository,
	stats StatsRepository, tx TxRunner, auditor Auditor, logger zerolog.Logger) *Service {
	return &Service{
		hospitals:   hospitals,
		departments: departments,
		licenses:    licenses,
		stats:       stats,
		tx:          tx,
		auditor:     auditor,
		logger:      logger,
		phoneRegion: "TR",
		now:         time.Now,
	}
}

// WithPhoneRegion sets the region used to normalise hospital phone numbers.
func (s *Service) WithPhoneRegion(region string) *Service {
	if region != "" {
		s.phoneRegion = region
	}
	return s
}

func (s *Service) record(ctx context.Context, actorID uuid.UUID, action, entityType string, entityID uuid.UUID, details map[string]any) {
	if s.auditor == nil {
		return
	}
	e := &audit.Entry{Action: action, EntityType: entityType, EntityID: entityID.String(), Details: details}
	if actorID != uuid.Nil {
		e.UserID = actorID.String()
	}
	if err := s.auditor.Record(ctx, e); err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("audit write failed")
	}
}

// -- Hospitals --

func (s *Service) applyHospital(h *Hospital, req *HospitalRequest) error {
	h.Name = strings.TrimSpace(req.Name)
	h.City = strings.TrimSpace(req.City)
	h.Address = req.Address
	h.Email = req.Email
	h.Phone = nil
	if req.Phone != nil && *req.Phone != "" {
		e164, err := validate.NormalizePhone(*req.Phone, s.phoneRegion)
		if err != nil {
			return apperr.Invalid("invalid phone number")
		}
		h.Phone = &e164
	}
	return nil
}

func (s *Service) CreateHospital(ctx context.Context, actorID uuid.UUID, req *HospitalRequest) (*Hospital, error) {
	h := &Hospital{IsActive: true}
	if err := s.applyHospital(h, req); err != nil {
		return nil, err
	}
	if err := s.hospitals.Create(ctx, h); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, "hospital.create", "hospital", h.ID, map[string]any{"name": h.Name})
	return h, nil
}

func (s *Service) GetHospital(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	return s.hospitals.GetByID(ctx, id)
}

// PublicHospital hides deactivated hospitals from the directory.
func (s *Service) PublicHospital(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	h, err := s.hospitals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !h.IsActive {
		return nil, ErrHospitalNotFound
	}
	return h, nil
}

func (s *Service) UpdateHospital(ctx context.Context, actorID, id uuid.UUID, req *HospitalRequest) (*Hospital, error) {
	h, err := s.hospitals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyHospital(h, req); err != nil {
		return nil, err
	}
	if err := s.hospitals.Update(ctx, h); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, "hospital.update", "hospital", h.ID, nil)
	return h, nil
}

// DeactivateHospital is the soft delete of a hospital.
func (s *Service) DeactivateHospital(ctx context.Context, actorID, id uuid.UUID) error {
	if err := s.hospitals.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.record(ctx, actorID, "hospital.deactivate", "hospital", id, nil)
	return nil
}

func (s *Service) ListHospitals(ctx context.Context, f HospitalFilter, limit, offset int) ([]*Hospital, int, error) {
	return s.hospitals.List(ctx, f, limit, offset)
}

// -- Departments --

func (s *Service) activeHospital(ctx context.Context, id uuid.UUID) error {
	h, err := s.hospitals.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !h.IsActive {
		return ErrHospitalInactive
	}
	return nil
}

func (s *Service) CreateDepartment(ctx context.Context, actorID uuid.UUID, req *CreateDepartmentRequest) (*Department, error) {
	if err := s.activeHospital(ctx, req.HospitalID); err != nil {
		return nil, err
	}
	d := &Department{
		HospitalID:  req.HospitalID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		IsActive:    true,
	}
	if err := s.departments.Create(ctx, d); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, "department.create", "department", d.ID, map[string]any{"hospital_id": d.HospitalID.String()})
	return d, nil
}

func (s *Service) GetDepartment(ctx context.Context, id uuid.UUID) (*Department, error) {
	return s.departments.GetByID(ctx, id)
}

func (s *Service) UpdateDepartment(ctx context.Context, actorID, id uuid.UUID, req *UpdateDepartmentRequest) (*Department, error) {
	d, err := s.departments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Name = strings.TrimSpace(req.Name)
	d.Description = req.Description
	if err := s.departments.Update(ctx, d); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, "department.update", "department", d.ID, nil)
	return d, nil
}

func (s *Service) DeactivateDepartment(ctx context.Context, actorID, id uuid.UUID) error {
	if err := s.departments.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.record(ctx, actorID, "department.deactivate", "department", id, nil)
	return nil
}

func (s *Service) ListDepartments(ctx context.Context, hospitalID *uuid.UUID, activeOnly bool, limit, offset int) ([]*Department, int, error) {
	return s.departments.List(ctx, hospitalID, activeOnly, limit, offset)
}

// PublicDepartments lists the active departments of an active hospital.
func (s *Service) PublicDepartments(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*Department, int, error) {
	if _, err := s.PublicHospital(ctx, hospitalID); err != nil {
		return nil, 0, err
	}
	return s.departments.List(ctx, &hospitalID, true, limit, offset)
}

// DepartmentBelongs reports whether an active department sits in the hospital.
func (s *Service) DepartmentBelongs(ctx context.Context, hospitalID, departmentID uuid.UUID) (bool, error) {
	d, err := s.departments.GetByID(ctx, departmentID)
	if errors.Is(err, ErrDepartmentNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return d.IsActive && d.HospitalID == hospitalID, nil
}

// -- Licenses --

func newLicenseKey() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "LIC-" + raw[:4] + "-" + raw[4:8] + "-" + raw[8:12] + "-" + raw[12:16]
}

func (s *Service) CreateLicense(ctx context.Context, actorID uuid.UUID, req *CreateLicenseRequest) (*License, error) {
	terms, ok := Terms(req.Plan)
	if !ok {
		return nil, ErrInvalidPlan
	}
	if err := s.activeHospital(ctx, req.HospitalID); err != nil {
		return nil, err
	}

	start := s.now().UTC()
	if req.StartsAt != nil {
		start = req.StartsAt.UTC()
	}
	l := &License{
		LicenseKey: newLicenseKey(),
		HospitalID: req.HospitalID,
		Plan:       req.Plan,
		Status:     LicenseActive,
		MaxDoctors: terms.MaxDoctors,
		StartsAt:   start,
		ExpiresAt:  start.Add(terms.Period),
	}
	if req.MaxDoctors > 0 {
		l.MaxDoctors = req.MaxDoctors
	}
	if err := s.licenses.Create(ctx, l); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, "license.create", "license", l.ID, map[string]any{
		"hospital_id": l.HospitalID.String(), "plan": l.Plan,
	})
	return l, nil
}

func (s *Service) SetLicenseStatus(ctx context.Context, actorID, id uuid.UUID, status string) (*License, error) {
	if err := s.licenses.SetStatus(ctx, id, status); err != nil {
		return nil, err
	}
	l, err := s.licenses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actorID, "license.status", "license", id, map[string]any{"status": status})
	return l, nil
}

func (s *Service) ListLicenses(ctx context.Context, hospitalID *uuid.UUID, status string, limit, offset int) ([]*License, int, error) {
	return s.licenses.List(ctx, hospitalID, status, limit, offset)
}

// MaxDoctors is the doctor limit of the hospital's current license, or 0
// without one.
func (s *Service) MaxDoctors(ctx context.Context, hospitalID uuid.UUID) (int, error) {
	l, err := s.licenses.Current(ctx, hospitalID, s.now())
	if errors.Is(err, ErrLicenseNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return l.MaxDoctors, nil
}

func (s *Service) DoctorHasActiveLicense(ctx context.Context, userID string) (bool, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return false, nil
	}
	return s.licenses.CurrentForDoctor(ctx, id, s.now())
}

// PlanPrice is the purchase price of a paid plan.
func (s *Service) PlanPrice(plan string) (int64, string, error) {
	terms, ok := Terms(plan)
	if !ok || terms.Price <= 0 {
		return 0, "", ErrInvalidPlan
	}
	return terms.Price, terms.Currency, nil
}

// ActivatePlan applies a purchased plan to a hospital. A current license is
// moved onto the plan and extended by one period from its expiry; otherwise
// a new license starts now.
func (s *Service) ActivatePlan(ctx context.Context, hospitalID uuid.UUID, plan string) (uuid.UUID, time.Time, error) {
	terms, ok := Terms(plan)
	if !ok {
		return uuid.Nil, time.Time{}, ErrInvalidPlan
	}

	var id uuid.UUID
	var expires time.Time
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.activeHospital(ctx, hospitalID); err != nil {
			return err
		}
		now := s.now().UTC()
		cur, err := s.licenses.Current(ctx, hospitalID, now)
		if err != nil && !errors.Is(err, ErrLicenseNotFound) {
			return err
		}
		if cur != nil {
			id = cur.ID
			expires = cur.ExpiresAt.Add(terms.Period)
			return s.licenses.Extend(ctx, cur.ID, plan, terms.MaxDoctors, expires)
		}
		l := &License{
			LicenseKey: newLicenseKey(),
			HospitalID: hospitalID,
			Plan:       plan,
			Status:     LicenseActive,
			MaxDoctors: terms.MaxDoctors,
			StartsAt:   now,
			ExpiresAt:  now.Add(terms.Period),
		}
		if err := s.licenses.Create(ctx, l); err != nil {
			return err
		}
		id, expires = l.ID, l.ExpiresAt
		return nil
	})
	if err != nil {
		return uuid.Nil, time.Time{}, err
	}
	s.record(ctx, uuid.Nil, "license.activate", "license", id, map[string]any{
		"hospital_id": hospitalID.String(), "plan": plan, "expires_at": expires.Format(time.RFC3339),
	})
	return id, expires, nil
}

// ExpireLicenses marks every ACTIVE license past its expiry as EXPIRED.
func (s *Service) ExpireLicenses(ctx context.Context) (int, error) {
	n, err := s.licenses.ExpireDue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info().Int64("count", n).Msg("licenses expired")
	}
	return int(n), nil
}

// -- Stats --

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.stats.Stats(ctx)
}
