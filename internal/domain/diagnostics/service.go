package diagnostics

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/domain/identity"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/domain/scheduling"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/apperr"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/audit"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/auth"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/notification"
)

var (
	ErrTestResultNotFound = apperr.NotFound("TEST_RESULT_NOT_FOUND", "test result not found")
	ErrPatientNotFound    = apperr.NotFound("PATIENT_NOT_FOUND", "patient not found")
	ErrResultReopened     = apperr.Conflict("INVALID_STATUS", "a completed test result cannot go back to pending")
)

// Directory resolves doctors and patients.
type Directory interface {
	DoctorByUserID(ctx context.Context, userID uuid.UUID) (*identity.DoctorProfile, error)
	GetPatientProfile(ctx context.Context, userID uuid.UUID) (*identity.PatientProfile, error)
}

// Appointments reads appointments with the caller's visibility applied.
type Appointments interface {
	Get(ctx context.Context, p *auth.Principal, id uuid.UUID) (*scheduling.Appointment, error)
}

type Notifier interface {
	Notify(ctx context.Context, m notification.Message) error
}

type Auditor interface {
	Record(ctx context.Context, e *audit.Entry) error
}

type Service struct {
	results      TestResultRepository
	directory    Directory
	appointments Appointments
	notifier     Notifier
	auditor      Auditor
	logger       zerolog.Logger
}

func NewService(results TestResultRepository, directory Directory, appointments Appointments,
	notifier Notifier, auditor Auditor, logger zerolog.Logger) *Service {
	return &Service{
		results:      results,
		directory:    directory,
		appointments: appointments,
		notifier:     notifier,
		auditor:      auditor,
		logger:       logger,
	}
}

func (s *Service) resultReady(ctx context.Context, r *TestResult) {
	if s.notifier == nil {
		return
	}
	m := notification.Message{
		UserID:   r.PatientID.String(),
		Template: notification.TestResultReady,
		Data:     map[string]string{"test_name": r.TestName},
		Link:     "/patient/test-results/" + r.ID.String(),
	}
	if err := s.notifier.Notify(ctx, m); err != nil {
		s.logger.Error().Err(err).Str("test_result_id", r.ID.String()).Msg("notification failed")
	}
}

func (s *Service) record(ctx context.Context, caller *auth.Principal, action string, r *TestResult) {
	if s.auditor == nil {
		return
	}
	e := &audit.Entry{
		UserID:     caller.UserID,
		Action:     action,
		EntityType: "test_result",
		EntityID:   r.ID.String(),
		Details:    map[string]any{"status": r.Status, "test_name": r.TestName},
	}
	if err := s.auditor.Record(ctx, e); err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("audit write failed")
	}
}

// ownDoctor returns the caller's doctor profile.
func (s *Service) ownDoctor(ctx context.Context, caller *auth.Principal) (*identity.DoctorProfile, error) {
	return s.directory.DoctorByUserID(ctx, caller.UID())
}

// Create records a test result ordered by the calling doctor. A result
// created as COMPLETED notifies the patient at once.
func (s *Service) Create(ctx context.Context, caller *auth.Principal, req *CreateRequest) (*TestResult, error) {
	doc, err := s.ownDoctor(ctx, caller)
	if err != nil {
		return nil, err
	}
	if _, err := s.directory.GetPatientProfile(ctx, req.PatientID); err != nil {
		if errors.Is(err, identity.ErrProfileNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	if req.AppointmentID != nil {
		a, err := s.appointments.Get(ctx, caller, *req.AppointmentID)
		if err != nil {
			return nil, err
		}
		if a.DoctorID != doc.ID || a.PatientID != req.PatientID {
			return nil, apperr.Invalid("appointment does not belong to this doctor and patient")
		}
	}

	r := &TestResult{
		PatientID:     req.PatientID,
		DoctorID:      doc.ID,
		AppointmentID: req.AppointmentID,
		TestName:      strings.TrimSpace(req.TestName),
		TestType:      strings.TrimSpace(req.TestType),
		Result:        req.Result,
		Unit:          req.Unit,
		NormalRange:   req.NormalRange,
		IsAbnormal:    req.IsAbnormal,
		Status:        req.Status,
		TestDate:      req.TestDate,
		DoctorName:    doc.DisplayName(),
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	if err := s.results.Create(ctx, r); err != nil {
		return nil, err
	}

	s.logger.Info().Str("test_result_id", r.ID.String()).Str("status", r.Status).Msg("test result created")
	if r.Status == StatusCompleted {
		s.resultReady(ctx, r)
	}
	s.record(ctx, caller, "test_result.create", r)
	return r, nil
}

// Update changes a result of the calling doctor. Moving it to COMPLETED
// notifies the patient; COMPLETED never goes back to PENDING.
func (s *Service) Update(ctx context.Context, caller *auth.Principal, id uuid.UUID, req *UpdateRequest) (*TestResult, error) {
	doc, err := s.ownDoctor(ctx, caller)
	if err != nil {
		return nil, err
	}
	r, err := s.results.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.DoctorID != doc.ID {
		return nil, ErrTestResultNotFound
	}

	before := r.Status
	if req.Status != nil {
		if before == StatusCompleted && *req.Status == StatusPending {
			return nil, ErrResultReopened
		}
		r.Status = *req.Status
	}
	if req.Result != nil {
		r.Result = req.Result
	}
	if req.Unit != nil {
		r.Unit = req.Unit
	}
	if req.NormalRange != nil {
		r.NormalRange = req.NormalRange
	}
	if req.IsAbnormal != nil {
		r.IsAbnormal = *req.IsAbnormal
	}

	if err := s.results.Update(ctx, r); err != nil {
		return nil, err
	}
	if before != StatusCompleted && r.Status == StatusCompleted {
		s.resultReady(ctx, r)
	}
	s.record(ctx, caller, "test_result.update", r)
	return r, nil
}

// Get returns the result to its patient, its doctor or an admin.
func (s *Service) Get(ctx context.Context, caller *auth.Principal, id uuid.UUID) (*TestResult, error) {
	r, err := s.results.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case caller.IsAdmin():
		return r, nil
	case caller.Is(auth.RolePatient):
		if r.PatientID == caller.UID() {
			return r, nil
		}
	case caller.Is(auth.RoleDoctor):
		doc, err := s.ownDoctor(ctx, caller)
		if err != nil {
			return nil, err
		}
		if r.DoctorID == doc.ID {
			return r, nil
		}
	}
	return nil, ErrTestResultNotFound
}

// ListForDoctor returns results the doctor ordered, optionally for one patient.
func (s *Service) ListForDoctor(ctx context.Context, caller *auth.Principal, patientID *uuid.UUID, limit, offset int) ([]*TestResult, int, error) {
	doc, err := s.ownDoctor(ctx, caller)
	if err != nil {
		return nil, 0, err
	}
	return s.results.List(ctx, Filter{DoctorID: &doc.ID, PatientID: patientID}, limit, offset)
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, status string, limit, offset int) ([]*TestResult, int, error) {
	if status != "" && status != StatusPending && status != StatusCompleted {
		return nil, 0, apperr.Invalid("invalid status %q", status)
	}
	return s.results.List(ctx, Filter{PatientID: &patientID, Status: status}, limit, offset)
}
