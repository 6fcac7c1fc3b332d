package medication

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/domain/identity"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/domain/scheduling"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/apperr"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/audit"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/auth"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/notification"
)

var (
	ErrPrescriptionNotFound = apperr.NotFound("PRESCRIPTION_NOT_FOUND", "prescription not found")
	ErrAppointmentNotReady  = apperr.Conflict("INVALID_STATUS", "prescriptions need a confirmed or completed appointment")
)

type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Appointments reads appointments with the caller's visibility applied.
type Appointments interface {
	Get(ctx context.Context, p *auth.Principal, id uuid.UUID) (*scheduling.Appointment, error)
}

type Directory interface {
	DoctorByUserID(ctx context.Context, userID uuid.UUID) (*identity.DoctorProfile, error)
}

type Notifier interface {
	Notify(ctx context.Context, m notification.Message) error
}

type Auditor interface {
	Record(ctx context.Context, e *audit.Entry) error
}

type Service struct {
	prescriptions PrescriptionRepository
	appointments  Appointments
	directory     Directory
	tx            TxRunner
	notifier      Notifier
	auditor       Auditor
	logger        zerolog.Logger
	now           func() time.Time
}

func NewService(prescriptions PrescriptionRepository, appointments Appointments, directory Directory,
	tx TxRunner, notifier Notifier, auditor Auditor, logger zerolog.Logger) *Service {
	return &Service{
		prescriptions: prescriptions,
		appointments:  appointments,
		directory:     directory,
		tx:            tx,
		notifier:      notifier,
		auditor:       auditor,
		logger:        logger,
		now:           time.Now,
	}
}

// Create writes a prescription for an appointment of the calling doctor.
// The appointment must be CONFIRMED or COMPLETED.
func (s *Service) Create(ctx context.Context, caller *auth.Principal, req *CreateRequest) (*Prescription, error) {
	doc, err := s.directory.DoctorByUserID(ctx, caller.UID())
	if err != nil {
		return nil, err
	}
	a, err := s.appointments.Get(ctx, caller, req.AppointmentID)
	if err != nil {
		return nil, err
	}
	if a.DoctorID != doc.ID {
		return nil, scheduling.ErrAppointmentNotFound
	}
	if a.Status != scheduling.StatusConfirmed && a.Status != scheduling.StatusCompleted {
		return nil, ErrAppointmentNotReady
	}

	now := s.now()
	if req.ValidUntil != nil && *req.ValidUntil < now.Format("2006-01-02") {
		return nil, apperr.Invalid("valid_until must not be in the past")
	}

	p := &Prescription{
		AppointmentID: a.ID,
		DoctorID:      doc.ID,
		PatientID:     a.PatientID,
		Diagnosis:     strings.TrimSpace(req.Diagnosis),
		Medications: lo.Map(req.Medications, func(it Item, _ int) Item {
			it.Name = strings.TrimSpace(it.Name)
			return it
		}),
		Notes:             req.Notes,
		ValidUntil:        req.ValidUntil,
		DoctorName:        doc.DisplayName(),
		PatientName:       a.PatientName,
		AppointmentNumber: a.AppointmentNumber,
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		seq, err := s.prescriptions.NextNumber(ctx, now.Year())
		if err != nil {
			return err
		}
		p.PrescriptionNumber = fmt.Sprintf("RX%d%06d", now.Year(), seq)
		return s.prescriptions.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("prescription_id", p.ID.String()).
		Str("number", p.PrescriptionNumber).
		Str("appointment_id", a.ID.String()).
		Int("items", len(p.Medications)).
		Msg("prescription created")

	if s.notifier != nil {
		m := notification.Message{
			UserID:   p.PatientID.String(),
			Template: notification.PrescriptionCreated,
			Data:     map[string]string{"doctor_name": p.DoctorName, "number": p.PrescriptionNumber},
			Link:     "/patient/prescriptions/" + p.ID.String(),
		}
		if err := s.notifier.Notify(ctx, m); err != nil {
			s.logger.Error().Err(err).Str("prescription_id", p.ID.String()).Msg("notification failed")
		}
	}
	if s.auditor != nil {
		e := &audit.Entry{
			UserID:     caller.UserID,
			Action:     "prescription.create",
			EntityType: "prescription",
			EntityID:   p.ID.String(),
			Details:    map[string]any{"number": p.PrescriptionNumber, "appointment_id": a.ID.String()},
		}
		if err := s.auditor.Record(ctx, e); err != nil {
			s.logger.Error().Err(err).Msg("audit write failed")
		}
	}
	return p, nil
}

// Get returns the prescription to its patient, its doctor or an admin.
func (s *Service) Get(ctx context.Context, caller *auth.Principal, id uuid.UUID) (*Prescription, error) {
	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case caller.IsAdmin():
		return p, nil
	case caller.Is(auth.RolePatient):
		if p.PatientID == caller.UID() {
			return p, nil
		}
	case caller.Is(auth.RoleDoctor):
		doc, err := s.directory.DoctorByUserID(ctx, caller.UID())
		if err != nil {
			return nil, err
		}
		if p.DoctorID == doc.ID {
			return p, nil
		}
	}
	return nil, ErrPrescriptionNotFound
}

// ListForDoctor returns the doctor's prescriptions, optionally for one patient.
func (s *Service) ListForDoctor(ctx context.Context, doctorUserID uuid.UUID, patientID *uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	doc, err := s.directory.DoctorByUserID(ctx, doctorUserID)
	if err != nil {
		return nil, 0, err
	}
	return s.prescriptions.List(ctx, Filter{DoctorID: &doc.ID, PatientID: patientID}, limit, offset)
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	return s.prescriptions.List(ctx, Filter{PatientID: &patientID}, limit, offset)
}
