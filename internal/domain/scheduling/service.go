package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/domain/identity"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/apperr"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/audit"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/auth"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/notification"
)

const instrumentationName = "github.com/Hatice4217/lum-nex-next-sub000/internal/domain/scheduling"

var (
	ErrAppointmentNotFound = apperr.NotFound("APPOINTMENT_NOT_FOUND", "appointment not found")
	ErrBlockedSlotNotFound = apperr.NotFound("BLOCKED_SLOT_NOT_FOUND", "blocked slot not found")
	ErrSlotNotAvailable    = apperr.Conflict("SLOT_NOT_AVAILABLE", "the doctor already has an appointment in this time range")
	ErrSlotBlocked         = apperr.Conflict("SLOT_BLOCKED", "the doctor is not available in this time range")
	ErrInvalidStatus       = apperr.Conflict("INVALID_STATUS", "the appointment cannot move to the requested status")
	ErrNotStarted          = apperr.Validation("APPOINTMENT_NOT_STARTED", "the appointment has not started yet")
)

// batchSize caps the rows a worker job handles per run.
const batchSize = 500

const dateLayout = "2006-01-02"

type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Directory resolves doctors and display names.
type Directory interface {
	DoctorByID(ctx context.Context, id uuid.UUID) (*identity.DoctorProfile, error)
	DoctorByUserID(ctx context.Context, userID uuid.UUID) (*identity.DoctorProfile, error)
	DisplayName(ctx context.Context, userID uuid.UUID) string
}

type Notifier interface {
	Notify(ctx context.Context, m notification.Message) error
}

type Auditor interface {
	Record(ctx context.Context, e *audit.Entry) error
}

// Options tune clock-dependent behaviour.
type Options struct {
	// Location is the clinic's wall clock; appointment dates and times are
	// read in it.
	Location *time.Location
	// MeetingBaseURL prefixes the room of an online appointment.
	MeetingBaseURL string
	// CompletionGrace is how long after its end a confirmed appointment is
	// completed by the worker.
	CompletionGrace time.Duration
	// ReminderLead is how far ahead of the start the reminder goes out.
	ReminderLead time.Duration
	// DefaultSlotMinutes applies to doctors without a slot length.
	DefaultSlotMinutes int
}

type Service struct {
	appointments AppointmentRepository
	hours        WorkingHoursRepository
	blocked      BlockedSlotRepository
	directory    Directory
	tx           TxRunner
	notifier     Notifier
	auditor      Auditor
	logger       zerolog.Logger
	opts         Options

	now func() time.Time

	booked    metric.Int64Counter
	conflicts metric.Int64Counter
}

func NewService(appointments AppointmentRepository, hours WorkingHoursRepository, blocked BlockedSlotRepository,
	directory Directory, tx TxRunner, notifier Notifier, auditor Auditor, logger zerolog.Logger, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.DefaultSlotMinutes <= 0 {
		opts.DefaultSlotMinutes = 30
	}

	meter := otel.Meter(instrumentationName)
	booked, _ := meter.Int64Counter("appointments_booked_total",
		metric.WithDescription("Appointments created"))
	conflicts, _ := meter.Int64Counter("appointment_conflicts_total",
		metric.WithDescription("Bookings rejected because the slot was taken"))

	return &Service{
		appointments: appointments,
		hours:        hours,
		blocked:      blocked,
		directory:    directory,
		tx:           tx,
		notifier:     notifier,
		auditor:      auditor,
		logger:       logger,
		opts:         opts,
		now:          time.Now,
		booked:       booked,
		conflicts:    conflicts,
	}
}

// clock is the current time on the clinic's wall clock.
func (s *Service) clock() time.Time {
	return s.now().In(s.opts.Location)
}

// wallTime places date and an HH:MM clock (24:00 allowed) on the clinic's
// wall clock.
func (s *Service) wallTime(date, hhmm string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, date, s.opts.Location)
	if err != nil {
		return time.Time{}, err
	}
	var minutes int
	if hhmm == "24:00" {
		minutes = 24 * 60
	} else if minutes, err = clockMinutes(hhmm); err != nil {
		return time.Time{}, err
	}
	return d.Add(time.Duration(minutes) * time.Minute), nil
}

func (s *Service) notify(ctx context.Context, userID uuid.UUID, template string, data map[string]string, a *Appointment) {
	if s.notifier == nil || userID == uuid.Nil {
		return
	}
	m := notification.Message{
		UserID:   userID.String(),
		Template: template,
		Data:     data,
		Link:     "/appointments/" + a.ID.String(),
	}
	if err := s.notifier.Notify(ctx, m); err != nil {
		s.logger.Error().Err(err).Str("template", template).Str("appointment_id", a.ID.String()).Msg("notification failed")
	}
}

func (s *Service) record(ctx context.Context, actorID *uuid.UUID, action string, a *Appointment, details map[string]any) {
	if s.auditor == nil {
		return
	}
	e := &audit.Entry{Action: action, EntityType: "appointment", EntityID: a.ID.String(), Details: details}
	if actorID != nil {
		e.UserID = actorID.String()
	}
	if err := s.auditor.Record(ctx, e); err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("audit write failed")
	}
}

// activeDoctor hides inactive doctors behind DOCTOR_NOT_FOUND.
func (s *Service) activeDoctor(ctx context.Context, id uuid.UUID) (*identity.DoctorProfile, error) {
	doc, err := s.directory.DoctorByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doc.IsActive {
		return nil, identity.ErrDoctorNotFound
	}
	return doc, nil
}

// parseSlot validates start and end and returns the slot and its length.
func parseSlot(start, end string) (Slot, int, error) {
	startMin, err := clockMinutes(start)
	if err != nil {
		return Slot{}, 0, apperr.Invalid("invalid start_time")
	}
	endMin, err := clockMinutes(end)
	if err != nil {
		return Slot{}, 0, apperr.Invalid("invalid end_time")
	}
	if startMin >= endMin {
		return Slot{}, 0, apperr.Invalid("start_time must be before end_time")
	}
	return Slot{Start: start, End: end}, endMin - startMin, nil
}

// -- Conflict check --

// CheckConflict reports whether [start, end) on date collides with an
// appointment of the doctor that still holds its slot. A failed read is
// returned as an error, never as "no conflict".
func (s *Service) CheckConflict(ctx context.Context, doctorID uuid.UUID, date, start, end string) (bool, error) {
	slot, _, err := parseSlot(start, end)
	if err != nil {
		return false, err
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return false, apperr.Invalid("invalid date")
	}
	if _, err := s.activeDoctor(ctx, doctorID); err != nil {
		return false, err
	}
	return s.conflicting(ctx, doctorID, date, slot)
}

func (s *Service) conflicting(ctx context.Context, doctorID uuid.UUID, date string, slot Slot) (bool, error) {
	existing, err := s.appointments.ActiveForDoctorDate(ctx, doctorID, date)
	if err != nil {
		return false, fmt.Errorf("load appointments for conflict check: %w", err)
	}
	return HasConflict(existing, slot), nil
}

func (s *Service) blockedAt(ctx context.Context, doctorID uuid.UUID, date string, slot Slot) (bool, error) {
	blocks, err := s.blocked.ListByDoctor(ctx, doctorID, date, date)
	if err != nil {
		return false, fmt.Errorf("load blocked slots: %w", err)
	}
	return lo.ContainsBy(blocks, func(b *BlockedSlot) bool {
		return Overlaps(b.Slot(), slot)
	}), nil
}

// -- Booking --

// Book creates a PENDING appointment for the patient. The conflict check
// and the insert run in one transaction holding the doctor's day lock.
func (s *Service) Book(ctx context.Context, patientID uuid.UUID, req *BookRequest) (*Appointment, error) {
	day, err := time.ParseInLocation(dateLayout, req.Date, s.opts.Location)
	if err != nil {
		return nil, apperr.Invalid("invalid date")
	}
	startMin, err := clockMinutes(req.StartTime)
	if err != nil {
		return nil, apperr.Invalid("invalid start_time")
	}

	doc, err := s.activeDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}

	end := req.EndTime
	duration := req.Duration
	if end == "" {
		if duration <= 0 {
			duration = doc.SlotMinutes
		}
		if duration <= 0 {
			duration = s.opts.DefaultSlotMinutes
		}
		if startMin+duration > 24*60 {
			return nil, apperr.Invalid("appointment must end by midnight")
		}
		end = formatClock(startMin + duration)
	} else {
		endMin, err := clockMinutes(end)
		if err != nil {
			return nil, apperr.Invalid("invalid end_time")
		}
		if startMin >= endMin {
			return nil, apperr.Invalid("start_time must be before end_time")
		}
		duration = endMin - startMin
	}
	slot := Slot{Start: req.StartTime, End: end}

	now := s.clock()
	if day.Before(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.opts.Location)) {
		return nil, apperr.Invalid("date must not be in the past")
	}
	if starts := day.Add(time.Duration(startMin) * time.Minute); !starts.After(now) {
		return nil, apperr.Invalid("start_time must be in the future")
	}

	a := &Appointment{
		PatientID:    patientID,
		DoctorID:     doc.ID,
		HospitalID:   doc.HospitalID,
		DepartmentID: doc.DepartmentID,
		Date:         req.Date,
		StartTime:    slot.Start,
		EndTime:      slot.End,
		Duration:     duration,
		Status:       StatusPending,
		Reason:       req.Reason,
		Symptoms:     req.Symptoms,
		Notes:        req.Notes,
		IsOnline:     req.IsOnline,
	}
	if a.IsOnline && s.opts.MeetingBaseURL != "" {
		room := strings.TrimRight(s.opts.MeetingBaseURL, "/") + "/clinic-" + uuid.NewString()
		a.MeetingURL = &room
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.appointments.LockDoctorDay(ctx, doc.ID, req.Date); err != nil {
			return err
		}
		blocked, err := s.blockedAt(ctx, doc.ID, req.Date, slot)
		if err != nil {
			return err
		}
		if blocked {
			return ErrSlotBlocked
		}
		taken, err := s.conflicting(ctx, doc.ID, req.Date, slot)
		if err != nil {
			return err
		}
		if taken {
			s.conflicts.Add(ctx, 1)
			return ErrSlotNotAvailable
		}

		n, err := s.appointments.NextNumber(ctx, now.Year())
		if err != nil {
			return err
		}
		a.AppointmentNumber = fmt.Sprintf("RNV%d%06d", now.Year(), n)
		return s.appointments.Create(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	s.booked.Add(ctx, 1)

	a.PatientName = s.directory.DisplayName(ctx, patientID)
	a.DoctorName = doc.DisplayName()
	a.DoctorUserID = doc.UserID
	a.HospitalName = doc.HospitalName
	a.DepartmentName = doc.DepartmentName

	s.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("number", a.AppointmentNumber).
		Str("doctor_id", doc.ID.String()).
		Str("date", a.Date).
		Str("start_time", a.StartTime).
		Msg("appointment booked")

	s.notify(ctx, doc.UserID, notification.AppointmentCreated, map[string]string{
		"patient_name": a.PatientName,
		"date":         a.Date,
		"time":         a.StartTime,
		"number":       a.AppointmentNumber,
	}, a)
	s.record(ctx, &patientID, "appointment.create", a, map[string]any{
		"number":     a.AppointmentNumber,
		"doctor_id":  doc.ID.String(),
		"date":       a.Date,
		"start_time": a.StartTime,
		"end_time":   a.EndTime,
	})
	return a, nil
}

// -- Reads --

func canSee(p *auth.Principal, a *Appointment) bool {
	switch {
	case p.IsAdmin():
		return true
	case p.Is(auth.RolePatient):
		return a.PatientID == p.UID()
	case p.Is(auth.RoleDoctor):
		return a.DoctorUserID == p.UID()
	}
	return false
}

// Get returns the appointment to its participants and admins. Everyone else
// gets APPOINTMENT_NOT_FOUND.
func (s *Service) Get(ctx context.Context, p *auth.Principal, id uuid.UUID) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSee(p, a) {
		return nil, ErrAppointmentNotFound
	}
	return a, nil
}

// List scopes the filter to the caller: patients see their own, doctors
// theirs, admins everything.
func (s *Service) List(ctx context.Context, p *auth.Principal, f AppointmentFilter, limit, offset int) ([]*Appointment, int, error) {
	switch {
	case p.IsAdmin():
	case p.Is(auth.RolePatient):
		uid := p.UID()
		f.PatientID = &uid
		f.DoctorID = nil
	case p.Is(auth.RoleDoctor):
		doc, err := s.directory.DoctorByUserID(ctx, p.UID())
		if err != nil {
			return nil, 0, err
		}
		f.DoctorID = &doc.ID
		f.PatientID = nil
	default:
		return nil, 0, apperr.ErrForbidden
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, apperr.Invalid("invalid status %q", f.Status)
	}
	return s.appointments.Search(ctx, f, limit, offset)
}

// -- Status changes --

// move applies a state machine transition. The repository update is
// conditional on the status read here, so a lost race is ErrInvalidStatus.
func (s *Service) move(ctx context.Context, a *Appointment, to Status, reason *string, by *uuid.UUID) error {
	if a.Status.Terminal() {
		return ErrInvalidStatus.WithMessage("appointment is already %s", a.Status)
	}
	if !a.Status.CanTransitionTo(to) {
		return ErrInvalidStatus.WithMessage("cannot move appointment from %s to %s", a.Status, to)
	}
	now := s.now()
	t := Transition{ID: a.ID, From: a.Status, To: to, At: now, Reason: reason, By: by}
	if err := s.appointments.Transition(ctx, t); err != nil {
		return err
	}

	a.Status = to
	a.UpdatedAt = now
	switch to {
	case StatusConfirmed:
		a.ConfirmedAt = &now
	case StatusCompleted:
		a.CompletedAt = &now
	case StatusCancelled:
		a.CancelledAt = &now
		a.CancellationReason = reason
		a.CancelledBy = by
	}
	return nil
}

func isDoctorOf(p *auth.Principal, a *Appointment) bool {
	return p.Is(auth.RoleDoctor) && a.DoctorUserID == p.UID()
}

func (s *Service) confirmed(ctx context.Context, actorID *uuid.UUID, a *Appointment, via string) {
	s.notify(ctx, a.PatientID, notification.AppointmentConfirmed, map[string]string{
		"number":      a.AppointmentNumber,
		"date":        a.Date,
		"time":        a.StartTime,
		"doctor_name": a.DoctorName,
	}, a)
	s.record(ctx, actorID, "appointment.confirm", a, map[string]any{"via": via})
}

// Confirm moves a PENDING appointment to CONFIRMED. Only the appointment's
// doctor or an admin may confirm.
func (s *Service) Confirm(ctx context.Context, p *auth.Principal, id uuid.UUID) (*Appointment, error) {
	a, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && !isDoctorOf(p, a) {
		return nil, apperr.ErrForbidden.WithMessage("only the doctor or an admin can confirm an appointment")
	}
	if err := s.move(ctx, a, StatusConfirmed, nil, nil); err != nil {
		return nil, err
	}
	actor := p.UID()
	s.confirmed(ctx, &actor, a, "manual")
	return a, nil
}

// Cancel moves a PENDING or CONFIRMED appointment to CANCELLED and tells
// the other party.
func (s *Service) Cancel(ctx context.Context, p *auth.Principal, id uuid.UUID, reason string) (*Appointment, error) {
	a, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}

	var why *string
	if r := strings.TrimSpace(reason); r != "" {
		why = &r
	}
	actor := p.UID()
	if err := s.move(ctx, a, StatusCancelled, why, &actor); err != nil {
		return nil, err
	}

	shown := "-"
	if why != nil {
		shown = *why
	}
	data := map[string]string{
		"number": a.AppointmentNumber,
		"date":   a.Date,
		"time":   a.StartTime,
		"reason": shown,
	}
	switch {
	case p.Is(auth.RolePatient):
		s.notify(ctx, a.DoctorUserID, notification.AppointmentCancelled, data, a)
	case p.Is(auth.RoleDoctor):
		s.notify(ctx, a.PatientID, notification.AppointmentCancelled, data, a)
	default:
		s.notify(ctx, a.PatientID, notification.AppointmentCancelled, data, a)
		s.notify(ctx, a.DoctorUserID, notification.AppointmentCancelled, data, a)
	}
	s.record(ctx, &actor, "appointment.cancel", a, map[string]any{"reason": shown, "role": p.Role})
	return a, nil
}

// Complete moves a CONFIRMED appointment to COMPLETED once it has started.
func (s *Service) Complete(ctx context.Context, p *auth.Principal, id uuid.UUID) (*Appointment, error) {
	a, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && !isDoctorOf(p, a) {
		return nil, apperr.ErrForbidden.WithMessage("only the doctor or an admin can complete an appointment")
	}
	starts, err := s.wallTime(a.Date, a.StartTime)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if a.Status == StatusConfirmed && starts.After(s.clock()) {
		return nil, ErrNotStarted
	}
	if err := s.move(ctx, a, StatusCompleted, nil, nil); err != nil {
		return nil, err
	}
	actor := p.UID()
	s.completed(ctx, &actor, a, "manual")
	return a, nil
}

func (s *Service) completed(ctx context.Context, actorID *uuid.UUID, a *Appointment, via string) {
	s.notify(ctx, a.PatientID, notification.AppointmentCompleted, map[string]string{
		"number": a.AppointmentNumber,
		"date":   a.Date,
	}, a)
	s.record(ctx, actorID, "appointment.complete", a, map[string]any{"via": via})
}

// -- Payment hooks --

// PaymentQuote returns the consultation fee the patient owes for a PENDING
// appointment.
func (s *Service) PaymentQuote(ctx context.Context, appointmentID, patientID uuid.UUID) (int64, string, error) {
	a, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return 0, "", err
	}
	if a.PatientID != patientID {
		return 0, "", ErrAppointmentNotFound
	}
	if a.Status != StatusPending {
		return 0, "", ErrInvalidStatus.WithMessage("only pending appointments can be paid")
	}
	doc, err := s.directory.DoctorByID(ctx, a.DoctorID)
	if err != nil {
		return 0, "", err
	}
	return doc.ConsultationFee, doc.Currency, nil
}

// ConfirmPaid confirms the appointment after its payment completed.
func (s *Service) ConfirmPaid(ctx context.Context, appointmentID, patientID uuid.UUID) error {
	a, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return err
	}
	if a.PatientID != patientID {
		return ErrAppointmentNotFound
	}
	if err := s.move(ctx, a, StatusConfirmed, nil, nil); err != nil {
		return err
	}
	s.confirmed(ctx, &patientID, a, "payment")
	return nil
}

// -- Worker jobs --

// CompleteDue completes confirmed appointments that ended more than the
// completion grace ago. It returns how many it completed.
func (s *Service) CompleteDue(ctx context.Context) (int, error) {
	cutoff := s.clock().Add(-s.opts.CompletionGrace)
	due, err := s.appointments.EndedBefore(ctx, cutoff, batchSize)
	if err != nil {
		return 0, fmt.Errorf("load appointments due for completion: %w", err)
	}

	done := 0
	for _, a := range due {
		if err := s.move(ctx, a, StatusCompleted, nil, nil); err != nil {
			if errors.Is(err, ErrInvalidStatus) {
				continue
			}
			return done, err
		}
		s.completed(ctx, nil, a, "schedule")
		done++
	}
	return done, nil
}

// SendReminders notifies patients of confirmed appointments starting within
// the reminder lead. A reminder whose notification fails is retried on the
// next run.
func (s *Service) SendReminders(ctx context.Context) (int, error) {
	from := s.clock()
	due, err := s.appointments.StartingBetween(ctx, from, from.Add(s.opts.ReminderLead), batchSize)
	if err != nil {
		return 0, fmt.Errorf("load appointments due for reminder: %w", err)
	}

	sent := 0
	for _, a := range due {
		if s.notifier != nil {
			err := s.notifier.Notify(ctx, notification.Message{
				UserID:   a.PatientID.String(),
				Template: notification.AppointmentReminder,
				Data: map[string]string{
					"doctor_name": a.DoctorName,
					"date":        a.Date,
					"time":        a.StartTime,
					"number":      a.AppointmentNumber,
				},
				Link: "/appointments/" + a.ID.String(),
			})
			if err != nil {
				s.logger.Error().Err(err).Str("appointment_id", a.ID.String()).Msg("reminder failed")
				continue
			}
		}
		if err := s.appointments.MarkReminded(ctx, a.ID, s.now()); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

// -- Doctor workspace --

func (s *Service) GetWorkingHours(ctx context.Context, doctorUserID uuid.UUID) ([]*WorkingHours, error) {
	doc, err := s.directory.DoctorByUserID(ctx, doctorUserID)
	if err != nil {
		return nil, err
	}
	return s.hours.ListByDoctor(ctx, doc.ID)
}

// ReplaceWorkingHours swaps the doctor's weekly plan. Windows on the same
// day must not overlap.
func (s *Service) ReplaceWorkingHours(ctx context.Context, doctorUserID uuid.UUID, req *WorkingHoursRequest) ([]*WorkingHours, error) {
	doc, err := s.directory.DoctorByUserID(ctx, doctorUserID)
	if err != nil {
		return nil, err
	}

	hours := make([]*WorkingHours, 0, len(req.Hours))
	for _, e := range req.Hours {
		if _, _, err := parseSlot(e.StartTime, e.EndTime); err != nil {
			return nil, err
		}
		hours = append(hours, &WorkingHours{
			DoctorID:  doc.ID,
			DayOfWeek: e.DayOfWeek,
			StartTime: e.StartTime,
			EndTime:   e.EndTime,
			IsActive:  true,
		})
	}
	sort.SliceStable(hours, func(i, j int) bool {
		if hours[i].DayOfWeek != hours[j].DayOfWeek {
			return hours[i].DayOfWeek < hours[j].DayOfWeek
		}
		return hours[i].StartTime < hours[j].StartTime
	})
	for i := 1; i < len(hours); i++ {
		prev, cur := hours[i-1], hours[i]
		if prev.DayOfWeek == cur.DayOfWeek && prev.EndTime > cur.StartTime {
			return nil, apperr.Invalid("working hours overlap on day %d", cur.DayOfWeek)
		}
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		return s.hours.Replace(ctx, doc.ID, hours)
	})
	if err != nil {
		return nil, err
	}
	if s.auditor != nil {
		e := &audit.Entry{UserID: doctorUserID.String(), Action: "schedule.update", EntityType: "doctor", EntityID: doc.ID.String(),
			Details: map[string]any{"windows": len(hours)}}
		if err := s.auditor.Record(ctx, e); err != nil {
			s.logger.Error().Err(err).Str("action", e.Action).Msg("audit write failed")
		}
	}
	return hours, nil
}

func (s *Service) ListBlockedSlots(ctx context.Context, doctorUserID uuid.UUID, dateFrom, dateTo string) ([]*BlockedSlot, error) {
	doc, err := s.directory.DoctorByUserID(ctx, doctorUserID)
	if err != nil {
		return nil, err
	}
	return s.blocked.ListByDoctor(ctx, doc.ID, dateFrom, dateTo)
}

// CreateBlockedSlot closes a time range for booking. Appointments already
// in it are left alone.
func (s *Service) CreateBlockedSlot(ctx context.Context, doctorUserID uuid.UUID, req *BlockedSlotRequest) (*BlockedSlot, error) {
	doc, err := s.directory.DoctorByUserID(ctx, doctorUserID)
	if err != nil {
		return nil, err
	}
	if _, _, err := parseSlot(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	if req.Date < s.clock().Format(dateLayout) {
		return nil, apperr.Invalid("date must not be in the past")
	}

	b := &BlockedSlot{
		DoctorID:  doc.ID,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Reason:    req.Reason,
	}
	if err := s.blocked.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) DeleteBlockedSlot(ctx context.Context, doctorUserID, id uuid.UUID) error {
	doc, err := s.directory.DoctorByUserID(ctx, doctorUserID)
	if err != nil {
		return err
	}
	return s.blocked.Delete(ctx, doc.ID, id)
}

// Dashboard summarises the doctor's day.
func (s *Service) Dashboard(ctx context.Context, doctorUserID uuid.UUID) (*Dashboard, error) {
	doc, err := s.directory.DoctorByUserID(ctx, doctorUserID)
	if err != nil {
		return nil, err
	}
	today := s.clock().Format(dateLayout)

	items, _, err := s.appointments.Search(ctx, AppointmentFilter{DoctorID: &doc.ID, DateFrom: today, DateTo: today}, 100, 0)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].StartTime < items[j].StartTime })

	counts, err := s.appointments.CountByStatus(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	_, upcoming, err := s.appointments.Search(ctx, AppointmentFilter{DoctorID: &doc.ID, Status: StatusConfirmed, DateFrom: today}, 1, 0)
	if err != nil {
		return nil, err
	}

	if items == nil {
		items = []*Appointment{}
	}
	return &Dashboard{
		Date:     today,
		Today:    items,
		ByStatus: counts,
		Pending:  counts[StatusPending],
		Upcoming: upcoming,
	}, nil
}
