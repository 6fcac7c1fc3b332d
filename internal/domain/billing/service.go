package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/domain/admin"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/apperr"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/audit"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/auth"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/notification"
)

var (
	ErrPaymentNotFound      = apperr.NotFound("PAYMENT_NOT_FOUND", "payment not found")
	ErrInvalidPaymentStatus = apperr.Conflict("INVALID_STATUS", "the payment cannot move to the requested status")
	ErrCardExpired          = apperr.Validation("CARD_EXPIRED", "card has expired")
	ErrPaymentDeclined      = apperr.Validation("PAYMENT_DECLINED", "the payment was declined")
)

type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Appointments prices and confirms appointment payments.
type Appointments interface {
	PaymentQuote(ctx context.Context, appointmentID, patientID uuid.UUID) (int64, string, error)
	ConfirmPaid(ctx context.Context, appointmentID, patientID uuid.UUID) error
}

// Plans prices and activates license subscriptions.
type Plans interface {
	PlanPrice(plan string) (int64, string, error)
	ActivatePlan(ctx context.Context, hospitalID uuid.UUID, plan string) (uuid.UUID, time.Time, error)
	GetHospital(ctx context.Context, id uuid.UUID) (*admin.Hospital, error)
}

type Notifier interface {
	Notify(ctx context.Context, m notification.Message) error
}

type Auditor interface {
	Record(ctx context.Context, e *audit.Entry) error
}

type Service struct {
	payments     PaymentRepository
	gateway      Gateway
	appointments Appointments
	plans        Plans
	tx           TxRunner
	notifier     Notifier
	auditor      Auditor
	logger       zerolog.Logger
	now          func() time.Time
}

func NewService(payments PaymentRepository, gateway Gateway, appointments Appointments, plans Plans,
	tx TxRunner, notifier Notifier, auditor Auditor, logger zerolog.Logger) *Service {
	if gateway == nil {
		gateway = DemoGateway{}
	}
	return &Service{
		payments:     payments,
		gateway:      gateway,
		appointments: appointments,
		plans:        plans,
		tx:           tx,
		notifier:     notifier,
		auditor:      auditor,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *Service) record(ctx context.Context, actorID uuid.UUID, action string, p *Payment, details map[string]any) {
	if s.auditor == nil {
		return
	}
	e := &audit.Entry{UserID: actorID.String(), Action: action, EntityType: "payment", EntityID: p.ID.String(), Details: details}
	if err := s.auditor.Record(ctx, e); err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("audit write failed")
	}
}

func (s *Service) notify(ctx context.Context, userID uuid.UUID, template string, data map[string]string) {
	if s.notifier == nil {
		return
	}
	m := notification.Message{UserID: userID.String(), Template: template, Data: data, Link: "/payments"}
	if err := s.notifier.Notify(ctx, m); err != nil {
		s.logger.Error().Err(err).Str("template", template).Msg("notification failed")
	}
}

// FormatAmount renders minor units as a decimal amount, 12345 -> "123.45".
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign, minor = "-", -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// checkExpiry accepts MM/YY cards valid through the end of that month.
func checkExpiry(expiry string, now time.Time) error {
	t, err := time.Parse("01/06", expiry)
	if err != nil {
		return apperr.Invalid("expiry must be MM/YY")
	}
	endOfMonth := t.AddDate(0, 1, 0)
	if !now.UTC().Before(endOfMonth) {
		return ErrCardExpired
	}
	return nil
}

// Pay charges the card and applies the payment: an APPOINTMENT payment
// confirms the patient's pending appointment, a SUBSCRIPTION payment
// activates or extends the hospital license.
func (s *Service) Pay(ctx context.Context, caller *auth.Principal, req *PayRequest) (*Payment, error) {
	if err := checkExpiry(req.Expiry, s.now()); err != nil {
		return nil, err
	}

	userID := caller.UID()
	p := &Payment{
		UserID:   userID,
		Purpose:  req.Purpose,
		Status:   StatusPending,
		Provider: s.gateway.Name(),
	}

	var hospitalName string
	switch req.Purpose {
	case PurposeAppointment:
		if !caller.Is(auth.RolePatient) {
			return nil, apperr.ErrForbidden.WithMessage("only patients pay for appointments")
		}
		amount, currency, err := s.appointments.PaymentQuote(ctx, *req.AppointmentID, userID)
		if err != nil {
			return nil, err
		}
		p.AppointmentID = req.AppointmentID
		p.Amount, p.Currency = amount, currency
	case PurposeSubscription:
		if !caller.IsAdmin() {
			return nil, apperr.ErrForbidden.WithMessage("only admins buy subscriptions")
		}
		amount, currency, err := s.plans.PlanPrice(req.Plan)
		if err != nil {
			return nil, err
		}
		h, err := s.plans.GetHospital(ctx, *req.HospitalID)
		if err != nil {
			return nil, err
		}
		if !h.IsActive {
			return nil, admin.ErrHospitalInactive
		}
		hospitalName = h.Name
		p.Amount, p.Currency = amount, currency
	default:
		return nil, apperr.Invalid("unknown purpose %q", req.Purpose)
	}

	if err := s.payments.Create(ctx, p); err != nil {
		return nil, err
	}

	receipt, err := s.gateway.Charge(ctx, Charge{
		Amount:     p.Amount,
		Currency:   p.Currency,
		CardNumber: req.CardNumber,
		CardHolder: req.CardHolder,
		Expiry:     req.Expiry,
		CVV:        req.CVV,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("payment_id", p.ID.String()).Msg("charge declined")
		if ferr := s.payments.SetStatus(ctx, p.ID, StatusPending, StatusFailed); ferr != nil {
			s.logger.Error().Err(ferr).Str("payment_id", p.ID.String()).Msg("mark payment failed")
		}
		return nil, ErrPaymentDeclined.Wrap(err)
	}

	var expires time.Time
	paidAt := s.now()
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.payments.Complete(ctx, p.ID, receipt.Ref, receipt.Last4, paidAt); err != nil {
			return err
		}
		switch p.Purpose {
		case PurposeAppointment:
			return s.appointments.ConfirmPaid(ctx, *p.AppointmentID, userID)
		default:
			licenseID, exp, err := s.plans.ActivatePlan(ctx, *req.HospitalID, req.Plan)
			if err != nil {
				return err
			}
			expires = exp
			p.LicenseID = &licenseID
			return s.payments.AttachLicense(ctx, p.ID, licenseID)
		}
	})
	if err != nil {
		// The charge went through but nothing was recorded against it; the
		// ref is logged so the capture can be reversed by hand.
		s.logger.Error().Err(err).
			Str("payment_id", p.ID.String()).
			Str("transaction_ref", receipt.Ref).
			Msg("payment not completed after charge")
		if ferr := s.payments.SetStatus(ctx, p.ID, StatusPending, StatusFailed); ferr != nil {
			s.logger.Error().Err(ferr).Str("payment_id", p.ID.String()).Msg("mark payment failed")
		}
		return nil, err
	}

	p.Status = StatusCompleted
	p.TransactionRef = &receipt.Ref
	p.CardLast4 = &receipt.Last4
	p.PaidAt = &paidAt

	s.logger.Info().
		Str("payment_id", p.ID.String()).
		Str("purpose", p.Purpose).
		Int64("amount", p.Amount).
		Str("currency", p.Currency).
		Msg("payment completed")

	s.notify(ctx, userID, notification.PaymentCompleted, map[string]string{
		"amount":   FormatAmount(p.Amount),
		"currency": p.Currency,
		"ref":      receipt.Ref,
	})
	if p.Purpose == PurposeSubscription {
		s.notify(ctx, userID, notification.LicenseActivated, map[string]string{
			"plan":       req.Plan,
			"hospital":   hospitalName,
			"expires_at": expires.Format("2006-01-02"),
		})
	}
	s.record(ctx, userID, "payment.complete", p, map[string]any{
		"purpose":  p.Purpose,
		"amount":   p.Amount,
		"currency": p.Currency,
		"ref":      receipt.Ref,
	})
	return p, nil
}

// Get returns the payment to its owner or an admin.
func (s *Service) Get(ctx context.Context, caller *auth.Principal, id uuid.UUID) (*Payment, error) {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && p.UserID != caller.UID() {
		return nil, ErrPaymentNotFound
	}
	return p, nil
}

// List returns the caller's payments; admins see everyone's.
func (s *Service) List(ctx context.Context, caller *auth.Principal, f PaymentFilter, limit, offset int) ([]*Payment, int, error) {
	if !caller.IsAdmin() {
		uid := caller.UID()
		f.UserID = &uid
	}
	return s.payments.List(ctx, f, limit, offset)
}

// Refund marks a completed payment REFUNDED. The appointment or license it
// paid for is left as it is.
func (s *Service) Refund(ctx context.Context, actorID, id uuid.UUID) (*Payment, error) {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusCompleted {
		return nil, ErrInvalidPaymentStatus.WithMessage("only completed payments can be refunded")
	}
	if err := s.payments.SetStatus(ctx, id, StatusCompleted, StatusRefunded); err != nil {
		return nil, err
	}
	p.Status = StatusRefunded
	s.record(ctx, actorID, "payment.refund", p, map[string]any{"amount": p.Amount, "currency": p.Currency})
	return p, nil
}
