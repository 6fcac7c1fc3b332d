package medication

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/domain/identity"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/domain/scheduling"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/apperr"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/audit"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/auth"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/notification"
)

// -- Mocks --

type mockPrescriptionRepo struct {
	items map[uuid.UUID]*Prescription
	seq   int64
}

func newMockPrescriptionRepo() *mockPrescriptionRepo {
	return &mockPrescriptionRepo{items: make(map[uuid.UUID]*Prescription)}
}

func (m *mockPrescriptionRepo) Create(_ context.Context, p *Prescription) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.items[p.ID] = p
	return nil
}

func (m *mockPrescriptionRepo) GetByID(_ context.Context, id uuid.UUID) (*Prescription, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, ErrPrescriptionNotFound
	}
	return p, nil
}

func (m *mockPrescriptionRepo) List(_ context.Context, f Filter, _, _ int) ([]*Prescription, int, error) {
	var out []*Prescription
	for _, p := range m.items {
		if f.DoctorID != nil && p.DoctorID != *f.DoctorID {
			continue
		}
		if f.PatientID != nil && p.PatientID != *f.PatientID {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *mockPrescriptionRepo) NextNumber(context.Context, int) (int64, error) {
	m.seq++
	return m.seq, nil
}

type fakeAppointments struct {
	items map[uuid.UUID]*scheduling.Appointment
}

func (f *fakeAppointments) Get(_ context.Context, p *auth.Principal, id uuid.UUID) (*scheduling.Appointment, error) {
	a, ok := f.items[id]
	if !ok {
		return nil, scheduling.ErrAppointmentNotFound
	}
	if !p.IsAdmin() && a.PatientID != p.UID() && a.DoctorUserID != p.UID() {
		return nil, scheduling.ErrAppointmentNotFound
	}
	return a, nil
}

type fakeDirectory struct {
	doctors map[uuid.UUID]*identity.DoctorProfile // by user id
}

func (f *fakeDirectory) DoctorByUserID(_ context.Context, userID uuid.UUID) (*identity.DoctorProfile, error) {
	d, ok := f.doctors[userID]
	if !ok {
		return nil, identity.ErrDoctorNotFound
	}
	return d, nil
}

type passthroughTx struct{}

func (passthroughTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type recordingNotifier struct {
	sent []notification.Message
}

func (r *recordingNotifier) Notify(_ context.Context, m notification.Message) error {
	r.sent = append(r.sent, m)
	return nil
}

type testEnv struct {
	svc          *Service
	repo         *mockPrescriptionRepo
	appointments *fakeAppointments
	notifier     *recordingNotifier
	audit        *audit.MemoryStore
	doctor       *identity.DoctorProfile
	patientID    uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	title := "Dr."
	doctor := &identity.DoctorProfile{ID: uuid.New(), UserID: uuid.New(), Title: &title, FirstName: "Elif", LastName: "Kaya", IsActive: true}
	env := &testEnv{
		repo:         newMockPrescriptionRepo(),
		appointments: &fakeAppointments{items: make(map[uuid.UUID]*scheduling.Appointment)},
		notifier:     &recordingNotifier{},
		audit:        audit.NewMemoryStore(),
		doctor:       doctor,
		patientID:    uuid.New(),
	}
	dir := &fakeDirectory{doctors: map[uuid.UUID]*identity.DoctorProfile{doctor.UserID: doctor}}
	env.svc = NewService(env.repo, env.appointments, dir, passthroughTx{}, env.notifier, env.audit, zerolog.Nop())
	env.svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return env
}

func (env *testEnv) appointment(status scheduling.Status) *scheduling.Appointment {
	a := &scheduling.Appointment{
		ID:                uuid.New(),
		AppointmentNumber: "RNV2025000001",
		PatientID:         env.patientID,
		DoctorID:          env.doctor.ID,
		DoctorUserID:      env.doctor.UserID,
		Status:            status,
		PatientName:       "Ayse Yilmaz",
	}
	env.appointments.items[a.ID] = a
	return a
}

func (env *testEnv) doctorPrincipal() *auth.Principal {
	return &auth.Principal{UserID: env.doctor.UserID.String(), Role: auth.RoleDoctor}
}

func (env *testEnv) patientPrincipal() *auth.Principal {
	return &auth.Principal{UserID: env.patientID.String(), Role: auth.RolePatient}
}

func request(appointmentID uuid.UUID) *CreateRequest {
	return &CreateRequest{
		AppointmentID: appointmentID,
		Diagnosis:     "Acute bronchitis",
		Medications: []Item{
			{Name: " Amoxicillin ", Dosage: "500mg", Frequency: "3x daily", Duration: "7 days"},
		},
	}
}

func TestCreate(t *testing.T) {
	env := newTestEnv(t)
	a := env.appointment(scheduling.StatusConfirmed)

	rx, err := env.svc.Create(context.Background(), env.doctorPrincipal(), request(a.ID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rx.PrescriptionNumber != "RX2025000001" {
		t.Errorf("unexpected number %q", rx.PrescriptionNumber)
	}
	if rx.PatientID != env.patientID || rx.DoctorID != env.doctor.ID {
		t.Error("prescription should reference the appointment's patient and doctor")
	}
	if rx.Medications[0].Name != "Amoxicillin" {
		t.Errorf("medication name not trimmed: %q", rx.Medications[0].Name)
	}
	if rx.DoctorName != "Dr. Elif Kaya" {
		t.Errorf("unexpected doctor name %q", rx.DoctorName)
	}

	if len(env.notifier.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(env.notifier.sent))
	}
	n := env.notifier.sent[0]
	if n.UserID != env.patientID.String() || n.Template != notification.PrescriptionCreated || n.Data["number"] != "RX2025000001" {
		t.Errorf("unexpected notification %+v", n)
	}
	if entries := env.audit.Entries(); len(entries) != 1 || entries[0].Action != "prescription.create" {
		t.Errorf("unexpected audit trail %+v", entries)
	}
}

func TestCreate_CompletedAppointment(t *testing.T) {
	env := newTestEnv(t)
	a := env.appointment(scheduling.StatusCompleted)
	if _, err := env.svc.Create(context.Background(), env.doctorPrincipal(), request(a.ID)); err != nil {
		t.Fatalf("completed appointment should accept prescriptions: %v", err)
	}
}

func TestCreate_AppointmentNotReady(t *testing.T) {
	for _, status := range []scheduling.Status{scheduling.StatusPending, scheduling.StatusCancelled} {
		t.Run(string(status), func(t *testing.T) {
			env := newTestEnv(t)
			a := env.appointment(status)
			_, err := env.svc.Create(context.Background(), env.doctorPrincipal(), request(a.ID))
			if !errors.Is(err, ErrAppointmentNotReady) {
				t.Errorf("expected INVALID_STATUS, got %v", err)
			}
			if len(env.repo.items) != 0 || len(env.notifier.sent) != 0 {
				t.Error("nothing may be written for an ineligible appointment")
			}
		})
	}
}

func TestCreate_OtherDoctorsAppointment(t *testing.T) {
	env := newTestEnv(t)
	a := env.appointment(scheduling.StatusConfirmed)
	a.DoctorID = uuid.New()
	a.DoctorUserID = uuid.New()

	_, err := env.svc.Create(context.Background(), env.doctorPrincipal(), request(a.ID))
	if !errors.Is(err, scheduling.ErrAppointmentNotFound) {
		t.Errorf("expected APPOINTMENT_NOT_FOUND, got %v", err)
	}
}

func TestCreate_ValidUntilInPast(t *testing.T) {
	env := newTestEnv(t)
	a := env.appointment(scheduling.StatusConfirmed)
	req := request(a.ID)
	past := "2025-05-31"
	req.ValidUntil = &past

	_, err := env.svc.Create(context.Background(), env.doctorPrincipal(), req)
	if apperr.From(err).Code != apperr.CodeValidation {
		t.Errorf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestCreate_NumbersIncrease(t *testing.T) {
	env := newTestEnv(t)
	a := env.appointment(scheduling.StatusConfirmed)
	for i := 1; i <= 3; i++ {
		rx, err := env.svc.Create(context.Background(), env.doctorPrincipal(), request(a.ID))
		if err != nil {
			t.Fatal(err)
		}
		if want := fmt.Sprintf("RX2025%06d", i); rx.PrescriptionNumber != want {
			t.Errorf("got %q, want %q", rx.PrescriptionNumber, want)
		}
	}
}

func TestGet_Visibility(t *testing.T) {
	env := newTestEnv(t)
	a := env.appointment(scheduling.StatusConfirmed)
	rx, err := env.svc.Create(context.Background(), env.doctorPrincipal(), request(a.ID))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := env.svc.Get(ctx, env.patientPrincipal(), rx.ID); err != nil {
		t.Errorf("patient should see own prescription: %v", err)
	}
	if _, err := env.svc.Get(ctx, env.doctorPrincipal(), rx.ID); err != nil {
		t.Errorf("doctor should see own prescription: %v", err)
	}
	if _, err := env.svc.Get(ctx, &auth.Principal{UserID: uuid.NewString(), Role: auth.RoleAdmin}, rx.ID); err != nil {
		t.Errorf("admin should see any prescription: %v", err)
	}
	stranger := &auth.Principal{UserID: uuid.NewString(), Role: auth.RolePatient}
	if _, err := env.svc.Get(ctx, stranger, rx.ID); !errors.Is(err, ErrPrescriptionNotFound) {
		t.Errorf("expected PRESCRIPTION_NOT_FOUND, got %v", err)
	}
}

func TestList(t *testing.T) {
	env := newTestEnv(t)
	a := env.appointment(scheduling.StatusConfirmed)
	if _, err := env.svc.Create(context.Background(), env.doctorPrincipal(), request(a.ID)); err != nil {
		t.Fatal(err)
	}
	env.repo.items[uuid.New()] = &Prescription{DoctorID: uuid.New(), PatientID: uuid.New()}
	ctx := context.Background()

	if _, total, _ := env.svc.ListForDoctor(ctx, env.doctor.UserID, nil, 20, 0); total != 1 {
		t.Errorf("doctor should see 1 prescription, got %d", total)
	}
	other := uuid.New()
	if _, total, _ := env.svc.ListForDoctor(ctx, env.doctor.UserID, &other, 20, 0); total != 0 {
		t.Errorf("patient filter should exclude, got %d", total)
	}
	if _, total, _ := env.svc.ListForPatient(ctx, env.patientID, 20, 0); total != 1 {
		t.Errorf("patient should see 1 prescription, got %d", total)
	}
	if _, _, err := env.svc.ListForDoctor(ctx, uuid.New(), nil, 20, 0); !errors.Is(err, identity.ErrDoctorNotFound) {
		t.Errorf("unknown doctor: expected DOCTOR_NOT_FOUND, got %v", err)
	}
}
