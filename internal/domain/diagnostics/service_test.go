package diagnostics

import (
	"context"
	"errors"
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

type mockResultRepo struct {
	items map[uuid.UUID]*TestResult
}

func newMockResultRepo() *mockResultRepo {
	return &mockResultRepo{items: make(map[uuid.UUID]*TestResult)}
}

func (m *mockResultRepo) Create(_ context.Context, r *TestResult) error {
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	cp := *r
	m.items[r.ID] = &cp
	return nil
}

func (m *mockResultRepo) GetByID(_ context.Context, id uuid.UUID) (*TestResult, error) {
	r, ok := m.items[id]
	if !ok {
		return nil, ErrTestResultNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockResultRepo) Update(_ context.Context, r *TestResult) error {
	if _, ok := m.items[r.ID]; !ok {
		return ErrTestResultNotFound
	}
	cp := *r
	m.items[r.ID] = &cp
	return nil
}

func (m *mockResultRepo) List(_ context.Context, f Filter, _, _ int) ([]*TestResult, int, error) {
	var out []*TestResult
	for _, r := range m.items {
		if f.DoctorID != nil && r.DoctorID != *f.DoctorID {
			continue
		}
		if f.PatientID != nil && r.PatientID != *f.PatientID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		out = append(out, r)
	}
	return out, len(out), nil
}

type fakeDirectory struct {
	doctors  map[uuid.UUID]*identity.DoctorProfile // by user id
	patients map[uuid.UUID]bool
}

func (f *fakeDirectory) DoctorByUserID(_ context.Context, userID uuid.UUID) (*identity.DoctorProfile, error) {
	d, ok := f.doctors[userID]
	if !ok {
		return nil, identity.ErrDoctorNotFound
	}
	return d, nil
}

func (f *fakeDirectory) GetPatientProfile(_ context.Context, userID uuid.UUID) (*identity.PatientProfile, error) {
	if !f.patients[userID] {
		return nil, identity.ErrProfileNotFound
	}
	return &identity.PatientProfile{ID: uuid.New(), UserID: userID}, nil
}

type fakeAppointments struct {
	items map[uuid.UUID]*scheduling.Appointment
}

func (f *fakeAppointments) Get(_ context.Context, p *auth.Principal, id uuid.UUID) (*scheduling.Appointment, error) {
	a, ok := f.items[id]
	if !ok || (a.DoctorUserID != p.UID() && a.PatientID != p.UID()) {
		return nil, scheduling.ErrAppointmentNotFound
	}
	return a, nil
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
	repo         *mockResultRepo
	appointments *fakeAppointments
	notifier     *recordingNotifier
	audit        *audit.MemoryStore
	doctor       *identity.DoctorProfile
	patientID    uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	doctor := &identity.DoctorProfile{ID: uuid.New(), UserID: uuid.New(), FirstName: "Can", LastName: "Demir"}
	patientID := uuid.New()
	env := &testEnv{
		repo:         newMockResultRepo(),
		appointments: &fakeAppointments{items: make(map[uuid.UUID]*scheduling.Appointment)},
		notifier:     &recordingNotifier{},
		audit:        audit.NewMemoryStore(),
		doctor:       doctor,
		patientID:    patientID,
	}
	dir := &fakeDirectory{
		doctors:  map[uuid.UUID]*identity.DoctorProfile{doctor.UserID: doctor},
		patients: map[uuid.UUID]bool{patientID: true},
	}
	env.svc = NewService(env.repo, dir, env.appointments, env.notifier, env.audit, zerolog.Nop())
	return env
}

func (env *testEnv) doctorPrincipal() *auth.Principal {
	return &auth.Principal{UserID: env.doctor.UserID.String(), Role: auth.RoleDoctor}
}

func (env *testEnv) patientPrincipal() *auth.Principal {
	return &auth.Principal{UserID: env.patientID.String(), Role: auth.RolePatient}
}

func (env *testEnv) request() *CreateRequest {
	return &CreateRequest{PatientID: env.patientID, TestName: " HbA1c ", TestType: "blood", TestDate: "2025-06-01"}
}

func strPtr(s string) *string { return &s }

func TestCreate_Pending(t *testing.T) {
	env := newTestEnv(t)

	r, err := env.svc.Create(context.Background(), env.doctorPrincipal(), env.request())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.Status != StatusPending || r.TestName != "HbA1c" || r.DoctorID != env.doctor.ID {
		t.Errorf("unexpected result %+v", r)
	}
	if len(env.notifier.sent) != 0 {
		t.Error("a pending result must not notify the patient")
	}
	if entries := env.audit.Entries(); len(entries) != 1 || entries[0].Action != "test_result.create" {
		t.Errorf("unexpected audit trail %+v", entries)
	}
}

func TestCreate_CompletedNotifies(t *testing.T) {
	env := newTestEnv(t)
	req := env.request()
	req.Status = StatusCompleted
	req.Result = strPtr("5.4")

	r, err := env.svc.Create(context.Background(), env.doctorPrincipal(), req)
	if err != nil {
		t.Fatal(err)
	}
	if len(env.notifier.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(env.notifier.sent))
	}
	n := env.notifier.sent[0]
	if n.UserID != env.patientID.String() || n.Template != notification.TestResultReady || n.Data["test_name"] != "HbA1c" {
		t.Errorf("unexpected notification %+v", n)
	}
	if n.Link != "/patient/test-results/"+r.ID.String() {
		t.Errorf("unexpected link %q", n.Link)
	}
}

func TestCreate_UnknownPatient(t *testing.T) {
	env := newTestEnv(t)
	req := env.request()
	req.PatientID = uuid.New()

	if _, err := env.svc.Create(context.Background(), env.doctorPrincipal(), req); !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("expected PATIENT_NOT_FOUND, got %v", err)
	}
}

func TestCreate_AppointmentMismatch(t *testing.T) {
	env := newTestEnv(t)
	a := &scheduling.Appointment{ID: uuid.New(), DoctorID: env.doctor.ID, DoctorUserID: env.doctor.UserID, PatientID: uuid.New()}
	env.appointments.items[a.ID] = a
	req := env.request()
	req.AppointmentID = &a.ID

	_, err := env.svc.Create(context.Background(), env.doctorPrincipal(), req)
	if apperr.From(err).Code != apperr.CodeValidation {
		t.Errorf("expected VALIDATION_ERROR, got %v", err)
	}

	a.PatientID = env.patientID
	if _, err := env.svc.Create(context.Background(), env.doctorPrincipal(), req); err != nil {
		t.Errorf("matching appointment should be accepted: %v", err)
	}
}

func TestUpdate_CompletesAndNotifiesOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	r, err := env.svc.Create(ctx, env.doctorPrincipal(), env.request())
	if err != nil {
		t.Fatal(err)
	}

	got, err := env.svc.Update(ctx, env.doctorPrincipal(), r.ID, &UpdateRequest{Result: strPtr("7.9"), Status: strPtr(StatusCompleted)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Status != StatusCompleted || *env.repo.items[r.ID].Result != "7.9" {
		t.Errorf("update not stored: %+v", env.repo.items[r.ID])
	}
	if len(env.notifier.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(env.notifier.sent))
	}

	abnormal := true
	if _, err := env.svc.Update(ctx, env.doctorPrincipal(), r.ID, &UpdateRequest{IsAbnormal: &abnormal}); err != nil {
		t.Fatal(err)
	}
	if !env.repo.items[r.ID].IsAbnormal {
		t.Error("is_abnormal should be updated")
	}
	if len(env.notifier.sent) != 1 {
		t.Error("editing a completed result must not notify again")
	}

	_, err = env.svc.Update(ctx, env.doctorPrincipal(), r.ID, &UpdateRequest{Status: strPtr(StatusPending)})
	if !errors.Is(err, ErrResultReopened) {
		t.Errorf("expected INVALID_STATUS, got %v", err)
	}
}

func TestUpdate_OtherDoctor(t *testing.T) {
	env := newTestEnv(t)
	id := uuid.New()
	env.repo.items[id] = &TestResult{ID: id, DoctorID: uuid.New(), PatientID: env.patientID, Status: StatusPending}

	_, err := env.svc.Update(context.Background(), env.doctorPrincipal(), id, &UpdateRequest{Status: strPtr(StatusCompleted)})
	if !errors.Is(err, ErrTestResultNotFound) {
		t.Errorf("expected TEST_RESULT_NOT_FOUND, got %v", err)
	}
}

func TestGetAndList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	r, err := env.svc.Create(ctx, env.doctorPrincipal(), env.request())
	if err != nil {
		t.Fatal(err)
	}
	other := uuid.New()
	env.repo.items[other] = &TestResult{ID: other, DoctorID: uuid.New(), PatientID: uuid.New(), Status: StatusCompleted}

	if _, err := env.svc.Get(ctx, env.patientPrincipal(), r.ID); err != nil {
		t.Errorf("patient should see own result: %v", err)
	}
	if _, err := env.svc.Get(ctx, env.patientPrincipal(), other); !errors.Is(err, ErrTestResultNotFound) {
		t.Errorf("expected TEST_RESULT_NOT_FOUND, got %v", err)
	}
	if _, err := env.svc.Get(ctx, env.doctorPrincipal(), other); !errors.Is(err, ErrTestResultNotFound) {
		t.Errorf("expected TEST_RESULT_NOT_FOUND for another doctor's result, got %v", err)
	}

	if _, total, _ := env.svc.ListForDoctor(ctx, env.doctorPrincipal(), &env.patientID, 20, 0); total != 1 {
		t.Errorf("doctor should see 1 result, got %d", total)
	}
	if _, total, _ := env.svc.ListForPatient(ctx, env.patientID, StatusCompleted, 20, 0); total != 0 {
		t.Errorf("no completed results yet, got %d", total)
	}
	if _, _, err := env.svc.ListForPatient(ctx, env.patientID, "DONE", 20, 0); apperr.From(err).Code != apperr.CodeValidation {
		t.Errorf("expected VALIDATION_ERROR for bad status, got %v", err)
	}
}
