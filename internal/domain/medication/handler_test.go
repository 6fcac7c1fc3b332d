package medication

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/domain/scheduling"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/apperr"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/auth"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/validate"
)

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = validate.New("TR")
	return e
}

func jsonRequest(method, path, body string, p *auth.Principal) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req.WithContext(auth.WithPrincipal(req.Context(), p))
}

func TestHandler_Create(t *testing.T) {
	env := newTestEnv(t)
	a := env.appointment(scheduling.StatusConfirmed)
	h := NewHandler(env.svc)

	body := `{"appointment_id":"` + a.ID.String() + `","diagnosis":"Migraine","medications":[` +
		`{"name":"Ibuprofen","dosage":"400mg","frequency":"2x daily","duration":"5 days"}],"valid_until":"2025-07-01"}`
	rec := httptest.NewRecorder()
	c := newEcho().NewContext(jsonRequest(http.MethodPost, "/api/v1/doctor/prescriptions", body, env.doctorPrincipal()), rec)

	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var resp struct {
		Data Prescription `json:"data"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Data.PrescriptionNumber != "RX2025000001" || len(resp.Data.Medications) != 1 {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_Create_Validation(t *testing.T) {
	env := newTestEnv(t)
	a := env.appointment(scheduling.StatusConfirmed)
	h := NewHandler(env.svc)

	cases := map[string]string{
		"no medications": `{"appointment_id":"` + a.ID.String() + `","diagnosis":"x","medications":[]}`,
		"incomplete item": `{"appointment_id":"` + a.ID.String() + `","diagnosis":"x","medications":[{"name":"Ibuprofen"}]}`,
		"bad date": `{"appointment_id":"` + a.ID.String() + `","diagnosis":"x","valid_until":"July",` +
			`"medications":[{"name":"a","dosage":"b","frequency":"c","duration":"d"}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c := newEcho().NewContext(jsonRequest(http.MethodPost, "/", body, env.doctorPrincipal()), httptest.NewRecorder())
			if err := h.Create(c); apperr.From(err).Status != http.StatusBadRequest {
				t.Errorf("expected 400, got %v", err)
			}
		})
	}
}

func TestHandler_Create_PendingAppointment(t *testing.T) {
	env := newTestEnv(t)
	a := env.appointment(scheduling.StatusPending)
	h := NewHandler(env.svc)

	body := `{"appointment_id":"` + a.ID.String() + `","diagnosis":"x","medications":[{"name":"a","dosage":"b","frequency":"c","duration":"d"}]}`
	c := newEcho().NewContext(jsonRequest(http.MethodPost, "/", body, env.doctorPrincipal()), httptest.NewRecorder())
	if err := h.Create(c); apperr.From(err).Status != http.StatusConflict {
		t.Errorf("expected 409, got %v", err)
	}
}

func TestHandler_ListForPatient(t *testing.T) {
	env := newTestEnv(t)
	a := env.appointment(scheduling.StatusCompleted)
	if _, err := env.svc.Create(t.Context(), env.doctorPrincipal(), request(a.ID)); err != nil {
		t.Fatal(err)
	}
	h := NewHandler(env.svc)

	rec := httptest.NewRecorder()
	c := newEcho().NewContext(jsonRequest(http.MethodGet, "/api/v1/patient/prescriptions", "", env.patientPrincipal()), rec)
	if err := h.ListForPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Data []Prescription `json:"data"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Data) != 1 {
		t.Errorf("expected 1 prescription, got %s", rec.Body.String())
	}
}

func TestHandler_ListForDoctor_BadPatientID(t *testing.T) {
	env := newTestEnv(t)
	h := NewHandler(env.svc)
	c := newEcho().NewContext(jsonRequest(http.MethodGet, "/?patient_id=abc", "", env.doctorPrincipal()), httptest.NewRecorder())
	if err := h.ListForDoctor(c); apperr.From(err).Status != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}
