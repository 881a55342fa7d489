package scheduling

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/apperr"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _ := newTestService()
	return NewHandler(svc), echo.New()
}

func postAppointment(t *testing.T, h *Handler, e *echo.Echo, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/appointments", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.CreateAppointment(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return rec
}

func TestHandler_CreateAppointment(t *testing.T) {
	h, e := newTestHandler()
	rec := postAppointment(t, h, e, `{"patient_id":1,"date":"2024-06-01","time":"10:00","type":"control"}`)
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var a Appointment
	json.Unmarshal(rec.Body.Bytes(), &a)
	if a.Status != "pending" || a.ID == 0 {
		t.Errorf("unexpected body: %+v", a)
	}
}

func TestHandler_CreateAppointment_UnknownPatient(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/appointments",
		strings.NewReader(`{"patient_id":9,"date":"2024-06-01","time":"10:00","type":"control"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	err := h.CreateAppointment(e.NewContext(req, httptest.NewRecorder()))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestHandler_ListAppointments_BadPatientFilter(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/appointments?patient_id=x", nil), httptest.NewRecorder())
	err := h.ListAppointments(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_ListAppointments(t *testing.T) {
	h, e := newTestHandler()
	postAppointment(t, h, e, `{"patient_id":1,"date":"2024-06-01","time":"10:00","type":"control"}`)
	postAppointment(t, h, e, `{"patient_id":2,"date":"2024-06-01","time":"09:00","type":"control"}`)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/appointments?date=2024-06-01", nil), rec)
	if err := h.ListAppointments(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Data  []Appointment `json:"data"`
		Total int           `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Total != 2 || body.Data[0].Time != "09:00" || body.Data[0].PatientName != "Carlos Rodríguez" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestHandler_UpdateAppointment(t *testing.T) {
	h, e := newTestHandler()
	postAppointment(t, h, e, `{"patient_id":1,"date":"2024-06-01","time":"10:00","type":"control"}`)

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(
		`{"patient_id":1,"date":"2024-06-01","time":"11:00","type":"control","status":"confirmed"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.UpdateAppointment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var a Appointment
	json.Unmarshal(rec.Body.Bytes(), &a)
	if a.Status != "confirmed" || a.Time != "11:00" {
		t.Errorf("unexpected body: %+v", a)
	}
}

func TestHandler_DeleteAppointment_NotFound(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("3")
	if err := h.DeleteAppointment(c); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
