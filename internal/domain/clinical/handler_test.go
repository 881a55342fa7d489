package clinical

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/apperr"
)

func TestHandler_CreateEntry(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/api/clinical-histories",
		strings.NewReader(`{"patient_id":1,"appointment_id":10,"reason":"fiebre"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.CreateEntry(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var entry HistoryEntry
	json.Unmarshal(rec.Body.Bytes(), &entry)
	if entry.AppointmentID == nil || *entry.AppointmentID != 10 {
		t.Errorf("unexpected body: %+v", entry)
	}
}

func TestHandler_CreateEntry_Mismatch(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/api/clinical-histories",
		strings.NewReader(`{"patient_id":1,"appointment_id":20,"reason":"fiebre"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	err := h.CreateEntry(e.NewContext(req, httptest.NewRecorder()))
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHandler_ListEntries(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	svc.CreateEntry(context.Background(), &HistoryEntry{PatientID: 2, Reason: "x"})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/clinical-histories?patient_id=2", nil), rec)
	if err := h.ListEntries(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Total int `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Total != 1 {
		t.Errorf("expected 1, got %d", body.Total)
	}
}
