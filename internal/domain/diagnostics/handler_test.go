package diagnostics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestHandler_CreateAndGetExam(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/api/exams", strings.NewReader(`{"patient_id":1,"exam_type":"glucemia"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.CreateExam(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.GetExam(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var exam Exam
	json.Unmarshal(rec.Body.Bytes(), &exam)
	if exam.PatientName != "Ana Martínez" || exam.Status != "pending" {
		t.Errorf("unexpected body: %+v", exam)
	}
}

func TestHandler_UpdateExam(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/exams", strings.NewReader(`{"patient_id":1,"exam_type":"rx"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	h.CreateExam(e.NewContext(req, httptest.NewRecorder()))

	req = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"patient_id":1,"exam_type":"rx","status":"completed","results":"ok"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.UpdateExam(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var exam Exam
	json.Unmarshal(rec.Body.Bytes(), &exam)
	if exam.Status != "completed" || exam.Results != "ok" {
		t.Errorf("unexpected body: %+v", exam)
	}
}
