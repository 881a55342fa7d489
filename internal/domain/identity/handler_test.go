package identity

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

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestHandler_CreatePatient(t *testing.T) {
	h, e := newTestHandler()
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/patients", `{"name":"John Doe","dni":"999"}`), rec)

	if err := h.CreatePatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var p Patient
	json.Unmarshal(rec.Body.Bytes(), &p)
	if p.ID == 0 || p.Name != "John Doe" {
		t.Errorf("unexpected body: %+v", p)
	}
}

func TestHandler_CreatePatient_MissingName(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/patients", `{"dni":"1"}`), httptest.NewRecorder())
	if err := h.CreatePatient(c); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHandler_GetPatient(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/patients", `{"name":"Ana"}`), httptest.NewRecorder())
	h.CreatePatient(c)

	rec := httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.GetPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_GetPatient_NotFound(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("42")
	if err := h.GetPatient(c); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestHandler_GetPatient_BadID(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("abc")
	err := h.GetPatient(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_ListPatients(t *testing.T) {
	h, e := newTestHandler()
	for _, name := range []string{"B", "A"} {
		c := e.NewContext(jsonRequest(http.MethodPost, "/api/patients", `{"name":"`+name+`"}`), httptest.NewRecorder())
		h.CreatePatient(c)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/patients?limit=1", nil), rec)
	if err := h.ListPatients(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Data    []Patient `json:"data"`
		Total   int       `json:"total"`
		HasMore bool      `json:"has_more"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Total != 2 || len(body.Data) != 1 || body.Data[0].Name != "A" || !body.HasMore {
		t.Errorf("unexpected list body: %+v", body)
	}
}

func TestHandler_UpdatePatient(t *testing.T) {
	h, e := newTestHandler()
	h.CreatePatient(e.NewContext(jsonRequest(http.MethodPost, "/", `{"name":"Old"}`), httptest.NewRecorder()))

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPut, "/", `{"name":"New"}`), rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.UpdatePatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var p Patient
	json.Unmarshal(rec.Body.Bytes(), &p)
	if p.Name != "New" || p.ID != 1 {
		t.Errorf("unexpected body: %+v", p)
	}
}

func TestHandler_DeletePatient(t *testing.T) {
	h, e := newTestHandler()
	h.CreatePatient(e.NewContext(jsonRequest(http.MethodPost, "/", `{"name":"Temp"}`), httptest.NewRecorder()))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.DeletePatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}
