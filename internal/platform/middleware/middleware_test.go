package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/apperr"
)

func TestRequestID_GeneratesNew(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		rid := c.Get("request_id").(string)
		if rid == "" {
			t.Error("expected request_id to be generated")
		}
		return c.String(http.StatusOK, "ok")
	}

	h := RequestID()(handler)
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected X-Request-ID response header")
	}
}

func TestRequestID_PreservesExisting(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "my-custom-id")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		if rid := c.Get("request_id").(string); rid != "my-custom-id" {
			t.Errorf("expected my-custom-id, got %s", rid)
		}
		return c.String(http.StatusOK, "ok")
	}

	RequestID()(handler)(c)
	if rec.Header().Get(RequestIDHeader) != "my-custom-id" {
		t.Errorf("expected my-custom-id in response header, got %s", rec.Header().Get(RequestIDHeader))
	}
}

func TestLogger_LogsFinalStatus(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(zerolog.Nop())
	e.Use(RequestID(), Logger(zerolog.New(&buf)))
	e.GET("/patients/:id", func(c echo.Context) error {
		return apperr.NotFound("patient", 9)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/patients/9", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("bad log line %q: %v", buf.String(), err)
	}
	if line["status"] != float64(404) || line["route"] != "/patients/:id" || line["level"] != "warn" {
		t.Errorf("unexpected log line %v", line)
	}
}

func TestRecovery_CatchesPanic(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/panic", nil), httptest.NewRecorder())

	h := Recovery(zerolog.Nop())(func(c echo.Context) error {
		panic("test panic")
	})
	err := h(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", httpErr.Code)
	}
	if httpErr.Internal == nil || httpErr.Internal.Error() != "test panic" {
		t.Errorf("expected panic value kept as internal error, got %v", httpErr.Internal)
	}
}

func TestRecovery_PassesThrough(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/ok", nil), httptest.NewRecorder())
	h := Recovery(zerolog.Nop())(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSecurityHeaders(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	SecurityHeaders()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c)
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" || rec.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("missing security headers: %v", rec.Header())
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("expected no HSTS over plain HTTP")
	}
}

func TestRequestTimeout_SetsDeadline(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	h := RequestTimeout(50 * time.Millisecond)(func(c echo.Context) error {
		if _, ok := c.Request().Context().Deadline(); !ok {
			t.Error("expected a deadline on the request context")
		}
		return nil
	})
	h(c)
}

func TestRequestTimeout_KeepsEarlierDeadline(t *testing.T) {
	e := echo.New()
	parent, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	want, _ := parent.Deadline()
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(parent)
	c := e.NewContext(req, httptest.NewRecorder())
	h := RequestTimeout(time.Minute)(func(c echo.Context) error {
		got, ok := c.Request().Context().Deadline()
		if !ok || !got.Equal(want) {
			t.Errorf("expected deadline %v, got %v", want, got)
		}
		return nil
	})
	h(c)
}

func TestRequestTimeout_ZeroDisables(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	h := RequestTimeout(0)(func(c echo.Context) error {
		if _, ok := c.Request().Context().Deadline(); ok {
			t.Error("expected no deadline")
		}
		return nil
	})
	h(c)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
		code   string
	}{
		{"validation", apperr.Required("name"), 400, "validation", "required"},
		{"not found", apperr.NotFound("invoice", 3), 404, "not_found", "invoice_not_found"},
		{"uniqueness", apperr.Uniqueness("dni", "1"), 409, "uniqueness", "duplicate_dni"},
		{"stock", apperr.InsufficientStock(1, 10, 15), 409, "insufficient_stock", "insufficient_stock"},
		{"state", apperr.InconsistentState("invoice_cancelled", "x"), 409, "inconsistent_state", "invoice_cancelled"},
		{"dependents", apperr.DependencyExists("patient", 1, map[string]int{"appointments": 1}), 409, "dependency_exists", "patient_has_dependents"},
		{"wrapped", fmt.Errorf("create: %w", apperr.Required("x")), 400, "validation", "required"},
		{"http", echo.NewHTTPError(http.StatusBadRequest, "bad id"), 400, "http", "bad_request"},
		{"timeout", fmt.Errorf("query: %w", context.DeadlineExceeded), 504, "timeout", "deadline_exceeded"},
		{"unknown", errors.New("pq: connection reset"), 500, "internal", "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := StatusOf(tt.err)
			if status != tt.status || body.Error.Kind != tt.kind || body.Error.Code != tt.code {
				t.Errorf("got %d %s/%s, want %d %s/%s", status, body.Error.Kind, body.Error.Code, tt.status, tt.kind, tt.code)
			}
		})
	}
}

func TestErrorHandler_HidesInternalErrors(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(zerolog.New(&buf))
	e.GET("/boom", func(c echo.Context) error { return errors.New("secret dsn in message") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "secret") {
		t.Error("internal error message leaked to the client")
	}
	if !strings.Contains(buf.String(), "secret dsn in message") {
		t.Error("expected internal error to be logged")
	}
}

func TestErrorHandler_DomainErrorBody(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(zerolog.Nop())
	e.POST("/movements", func(c echo.Context) error { return apperr.InsufficientStock(4, 10, 15) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/movements", nil))
	var body ErrorBody
	json.Unmarshal(rec.Body.Bytes(), &body)
	if rec.Code != http.StatusConflict || body.Error.Details["current_stock"] != float64(10) {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}
