package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_Disabled(t *testing.T) {
	if p := New(Config{Enabled: BoolPtr(false)}); p != nil {
		t.Fatal("expected nil provider when disabled")
	}
}

func TestNilProvider_IsSafe(t *testing.T) {
	var p *Provider
	p.PaymentRecorded("completed")
	p.InvoicePaid()
	p.StockMovement("in")
	p.StockRejected()
	if p.Registry() != nil {
		t.Error("expected nil registry")
	}

	e := echo.New()
	e.Use(p.Middleware())
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestDomainCounters(t *testing.T) {
	p := New(Config{})
	p.PaymentRecorded("completed")
	p.PaymentRecorded("completed")
	p.PaymentRecorded("failed")
	p.InvoicePaid()
	p.StockMovement("out")
	p.StockRejected()

	if v := testutil.ToFloat64(p.payments.WithLabelValues("completed")); v != 2 {
		t.Errorf("expected 2 completed payments, got %v", v)
	}
	if v := testutil.ToFloat64(p.invoicesPaid); v != 1 {
		t.Errorf("expected 1 paid invoice, got %v", v)
	}
	if v := testutil.ToFloat64(p.stockMovements.WithLabelValues("out")); v != 1 {
		t.Errorf("expected 1 out movement, got %v", v)
	}
	if v := testutil.ToFloat64(p.stockRejections); v != 1 {
		t.Errorf("expected 1 rejection, got %v", v)
	}
}

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	p := New(Config{})
	e := echo.New()
	e.Use(p.Middleware())
	e.GET("/api/patients/:id", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/metrics", p.Handler())

	for i := 0; i < 3; i++ {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/patients/7", nil))
	}
	if v := testutil.ToFloat64(p.httpRequests.WithLabelValues("GET", "/api/patients/:id", "200")); v != 3 {
		t.Errorf("expected 3 requests, got %v", v)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `http_requests_total{method="GET",route="/api/patients/:id",service="clinic-server",status_code="200"} 3`) {
		t.Errorf("expected request counter in exposition, got:\n%s", body)
	}
}

func TestMiddleware_ErrorStatus(t *testing.T) {
	p := New(Config{})
	e := echo.New()
	e.Use(p.Middleware())
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusConflict, "taken") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if v := testutil.ToFloat64(p.httpRequests.WithLabelValues("GET", "/boom", "409")); v != 1 {
		t.Errorf("expected 409 to be recorded, got %v", v)
	}
}
