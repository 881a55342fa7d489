package billing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func jsonRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestHandler_InvoicePaymentFlow(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()

	rec := httptest.NewRecorder()
	if err := h.CreateInvoice(e.NewContext(jsonRequest(http.MethodPost, `{"patient_id":1,"total_amount":"100.00"}`), rec)); err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var inv Invoice
	json.Unmarshal(rec.Body.Bytes(), &inv)

	for _, amount := range []string{"60", "40"} {
		rec = httptest.NewRecorder()
		body := `{"invoice_id":1,"amount":` + amount + `,"payment_method":"cash"}`
		if err := h.CreatePayment(e.NewContext(jsonRequest(http.MethodPost, body), rec)); err != nil {
			t.Fatalf("create payment: %v", err)
		}
	}
	var res struct {
		InvoiceStatus  string `json:"invoice_status"`
		Reconciliation struct {
			Status   string `json:"status"`
			Overpaid bool   `json:"overpaid"`
		} `json:"reconciliation"`
	}
	json.Unmarshal(rec.Body.Bytes(), &res)
	if res.InvoiceStatus != "paid" || res.Reconciliation.Status != "paid" || res.Reconciliation.Overpaid {
		t.Errorf("unexpected payment result %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPut, `{"patient_id":1,"total_amount":"100.00","invoice_number":"FAC-HACKED"}`), rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.UpdateInvoice(c); err != nil {
		t.Fatalf("update invoice: %v", err)
	}
	var updated Invoice
	json.Unmarshal(rec.Body.Bytes(), &updated)
	if updated.InvoiceNumber != inv.InvoiceNumber {
		t.Errorf("invoice number must not change: %s -> %s", inv.InvoiceNumber, updated.InvoiceNumber)
	}
}

func TestHandler_ReconcileInvoice(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()
	f.invoice(t, "0")

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.ReconcileInvoice(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"status":"paid"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_DeletePayment(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()
	inv := f.invoice(t, "10")
	p := f.pay(t, inv.ID, "10", "")

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.DeletePayment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if _, ok := f.payments.payments[p.Payment.ID]; ok {
		t.Error("payment still stored")
	}
}

func TestHandler_CreateInvoice_BadJSON(t *testing.T) {
	h := NewHandler(newFixture().svc)
	e := echo.New()
	err := h.CreateInvoice(e.NewContext(jsonRequest(http.MethodPost, `{"patient_id":`), httptest.NewRecorder()))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}
