package billing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clinic/clinic/internal/rules"
)

// Invoice maps to the invoices table. InvoiceNumber is assigned on create
// and never changes; PatientName is filled on reads.
type Invoice struct {
	ID            int64           `json:"id"`
	PatientID     int64           `json:"patient_id"`
	PatientName   string          `json:"patient_name,omitempty"`
	AppointmentID *int64          `json:"appointment_id"`
	InvoiceNumber string          `json:"invoice_number"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// InvoiceInput is the writable part of an invoice. TotalAmount is a pointer
// so a missing total can be told apart from zero.
type InvoiceInput struct {
	PatientID     int64            `json:"patient_id"`
	AppointmentID *int64           `json:"appointment_id"`
	TotalAmount   *decimal.Decimal `json:"total_amount"`
	Status        string           `json:"status"`
}

// Payment maps to the payments table. InvoiceNumber is filled on reads.
type Payment struct {
	ID            int64           `json:"id"`
	InvoiceID     int64           `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	Reference     string          `json:"reference"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type PaymentInput struct {
	InvoiceID     int64            `json:"invoice_id"`
	Amount        *decimal.Decimal `json:"amount"`
	PaymentMethod string           `json:"payment_method"`
	Reference     string           `json:"reference"`
	Status        string           `json:"status"`
}

// PaymentResult is returned by payment writes: the payment plus the state of
// its invoice after reconciliation.
type PaymentResult struct {
	Payment        *Payment             `json:"payment"`
	InvoiceStatus  string               `json:"invoice_status"`
	Reconciliation rules.Reconciliation `json:"reconciliation"`
}

type InvoiceFilter struct {
	PatientID int64
	Status    string
}

type PaymentFilter struct {
	InvoiceID int64
}

func (in *InvoiceInput) normalize() {
	in.Status = strings.TrimSpace(in.Status)
	if in.AppointmentID != nil && *in.AppointmentID == 0 {
		in.AppointmentID = nil
	}
}

func (in *PaymentInput) normalize() {
	in.PaymentMethod = strings.TrimSpace(in.PaymentMethod)
	in.Reference = strings.TrimSpace(in.Reference)
	in.Status = strings.TrimSpace(in.Status)
}
