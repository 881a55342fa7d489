package billing

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/clinic/clinic/pkg/pagination"
)

type InvoiceRepository interface {
	// Create inserts inv with its InvoiceNumber already set. A clash on the
	// number returns a uniqueness error with code duplicate_invoice_number.
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, id int64) (*Invoice, error)
	// GetForUpdate reads the invoice and locks its row until the
	// surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*Invoice, error)
	List(ctx context.Context, f InvoiceFilter, pg pagination.Params) ([]*Invoice, int, error)
	// Update writes everything except the invoice number.
	Update(ctx context.Context, inv *Invoice) error
	SetStatus(ctx context.Context, id int64, status string) error
	Delete(ctx context.Context, id int64) error
	Dependents(ctx context.Context, id int64) (map[string]int, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id int64) (*Payment, error)
	GetForUpdate(ctx context.Context, id int64) (*Payment, error)
	List(ctx context.Context, f PaymentFilter, pg pagination.Params) ([]*Payment, int, error)
	Update(ctx context.Context, p *Payment) error
	Delete(ctx context.Context, id int64) error
	// CompletedSum adds up the completed payments of an invoice.
	CompletedSum(ctx context.Context, invoiceID int64) (decimal.Decimal, error)
}

type PatientLookup interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

type AppointmentLookup interface {
	PatientOf(ctx context.Context, id int64) (int64, error)
}
