package rules

import (
	"github.com/shopspring/decimal"
)

const (
	InvoicePending   = "pending"
	InvoicePaid      = "paid"
	InvoiceCancelled = "cancelled"

	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// Reconciliation is the outcome of comparing an invoice total with its
// completed payments.
type Reconciliation struct {
	Status         string          `json:"status"`
	PreviousStatus string          `json:"previous_status"`
	Total          decimal.Decimal `json:"total_amount"`
	CompletedSum   decimal.Decimal `json:"completed_sum"`
	Outstanding    decimal.Decimal `json:"outstanding"`
	Overpaid       bool            `json:"overpaid"`
	Overpayment    decimal.Decimal `json:"overpayment"`
}

// Changed reports whether reconciliation moved the invoice to a new status.
func (r Reconciliation) Changed() bool {
	return r.Status != r.PreviousStatus
}

// Reconcile derives an invoice status from its total and the sum of its
// completed payments. Cancelled invoices are left alone. An invoice whose
// completed sum reaches the total is paid; a paid invoice that falls below
// the total (refund, failure, deletion) goes back to pending.
func Reconcile(total, completedSum decimal.Decimal, status string) Reconciliation {
	r := Reconciliation{
		Status:         status,
		PreviousStatus: status,
		Total:          total,
		CompletedSum:   completedSum,
		Outstanding:    decimal.Zero,
		Overpayment:    decimal.Zero,
	}
	if completedSum.LessThan(total) {
		r.Outstanding = total.Sub(completedSum)
	}
	if completedSum.GreaterThan(total) {
		r.Overpaid = true
		r.Overpayment = completedSum.Sub(total)
	}

	switch status {
	case InvoiceCancelled:
	case InvoicePaid:
		if completedSum.LessThan(total) {
			r.Status = InvoicePending
		}
	default:
		if completedSum.GreaterThanOrEqual(total) {
			r.Status = InvoicePaid
		}
	}
	return r
}

// CanMarkPaid reports whether an update may set status to paid by hand.
func CanMarkPaid(total, completedSum decimal.Decimal) bool {
	return completedSum.GreaterThanOrEqual(total)
}
