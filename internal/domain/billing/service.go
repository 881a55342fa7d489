package billing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/events"
	"github.com/clinic/clinic/internal/platform/telemetry"
	"github.com/clinic/clinic/internal/rules"
	"github.com/clinic/clinic/pkg/pagination"
)

var errDuplicateNumber = &apperr.Error{Kind: apperr.KindUniqueness, Code: "duplicate_invoice_number"}

type Service struct {
	invoices     InvoiceRepository
	payments     PaymentRepository
	patients     PatientLookup
	appointments AppointmentLookup
	tx           db.TxRunner

	policy    rules.Policy
	publisher events.Publisher
	metrics   *telemetry.Provider
	logger    zerolog.Logger
	now       func() time.Time
	newNumber func(time.Time) string
}

func NewService(invoices InvoiceRepository, payments PaymentRepository, patients PatientLookup, appts AppointmentLookup, tx db.TxRunner) *Service {
	return &Service{
		invoices:     invoices,
		payments:     payments,
		patients:     patients,
		appointments: appts,
		tx:           tx,
		policy:       rules.Permissive,
		publisher:    events.Nop{},
		logger:       zerolog.Nop(),
		now:          time.Now,
		newNumber:    NewInvoiceNumber,
	}
}

// SetPolicy selects how invoice and payment status updates are checked.
func (s *Service) SetPolicy(p rules.Policy) {
	s.policy = p
}

func (s *Service) SetPublisher(p events.Publisher) {
	s.publisher = p
}

func (s *Service) SetMetrics(m *telemetry.Provider) {
	s.metrics = m
}

func (s *Service) SetLogger(l zerolog.Logger) {
	s.logger = l.With().Str("component", "billing").Logger()
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// SetNumberGenerator replaces NewInvoiceNumber.
func (s *Service) SetNumberGenerator(f func(time.Time) string) {
	s.newNumber = f
}

// -- invoices --

func checkAmount(field string, v *decimal.Decimal, positive bool) error {
	if v == nil {
		return apperr.Required(field)
	}
	if v.IsNegative() || (positive && v.IsZero()) {
		want := "must not be negative"
		if positive {
			want = "must be greater than zero"
		}
		return apperr.Invalid(field, want)
	}
	if !v.Equal(v.Round(2)) {
		return apperr.Invalid(field, "must have at most two decimal places")
	}
	return nil
}

func (s *Service) validateInvoice(ctx context.Context, in *InvoiceInput) error {
	in.normalize()
	if in.PatientID == 0 {
		return apperr.Required("patient_id")
	}
	if err := checkAmount("total_amount", in.TotalAmount, false); err != nil {
		return err
	}
	ok, err := s.patients.Exists(ctx, in.PatientID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("patient", in.PatientID)
	}
	if in.AppointmentID == nil {
		return nil
	}
	owner, err := s.appointments.PatientOf(ctx, *in.AppointmentID)
	if err != nil {
		return err
	}
	if owner != in.PatientID {
		return apperr.Validation("appointment_patient_mismatch",
			fmt.Sprintf("appointment %d belongs to patient %d, not %d", *in.AppointmentID, owner, in.PatientID))
	}
	return nil
}

// CreateInvoice assigns a fresh invoice number and inserts the invoice,
// retrying with a new number when the store reports a clash.
func (s *Service) CreateInvoice(ctx context.Context, in InvoiceInput) (*Invoice, error) {
	status, err := rules.InvoiceLifecycle.Normalize(in.Status)
	if err != nil {
		return nil, err
	}
	if err := s.validateInvoice(ctx, &in); err != nil {
		return nil, err
	}
	total := *in.TotalAmount
	if status == rules.InvoicePaid && !rules.CanMarkPaid(total, decimal.Zero) {
		return nil, underpaid(0, total, decimal.Zero)
	}
	rec := rules.Reconcile(total, decimal.Zero, status)

	inv := &Invoice{
		PatientID:     in.PatientID,
		AppointmentID: in.AppointmentID,
		TotalAmount:   total,
		Status:        rec.Status,
	}
	for attempt := 1; ; attempt++ {
		inv.InvoiceNumber = s.newNumber(s.now())
		err = s.invoices.Create(ctx, inv)
		if err == nil {
			break
		}
		if !errors.Is(err, errDuplicateNumber) {
			return nil, err
		}
		s.logger.Warn().Str("invoice_number", inv.InvoiceNumber).Int("attempt", attempt).Msg("invoice number clash")
		if attempt == invoiceNumberAttempts {
			return nil, err
		}
	}
	return s.invoices.GetByID(ctx, inv.ID)
}

func underpaid(id int64, total, sum decimal.Decimal) error {
	return apperr.InconsistentState("invoice_underpaid",
		fmt.Sprintf("invoice %d cannot be paid: completed payments %s are below total %s", id, sum.StringFixed(2), total.StringFixed(2))).
		WithDetail("total_amount", total.StringFixed(2)).
		WithDetail("completed_sum", sum.StringFixed(2))
}

func (s *Service) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	return s.invoices.GetByID(ctx, id)
}

func (s *Service) ListInvoices(ctx context.Context, f InvoiceFilter, pg pagination.Params) ([]*Invoice, int, error) {
	if f.Status != "" && !rules.InvoiceLifecycle.Valid(f.Status) {
		_, err := rules.InvoiceLifecycle.Normalize(f.Status)
		return nil, 0, err
	}
	return s.invoices.List(ctx, f, pg)
}

// UpdateInvoice replaces the invoice under a row lock. The number never
// changes. Setting paid requires completed payments to cover the total, and
// the final status is always reconciled against the payments.
func (s *Service) UpdateInvoice(ctx context.Context, id int64, in InvoiceInput) (*Invoice, error) {
	if err := s.validateInvoice(ctx, &in); err != nil {
		return nil, err
	}
	var out *Invoice
	var rec rules.Reconciliation
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := s.invoices.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		status := in.Status
		if status == "" {
			status = current.Status
		}
		if err := s.policy.CheckTransition(rules.InvoiceLifecycle, current.Status, status); err != nil {
			return err
		}
		sum, err := s.payments.CompletedSum(ctx, id)
		if err != nil {
			return err
		}
		total := *in.TotalAmount
		if status == rules.InvoicePaid && current.Status != rules.InvoicePaid && !rules.CanMarkPaid(total, sum) {
			return underpaid(id, total, sum)
		}
		rec = rules.Reconcile(total, sum, status)
		rec.PreviousStatus = current.Status

		inv := &Invoice{
			ID:            id,
			PatientID:     in.PatientID,
			AppointmentID: in.AppointmentID,
			TotalAmount:   total,
			Status:        rec.Status,
		}
		if err := s.invoices.Update(ctx, inv); err != nil {
			return err
		}
		out, err = s.invoices.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterReconcile(ctx, out.ID, out.InvoiceNumber, rec)
	return out, nil
}

// DeleteInvoice refuses while payments reference the invoice.
func (s *Service) DeleteInvoice(ctx context.Context, id int64) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		deps, err := s.invoices.Dependents(ctx, id)
		if err != nil {
			return err
		}
		if len(deps) > 0 {
			return apperr.DependencyExists("invoice", id, deps)
		}
		return s.invoices.Delete(ctx, id)
	})
}

// Reconcile recomputes the invoice status from its completed payments.
// Running it twice gives the same result.
func (s *Service) Reconcile(ctx context.Context, id int64) (rules.Reconciliation, error) {
	var rec rules.Reconciliation
	var number string
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		inv, err := s.invoices.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		number = inv.InvoiceNumber
		rec, err = s.reconcileLocked(ctx, inv)
		return err
	})
	if err != nil {
		return rules.Reconciliation{}, err
	}
	s.afterReconcile(ctx, id, number, rec)
	return rec, nil
}

// reconcileLocked must run inside a transaction holding the invoice lock.
func (s *Service) reconcileLocked(ctx context.Context, inv *Invoice) (rules.Reconciliation, error) {
	sum, err := s.payments.CompletedSum(ctx, inv.ID)
	if err != nil {
		return rules.Reconciliation{}, err
	}
	rec := rules.Reconcile(inv.TotalAmount, sum, inv.Status)
	if rec.Changed() {
		if err := s.invoices.SetStatus(ctx, inv.ID, rec.Status); err != nil {
			return rules.Reconciliation{}, err
		}
		inv.Status = rec.Status
	}
	return rec, nil
}

// afterReconcile reports a status change once the transaction committed.
func (s *Service) afterReconcile(ctx context.Context, id int64, number string, rec rules.Reconciliation) {
	if !rec.Changed() {
		return
	}
	s.logger.Info().
		Int64("invoice_id", id).
		Str("invoice_number", number).
		Str("from", rec.PreviousStatus).
		Str("to", rec.Status).
		Str("completed_sum", rec.CompletedSum.StringFixed(2)).
		Msg("invoice status reconciled")
	if rec.Status != rules.InvoicePaid {
		return
	}
	s.metrics.InvoicePaid()
	if rec.Overpaid {
		s.logger.Warn().Int64("invoice_id", id).Str("overpayment", rec.Overpayment.StringFixed(2)).Msg("invoice overpaid")
	}
	events.Emit(ctx, s.publisher, s.logger, events.New(events.InvoicePaid, "invoice", id, map[string]interface{}{
		"invoice_number": number,
		"total_amount":   rec.Total.StringFixed(2),
		"completed_sum":  rec.CompletedSum.StringFixed(2),
		"overpaid":       rec.Overpaid,
	}))
}

// -- payments --

func (s *Service) validatePayment(in *PaymentInput) (string, error) {
	in.normalize()
	if in.InvoiceID == 0 {
		return "", apperr.Required("invoice_id")
	}
	if err := checkAmount("amount", in.Amount, true); err != nil {
		return "", err
	}
	if in.PaymentMethod == "" {
		return "", apperr.Required("payment_method")
	}
	if in.Status == "" {
		return "", nil
	}
	return rules.PaymentLifecycle.Normalize(in.Status)
}

func cancelledInvoice(inv *Invoice) error {
	return apperr.InconsistentState("invoice_cancelled",
		fmt.Sprintf("invoice %s is cancelled and cannot take payments", inv.InvoiceNumber)).
		WithDetail("invoice_id", inv.ID)
}

// CreatePayment records a payment against an invoice and reconciles the
// invoice in the same transaction, holding the invoice row lock.
func (s *Service) CreatePayment(ctx context.Context, in PaymentInput) (*PaymentResult, error) {
	status, err := s.validatePayment(&in)
	if err != nil {
		return nil, err
	}
	if status == "" {
		status = rules.PaymentLifecycle.Default()
	}
	var res PaymentResult
	var number string
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		inv, err := s.invoices.GetForUpdate(ctx, in.InvoiceID)
		if err != nil {
			return err
		}
		if inv.Status == rules.InvoiceCancelled {
			return cancelledInvoice(inv)
		}
		p := &Payment{
			InvoiceID:     in.InvoiceID,
			Amount:        *in.Amount,
			PaymentMethod: in.PaymentMethod,
			Reference:     in.Reference,
			Status:        status,
		}
		if err := s.payments.Create(ctx, p); err != nil {
			return err
		}
		p.InvoiceNumber = inv.InvoiceNumber
		rec, err := s.reconcileLocked(ctx, inv)
		if err != nil {
			return err
		}
		number = inv.InvoiceNumber
		res = PaymentResult{Payment: p, InvoiceStatus: inv.Status, Reconciliation: rec}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.PaymentRecorded(res.Payment.Status)
	s.afterReconcile(ctx, in.InvoiceID, number, res.Reconciliation)
	return &res, nil
}

func (s *Service) GetPayment(ctx context.Context, id int64) (*Payment, error) {
	return s.payments.GetByID(ctx, id)
}

func (s *Service) ListPayments(ctx context.Context, f PaymentFilter, pg pagination.Params) ([]*Payment, int, error) {
	return s.payments.List(ctx, f, pg)
}

// lockInvoices locks the given invoices in id order.
func (s *Service) lockInvoices(ctx context.Context, ids ...int64) (map[int64]*Invoice, error) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make(map[int64]*Invoice, len(ids))
	for _, id := range ids {
		if _, ok := out[id]; ok {
			continue
		}
		inv, err := s.invoices.GetForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = inv
	}
	return out, nil
}

type reconciled struct {
	id     int64
	number string
	rec    rules.Reconciliation
}

// UpdatePayment replaces a payment and reconciles the invoices it touches:
// the one it belonged to and, when moved, the one it now belongs to.
func (s *Service) UpdatePayment(ctx context.Context, id int64, in PaymentInput) (*PaymentResult, error) {
	status, err := s.validatePayment(&in)
	if err != nil {
		return nil, err
	}
	var res PaymentResult
	var touched []reconciled
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := s.payments.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		locked, err := s.lockInvoices(ctx, current.InvoiceID, in.InvoiceID)
		if err != nil {
			return err
		}
		target := locked[in.InvoiceID]
		if target.ID != current.InvoiceID && target.Status == rules.InvoiceCancelled {
			return cancelledInvoice(target)
		}
		if status == "" {
			status = current.Status
		}
		if err := s.policy.CheckTransition(rules.PaymentLifecycle, current.Status, status); err != nil {
			return err
		}
		p := &Payment{
			ID:            id,
			InvoiceID:     in.InvoiceID,
			Amount:        *in.Amount,
			PaymentMethod: in.PaymentMethod,
			Reference:     in.Reference,
			Status:        status,
		}
		if err := s.payments.Update(ctx, p); err != nil {
			return err
		}
		p.InvoiceNumber = target.InvoiceNumber

		for _, invID := range []int64{current.InvoiceID, in.InvoiceID} {
			inv := locked[invID]
			if len(touched) > 0 && touched[0].id == invID {
				continue
			}
			rec, err := s.reconcileLocked(ctx, inv)
			if err != nil {
				return err
			}
			touched = append(touched, reconciled{id: invID, number: inv.InvoiceNumber, rec: rec})
			if invID == in.InvoiceID {
				res = PaymentResult{Payment: p, InvoiceStatus: inv.Status, Reconciliation: rec}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, t := range touched {
		s.afterReconcile(ctx, t.id, t.number, t.rec)
	}
	return &res, nil
}

// DeletePayment removes a payment and reconciles its invoice, which may
// return a paid invoice to pending.
func (s *Service) DeletePayment(ctx context.Context, id int64) (rules.Reconciliation, error) {
	var rec rules.Reconciliation
	var inv *Invoice
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.payments.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		inv, err = s.invoices.GetForUpdate(ctx, p.InvoiceID)
		if err != nil {
			return err
		}
		if err := s.payments.Delete(ctx, id); err != nil {
			return err
		}
		rec, err = s.reconcileLocked(ctx, inv)
		return err
	})
	if err != nil {
		return rules.Reconciliation{}, err
	}
	s.afterReconcile(ctx, inv.ID, inv.InvoiceNumber, rec)
	return rec, nil
}
