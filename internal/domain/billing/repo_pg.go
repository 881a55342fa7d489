package billing

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/pkg/pagination"
)

const invoiceNumberConstraint = "invoices_invoice_number_key"

// -- invoices --

type invoiceRepoPG struct{ pool *pgxpool.Pool }

func NewInvoiceRepoPG(pool *pgxpool.Pool) InvoiceRepository { return &invoiceRepoPG{pool: pool} }

func (r *invoiceRepoPG) conn(ctx context.Context) db.Queryable {
	return db.From(ctx, r.pool)
}

const invoiceSelect = `SELECT i.id, i.patient_id, p.name, i.appointment_id, i.invoice_number,
	i.total_amount, i.status, i.created_at, i.updated_at
	FROM invoices i LEFT JOIN patients p ON p.id = i.patient_id`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var patientName *string
	err := row.Scan(&inv.ID, &inv.PatientID, &patientName, &inv.AppointmentID, &inv.InvoiceNumber,
		&inv.TotalAmount, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if patientName == nil {
		return nil, apperr.InconsistentState("missing_patient",
			fmt.Sprintf("invoice %d references missing patient %d", inv.ID, inv.PatientID))
	}
	inv.PatientName = *patientName
	return &inv, nil
}

func (r *invoiceRepoPG) Create(ctx context.Context, inv *Invoice) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO invoices (patient_id, appointment_id, invoice_number, total_amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		inv.PatientID, inv.AppointmentID, inv.InvoiceNumber, inv.TotalAmount, inv.Status,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if db.IsUniqueViolation(err, invoiceNumberConstraint) {
		e := apperr.Uniqueness("invoice_number", inv.InvoiceNumber)
		e.Cause = err
		return e
	}
	return db.TranslateError(err, "invoice", inv.ID)
}

func (r *invoiceRepoPG) GetByID(ctx context.Context, id int64) (*Invoice, error) {
	inv, err := scanInvoice(r.conn(ctx).QueryRow(ctx, invoiceSelect+` WHERE i.id = $1`, id))
	if err != nil {
		return nil, db.TranslateError(err, "invoice", id)
	}
	return inv, nil
}

func (r *invoiceRepoPG) GetForUpdate(ctx context.Context, id int64) (*Invoice, error) {
	inv, err := scanInvoice(r.conn(ctx).QueryRow(ctx, invoiceSelect+` WHERE i.id = $1 FOR UPDATE OF i`, id))
	if err != nil {
		return nil, db.TranslateError(err, "invoice", id)
	}
	return inv, nil
}

func (r *invoiceRepoPG) List(ctx context.Context, f InvoiceFilter, pg pagination.Params) ([]*Invoice, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1
	if f.PatientID != 0 {
		where += fmt.Sprintf(` AND i.patient_id = $%d`, idx)
		args = append(args, f.PatientID)
		idx++
	}
	if f.Status != "" {
		where += fmt.Sprintf(` AND i.status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM invoices i`+where, args...).Scan(&total); err != nil {
		return nil, 0, db.TranslateError(err, "invoice", 0)
	}

	rows, err := r.conn(ctx).Query(ctx, invoiceSelect+where+` ORDER BY i.created_at DESC, i.id DESC `+pg.SQL(), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []*Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, inv)
	}
	return items, total, rows.Err()
}

func (r *invoiceRepoPG) Update(ctx context.Context, inv *Invoice) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE invoices SET patient_id = $2, appointment_id = $3, total_amount = $4,
			status = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING invoice_number, created_at, updated_at`,
		inv.ID, inv.PatientID, inv.AppointmentID, inv.TotalAmount, inv.Status,
	).Scan(&inv.InvoiceNumber, &inv.CreatedAt, &inv.UpdatedAt)
	return db.TranslateError(err, "invoice", inv.ID)
}

func (r *invoiceRepoPG) SetStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE invoices SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return db.TranslateError(err, "invoice", id)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("invoice", id)
	}
	return nil
}

func (r *invoiceRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return db.TranslateDeleteError(err, "invoice", id)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("invoice", id)
	}
	return nil
}

func (r *invoiceRepoPG) Dependents(ctx context.Context, id int64) (map[string]int, error) {
	var payments int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE invoice_id = $1`, id).Scan(&payments)
	if err != nil {
		return nil, fmt.Errorf("count invoice dependents: %w", err)
	}
	deps := map[string]int{}
	if payments > 0 {
		deps["payments"] = payments
	}
	return deps, nil
}

// -- payments --

type paymentRepoPG struct{ pool *pgxpool.Pool }

func NewPaymentRepoPG(pool *pgxpool.Pool) PaymentRepository { return &paymentRepoPG{pool: pool} }

func (r *paymentRepoPG) conn(ctx context.Context) db.Queryable {
	return db.From(ctx, r.pool)
}

const paymentSelect = `SELECT pm.id, pm.invoice_id, i.invoice_number, pm.amount, pm.payment_method,
	pm.reference, pm.status, pm.created_at, pm.updated_at
	FROM payments pm LEFT JOIN invoices i ON i.id = pm.invoice_id`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	var invoiceNumber *string
	err := row.Scan(&p.ID, &p.InvoiceID, &invoiceNumber, &p.Amount, &p.PaymentMethod,
		&p.Reference, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if invoiceNumber == nil {
		return nil, apperr.InconsistentState("missing_invoice",
			fmt.Sprintf("payment %d references missing invoice %d", p.ID, p.InvoiceID))
	}
	p.InvoiceNumber = *invoiceNumber
	return &p, nil
}

func (r *paymentRepoPG) Create(ctx context.Context, p *Payment) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO payments (invoice_id, amount, payment_method, reference, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		p.InvoiceID, p.Amount, p.PaymentMethod, p.Reference, p.Status,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return db.TranslateError(err, "payment", p.ID)
}

func (r *paymentRepoPG) GetByID(ctx context.Context, id int64) (*Payment, error) {
	p, err := scanPayment(r.conn(ctx).QueryRow(ctx, paymentSelect+` WHERE pm.id = $1`, id))
	if err != nil {
		return nil, db.TranslateError(err, "payment", id)
	}
	return p, nil
}

func (r *paymentRepoPG) GetForUpdate(ctx context.Context, id int64) (*Payment, error) {
	p, err := scanPayment(r.conn(ctx).QueryRow(ctx, paymentSelect+` WHERE pm.id = $1 FOR UPDATE OF pm`, id))
	if err != nil {
		return nil, db.TranslateError(err, "payment", id)
	}
	return p, nil
}

func (r *paymentRepoPG) List(ctx context.Context, f PaymentFilter, pg pagination.Params) ([]*Payment, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	if f.InvoiceID != 0 {
		where += ` AND pm.invoice_id = $1`
		args = append(args, f.InvoiceID)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM payments pm`+where, args...).Scan(&total); err != nil {
		return nil, 0, db.TranslateError(err, "payment", 0)
	}

	rows, err := r.conn(ctx).Query(ctx, paymentSelect+where+` ORDER BY pm.created_at DESC, pm.id DESC `+pg.SQL(), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []*Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *paymentRepoPG) Update(ctx context.Context, p *Payment) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE payments SET invoice_id = $2, amount = $3, payment_method = $4,
			reference = $5, status = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		p.ID, p.InvoiceID, p.Amount, p.PaymentMethod, p.Reference, p.Status,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.TranslateError(err, "payment", p.ID)
}

func (r *paymentRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return db.TranslateDeleteError(err, "payment", id)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("payment", id)
	}
	return nil
}

func (r *paymentRepoPG) CompletedSum(ctx context.Context, invoiceID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM payments
		WHERE invoice_id = $1 AND status = 'completed'`, invoiceID,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum completed payments of invoice %d: %w", invoiceID, err)
	}
	return sum, nil
}
