package scheduling

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/pkg/pagination"
)

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Queryable {
	return db.From(ctx, r.pool)
}

const apptSelect = `SELECT a.id, a.patient_id, p.name, to_char(a.date, 'YYYY-MM-DD'),
	to_char(a.time, 'HH24:MI'), a.type, a.status, a.notes, a.created_at, a.updated_at
	FROM appointments a LEFT JOIN patients p ON p.id = a.patient_id`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var patientName *string
	err := row.Scan(&a.ID, &a.PatientID, &patientName, &a.Date,
		&a.Time, &a.Type, &a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if patientName == nil {
		return nil, apperr.InconsistentState("missing_patient",
			fmt.Sprintf("appointment %d references missing patient %d", a.ID, a.PatientID))
	}
	a.PatientName = *patientName
	return &a, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (patient_id, date, time, type, status, notes)
		VALUES ($1, $2::date, $3::time, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		a.PatientID, a.Date, a.Time, a.Type, a.Status, a.Notes,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	return db.TranslateError(err, "appointment", a.ID)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, apptSelect+` WHERE a.id = $1`, id))
	if err != nil {
		return nil, db.TranslateError(err, "appointment", id)
	}
	return a, nil
}

func (r *appointmentRepoPG) GetForUpdate(ctx context.Context, id int64) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, apptSelect+` WHERE a.id = $1 FOR UPDATE OF a`, id))
	if err != nil {
		return nil, db.TranslateError(err, "appointment", id)
	}
	return a, nil
}

func (r *appointmentRepoPG) List(ctx context.Context, f ListFilter, pg pagination.Params) ([]*Appointment, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1
	if f.PatientID != 0 {
		where += fmt.Sprintf(` AND a.patient_id = $%d`, idx)
		args = append(args, f.PatientID)
		idx++
	}
	if f.Date != "" {
		where += fmt.Sprintf(` AND a.date = $%d::date`, idx)
		args = append(args, f.Date)
		idx++
	}
	if f.Status != "" {
		where += fmt.Sprintf(` AND a.status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointments a`+where, args...).Scan(&total); err != nil {
		return nil, 0, db.TranslateError(err, "appointment", 0)
	}

	rows, err := r.conn(ctx).Query(ctx, apptSelect+where+` ORDER BY a.date, a.time, a.id `+pg.SQL(), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []*Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE appointments SET patient_id = $2, date = $3::date, time = $4::time,
			type = $5, status = $6, notes = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.Date, a.Time, a.Type, a.Status, a.Notes,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	return db.TranslateError(err, "appointment", a.ID)
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return db.TranslateDeleteError(err, "appointment", id)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment", id)
	}
	return nil
}

func (r *appointmentRepoPG) PatientOf(ctx context.Context, id int64) (int64, error) {
	var patientID int64
	err := r.conn(ctx).QueryRow(ctx, `SELECT patient_id FROM appointments WHERE id = $1`, id).Scan(&patientID)
	if err != nil {
		return 0, db.TranslateError(err, "appointment", id)
	}
	return patientID, nil
}

func (r *appointmentRepoPG) Dependents(ctx context.Context, id int64) (map[string]int, error) {
	var histories, invoices int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM clinical_histories WHERE appointment_id = $1),
			(SELECT COUNT(*) FROM invoices WHERE appointment_id = $1)`, id,
	).Scan(&histories, &invoices)
	if err != nil {
		return nil, fmt.Errorf("count appointment dependents: %w", err)
	}
	deps := map[string]int{}
	if histories > 0 {
		deps["clinical_histories"] = histories
	}
	if invoices > 0 {
		deps["invoices"] = invoices
	}
	return deps, nil
}
