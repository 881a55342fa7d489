package clinical

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/pkg/pagination"
)

type historyRepoPG struct{ pool *pgxpool.Pool }

func NewHistoryRepoPG(pool *pgxpool.Pool) HistoryRepository { return &historyRepoPG{pool: pool} }

func (r *historyRepoPG) conn(ctx context.Context) db.Queryable {
	return db.From(ctx, r.pool)
}

const historySelect = `SELECT h.id, h.patient_id, p.name, h.appointment_id, h.reason, h.diagnosis,
	h.treatment, h.observations, h.created_at, h.updated_at
	FROM clinical_histories h LEFT JOIN patients p ON p.id = h.patient_id`

func scanHistory(row pgx.Row) (*HistoryEntry, error) {
	var h HistoryEntry
	var patientName *string
	err := row.Scan(&h.ID, &h.PatientID, &patientName, &h.AppointmentID, &h.Reason, &h.Diagnosis,
		&h.Treatment, &h.Observations, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if patientName == nil {
		return nil, apperr.InconsistentState("missing_patient",
			fmt.Sprintf("clinical history %d references missing patient %d", h.ID, h.PatientID))
	}
	h.PatientName = *patientName
	return &h, nil
}

func (r *historyRepoPG) Create(ctx context.Context, h *HistoryEntry) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO clinical_histories (patient_id, appointment_id, reason, diagnosis, treatment, observations)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		h.PatientID, h.AppointmentID, h.Reason, h.Diagnosis, h.Treatment, h.Observations,
	).Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt)
	return db.TranslateError(err, "clinical_history", h.ID)
}

func (r *historyRepoPG) GetByID(ctx context.Context, id int64) (*HistoryEntry, error) {
	h, err := scanHistory(r.conn(ctx).QueryRow(ctx, historySelect+` WHERE h.id = $1`, id))
	if err != nil {
		return nil, db.TranslateError(err, "clinical_history", id)
	}
	return h, nil
}

func (r *historyRepoPG) List(ctx context.Context, f ListFilter, pg pagination.Params) ([]*HistoryEntry, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	if f.PatientID != 0 {
		where += ` AND h.patient_id = $1`
		args = append(args, f.PatientID)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clinical_histories h`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, historySelect+where+` ORDER BY h.created_at DESC, h.id DESC `+pg.SQL(), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []*HistoryEntry{}
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, h)
	}
	return items, total, rows.Err()
}

func (r *historyRepoPG) Update(ctx context.Context, h *HistoryEntry) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE clinical_histories SET patient_id = $2, appointment_id = $3, reason = $4,
			diagnosis = $5, treatment = $6, observations = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		h.ID, h.PatientID, h.AppointmentID, h.Reason, h.Diagnosis, h.Treatment, h.Observations,
	).Scan(&h.CreatedAt, &h.UpdatedAt)
	return db.TranslateError(err, "clinical_history", h.ID)
}

func (r *historyRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM clinical_histories WHERE id = $1`, id)
	if err != nil {
		return db.TranslateDeleteError(err, "clinical_history", id)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("clinical_history", id)
	}
	return nil
}
