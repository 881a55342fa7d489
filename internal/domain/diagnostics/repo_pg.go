package diagnostics

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/pkg/pagination"
)

type examRepoPG struct{ pool *pgxpool.Pool }

func NewExamRepoPG(pool *pgxpool.Pool) ExamRepository { return &examRepoPG{pool: pool} }

func (r *examRepoPG) conn(ctx context.Context) db.Queryable {
	return db.From(ctx, r.pool)
}

const examSelect = `SELECT e.id, e.patient_id, p.name, e.exam_type, e.laboratory, e.status,
	e.results, e.notes, e.created_at, e.updated_at
	FROM exams e LEFT JOIN patients p ON p.id = e.patient_id`

func scanExam(row pgx.Row) (*Exam, error) {
	var e Exam
	var patientName *string
	err := row.Scan(&e.ID, &e.PatientID, &patientName, &e.ExamType, &e.Laboratory, &e.Status,
		&e.Results, &e.Notes, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if patientName == nil {
		return nil, apperr.InconsistentState("missing_patient",
			fmt.Sprintf("exam %d references missing patient %d", e.ID, e.PatientID))
	}
	e.PatientName = *patientName
	return &e, nil
}

func (r *examRepoPG) Create(ctx context.Context, e *Exam) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO exams (patient_id, exam_type, laboratory, status, results, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		e.PatientID, e.ExamType, e.Laboratory, e.Status, e.Results, e.Notes,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	return db.TranslateError(err, "exam", e.ID)
}

func (r *examRepoPG) GetByID(ctx context.Context, id int64) (*Exam, error) {
	e, err := scanExam(r.conn(ctx).QueryRow(ctx, examSelect+` WHERE e.id = $1`, id))
	if err != nil {
		return nil, db.TranslateError(err, "exam", id)
	}
	return e, nil
}

func (r *examRepoPG) GetForUpdate(ctx context.Context, id int64) (*Exam, error) {
	e, err := scanExam(r.conn(ctx).QueryRow(ctx, examSelect+` WHERE e.id = $1 FOR UPDATE OF e`, id))
	if err != nil {
		return nil, db.TranslateError(err, "exam", id)
	}
	return e, nil
}

func (r *examRepoPG) List(ctx context.Context, f ListFilter, pg pagination.Params) ([]*Exam, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1
	if f.PatientID != 0 {
		where += fmt.Sprintf(` AND e.patient_id = $%d`, idx)
		args = append(args, f.PatientID)
		idx++
	}
	if f.Status != "" {
		where += fmt.Sprintf(` AND e.status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM exams e`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, examSelect+where+` ORDER BY e.created_at DESC, e.id DESC `+pg.SQL(), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []*Exam{}
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

func (r *examRepoPG) Update(ctx context.Context, e *Exam) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE exams SET patient_id = $2, exam_type = $3, laboratory = $4, status = $5,
			results = $6, notes = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		e.ID, e.PatientID, e.ExamType, e.Laboratory, e.Status, e.Results, e.Notes,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	return db.TranslateError(err, "exam", e.ID)
}

func (r *examRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	if err != nil {
		return db.TranslateDeleteError(err, "exam", id)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("exam", id)
	}
	return nil
}
