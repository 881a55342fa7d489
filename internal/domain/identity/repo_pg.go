package identity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/pkg/pagination"
)

const dniConstraint = "patients_dni_key"

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository { return &patientRepoPG{pool: pool} }

func (r *patientRepoPG) conn(ctx context.Context) db.Queryable {
	return db.From(ctx, r.pool)
}

const patientCols = `id, name, email, phone, COALESCE(dni, ''),
	COALESCE(to_char(birth_date, 'YYYY-MM-DD'), ''), gender, address, blood_type,
	allergies, chronic_diseases, current_medications, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.DNI,
		&p.BirthDate, &p.Gender, &p.Address, &p.BloodType,
		&p.Allergies, &p.ChronicDiseases, &p.CurrentMedications, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *patientRepoPG) translate(err error, p *Patient) error {
	if db.IsUniqueViolation(err, dniConstraint) {
		e := apperr.Uniqueness("dni", p.DNI)
		e.Cause = err
		return e
	}
	return db.TranslateError(err, "patient", p.ID)
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (name, email, phone, dni, birth_date, gender, address,
			blood_type, allergies, chronic_diseases, current_medications)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, '')::date, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`,
		p.Name, p.Email, p.Phone, p.DNI, p.BirthDate, p.Gender, p.Address,
		p.BloodType, p.Allergies, p.ChronicDiseases, p.CurrentMedications,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return r.translate(err, p)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id int64) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
	if err != nil {
		return nil, db.TranslateError(err, "patient", id)
	}
	return p, nil
}

func (r *patientRepoPG) List(ctx context.Context, pg pagination.Params) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patients ORDER BY name, id `+pg.SQL())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []*Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE patients SET name = $2, email = $3, phone = $4, dni = NULLIF($5, ''),
			birth_date = NULLIF($6, '')::date, gender = $7, address = $8, blood_type = $9,
			allergies = $10, chronic_diseases = $11, current_medications = $12, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Email, p.Phone, p.DNI, p.BirthDate, p.Gender, p.Address,
		p.BloodType, p.Allergies, p.ChronicDiseases, p.CurrentMedications,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return r.translate(err, p)
}

func (r *patientRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return db.TranslateDeleteError(err, "patient", id)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("patient", id)
	}
	return nil
}

func (r *patientRepoPG) Exists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM patients WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

func (r *patientRepoPG) Dependents(ctx context.Context, id int64) (map[string]int, error) {
	var appts, histories, invoices, exams int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM appointments WHERE patient_id = $1),
			(SELECT COUNT(*) FROM clinical_histories WHERE patient_id = $1),
			(SELECT COUNT(*) FROM invoices WHERE patient_id = $1),
			(SELECT COUNT(*) FROM exams WHERE patient_id = $1)`, id,
	).Scan(&appts, &histories, &invoices, &exams)
	if err != nil {
		return nil, fmt.Errorf("count patient dependents: %w", err)
	}
	return nonZero(map[string]int{
		"appointments":       appts,
		"clinical_histories": histories,
		"invoices":           invoices,
		"exams":              exams,
	}), nil
}

func nonZero(m map[string]int) map[string]int {
	for k, v := range m {
		if v == 0 {
			delete(m, k)
		}
	}
	return m
}
