package documents

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/pkg/pagination"
)

type reportRepoPG struct{ pool *pgxpool.Pool }

func NewReportRepoPG(pool *pgxpool.Pool) ReportRepository { return &reportRepoPG{pool: pool} }

func (r *reportRepoPG) conn(ctx context.Context) db.Queryable {
	return db.From(ctx, r.pool)
}

const reportCols = `id, report_type, title, data::text, created_at, updated_at`

func scanReport(row pgx.Row) (*Report, error) {
	var rep Report
	var data string
	if err := row.Scan(&rep.ID, &rep.ReportType, &rep.Title, &data, &rep.CreatedAt, &rep.UpdatedAt); err != nil {
		return nil, err
	}
	rep.Data = json.RawMessage(data)
	return &rep, nil
}

func (r *reportRepoPG) Create(ctx context.Context, rep *Report) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO reports (report_type, title, data)
		VALUES ($1, $2, $3::jsonb)
		RETURNING id, created_at, updated_at`,
		rep.ReportType, rep.Title, string(rep.Data),
	).Scan(&rep.ID, &rep.CreatedAt, &rep.UpdatedAt)
	return db.TranslateError(err, "report", rep.ID)
}

func (r *reportRepoPG) GetByID(ctx context.Context, id int64) (*Report, error) {
	rep, err := scanReport(r.conn(ctx).QueryRow(ctx, `SELECT `+reportCols+` FROM reports WHERE id = $1`, id))
	if err != nil {
		return nil, db.TranslateError(err, "report", id)
	}
	return rep, nil
}

func (r *reportRepoPG) List(ctx context.Context, f ListFilter, pg pagination.Params) ([]*Report, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	if f.ReportType != "" {
		where += ` AND report_type = $1`
		args = append(args, f.ReportType)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM reports`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+reportCols+` FROM reports`+where+` ORDER BY created_at DESC, id DESC `+pg.SQL(), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []*Report{}
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rep)
	}
	return items, total, rows.Err()
}

func (r *reportRepoPG) Update(ctx context.Context, rep *Report) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE reports SET report_type = $2, title = $3, data = $4::jsonb, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		rep.ID, rep.ReportType, rep.Title, string(rep.Data),
	).Scan(&rep.CreatedAt, &rep.UpdatedAt)
	return db.TranslateError(err, "report", rep.ID)
}

func (r *reportRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return db.TranslateDeleteError(err, "report", id)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("report", id)
	}
	return nil
}
