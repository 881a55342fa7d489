package reporting

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/db"
)

type pgStore struct{ pool *pgxpool.Pool }

func NewPGStore(pool *pgxpool.Pool) Store { return &pgStore{pool: pool} }

func (s *pgStore) Stats(ctx context.Context, today string) (*Stats, error) {
	var st Stats
	err := db.From(ctx, s.pool).QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM patients),
			(SELECT COUNT(*) FROM appointments),
			(SELECT COUNT(*) FROM appointments WHERE date = $1::date),
			(SELECT COUNT(*) FROM invoices),
			(SELECT COALESCE(SUM(total_amount), 0) FROM invoices WHERE status = 'paid'),
			(SELECT COUNT(*) FROM inventory_items),
			(SELECT COUNT(*) FROM inventory_items WHERE current_stock <= min_stock)`, today,
	).Scan(&st.Patients.Total, &st.Appointments.Total, &st.Appointments.Today,
		&st.Invoices.Total, &st.Invoices.Revenue, &st.Inventory.Total, &st.Inventory.LowStock)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// Query runs sql and returns each row as a column-name map.
func (s *pgStore) Query(ctx context.Context, sql string) ([]map[string]interface{}, error) {
	rows, err := db.From(ctx, s.pool).Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	results := []map[string]interface{}{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(fieldDescs))
		for i, fd := range fieldDescs {
			row[fd.Name] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}
