package inventory

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/rules"
	"github.com/clinic/clinic/pkg/pagination"
)

// -- items --

type itemRepoPG struct{ pool *pgxpool.Pool }

func NewItemRepoPG(pool *pgxpool.Pool) ItemRepository { return &itemRepoPG{pool: pool} }

func (r *itemRepoPG) conn(ctx context.Context) db.Queryable {
	return db.From(ctx, r.pool)
}

const itemCols = `id, name, description, category, supplier, current_stock, min_stock,
	unit_price, created_at, updated_at`

func scanItem(row pgx.Row) (*Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.Name, &it.Description, &it.Category, &it.Supplier,
		&it.CurrentStock, &it.MinStock, &it.UnitPrice, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	it.markLowStock()
	return &it, nil
}

func (r *itemRepoPG) Create(ctx context.Context, it *Item) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO inventory_items (name, description, category, supplier, current_stock, min_stock, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		it.Name, it.Description, it.Category, it.Supplier, it.CurrentStock, it.MinStock, it.UnitPrice,
	).Scan(&it.ID, &it.CreatedAt, &it.UpdatedAt)
	return db.TranslateError(err, "inventory_item", it.ID)
}

func (r *itemRepoPG) GetByID(ctx context.Context, id int64) (*Item, error) {
	it, err := scanItem(r.conn(ctx).QueryRow(ctx, `SELECT `+itemCols+` FROM inventory_items WHERE id = $1`, id))
	if err != nil {
		return nil, db.TranslateError(err, "inventory_item", id)
	}
	return it, nil
}

func (r *itemRepoPG) GetForUpdate(ctx context.Context, id int64) (*Item, error) {
	it, err := scanItem(r.conn(ctx).QueryRow(ctx, `SELECT `+itemCols+` FROM inventory_items WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, db.TranslateError(err, "inventory_item", id)
	}
	return it, nil
}

func (r *itemRepoPG) list(ctx context.Context, where string, pg pagination.Params) ([]*Item, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM inventory_items`+where).Scan(&total); err != nil {
		return nil, 0, db.TranslateError(err, "inventory_item", 0)
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+itemCols+` FROM inventory_items`+where+` ORDER BY name, id `+pg.SQL())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []*Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, it)
	}
	return items, total, rows.Err()
}

func (r *itemRepoPG) List(ctx context.Context, pg pagination.Params) ([]*Item, int, error) {
	return r.list(ctx, "", pg)
}

func (r *itemRepoPG) ListLowStock(ctx context.Context, pg pagination.Params) ([]*Item, int, error) {
	return r.list(ctx, ` WHERE current_stock <= min_stock`, pg)
}

func (r *itemRepoPG) Update(ctx context.Context, it *Item) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE inventory_items SET name = $2, description = $3, category = $4, supplier = $5,
			current_stock = $6, min_stock = $7, unit_price = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		it.ID, it.Name, it.Description, it.Category, it.Supplier, it.CurrentStock, it.MinStock, it.UnitPrice,
	).Scan(&it.CreatedAt, &it.UpdatedAt)
	return db.TranslateError(err, "inventory_item", it.ID)
}

func (r *itemRepoPG) SetStock(ctx context.Context, id int64, stock int) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE inventory_items SET current_stock = $2, updated_at = NOW() WHERE id = $1`, id, stock)
	if err != nil {
		return db.TranslateError(err, "inventory_item", id)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("inventory_item", id)
	}
	return nil
}

func (r *itemRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM inventory_items WHERE id = $1`, id)
	if err != nil {
		return db.TranslateDeleteError(err, "inventory_item", id)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("inventory_item", id)
	}
	return nil
}

func (r *itemRepoPG) Dependents(ctx context.Context, id int64) (map[string]int, error) {
	var movements int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM inventory_movements WHERE inventory_id = $1`, id).Scan(&movements)
	if err != nil {
		return nil, fmt.Errorf("count inventory item dependents: %w", err)
	}
	deps := map[string]int{}
	if movements > 0 {
		deps["inventory_movements"] = movements
	}
	return deps, nil
}

// -- movements --

type movementRepoPG struct{ pool *pgxpool.Pool }

func NewMovementRepoPG(pool *pgxpool.Pool) MovementRepository { return &movementRepoPG{pool: pool} }

func (r *movementRepoPG) conn(ctx context.Context) db.Queryable {
	return db.From(ctx, r.pool)
}

const movementCols = `id, inventory_id, movement_type, quantity, reason, stock_before, stock_after, created_at`

func scanMovement(row pgx.Row) (*Movement, error) {
	var m Movement
	var t string
	if err := row.Scan(&m.ID, &m.InventoryID, &t, &m.Quantity, &m.Reason,
		&m.StockBefore, &m.StockAfter, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.MovementType = rules.MovementType(t)
	return &m, nil
}

func (r *movementRepoPG) Create(ctx context.Context, m *Movement) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO inventory_movements (inventory_id, movement_type, quantity, reason, stock_before, stock_after)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		m.InventoryID, string(m.MovementType), m.Quantity, m.Reason, m.StockBefore, m.StockAfter,
	).Scan(&m.ID, &m.CreatedAt)
	return db.TranslateError(err, "inventory_movement", m.ID)
}

func (r *movementRepoPG) GetByID(ctx context.Context, id int64) (*Movement, error) {
	m, err := scanMovement(r.conn(ctx).QueryRow(ctx, `SELECT `+movementCols+` FROM inventory_movements WHERE id = $1`, id))
	if err != nil {
		return nil, db.TranslateError(err, "inventory_movement", id)
	}
	return m, nil
}

func (r *movementRepoPG) List(ctx context.Context, f MovementFilter, pg pagination.Params) ([]*Movement, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	if f.InventoryID != 0 {
		where += ` AND inventory_id = $1`
		args = append(args, f.InventoryID)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM inventory_movements`+where, args...).Scan(&total); err != nil {
		return nil, 0, db.TranslateError(err, "inventory_movement", 0)
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+movementCols+` FROM inventory_movements`+where+
		` ORDER BY created_at DESC, id DESC `+pg.SQL(), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []*Movement{}
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

func (r *movementRepoPG) Ledger(ctx context.Context, itemID int64) ([]rules.LedgerEntry, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT movement_type, quantity FROM inventory_movements WHERE inventory_id = $1 ORDER BY id`, itemID)
	if err != nil {
		return nil, fmt.Errorf("read ledger of item %d: %w", itemID, err)
	}
	defer rows.Close()
	var out []rules.LedgerEntry
	for rows.Next() {
		var t string
		var e rules.LedgerEntry
		if err := rows.Scan(&t, &e.Quantity); err != nil {
			return nil, err
		}
		e.Type = rules.MovementType(t)
		out = append(out, e)
	}
	return out, rows.Err()
}
