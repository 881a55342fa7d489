package inventory

import (
	"context"

	"github.com/clinic/clinic/internal/rules"
	"github.com/clinic/clinic/pkg/pagination"
)

type ItemRepository interface {
	Create(ctx context.Context, it *Item) error
	GetByID(ctx context.Context, id int64) (*Item, error)
	// GetForUpdate reads the item and locks its row until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*Item, error)
	List(ctx context.Context, pg pagination.Params) ([]*Item, int, error)
	ListLowStock(ctx context.Context, pg pagination.Params) ([]*Item, int, error)
	// Update writes every column including current_stock.
	Update(ctx context.Context, it *Item) error
	SetStock(ctx context.Context, id int64, stock int) error
	Delete(ctx context.Context, id int64) error
	Dependents(ctx context.Context, id int64) (map[string]int, error)
}

// MovementRepository is append-only.
type MovementRepository interface {
	Create(ctx context.Context, m *Movement) error
	GetByID(ctx context.Context, id int64) (*Movement, error)
	List(ctx context.Context, f MovementFilter, pg pagination.Params) ([]*Movement, int, error)
	// Ledger returns the movements of an item oldest first.
	Ledger(ctx context.Context, itemID int64) ([]rules.LedgerEntry, error)
}
