package inventory

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clinic/clinic/internal/rules"
)

// Item maps to the inventory_items table. CurrentStock is a cache of the
// movement ledger and is only written together with a movement.
type Item struct {
	ID           int64               `json:"id"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	Category     string              `json:"category"`
	Supplier     string              `json:"supplier"`
	CurrentStock int                 `json:"current_stock"`
	MinStock     int                 `json:"min_stock"`
	UnitPrice    decimal.NullDecimal `json:"unit_price"`
	LowStock     bool                `json:"low_stock"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// ItemInput is the writable part of an item. Nil stock fields mean "not
// given": zero on create (min_stock defaults to 5), unchanged on update.
type ItemInput struct {
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	Category     string              `json:"category"`
	Supplier     string              `json:"supplier"`
	CurrentStock *int                `json:"current_stock"`
	MinStock     *int                `json:"min_stock"`
	UnitPrice    decimal.NullDecimal `json:"unit_price"`
}

// Movement is one ledger row. Movements are never updated or deleted.
type Movement struct {
	ID           int64              `json:"id"`
	InventoryID  int64              `json:"inventory_id"`
	MovementType rules.MovementType `json:"movement_type"`
	Quantity     int                `json:"quantity"`
	Reason       string             `json:"reason"`
	StockBefore  int                `json:"stock_before"`
	StockAfter   int                `json:"stock_after"`
	CreatedAt    time.Time          `json:"created_at"`
}

type MovementInput struct {
	InventoryID  int64  `json:"inventory_id"`
	MovementType string `json:"movement_type"`
	Quantity     *int   `json:"quantity"`
	Reason       string `json:"reason"`
}

// MovementResult is returned by RecordMovement.
type MovementResult struct {
	Movement     *Movement `json:"movement"`
	CurrentStock int       `json:"current_stock"`
	LowStock     bool      `json:"low_stock"`
}

// StockCheck compares the cached stock of an item with its ledger.
type StockCheck struct {
	InventoryID  int64 `json:"inventory_id"`
	CurrentStock int   `json:"current_stock"`
	LedgerStock  int   `json:"ledger_stock"`
	Movements    int   `json:"movements"`
	Consistent   bool  `json:"consistent"`
}

type MovementFilter struct {
	InventoryID int64
}

func (in *ItemInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.Supplier = strings.TrimSpace(in.Supplier)
}

func (it *Item) markLowStock() {
	it.LowStock = rules.LowStock(it.CurrentStock, it.MinStock)
}
