package inventory

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/events"
	"github.com/clinic/clinic/internal/platform/telemetry"
	"github.com/clinic/clinic/internal/rules"
	"github.com/clinic/clinic/pkg/pagination"
)

type Service struct {
	items     ItemRepository
	movements MovementRepository
	tx        db.TxRunner

	publisher events.Publisher
	metrics   *telemetry.Provider
	logger    zerolog.Logger
}

func NewService(items ItemRepository, movements MovementRepository, tx db.TxRunner) *Service {
	return &Service{
		items:     items,
		movements: movements,
		tx:        tx,
		publisher: events.Nop{},
		logger:    zerolog.Nop(),
	}
}

func (s *Service) SetPublisher(p events.Publisher) {
	s.publisher = p
}

func (s *Service) SetMetrics(m *telemetry.Provider) {
	s.metrics = m
}

func (s *Service) SetLogger(l zerolog.Logger) {
	s.logger = l.With().Str("component", "inventory").Logger()
}

func validateItem(in *ItemInput) error {
	in.normalize()
	if in.Name == "" {
		return apperr.Required("name")
	}
	if in.CurrentStock != nil {
		if err := rules.ValidateStockLevel("current_stock", *in.CurrentStock); err != nil {
			return err
		}
	}
	if in.MinStock != nil {
		if err := rules.ValidateStockLevel("min_stock", *in.MinStock); err != nil {
			return err
		}
	}
	if in.UnitPrice.Valid {
		p := in.UnitPrice.Decimal
		if p.IsNegative() {
			return apperr.Invalid("unit_price", "must not be negative")
		}
		if !p.Equal(p.Round(2)) {
			return apperr.Invalid("unit_price", "must have at most two decimal places")
		}
	}
	return nil
}

// recordAdjustment writes a synthetic adjustment that brings the ledger of
// it from its current stock to target. Must run inside a transaction that
// holds the item lock or created the item.
func (s *Service) recordAdjustment(ctx context.Context, it *Item, target int, reason string) (*Movement, error) {
	qty, needed := rules.SyntheticAdjustment(it.CurrentStock, target)
	if !needed {
		return nil, nil
	}
	m := &Movement{
		InventoryID:  it.ID,
		MovementType: rules.MovementAdjustment,
		Quantity:     qty,
		Reason:       reason,
		StockBefore:  it.CurrentStock,
		StockAfter:   target,
	}
	if err := s.movements.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// CreateItem inserts an item. A starting stock is recorded as an
// "initial stock" adjustment so the ledger accounts for it.
func (s *Service) CreateItem(ctx context.Context, in ItemInput) (*Item, error) {
	if err := validateItem(&in); err != nil {
		return nil, err
	}
	target := 0
	if in.CurrentStock != nil {
		target = *in.CurrentStock
	}
	it := &Item{
		Name:        in.Name,
		Description: in.Description,
		Category:    in.Category,
		Supplier:    in.Supplier,
		MinStock:    rules.DefaultMinStock,
		UnitPrice:   in.UnitPrice,
	}
	if in.MinStock != nil {
		it.MinStock = *in.MinStock
	}
	var adj *Movement
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.items.Create(ctx, it); err != nil {
			return err
		}
		var err error
		adj, err = s.recordAdjustment(ctx, it, target, rules.ReasonInitialStock)
		if err != nil {
			return err
		}
		if adj != nil {
			it.CurrentStock = target
			return s.items.SetStock(ctx, it.ID, target)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	it.markLowStock()
	if adj != nil {
		s.afterMovement(ctx, it, adj)
	}
	return it, nil
}

func (s *Service) GetItem(ctx context.Context, id int64) (*Item, error) {
	return s.items.GetByID(ctx, id)
}

func (s *Service) ListItems(ctx context.Context, pg pagination.Params) ([]*Item, int, error) {
	return s.items.List(ctx, pg)
}

func (s *Service) ListLowStock(ctx context.Context, pg pagination.Params) ([]*Item, int, error) {
	return s.items.ListLowStock(ctx, pg)
}

// UpdateItem replaces the item under its row lock. A current_stock that
// differs from the ledger is recorded as a "stock edit" adjustment; an
// absent one keeps the stock.
func (s *Service) UpdateItem(ctx context.Context, id int64, in ItemInput) (*Item, error) {
	if err := validateItem(&in); err != nil {
		return nil, err
	}
	var out *Item
	var adj *Movement
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := s.items.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		target := current.CurrentStock
		if in.CurrentStock != nil {
			target = *in.CurrentStock
		}
		adj, err = s.recordAdjustment(ctx, current, target, rules.ReasonStockEdit)
		if err != nil {
			return err
		}
		it := &Item{
			ID:           id,
			Name:         in.Name,
			Description:  in.Description,
			Category:     in.Category,
			Supplier:     in.Supplier,
			CurrentStock: target,
			MinStock:     current.MinStock,
			UnitPrice:    in.UnitPrice,
		}
		if in.MinStock != nil {
			it.MinStock = *in.MinStock
		}
		if err := s.items.Update(ctx, it); err != nil {
			return err
		}
		fresh, err := s.items.GetByID(ctx, id)
		if err != nil {
			return err
		}
		out = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}
	if adj != nil {
		s.afterMovement(ctx, out, adj)
	}
	return out, nil
}

// DeleteItem refuses once the item has movements; the ledger is permanent.
func (s *Service) DeleteItem(ctx context.Context, id int64) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		deps, err := s.items.Dependents(ctx, id)
		if err != nil {
			return err
		}
		if len(deps) > 0 {
			return apperr.DependencyExists("inventory_item", id, deps)
		}
		return s.items.Delete(ctx, id)
	})
}

// RecordMovement applies a movement to an item under its row lock. A
// movement that would take stock below zero is rejected and nothing is
// written.
func (s *Service) RecordMovement(ctx context.Context, in MovementInput) (*MovementResult, error) {
	if in.InventoryID == 0 {
		return nil, apperr.Required("inventory_id")
	}
	t, err := rules.ParseMovementType(in.MovementType)
	if err != nil {
		return nil, err
	}
	if in.Quantity == nil {
		return nil, apperr.Required("quantity")
	}
	var res MovementResult
	var item *Item
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		it, err := s.items.GetForUpdate(ctx, in.InventoryID)
		if err != nil {
			return err
		}
		next, err := rules.ApplyMovement(it.ID, it.CurrentStock, t, *in.Quantity)
		if err != nil {
			return err
		}
		m := &Movement{
			InventoryID:  it.ID,
			MovementType: t,
			Quantity:     *in.Quantity,
			Reason:       in.Reason,
			StockBefore:  it.CurrentStock,
			StockAfter:   next,
		}
		if err := s.movements.Create(ctx, m); err != nil {
			return err
		}
		if err := s.items.SetStock(ctx, it.ID, next); err != nil {
			return err
		}
		it.CurrentStock = next
		it.markLowStock()
		item = it
		res = MovementResult{Movement: m, CurrentStock: next, LowStock: it.LowStock}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrInsufficientStock) {
			s.metrics.StockRejected()
			s.logger.Warn().Err(err).Int64("inventory_id", in.InventoryID).
				Str("movement_type", string(t)).Int("quantity", *in.Quantity).Msg("movement rejected")
		}
		return nil, err
	}
	s.afterMovement(ctx, item, res.Movement)
	return &res, nil
}

// afterMovement reports a committed movement, and the item falling to its
// minimum when this movement took it there.
func (s *Service) afterMovement(ctx context.Context, it *Item, m *Movement) {
	s.metrics.StockMovement(string(m.MovementType))
	evts := []events.Event{events.New(events.InventoryMovement, "inventory_item", it.ID, m)}
	if !rules.LowStock(m.StockBefore, it.MinStock) && rules.LowStock(m.StockAfter, it.MinStock) {
		s.logger.Info().Int64("inventory_id", it.ID).Str("name", it.Name).
			Int("current_stock", m.StockAfter).Int("min_stock", it.MinStock).Msg("item reached minimum stock")
		evts = append(evts, events.New(events.InventoryLowStock, "inventory_item", it.ID, map[string]interface{}{
			"name":          it.Name,
			"current_stock": m.StockAfter,
			"min_stock":     it.MinStock,
		}))
	}
	events.Emit(ctx, s.publisher, s.logger, evts...)
}

func (s *Service) GetMovement(ctx context.Context, id int64) (*Movement, error) {
	return s.movements.GetByID(ctx, id)
}

func (s *Service) ListMovements(ctx context.Context, f MovementFilter, pg pagination.Params) ([]*Movement, int, error) {
	return s.movements.List(ctx, f, pg)
}

// VerifyStock recomputes the stock of an item from its ledger.
func (s *Service) VerifyStock(ctx context.Context, id int64) (*StockCheck, error) {
	it, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ledger, err := s.movements.Ledger(ctx, id)
	if err != nil {
		return nil, err
	}
	sum, err := rules.SumEffects(ledger)
	if err != nil {
		return nil, err
	}
	check := &StockCheck{
		InventoryID:  id,
		CurrentStock: it.CurrentStock,
		LedgerStock:  sum,
		Movements:    len(ledger),
		Consistent:   sum == it.CurrentStock,
	}
	if !check.Consistent {
		s.logger.Error().Int64("inventory_id", id).Int("current_stock", it.CurrentStock).
			Int("ledger_stock", sum).Msg("stock does not match ledger")
	}
	return check, nil
}
