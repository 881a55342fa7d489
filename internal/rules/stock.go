package rules

import (
	"fmt"
	"math"

	"github.com/clinic/clinic/internal/platform/apperr"
)

type MovementType string

const (
	MovementIn         MovementType = "in"
	MovementOut        MovementType = "out"
	MovementAdjustment MovementType = "adjustment"
)

const (
	ReasonInitialStock = "initial stock"
	ReasonStockEdit    = "stock edit"
)

// DefaultMinStock applies when an item is created without a threshold.
const DefaultMinStock = 5

// MaxQuantity bounds quantities and stock levels to the INTEGER columns
// that store them.
const MaxQuantity = math.MaxInt32

func ParseMovementType(s string) (MovementType, error) {
	switch t := MovementType(s); t {
	case MovementIn, MovementOut, MovementAdjustment:
		return t, nil
	case "":
		return "", apperr.Required("movement_type")
	}
	return "", apperr.Invalid("movement_type", fmt.Sprintf("%q is not one of in, out, adjustment", s))
}

// Effect is the signed change a movement makes to stock. in and out take a
// positive quantity; adjustment takes a signed, non-zero one.
func Effect(t MovementType, qty int) (int, error) {
	if qty > MaxQuantity || qty < -MaxQuantity {
		return 0, apperr.Invalid("quantity", fmt.Sprintf("must be between -%d and %d", MaxQuantity, MaxQuantity))
	}
	switch t {
	case MovementIn:
		if qty <= 0 {
			return 0, apperr.Invalid("quantity", "must be positive for in movements")
		}
		return qty, nil
	case MovementOut:
		if qty <= 0 {
			return 0, apperr.Invalid("quantity", "must be positive for out movements")
		}
		return -qty, nil
	case MovementAdjustment:
		if qty == 0 {
			return 0, apperr.Invalid("quantity", "adjustment must be non-zero")
		}
		return qty, nil
	}
	_, err := ParseMovementType(string(t))
	return 0, err
}

// ApplyMovement returns the stock after applying the movement to current.
// A result below zero is an InsufficientStockError and nothing should be
// written. A result above MaxQuantity is a validation error.
func ApplyMovement(itemID int64, current int, t MovementType, qty int) (int, error) {
	effect, err := Effect(t, qty)
	if err != nil {
		return current, err
	}
	if effect > MaxQuantity-current {
		return current, apperr.Invalid("quantity", fmt.Sprintf("would take stock above %d", MaxQuantity))
	}
	next := current + effect
	if next < 0 {
		return current, apperr.InsufficientStock(itemID, current, -effect)
	}
	return next, nil
}

// SyntheticAdjustment returns the adjustment quantity that takes the ledger
// from current to target, and false when they already agree.
func SyntheticAdjustment(current, target int) (int, bool) {
	if target == current {
		return 0, false
	}
	return target - current, true
}

// ValidateStockLevel rejects negative or oversized stock and threshold values.
func ValidateStockLevel(field string, v int) error {
	if v < 0 {
		return apperr.Invalid(field, "must not be negative")
	}
	if v > MaxQuantity {
		return apperr.Invalid(field, fmt.Sprintf("must not exceed %d", MaxQuantity))
	}
	return nil
}

// LowStock reports whether an item is at or under its threshold.
func LowStock(current, min int) bool {
	return current <= min
}

// SumEffects folds a ledger into the stock it implies.
func SumEffects(movements []LedgerEntry) (int, error) {
	total := 0
	for _, m := range movements {
		e, err := Effect(m.Type, m.Quantity)
		if err != nil {
			return 0, err
		}
		total += e
	}
	return total, nil
}

// LedgerEntry is the part of a movement that affects stock.
type LedgerEntry struct {
	Type     MovementType
	Quantity int
}
