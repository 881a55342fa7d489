package rules

import (
	"errors"
	"math"
	"testing"

	"github.com/clinic/clinic/internal/platform/apperr"
)

func TestEffect(t *testing.T) {
	tests := []struct {
		typ     MovementType
		qty     int
		want    int
		wantErr bool
	}{
		{MovementIn, 10, 10, false},
		{MovementIn, 0, 0, true},
		{MovementIn, -3, 0, true},
		{MovementOut, 4, -4, false},
		{MovementOut, -4, 0, true},
		{MovementAdjustment, -7, -7, false},
		{MovementAdjustment, 7, 7, false},
		{MovementAdjustment, 0, 0, true},
		{MovementType("transfer"), 1, 0, true},
		{MovementIn, MaxQuantity, MaxQuantity, false},
		{MovementIn, math.MaxInt, 0, true},
		{MovementOut, math.MaxInt, 0, true},
		{MovementAdjustment, math.MinInt, 0, true},
		{MovementAdjustment, -MaxQuantity - 1, 0, true},
	}
	for _, tt := range tests {
		got, err := Effect(tt.typ, tt.qty)
		if (err != nil) != tt.wantErr {
			t.Errorf("Effect(%s, %d) error = %v, wantErr %v", tt.typ, tt.qty, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("Effect(%s, %d): expected validation error, got %v", tt.typ, tt.qty, err)
		}
		if got != tt.want {
			t.Errorf("Effect(%s, %d) = %d, want %d", tt.typ, tt.qty, got, tt.want)
		}
	}
}

func TestApplyMovement_InsufficientStock(t *testing.T) {
	// Gloves: 10 in stock, out 15 is rejected and stock is unchanged.
	got, err := ApplyMovement(1, 10, MovementOut, 15)
	if !errors.Is(err, apperr.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if got != 10 {
		t.Errorf("expected stock to stay 10, got %d", got)
	}
	e, _ := apperr.As(err)
	if e.Details["requested"] != 15 || e.Details["current_stock"] != 10 {
		t.Errorf("unexpected details: %v", e.Details)
	}
}

func TestApplyMovement_ToZero(t *testing.T) {
	got, err := ApplyMovement(1, 10, MovementOut, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}

func TestApplyMovement_NegativeAdjustment(t *testing.T) {
	if _, err := ApplyMovement(1, 3, MovementAdjustment, -4); !errors.Is(err, apperr.ErrInsufficientStock) {
		t.Errorf("expected insufficient stock, got %v", err)
	}
	got, err := ApplyMovement(1, 3, MovementAdjustment, -3)
	if err != nil || got != 0 {
		t.Errorf("expected 0, got %d (%v)", got, err)
	}
}

func TestApplyMovement_OverflowIsValidation(t *testing.T) {
	tests := []struct {
		name    string
		current int
		typ     MovementType
		qty     int
	}{
		{"huge in", 10, MovementIn, math.MaxInt},
		{"huge negative adjustment", 10, MovementAdjustment, math.MinInt},
		{"in past column range", 10, MovementIn, MaxQuantity},
		{"adjustment past column range", MaxQuantity, MovementAdjustment, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyMovement(1, tt.current, tt.typ, tt.qty)
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if errors.Is(err, apperr.ErrInsufficientStock) {
				t.Errorf("expected no insufficient stock error, got %v", err)
			}
			if got != tt.current {
				t.Errorf("expected stock to stay %d, got %d", tt.current, got)
			}
		})
	}
	got, err := ApplyMovement(1, MaxQuantity-1, MovementIn, 1)
	if err != nil || got != MaxQuantity {
		t.Errorf("expected %d, got %d (%v)", MaxQuantity, got, err)
	}
}

func TestSyntheticAdjustment(t *testing.T) {
	if _, ok := SyntheticAdjustment(5, 5); ok {
		t.Error("expected no adjustment when equal")
	}
	if q, ok := SyntheticAdjustment(5, 2); !ok || q != -3 {
		t.Errorf("expected -3, got %d (%v)", q, ok)
	}
	if q, ok := SyntheticAdjustment(0, 12); !ok || q != 12 {
		t.Errorf("expected 12, got %d (%v)", q, ok)
	}
}

func TestLowStock(t *testing.T) {
	if !LowStock(5, 5) {
		t.Error("expected stock equal to threshold to be low")
	}
	if LowStock(6, 5) {
		t.Error("expected stock above threshold not to be low")
	}
	if !LowStock(0, 0) {
		t.Error("expected 0/0 to be low")
	}
}

func TestSumEffects(t *testing.T) {
	ledger := []LedgerEntry{
		{MovementAdjustment, 10},
		{MovementIn, 5},
		{MovementOut, 12},
		{MovementAdjustment, -1},
	}
	got, err := SumEffects(ledger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 2 {
		t.Errorf("expected 2, got %d", got)
	}
}

func TestParseMovementType(t *testing.T) {
	if _, err := ParseMovementType(""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected required error, got %v", err)
	}
	if mt, err := ParseMovementType("out"); err != nil || mt != MovementOut {
		t.Errorf("expected out, got %q (%v)", mt, err)
	}
}

func TestValidateStockLevel(t *testing.T) {
	if err := ValidateStockLevel("current_stock", -1); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if err := ValidateStockLevel("current_stock", math.MaxInt); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if err := ValidateStockLevel("min_stock", 0); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
