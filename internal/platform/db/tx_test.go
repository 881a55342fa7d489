package db

import (
	"context"
	"errors"
	"testing"
)

func TestTxFromContext_Empty(t *testing.T) {
	if TxFromContext(context.Background()) != nil {
		t.Error("expected nil tx")
	}
	if ConnFromContext(context.Background()) != nil {
		t.Error("expected nil conn")
	}
}

func TestFrom_FallsBackToPool(t *testing.T) {
	if q := From(context.Background(), nil); q == nil {
		t.Fatal("expected pool handle")
	}
}

func TestInline_PropagatesError(t *testing.T) {
	want := errors.New("rule failed")
	calls := 0
	err := Inline.InTx(context.Background(), func(ctx context.Context) error {
		calls++
		return want
	})
	if !errors.Is(err, want) {
		t.Errorf("expected %v, got %v", want, err)
	}
	if calls != 1 {
		t.Errorf("expected fn called once, got %d", calls)
	}
}

func TestTxFunc(t *testing.T) {
	var seen bool
	r := TxFunc(func(ctx context.Context, fn func(context.Context) error) error {
		seen = true
		return fn(ctx)
	})
	if err := r.InTx(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !seen {
		t.Error("expected wrapper to run")
	}
}
