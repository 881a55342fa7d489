// Package rules holds the pure consistency rules shared by the domain
// services: status lifecycles, stock ledger arithmetic and invoice
// reconciliation. Nothing here touches the store.
package rules

import (
	"fmt"
	"strings"

	"github.com/clinic/clinic/internal/platform/apperr"
)

// Policy decides which status changes an update may make.
type Policy string

const (
	// Permissive allows any valid status to follow any other.
	Permissive Policy = "permissive"
	// Strict allows only forward moves along a lifecycle and cancellation
	// from a non-terminal state.
	Strict Policy = "strict"
)

// ParsePolicy accepts "permissive", "strict" or "" (permissive).
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", Permissive:
		return Permissive, nil
	case Strict:
		return Strict, nil
	}
	return "", fmt.Errorf("unknown status policy %q (want permissive or strict)", s)
}

// Lifecycle describes the statuses of one entity kind.
type Lifecycle struct {
	Kind string
	// Chain lists the forward statuses in order; the first is the default.
	Chain []string
	// Cancel is the terminal status reachable from any non-final chain
	// status. Empty when the kind cannot be cancelled.
	Cancel string
	// Extra are valid statuses outside the chain that strict mode never
	// enters through an update.
	Extra []string
}

var (
	AppointmentLifecycle = Lifecycle{
		Kind:   "appointment",
		Chain:  []string{"pending", "confirmed", "completed"},
		Cancel: "cancelled",
	}
	ExamLifecycle = Lifecycle{
		Kind:   "exam",
		Chain:  []string{"pending", "in_progress", "completed"},
		Cancel: "cancelled",
	}
	InvoiceLifecycle = Lifecycle{
		Kind:   "invoice",
		Chain:  []string{"pending", "paid"},
		Cancel: "cancelled",
	}
	// Payments have no forward chain; completed is the default and any
	// valid status may replace another.
	PaymentLifecycle = Lifecycle{
		Kind:  "payment",
		Chain: []string{"completed"},
		Extra: []string{"failed", "refunded"},
	}
)

// Default is the status assigned when none is given.
func (l Lifecycle) Default() string {
	return l.Chain[0]
}

func (l Lifecycle) Valid(status string) bool {
	if status == l.Cancel && status != "" {
		return true
	}
	for _, s := range l.Chain {
		if s == status {
			return true
		}
	}
	for _, s := range l.Extra {
		if s == status {
			return true
		}
	}
	return false
}

// Normalize returns the default for "" and a ValidationError for unknown
// values.
func (l Lifecycle) Normalize(status string) (string, error) {
	if status == "" {
		return l.Default(), nil
	}
	if !l.Valid(status) {
		return "", apperr.Invalid("status", fmt.Sprintf("%q is not a valid %s status", status, l.Kind)).
			WithDetail("allowed", l.statuses())
	}
	return status, nil
}

func (l Lifecycle) statuses() []string {
	out := append([]string{}, l.Chain...)
	if l.Cancel != "" {
		out = append(out, l.Cancel)
	}
	return append(out, l.Extra...)
}

func (l Lifecycle) position(status string) int {
	for i, s := range l.Chain {
		if s == status {
			return i
		}
	}
	return -1
}

// CheckTransition validates moving from one status to another under p.
// Both statuses must already be valid for l.
func (p Policy) CheckTransition(l Lifecycle, from, to string) error {
	if to == "" {
		return apperr.Required("status")
	}
	if !l.Valid(to) {
		_, err := l.Normalize(to)
		return err
	}
	if from == to || p != Strict {
		return nil
	}

	fromPos, toPos := l.position(from), l.position(to)
	last := len(l.Chain) - 1
	switch {
	case to == l.Cancel && l.Cancel != "" && fromPos >= 0 && fromPos < last:
		return nil
	case fromPos >= 0 && toPos > fromPos:
		return nil
	case len(l.Extra) > 0 && fromPos <= 0 && toPos <= 0:
		// Kinds without a chain move freely between their statuses.
		return nil
	}
	return apperr.Validation("invalid_transition",
		fmt.Sprintf("%s status cannot change from %s to %s", l.Kind, from, to)).
		WithDetail("from", from).WithDetail("to", to)
}
