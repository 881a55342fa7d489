// Package apperr defines the error kinds reported by the clinic core. Every
// rule violation surfaces as an *Error carrying one Kind; callers branch on
// the kind with errors.Is against the package sentinels.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers and for the HTTP status mapping.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindUniqueness        Kind = "uniqueness"
	KindInsufficientStock Kind = "insufficient_stock"
	KindInconsistentState Kind = "inconsistent_state"
	KindDependencyExists  Kind = "dependency_exists"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrUniqueness        = &Error{Kind: KindUniqueness}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock}
	ErrInconsistentState = &Error{Kind: KindInconsistentState}
	ErrDependencyExists  = &Error{Kind: KindDependencyExists}
)

// Error is a structured domain error.
type Error struct {
	Kind    Kind                   `json:"kind"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for e's kind, or an *Error with
// the same kind and code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// WithDetail sets a detail entry and returns e for chaining.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or "" when
// there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// Required reports a missing required field.
func Required(field string) *Error {
	return Validation("required", field+" is required").WithDetail("field", field)
}

// Invalid reports a malformed value.
func Invalid(field, reason string) *Error {
	return Validation("invalid", fmt.Sprintf("invalid %s: %s", field, reason)).WithDetail("field", field)
}

// NotFound reports a missing entity, whether it was the target of the
// operation or a foreign key.
func NotFound(entity string, id int64) *Error {
	return (&Error{
		Kind:    KindNotFound,
		Code:    entity + "_not_found",
		Message: fmt.Sprintf("%s %d not found", entity, id),
	}).WithDetail("entity", entity).WithDetail("id", id)
}

func Uniqueness(field, value string) *Error {
	return (&Error{
		Kind:    KindUniqueness,
		Code:    "duplicate_" + field,
		Message: fmt.Sprintf("%s %q already exists", field, value),
	}).WithDetail("field", field).WithDetail("value", value)
}

func InsufficientStock(itemID int64, current, requested int) *Error {
	return (&Error{
		Kind:    KindInsufficientStock,
		Code:    "insufficient_stock",
		Message: fmt.Sprintf("inventory item %d has %d units, movement needs %d", itemID, current, requested),
	}).WithDetail("inventory_id", itemID).WithDetail("current_stock", current).WithDetail("requested", requested)
}

func InconsistentState(code, message string) *Error {
	return &Error{Kind: KindInconsistentState, Code: code, Message: message}
}

// DependencyExists reports a delete blocked by rows that still reference
// the entity. dependents maps table name to row count.
func DependencyExists(entity string, id int64, dependents map[string]int) *Error {
	return (&Error{
		Kind:    KindDependencyExists,
		Code:    entity + "_has_dependents",
		Message: fmt.Sprintf("%s %d is still referenced", entity, id),
	}).WithDetail("entity", entity).WithDetail("id", id).WithDetail("dependents", dependents)
}
