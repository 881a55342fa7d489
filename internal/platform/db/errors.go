package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clinic/clinic/internal/platform/apperr"
)

// Postgres SQLSTATE codes the store cares about.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNotNullViolation    = "23502"
	codeInvalidText         = "22P02"
	codeInvalidDatetime     = "22007"
	codeDatetimeOverflow    = "22008"
	codeNumericOverflow     = "22003"
)

func pgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// IsUniqueViolation reports whether err is a unique violation. When
// constraint is non-empty it must match the violated constraint name.
func IsUniqueViolation(err error, constraint string) bool {
	pgErr, ok := pgError(err)
	if !ok || pgErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	pgErr, ok := pgError(err)
	return ok && pgErr.Code == codeForeignKeyViolation
}

// TranslateError maps store errors from an insert, update or read of entity
// id into apperr kinds. Errors that are already *apperr.Error, and errors
// the store does not classify, pass through unchanged.
func TranslateError(err error, entity string, id int64) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(entity, id)
	}
	pgErr, ok := pgError(err)
	if !ok {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		e := &apperr.Error{
			Kind:    apperr.KindUniqueness,
			Code:    "duplicate_" + entity,
			Message: "duplicate value violates " + pgErr.ConstraintName,
			Cause:   err,
		}
		return e.WithDetail("constraint", pgErr.ConstraintName)
	case codeForeignKeyViolation:
		ref := referencedEntity(pgErr.ConstraintName)
		e := &apperr.Error{
			Kind:    apperr.KindNotFound,
			Code:    ref + "_not_found",
			Message: "referenced " + ref + " does not exist",
			Cause:   err,
		}
		return e.WithDetail("entity", ref)
	case codeCheckViolation, codeNotNullViolation, codeInvalidText,
		codeInvalidDatetime, codeDatetimeOverflow, codeNumericOverflow:
		e := &apperr.Error{
			Kind:    apperr.KindValidation,
			Code:    "invalid",
			Message: pgErr.Message,
			Cause:   err,
		}
		if pgErr.ConstraintName != "" {
			e.WithDetail("constraint", pgErr.ConstraintName)
		}
		if pgErr.ColumnName != "" {
			e.WithDetail("field", pgErr.ColumnName)
		}
		return e
	}
	return err
}

// TranslateDeleteError is TranslateError for deletes: a foreign key
// violation means rows still reference entity id.
func TranslateDeleteError(err error, entity string, id int64) error {
	if IsForeignKeyViolation(err) {
		pgErr, _ := pgError(err)
		e := apperr.DependencyExists(entity, id, map[string]int{pgErr.TableName: 1})
		e.Cause = err
		return e
	}
	return TranslateError(err, entity, id)
}

// referencedEntity derives the entity name from a constraint named
// <table>_<column>_id_fkey, e.g. appointments_patient_id_fkey -> patient.
func referencedEntity(constraint string) string {
	name := strings.TrimSuffix(constraint, "_id_fkey")
	if name == constraint {
		return "reference"
	}
	for _, col := range []string{"patient", "appointment", "invoice", "inventory"} {
		if strings.HasSuffix(name, "_"+col) {
			if col == "inventory" {
				return "inventory_item"
			}
			return col
		}
	}
	return "reference"
}
