package database

import (
	"database/sql"
	"errors"
	"strings"

	"equilibria/internal/domain"

	"github.com/mattn/go-sqlite3"
)

const slotIndex = "appointments.practitioner_id, appointments.date, appointments.time"

// translate maps driver errors onto the domain taxonomy. Unique violations
// become ConstraintViolation, a missing parent row becomes NotFoundError and
// anything else the store could not do becomes PersistenceError.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return &domain.ConstraintViolation{Constraint: constraintName(sqliteErr.Error()), Err: err}
		case sqlite3.ErrConstraintForeignKey:
			return &domain.NotFoundError{Entity: "referenced row"}
		}
	}

	return &domain.PersistenceError{Op: op, Err: err}
}

// notFoundOr maps sql.ErrNoRows onto NotFoundError and everything else
// through translate.
func notFoundOr(op string, err error, entity string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Entity: entity, ID: id}
	}
	return translate(op, err)
}

func constraintName(msg string) string {
	if i := strings.Index(msg, "failed: "); i >= 0 {
		return msg[i+len("failed: "):]
	}
	return msg
}

func isSlotViolation(err error) bool {
	var cv *domain.ConstraintViolation
	return errors.As(err, &cv) && strings.HasPrefix(cv.Constraint, slotIndex)
}

func isUniqueViolation(err error) bool {
	var cv *domain.ConstraintViolation
	return errors.As(err, &cv)
}

func expectOneRow(result sql.Result, entity string, id any) error {
	n, err := result.RowsAffected()
	if err != nil {
		return translate("rows affected", err)
	}
	if n == 0 {
		return &domain.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}
