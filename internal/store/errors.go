package store

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrUniqueViolation reports an insert or update that would give two
	// records the same values on a unique index.
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrNotFound reports a record lookup that matched nothing.
	ErrNotFound = errors.New("record not found")

	// ErrSchemaVersion reports a store file written with another schema version.
	ErrSchemaVersion = errors.New("unsupported schema version")

	// ErrUnknownCollection reports a collection the schema does not declare.
	ErrUnknownCollection = errors.New("unknown collection")
)

// IsUniqueViolation reports whether err is (or wraps) a unique constraint
// violation.
func IsUniqueViolation(err error) bool {
	return errors.Is(err, ErrUniqueViolation)
}

// wrapWriteErr annotates a write error with op, tagging unique index
// violations with ErrUniqueViolation while keeping the driver error.
func wrapWriteErr(op string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%s: %w: %w", op, ErrUniqueViolation, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
