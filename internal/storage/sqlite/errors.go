package sqlite

import (
	"errors"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/prometheusai/promptstore/internal/metrics"
)

// ConnectionError means the target database could not be opened or reached.
// It is fatal and never retried.
type ConnectionError struct {
	Path string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cannot open database %q: %v", e.Path, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// MigrationOrderError means the migration version sequence has a gap or a
// duplicate. Nothing is applied past the point of detection.
type MigrationOrderError struct {
	Version int
	Reason  string
}

func (e *MigrationOrderError) Error() string {
	return fmt.Sprintf("migration order violation at version %d: %s", e.Version, e.Reason)
}

// SQLExecutionError carries the offending statement so a failed migration
// unit can be diagnosed without re-running with verbose logging.
type SQLExecutionError struct {
	Version   int
	Statement string
	Err       error
}

func (e *SQLExecutionError) Error() string {
	return fmt.Sprintf("migration %d failed executing %q: %v", e.Version, e.Statement, e.Err)
}

func (e *SQLExecutionError) Unwrap() error { return e.Err }

// ConstraintViolationError is a foreign-key or uniqueness rejection at the
// base-table level, propagated to the caller unchanged.
type ConstraintViolationError struct {
	Operation string
	Err       error
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("%s: constraint violation: %v", e.Operation, e.Err)
}

func (e *ConstraintViolationError) Unwrap() error { return e.Err }

func wrapWriteErr(op string, err error) error {
	if err == nil {
		return nil
	}
	metrics.WriteErrors.WithLabelValues(op).Inc()
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint {
		return &ConstraintViolationError{Operation: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
