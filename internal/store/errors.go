package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound indicates no row matched the lookup.
	ErrNotFound = errors.New("not found")
	// ErrSchemaMismatch indicates the deployed schema lacks a column the
	// statement referenced. The deployment needs a migration.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrConflict indicates the row is still referenced and cannot be removed.
	ErrConflict = errors.New("conflict")
)

const (
	codeUndefinedColumn     = "42703"
	codeForeignKeyViolation = "23503"
)

// DBError carries the database-reported diagnostics of a failed statement so
// callers can pass them through verbatim.
type DBError struct {
	Op      string
	Code    string
	Message string
	Detail  string
	Hint    string
	Err     error
}

func (e *DBError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *DBError) Unwrap() error {
	return e.Err
}

// wrapErr classifies a driver error. Postgres errors become *DBError; an
// undefined column additionally matches ErrSchemaMismatch.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		dbErr := &DBError{
			Op:      op,
			Code:    pgErr.Code,
			Message: pgErr.Message,
			Detail:  pgErr.Detail,
			Hint:    pgErr.Hint,
			Err:     pgErr,
		}
		if pgErr.Code == codeUndefinedColumn {
			dbErr.Err = ErrSchemaMismatch
		}
		return dbErr
	}

	return &DBError{Op: op, Message: err.Error(), Err: err}
}

func isUndefinedColumn(err error) bool {
	return errors.Is(err, ErrSchemaMismatch)
}

func missingColumn(op, table, column string) error {
	return &DBError{
		Op:      op,
		Code:    codeUndefinedColumn,
		Message: fmt.Sprintf("column %q of relation %q does not exist", column, table),
		Hint:    "apply the latest migrations",
		Err:     ErrSchemaMismatch,
	}
}
