package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrUniqueViolation     = errors.New("unique violation")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrUnavailable         = errors.New("database unavailable")
)

// SQLSTATE codes the API distinguishes.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeNotNullViolation    = "23502"
	codeCheckViolation      = "23514"
)

// ConstraintError keeps the SQLSTATE and constraint name of a rejected
// statement while matching one of the sentinel errors above.
type ConstraintError struct {
	kind       error
	Code       string
	Constraint string
	op         string
	err        error
}

// NewConstraintError builds a ConstraintError matching kind, which is
// ErrUniqueViolation or ErrConstraintViolation.
func NewConstraintError(kind error, op, code, constraint string, err error) *ConstraintError {
	return &ConstraintError{kind: kind, Code: code, Constraint: constraint, op: op, err: err}
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.op, e.kind, e.Code)
}

func (e *ConstraintError) Is(target error) bool {
	return target == e.kind
}

func (e *ConstraintError) Unwrap() error {
	return e.err
}

// classify wraps err with op and maps driver failures to the store's
// sentinel errors.
func classify(op string, err error) error {
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
		switch pgErr.Code {
		case codeUniqueViolation:
			return NewConstraintError(ErrUniqueViolation, op, pgErr.Code, pgErr.ConstraintName, err)
		case codeForeignKeyViolation, codeNotNullViolation, codeCheckViolation:
			return NewConstraintError(ErrConstraintViolation, op, pgErr.Code, pgErr.ConstraintName, err)
		}
		// Class 08 is connection exceptions.
		if len(pgErr.Code) == 5 && pgErr.Code[:2] == "08" {
			return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	var connectErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connectErr) || errors.As(err, &netErr) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
