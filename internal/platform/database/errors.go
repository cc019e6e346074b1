package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// MySQL server error numbers that map onto repository semantics.
const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

// Error implements repositories.RepositoryError for MySQL backed repositories.
type Error struct {
	op          string
	err         error
	notFound    bool
	conflict    bool
	unavailable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.op != "" {
		return fmt.Sprintf("%s: %v", e.op, e.err)
	}
	return e.err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// IsNotFound reports whether the error represents a missing row.
func (e *Error) IsNotFound() bool {
	return e != nil && e.notFound
}

// IsConflict reports whether the error represents a conflicting update.
func (e *Error) IsConflict() bool {
	return e != nil && e.conflict
}

// IsUnavailable reports whether the error represents a transient backend outage.
func (e *Error) IsUnavailable() bool {
	return e != nil && e.unavailable
}

func newError(op string, err error) *Error {
	if err == nil {
		return nil
	}

	e := &Error{op: op, err: err}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		e.notFound = true
	case errors.Is(err, gorm.ErrDuplicatedKey):
		e.conflict = true
	case errors.Is(err, gorm.ErrInvalidTransaction):
		e.conflict = true
	default:
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) {
			switch mysqlErr.Number {
			case mysqlErrDuplicateEntry:
				e.conflict = true
			case mysqlErrDeadlock, mysqlErrLockWaitTimeout:
				e.unavailable = true
			}
		} else if errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, gorm.ErrInvalidDB) {
			e.unavailable = true
		}
	}
	return e
}

// NewNotFound builds a not-found error for guards that cannot rely on the
// driver, e.g. zero rows affected by a keyed update.
func NewNotFound(op, message string) *Error {
	return &Error{op: op, err: errors.New(message), notFound: true}
}

// NewConflict builds a conflict error for optimistic guards such as status
// preconditions.
func NewConflict(op, message string) *Error {
	return &Error{op: op, err: errors.New(message), conflict: true}
}

// WrapError annotates database errors with repository semantics. Context
// cancellations are passed through untouched.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var repoErr *Error
	if errors.As(err, &repoErr) {
		if op != "" && repoErr.op == "" {
			repoErr.op = op
		}
		return repoErr
	}
	return newError(op, err)
}
