package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

func TestWrapErrorMapsNotFound(t *testing.T) {
	err := WrapError("orders.get", gorm.ErrRecordNotFound)
	var repoErr *Error
	if !errors.As(err, &repoErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if !repoErr.IsNotFound() {
		t.Fatalf("expected not found")
	}
	if repoErr.IsConflict() || repoErr.IsUnavailable() {
		t.Fatalf("unexpected flags: %+v", repoErr)
	}
}

func TestWrapErrorMapsDuplicateEntry(t *testing.T) {
	cases := []error{
		gorm.ErrDuplicatedKey,
		&mysql.MySQLError{Number: mysqlErrDuplicateEntry, Message: "Duplicate entry"},
	}
	for _, cause := range cases {
		err := WrapError("carts.create", cause)
		var repoErr *Error
		if !errors.As(err, &repoErr) {
			t.Fatalf("expected *Error, got %T", err)
		}
		if !repoErr.IsConflict() {
			t.Errorf("expected conflict for %v", cause)
		}
	}
}

func TestWrapErrorMapsDeadlockToUnavailable(t *testing.T) {
	err := WrapError("stock.lock", &mysql.MySQLError{Number: mysqlErrDeadlock, Message: "Deadlock found"})
	var repoErr *Error
	if !errors.As(err, &repoErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if !repoErr.IsUnavailable() {
		t.Fatalf("expected unavailable")
	}
}

func TestWrapErrorPassesThroughContextErrors(t *testing.T) {
	if err := WrapError("op", context.Canceled); !errors.Is(err, context.Canceled) {
		t.Fatalf("context.Canceled not preserved: %v", err)
	}
	if err := WrapError("op", fmt.Errorf("wrapped: %w", context.DeadlineExceeded)); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("deadline not preserved: %v", err)
	}
}

func TestWrapErrorKeepsExistingRepositoryError(t *testing.T) {
	inner := WrapError("", gorm.ErrRecordNotFound)
	outer := WrapError("orders.get", inner)
	var repoErr *Error
	if !errors.As(outer, &repoErr) {
		t.Fatalf("expected *Error, got %T", outer)
	}
	if repoErr.op != "orders.get" {
		t.Fatalf("op not filled in: %q", repoErr.op)
	}
	if !repoErr.IsNotFound() {
		t.Fatalf("classification lost on rewrap")
	}
}

func TestWrapErrorNil(t *testing.T) {
	if err := WrapError("op", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
