package repositories

import "fmt"

// InventoryErrorCode enumerates repository error causes for stock operations.
type InventoryErrorCode string

const (
	// InventoryErrorUnknown represents an unspecified failure.
	InventoryErrorUnknown InventoryErrorCode = "inventory_unknown"
	// InventoryErrorStockNotFound indicates the purchasable has no stock row.
	InventoryErrorStockNotFound InventoryErrorCode = "inventory_stock_not_found"
	// InventoryErrorMovementNotFound indicates the ledger entry is missing.
	InventoryErrorMovementNotFound InventoryErrorCode = "inventory_movement_not_found"
	// InventoryErrorLockRequired indicates a stock write outside a unit of work.
	InventoryErrorLockRequired InventoryErrorCode = "inventory_lock_required"
)

// InventoryError wraps inventory-specific failures with machine readable codes.
type InventoryError struct {
	Op      string
	Code    InventoryErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *InventoryError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap exposes the underlying error, if any.
func (e *InventoryError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsNotFound reports whether the error represents a missing stock row or entry.
func (e *InventoryError) IsNotFound() bool {
	return e != nil && (e.Code == InventoryErrorStockNotFound || e.Code == InventoryErrorMovementNotFound)
}

// IsConflict reports whether the error represents a conflicting update.
func (e *InventoryError) IsConflict() bool {
	return e != nil && e.Code == InventoryErrorLockRequired
}

// IsUnavailable reports whether the error represents a transient outage.
func (e *InventoryError) IsUnavailable() bool { return false }

// NewInventoryError constructs a typed inventory error.
func NewInventoryError(code InventoryErrorCode, message string, err error) *InventoryError {
	if message == "" {
		message = string(code)
	}
	return &InventoryError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
