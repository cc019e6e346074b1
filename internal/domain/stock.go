package domain

import "errors"

// Ledger reasons recorded on stock movements.
const (
	StockReasonManualSync   = "manual_sync"
	StockReasonOrderCreated = "order_created"
	StockReasonRestock      = "restock"
	StockReasonReturn       = "return_received"
)

var (
	// ErrInsufficientStock is returned when a decrement would drive the
	// on-hand quantity below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrNonPositiveQuantity is returned when a decrement quantity is not
	// strictly positive.
	ErrNonPositiveQuantity = errors.New("quantity must be positive")
)

// StockSync is the computed outcome of an absolute stock synchronisation.
type StockSync struct {
	// NoOp is true when neither quantity nor status would change; callers
	// must not write a ledger entry for a no-op.
	NoOp bool
	// Delta is the signed movement quantity (target minus current).
	Delta int64
	// Quantity is the resulting on-hand quantity.
	Quantity int64
	// Status is the resulting stock status.
	Status StockStatus
}

// ComputeStockSync derives the outcome of setting an entity's stock to an
// absolute target. When statusOverride is empty the status follows the
// quantity: positive quantities are in_stock, everything else out_of_stock.
// An explicit override (including preorder) wins over the derivation.
func ComputeStockSync(currentQty int64, currentStatus StockStatus, targetQty int64, statusOverride StockStatus) StockSync {
	status := statusOverride
	if status == "" {
		if targetQty > 0 {
			status = StockStatusInStock
		} else {
			status = StockStatusOutOfStock
		}
	}
	return StockSync{
		NoOp:     targetQty == currentQty && status == currentStatus,
		Delta:    targetQty - currentQty,
		Quantity: targetQty,
		Status:   status,
	}
}

// StockDecrement is the computed outcome of a relative stock decrement.
type StockDecrement struct {
	// Delta is the signed movement quantity, always negative.
	Delta int64
	// Quantity is the resulting on-hand quantity, never negative.
	Quantity int64
	// Status is the resulting stock status.
	Status StockStatus
}

// ComputeStockDecrement derives the outcome of consuming qty units. The
// quantity must be strictly positive and must not exceed the current on-hand
// quantity. The status always follows the remaining quantity, discarding any
// earlier override.
func ComputeStockDecrement(currentQty, qty int64) (StockDecrement, error) {
	if qty <= 0 {
		return StockDecrement{}, ErrNonPositiveQuantity
	}
	remaining := currentQty - qty
	if remaining < 0 {
		return StockDecrement{}, ErrInsufficientStock
	}
	status := StockStatusOutOfStock
	if remaining > 0 {
		status = StockStatusInStock
	}
	return StockDecrement{Delta: -qty, Quantity: remaining, Status: status}, nil
}

// Sellable reports whether a purchasable can be added to a cart with the
// requested quantity. Preorder entities bypass the quantity check; otherwise
// availability is judged on the on-hand quantity alone, so a status override
// never blocks remaining stock.
func Sellable(p Purchasable, qty int64) error {
	if !p.IsActive {
		return ErrInsufficientStock
	}
	if p.StockStatus == StockStatusPreorder {
		return nil
	}
	if p.StockQuantity < qty {
		return ErrInsufficientStock
	}
	return nil
}
