package domain

import (
	"errors"
	"testing"
)

func TestComputeStockSyncDerivesStatus(t *testing.T) {
	sync := ComputeStockSync(0, StockStatusOutOfStock, 25, "")
	if sync.NoOp {
		t.Fatalf("expected a real movement")
	}
	if sync.Delta != 25 || sync.Quantity != 25 {
		t.Fatalf("unexpected sync %+v", sync)
	}
	if sync.Status != StockStatusInStock {
		t.Fatalf("status = %s, want in_stock", sync.Status)
	}

	sync = ComputeStockSync(10, StockStatusInStock, 0, "")
	if sync.Status != StockStatusOutOfStock {
		t.Fatalf("status = %s, want out_of_stock", sync.Status)
	}
	if sync.Delta != -10 {
		t.Fatalf("delta = %d, want -10", sync.Delta)
	}
}

func TestComputeStockSyncOverrideWins(t *testing.T) {
	sync := ComputeStockSync(0, StockStatusOutOfStock, 0, StockStatusPreorder)
	if sync.NoOp {
		t.Fatalf("status change alone is not a no-op")
	}
	if sync.Status != StockStatusPreorder {
		t.Fatalf("status = %s, want preorder", sync.Status)
	}
	if sync.Delta != 0 {
		t.Fatalf("delta = %d, want 0", sync.Delta)
	}
}

func TestComputeStockSyncNoOp(t *testing.T) {
	sync := ComputeStockSync(5, StockStatusInStock, 5, "")
	if !sync.NoOp {
		t.Fatalf("identical quantity and derived status must be a no-op")
	}
	sync = ComputeStockSync(5, StockStatusInStock, 5, StockStatusInStock)
	if !sync.NoOp {
		t.Fatalf("identical quantity and explicit status must be a no-op")
	}
}

func TestComputeStockDecrement(t *testing.T) {
	dec, err := ComputeStockDecrement(5, 3)
	if err != nil {
		t.Fatalf("decrement failed: %v", err)
	}
	if dec.Delta != -3 || dec.Quantity != 2 || dec.Status != StockStatusInStock {
		t.Fatalf("unexpected decrement %+v", dec)
	}

	dec, err = ComputeStockDecrement(3, 3)
	if err != nil {
		t.Fatalf("decrement to zero failed: %v", err)
	}
	if dec.Quantity != 0 || dec.Status != StockStatusOutOfStock {
		t.Fatalf("unexpected decrement %+v", dec)
	}
}

func TestComputeStockDecrementInsufficient(t *testing.T) {
	if _, err := ComputeStockDecrement(2, 3); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}
}

func TestComputeStockDecrementRejectsNonPositive(t *testing.T) {
	for _, qty := range []int64{0, -1} {
		if _, err := ComputeStockDecrement(10, qty); !errors.Is(err, ErrNonPositiveQuantity) {
			t.Fatalf("qty %d: err = %v, want ErrNonPositiveQuantity", qty, err)
		}
	}
}

func TestSellable(t *testing.T) {
	base := Purchasable{
		Ref:           PurchasableRef{Kind: PurchasableProduct, ID: 1},
		Price:         1999,
		Currency:      "USD",
		StockQuantity: 5,
		StockStatus:   StockStatusInStock,
		IsActive:      true,
	}
	if err := Sellable(base, 5); err != nil {
		t.Fatalf("in-stock purchasable rejected: %v", err)
	}
	if err := Sellable(base, 6); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("over-quantity accepted: %v", err)
	}

	preorder := base
	preorder.StockStatus = StockStatusPreorder
	preorder.StockQuantity = 0
	if err := Sellable(preorder, 100); err != nil {
		t.Fatalf("preorder must bypass the quantity check: %v", err)
	}

	inactive := base
	inactive.IsActive = false
	if err := Sellable(inactive, 1); err == nil {
		t.Fatalf("inactive purchasable accepted")
	}

	out := base
	out.StockStatus = StockStatusOutOfStock
	if err := Sellable(out, 1); err != nil {
		t.Fatalf("status override must not block remaining stock: %v", err)
	}
	out.StockQuantity = 0
	if err := Sellable(out, 1); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("drained purchasable accepted: %v", err)
	}
}
