package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart domain errors.
var (
	ErrInvalidQuantity = &Error{Code: EINVALID, Message: "Quantity must be greater than 0"}

	// ErrStockExceeded is the local stock pre-check failure: the requested
	// quantity plus what the cart already holds exceeds the last-known stock.
	// No write request is issued when this fires; the server remains the
	// final authority and may still reject independently.
	ErrStockExceeded = &Error{Code: EINVALID, Message: "Requested quantity exceeds available stock"}
)

// CartItem is one cart line, enriched with its product projection.
type CartItem struct {
	ID       string
	Quantity int
	Product  Product
}

// LineTotal returns effective unit price times quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Product.EffectiveUnitPrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartSnapshot is the storefront's transient, non-owning read of the server
// cart. It is replaced atomically on every successful load; a failed load
// leaves the prior snapshot untouched.
type CartSnapshot struct {
	Items    []CartItem
	LoadedAt time.Time
}

// Subtotal sums effective unit price times quantity over all items.
func (s *CartSnapshot) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range s.Items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

// QuantityOf returns the live quantity of the given product in the snapshot,
// or zero if it is not in the cart.
func (s *CartSnapshot) QuantityOf(productID string) int {
	for _, item := range s.Items {
		if item.Product.ID == productID {
			return item.Quantity
		}
	}
	return 0
}

// Empty reports whether the snapshot holds no items.
func (s *CartSnapshot) Empty() bool {
	return s == nil || len(s.Items) == 0
}
