package domain

import "github.com/shopspring/decimal"

// Product is the read projection of a catalog product as served by the
// commerce API. It is immutable from the storefront's perspective; every
// request sources a fresh copy.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	SalePrice   *decimal.Decimal
	Stock       int
	ImageURL    string
}

// EffectiveUnitPrice returns the sale price if one is set, otherwise the list
// price.
func (p Product) EffectiveUnitPrice() decimal.Decimal {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.Price
}

// OnSale reports whether a sale price is set and actually lower than the list
// price.
func (p Product) OnSale() bool {
	return p.SalePrice != nil && p.SalePrice.LessThan(p.Price)
}

// Purchasable reports whether the product can be added to a cart. A product
// with zero stock is displayed but not orderable.
func (p Product) Purchasable() bool {
	return p.Stock > 0
}
