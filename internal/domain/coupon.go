package domain

import "github.com/shopspring/decimal"

// ErrEmptyCouponCode is returned when the trimmed coupon code is empty.
// Checked before any network call.
var ErrEmptyCouponCode = &Error{Code: EINVALID, Message: "Coupon code is required"}

// CouponApplication is the currently active discount derived from a validated
// code. At most one is active per checkout session; a successful validation
// replaces any prior application in full, and a failed one clears it.
type CouponApplication struct {
	Code     string
	Discount decimal.Decimal
}
