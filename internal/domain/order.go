package domain

import "github.com/shopspring/decimal"

// Payment methods accepted at checkout.
const (
	PaymentBankTransfer = "bank_transfer"
	PaymentCreditCard   = "credit_card"
	PaymentCOD          = "cod"
)

// ValidPaymentMethod reports whether method is one of the accepted values.
func ValidPaymentMethod(method string) bool {
	switch method {
	case PaymentBankTransfer, PaymentCreditCard, PaymentCOD:
		return true
	}
	return false
}

// ShippingAddress is constructed incrementally by the client and consumed once
// at order submission. Recipient, Line1 and City are mandatory.
type ShippingAddress struct {
	Recipient  string `json:"recipient" validate:"required"`
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// OrderLine is one submitted line item. PriceAtPurchase is captured at
// submission time from the last-loaded cart snapshot, not re-fetched, so the
// order records what the customer saw.
type OrderLine struct {
	ProductID       string
	Quantity        int
	PriceAtPurchase decimal.Decimal
}

// PaymentSlip is the uploaded proof-of-payment file for bank transfers.
type PaymentSlip struct {
	Filename    string
	ContentType string
	Data        []byte
}

// OrderDraft is the in-memory, not-yet-persisted representation of a checkout
// submission. It either becomes a persisted order upstream or is discarded on
// failure.
type OrderDraft struct {
	Lines         []OrderLine
	Address       ShippingAddress
	PaymentMethod string
	CouponCode    string
	Slip          *PaymentSlip
}

// OrderConfirmation is the upstream acknowledgement of a submitted order.
type OrderConfirmation struct {
	OrderID string
}
