// Package billing abstracts payment-intent creation for card checkouts.
// Bank transfers and cash on delivery never touch this package.
package billing

import "context"

// Provider defines the interface for payment processing.
// Implementations can use Stripe, Omise, etc.
type Provider interface {
	// CreatePaymentIntent creates a payment intent for a one-time charge and
	// returns the client secret the frontend confirms with.
	CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error)
}

// CreatePaymentIntentParams contains parameters for creating a payment intent.
type CreatePaymentIntentParams struct {
	// AmountSatang is the amount in the smallest currency unit
	// (satang for THB).
	AmountSatang int64

	// Currency code (ISO 4217), e.g. "thb".
	Currency string

	// Description appears on the customer's statement and in the provider
	// dashboard.
	Description string

	// CustomerEmail prefills the payment sheet.
	CustomerEmail string

	// IdempotencyKey prevents duplicate intents when a submission is retried.
	IdempotencyKey string

	// Metadata for filtering and reporting (order_id, session_id).
	Metadata map[string]string
}

// PaymentIntent represents a created payment intent.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
	AmountSatang int64
}
