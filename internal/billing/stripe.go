package billing

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
)

// StripeProvider implements Provider using Stripe payment intents.
type StripeProvider struct {
	apiKey string
}

// NewStripeProvider creates a Stripe billing provider.
func NewStripeProvider(apiKey string) (*StripeProvider, error) {
	if apiKey == "" {
		return nil, ErrInvalidAPIKey
	}
	stripe.Key = apiKey
	return &StripeProvider{apiKey: apiKey}, nil
}

// IsTestMode reports whether the configured key is a test-mode key.
func (s *StripeProvider) IsTestMode() bool {
	return len(s.apiKey) > 8 && s.apiKey[:8] == "sk_test_"
}

// CreatePaymentIntent creates a Stripe payment intent.
func (s *StripeProvider) CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error) {
	piParams := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(params.AmountSatang),
		Currency: stripe.String(params.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	piParams.Context = ctx
	if params.Description != "" {
		piParams.Description = stripe.String(params.Description)
	}
	if params.CustomerEmail != "" {
		piParams.ReceiptEmail = stripe.String(params.CustomerEmail)
	}
	if params.IdempotencyKey != "" {
		piParams.IdempotencyKey = stripe.String(params.IdempotencyKey)
	}
	for key, value := range params.Metadata {
		piParams.AddMetadata(key, value)
	}

	pi, err := paymentintent.New(piParams)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	return &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		AmountSatang: pi.Amount,
	}, nil
}

func wrapStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.Code == stripe.ErrorCodeAmountTooSmall {
			return ErrAmountTooSmall
		}
		return &ProviderError{
			Message:       stripeErr.Msg,
			Code:          string(stripeErr.Code),
			OriginalError: err,
		}
	}
	return &ProviderError{Message: err.Error(), OriginalError: err}
}
