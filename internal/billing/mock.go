package billing

import "context"

// MockProvider implements Provider for testing.
type MockProvider struct {
	CreatePaymentIntentFunc func(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error)

	// Calls records every CreatePaymentIntent invocation.
	Calls []CreatePaymentIntentParams
}

func (m *MockProvider) CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error) {
	m.Calls = append(m.Calls, params)
	if m.CreatePaymentIntentFunc != nil {
		return m.CreatePaymentIntentFunc(ctx, params)
	}
	return &PaymentIntent{
		ID:           "pi_mock",
		ClientSecret: "pi_mock_secret",
		Status:       "requires_payment_method",
		AmountSatang: params.AmountSatang,
	}, nil
}
