package billing

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAPIKey is returned when the provider API key is missing.
	ErrInvalidAPIKey = errors.New("billing: invalid or missing API key")

	// ErrAmountTooSmall is returned when the amount is below the provider minimum.
	ErrAmountTooSmall = errors.New("billing: amount too small")
)

// ProviderError wraps a provider API error with its machine code.
type ProviderError struct {
	Message       string
	Code          string
	OriginalError error
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("billing: %s (code: %s)", e.Message, e.Code)
	}
	return fmt.Sprintf("billing: %s", e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.OriginalError
}

// IsTemporary returns true if the error is likely transient and retryable.
func (e *ProviderError) IsTemporary() bool {
	return e.Code == "rate_limit" || e.Code == "api_connection_error"
}
