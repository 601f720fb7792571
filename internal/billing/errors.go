package billing

import (
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v83"
)

var (
	// ErrInvalidAPIKey is returned when Stripe API key is invalid or missing.
	ErrInvalidAPIKey = errors.New("billing: invalid or missing API key")

	// ErrNoLineItems is returned when a session is requested for nothing.
	ErrNoLineItems = errors.New("billing: checkout session needs at least one line item")

	// ErrMissingSessionURL is returned when the processor answers without a redirect URL.
	ErrMissingSessionURL = errors.New("billing: checkout session has no URL")

	// ErrCircuitOpen is returned without calling Stripe while the breaker is open.
	ErrCircuitOpen = errors.New("billing: payment processor unavailable")
)

// StripeError wraps a Stripe API error with additional context.
type StripeError struct {
	Message       string // Human-readable error message
	Code          string // Stripe error code (e.g., "amount_too_small")
	Type          string // Stripe error type (e.g., "invalid_request_error")
	StatusCode    int    // HTTP status code from Stripe
	RequestID     string // Stripe request ID for debugging
	OriginalError error  // Original error from Stripe SDK
}

func (e *StripeError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("stripe: %s (code: %s)", e.Message, e.Code)
	}
	return fmt.Sprintf("stripe: %s", e.Message)
}

func (e *StripeError) Unwrap() error {
	return e.OriginalError
}

// IsTemporary returns true if error is likely transient.
func (e *StripeError) IsTemporary() bool {
	return e.Code == "rate_limit" || e.Type == "api_connection_error" || e.StatusCode >= 500
}

// IsClientError reports errors caused by the request itself; these never
// count against the processor's health.
func (e *StripeError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != 429
}

// wrapStripeError converts stripe-go errors into StripeError.
func wrapStripeError(err error) error {
	if err == nil {
		return nil
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return &StripeError{
			Message:       stripeErr.Msg,
			Code:          string(stripeErr.Code),
			Type:          string(stripeErr.Type),
			StatusCode:    stripeErr.HTTPStatusCode,
			RequestID:     stripeErr.RequestID,
			OriginalError: err,
		}
	}

	return &StripeError{
		Message:       err.Error(),
		Type:          "api_connection_error",
		OriginalError: err,
	}
}
