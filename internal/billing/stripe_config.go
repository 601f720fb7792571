package billing

import (
	"errors"
	"strings"
	"time"
)

// StripeConfig contains configuration for Stripe provider.
type StripeConfig struct {
	// APIKey is the Stripe secret key (sk_test_... or sk_live_...)
	APIKey string

	// Currency is used for every session (lowercase ISO 4217).
	Currency string

	// BreakerFailures is the number of consecutive failures that opens the
	// circuit. Default: 5
	BreakerFailures uint32

	// BreakerCooldown is how long the circuit stays open before a probe.
	// Default: 30s
	BreakerCooldown time.Duration
}

// Validate checks that required configuration is present.
func (c *StripeConfig) Validate() error {
	if c.APIKey == "" {
		return ErrInvalidAPIKey
	}
	if !strings.HasPrefix(c.APIKey, "sk_") && !strings.HasPrefix(c.APIKey, "rk_") {
		return ErrInvalidAPIKey
	}
	if c.Currency == "" {
		return errors.New("stripe: currency is required")
	}
	return nil
}

// IsTestMode returns true if using test mode API keys.
func (c *StripeConfig) IsTestMode() bool {
	return strings.HasPrefix(c.APIKey, "sk_test_") || strings.HasPrefix(c.APIKey, "rk_test_")
}

func (c *StripeConfig) withDefaults() StripeConfig {
	out := *c
	if out.BreakerFailures == 0 {
		out.BreakerFailures = 5
	}
	if out.BreakerCooldown == 0 {
		out.BreakerCooldown = 30 * time.Second
	}
	return out
}
