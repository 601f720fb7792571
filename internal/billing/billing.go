package billing

import (
	"context"

	"github.com/shopspring/decimal"
)

// Provider defines the interface for payment processing.
// Implementations can use Stripe or the in-memory mock.
type Provider interface {
	// CreateCheckoutSession opens a hosted payment page for the given lines.
	// The returned session URL is where the customer is redirected.
	// Implementations make exactly one attempt; callers own any retry policy.
	CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error)
}

// CreateCheckoutSessionParams describes a one-time payment.
type CreateCheckoutSessionParams struct {
	// Currency is an ISO 4217 code in lowercase (e.g. "eur").
	Currency string

	// LineItems carry server-resolved prices only.
	LineItems []LineItem

	// SuccessURL and CancelURL are absolute return URLs.
	SuccessURL string
	CancelURL  string

	// ClientReferenceID identifies the cart owner so the payment webhook
	// can attach the order to it.
	ClientReferenceID string

	// Metadata is copied onto the session (billing entity, product ids).
	Metadata map[string]string
}

// LineItem is one priced product in a checkout session.
type LineItem struct {
	ProductID       string
	Title           string
	UnitAmountCents int64
	Quantity        int64
}

// TotalCents returns the sum of all lines in minor units.
func (p CreateCheckoutSessionParams) TotalCents() int64 {
	var total int64
	for _, li := range p.LineItems {
		total += li.UnitAmountCents * li.Quantity
	}
	return total
}

// CheckoutSession is a created hosted payment page.
type CheckoutSession struct {
	ID               string
	URL              string
	AmountTotalCents int64
	Currency         string
}

// ToMinorUnits converts a decimal price to cents, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
