package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v83"
	checkoutsession "github.com/stripe/stripe-go/v83/checkout/session"
)

// sessionCreator matches checkoutsession.New so tests can stub the API call.
type sessionCreator func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)

// StripeProvider implements Provider using Stripe Checkout.
// Calls go through a circuit breaker so an unhealthy processor fails fast.
type StripeProvider struct {
	config  StripeConfig
	create  sessionCreator
	breaker *gobreaker.CircuitBreaker[*stripe.CheckoutSession]
	logger  *slog.Logger
}

// NewStripeProvider creates a new Stripe billing provider.
func NewStripeProvider(config StripeConfig, logger *slog.Logger) (*StripeProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	cfg := config.withDefaults()

	stripe.Key = cfg.APIKey

	return newStripeProvider(cfg, checkoutsession.New, logger), nil
}

func newStripeProvider(cfg StripeConfig, create sessionCreator, logger *slog.Logger) *StripeProvider {
	logger = logger.With("component", "stripe")

	breaker := gobreaker.NewCircuitBreaker[*stripe.CheckoutSession](gobreaker.Settings{
		Name:        "stripe-checkout",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var se *StripeError
			return errors.As(err, &se) && se.IsClientError()
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("payment processor circuit changed state",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
	})

	return &StripeProvider{
		config:  cfg,
		create:  create,
		breaker: breaker,
		logger:  logger,
	}
}

// CreateCheckoutSession creates a Stripe Checkout session in payment mode.
// Prices are sent inline; no Stripe Price objects are required.
func (s *StripeProvider) CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error) {
	if len(params.LineItems) == 0 {
		return nil, ErrNoLineItems
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stripeParams := s.buildSessionParams(params)
	stripeParams.Context = ctx

	session, err := s.breaker.Execute(func() (*stripe.CheckoutSession, error) {
		session, err := s.create(stripeParams)
		if err != nil {
			return nil, wrapStripeError(err)
		}
		return session, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return nil, err
	}

	if session.URL == "" {
		return nil, ErrMissingSessionURL
	}

	s.logger.Info("checkout session created",
		"session_id", session.ID,
		"amount_total", session.AmountTotal)

	return &CheckoutSession{
		ID:               session.ID,
		URL:              session.URL,
		AmountTotalCents: session.AmountTotal,
		Currency:         string(session.Currency),
	}, nil
}

func (s *StripeProvider) buildSessionParams(params CreateCheckoutSessionParams) *stripe.CheckoutSessionParams {
	currency := params.Currency
	if currency == "" {
		currency = s.config.Currency
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(params.LineItems))
	for _, li := range params.LineItems {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(li.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(li.UnitAmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(li.Title),
					Metadata: map[string]string{
						"product_id": li.ProductID,
					},
				},
			},
		})
	}

	sp := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lineItems,
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
		Metadata:   params.Metadata,
	}
	if params.ClientReferenceID != "" {
		sp.ClientReferenceID = stripe.String(params.ClientReferenceID)
	}
	return sp
}
