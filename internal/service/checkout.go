package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dukerupert/boutique/internal/billing"
	"github.com/dukerupert/boutique/internal/domain"
	"github.com/dukerupert/boutique/internal/telemetry"
	"github.com/shopspring/decimal"
)

// CheckoutService runs the cart-to-payment pipeline.
type CheckoutService interface {
	// RunCheckout reads the owner's cart, prices and validates it, and opens a
	// payment session. Each call is one independent attempt.
	RunCheckout(ctx context.Context, params CheckoutParams) (*CheckoutResult, error)
}

// CheckoutParams identifies who checks out, who pays, and where the
// payment page returns to.
type CheckoutParams struct {
	Owner         domain.Principal
	BillingEntity domain.BillingEntity
	SuccessURL    string
	CancelURL     string
}

// CheckoutResult is a successful attempt.
type CheckoutResult struct {
	RedirectURL string
	SessionID   string
	State       domain.CheckoutState
	Subtotal    decimal.Decimal
}

type checkoutService struct {
	carts      domain.CartStore
	aggregator *Aggregator
	initiator  *Initiator
	metrics    *telemetry.CheckoutMetrics
	logger     *slog.Logger
}

// NewCheckoutService creates a new CheckoutService instance.
func NewCheckoutService(carts domain.CartStore, aggregator *Aggregator, initiator *Initiator, metrics *telemetry.CheckoutMetrics, logger *slog.Logger) CheckoutService {
	return &checkoutService{
		carts:      carts,
		aggregator: aggregator,
		initiator:  initiator,
		metrics:    metrics,
		logger:     logger.With("service", "checkout"),
	}
}

func (s *checkoutService) RunCheckout(ctx context.Context, params CheckoutParams) (*CheckoutResult, error) {
	if params.Owner.OwnerKey() == "" {
		return nil, domain.ErrMissingPrincipal
	}

	ctx, finish := telemetry.StartSpan(ctx, "checkout.run", params.BillingEntity.String())
	defer finish()

	attempt := s.newAttempt(ctx, params.Owner)

	payload, err := s.carts.GetCart(ctx, params.Owner)
	if err != nil {
		if !domain.IsCheckoutKind(err, domain.KindMalformedCart) {
			err = domain.NewCheckoutError(domain.KindCartLookupFailed, err)
		}
		return nil, attempt.fail(ctx, err)
	}

	agg, err := s.aggregator.Aggregate(ctx, payload)
	if err != nil {
		return nil, attempt.fail(ctx, err)
	}
	attempt.advance(ctx, domain.StateAggregated, "lines", len(agg.Items), "unavailable", len(agg.Unavailable))

	items, err := ValidateAvailability(agg)
	if err != nil {
		return nil, attempt.fail(ctx, err)
	}
	attempt.advance(ctx, domain.StateValidated, "subtotal", agg.Subtotal.StringFixed(2))

	attempt.advance(ctx, domain.StateSessionRequested)
	session, err := s.initiator.Initiate(ctx, domain.CheckoutRequest{
		Owner:         params.Owner,
		LineItems:     items,
		BillingEntity: params.BillingEntity,
		SuccessURL:    params.SuccessURL,
		CancelURL:     params.CancelURL,
	})
	if err != nil {
		return nil, attempt.fail(ctx, err)
	}
	attempt.advance(ctx, domain.StateRedirected, "session_id", session.ID)
	s.metrics.Redirected(billing.ToMinorUnits(agg.Subtotal))

	return &CheckoutResult{
		RedirectURL: session.URL,
		SessionID:   session.ID,
		State:       attempt.state,
		Subtotal:    agg.Subtotal,
	}, nil
}

// attempt tracks one checkout through its states.
type attempt struct {
	state   domain.CheckoutState
	metrics *telemetry.CheckoutMetrics
	logger  *slog.Logger
}

func (s *checkoutService) newAttempt(ctx context.Context, owner domain.Principal) *attempt {
	s.metrics.Started()
	a := &attempt{
		state:   domain.StateDraft,
		metrics: s.metrics,
		logger:  s.logger.With("owner", owner.Reference()),
	}
	a.logger.DebugContext(ctx, "checkout started")
	return a
}

func (a *attempt) advance(ctx context.Context, next domain.CheckoutState, attrs ...any) {
	from := a.state
	state, err := a.state.Transition(next)
	if err != nil {
		a.logger.ErrorContext(ctx, "checkout state machine", "error", err)
		return
	}
	a.state = state
	a.metrics.Reached(string(state))
	telemetry.AddBreadcrumb("checkout", string(from)+" -> "+string(state), nil)
	a.logger.InfoContext(ctx, "checkout transition", append([]any{"from", from, "to", state}, attrs...)...)
}

// fail logs with the request context so handlers see its request id.
func (a *attempt) fail(ctx context.Context, err error) error {
	from := a.state
	a.state = domain.StateFailed
	a.metrics.Reached(string(domain.StateFailed))

	kind := "unknown"
	var violations []string
	var ce *domain.CheckoutError
	if errors.As(err, &ce) {
		kind = string(ce.Kind)
	}
	for _, v := range domain.CheckoutViolations(err) {
		violations = append(violations, string(v.Kind))
	}
	a.metrics.Failed(kind, violations...)

	level := slog.LevelWarn
	if domain.ErrorCode(err) == domain.EINTERNAL || domain.ErrorCode(err) == domain.EUNAVAILABLE {
		level = slog.LevelError
	}
	a.logger.Log(ctx, level, "checkout failed",
		"from", from,
		"kind", kind,
		"violations", violations,
		"error", err)
	return err
}
