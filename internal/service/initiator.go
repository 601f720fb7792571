package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/boutique/internal/billing"
	"github.com/dukerupert/boutique/internal/domain"
	"github.com/dukerupert/boutique/internal/telemetry"
	"github.com/google/uuid"
)

// maxMetadataValue is Stripe's limit for a metadata value.
const maxMetadataValue = 500

// OrganizationDirectory answers membership questions for organization billing.
type OrganizationDirectory interface {
	IsMember(ctx context.Context, userID, organizationID uuid.UUID) (bool, error)
}

// Initiator opens a payment session for a validated cart. It makes exactly
// one processor call per checkout attempt; retrying is the customer's call.
type Initiator struct {
	provider billing.Provider
	orgs     OrganizationDirectory
	currency string
	timeout  time.Duration
	metrics  *telemetry.CheckoutMetrics
	logger   *slog.Logger
}

// NewInitiator creates an Initiator. timeout bounds the processor call.
func NewInitiator(provider billing.Provider, orgs OrganizationDirectory, currency string, timeout time.Duration, metrics *telemetry.CheckoutMetrics, logger *slog.Logger) *Initiator {
	return &Initiator{
		provider: provider,
		orgs:     orgs,
		currency: currency,
		timeout:  timeout,
		metrics:  metrics,
		logger:   logger.With("service", "initiator"),
	}
}

// Initiate checks the billing entity and requests a hosted payment page.
// Lines are sent with server-resolved prices only.
func (i *Initiator) Initiate(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error) {
	if err := i.authorizeBilling(ctx, req.Owner, req.BillingEntity); err != nil {
		return nil, err
	}

	params := i.buildParams(req)

	callCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	start := time.Now()
	session, err := i.provider.CreateCheckoutSession(callCtx, params)
	i.metrics.ObservePayment(start, err)
	if err != nil {
		i.logger.Error("payment session creation failed",
			"owner", req.Owner.Reference(),
			"billing_entity", req.BillingEntity.String(),
			"total_cents", params.TotalCents(),
			"duration", time.Since(start),
			"error", err)
		return nil, domain.NewCheckoutError(domain.KindPaymentSessionFailed, err)
	}
	if session == nil || session.URL == "" {
		return nil, domain.NewCheckoutError(domain.KindPaymentSessionFailed, billing.ErrMissingSessionURL)
	}

	return &domain.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

func (i *Initiator) authorizeBilling(ctx context.Context, owner domain.Principal, entity domain.BillingEntity) error {
	if !entity.IsOrganization() {
		return nil
	}

	forbidden := func(err error) error {
		return domain.NewCheckoutError(domain.KindForbiddenBillingEntity, err)
	}

	if !owner.IsAuthenticated() || entity.OrganizationID == uuid.Nil || i.orgs == nil {
		return forbidden(nil)
	}

	member, err := i.orgs.IsMember(ctx, owner.UserID, entity.OrganizationID)
	if err != nil {
		i.logger.Error("organization membership check failed",
			"user_id", owner.UserID,
			"organization_id", entity.OrganizationID,
			"error", err)
		return forbidden(err)
	}
	if !member {
		i.logger.Warn("organization billing refused",
			"user_id", owner.UserID,
			"organization_id", entity.OrganizationID)
		return forbidden(nil)
	}
	return nil
}

func (i *Initiator) buildParams(req domain.CheckoutRequest) billing.CreateCheckoutSessionParams {
	lines := make([]billing.LineItem, len(req.LineItems))
	ids := make([]string, len(req.LineItems))
	for n, li := range req.LineItems {
		lines[n] = billing.LineItem{
			ProductID:       li.ProductID,
			Title:           li.Title,
			UnitAmountCents: billing.ToMinorUnits(li.UnitPrice),
			Quantity:        int64(li.Quantity),
		}
		ids[n] = li.ProductID
	}

	metadata := map[string]string{
		"owner":          req.Owner.Reference(),
		"billing_entity": string(req.BillingEntity.Kind),
	}
	if req.BillingEntity.IsOrganization() {
		metadata["organization_id"] = req.BillingEntity.OrganizationID.String()
	}
	if req.Owner.IsAuthenticated() {
		metadata["user_id"] = req.Owner.UserID.String()
	}
	if joined := strings.Join(ids, ","); len(joined) <= maxMetadataValue {
		metadata["product_ids"] = joined
	}

	return billing.CreateCheckoutSessionParams{
		Currency:          i.currency,
		LineItems:         lines,
		SuccessURL:        req.SuccessURL,
		CancelURL:         req.CancelURL,
		ClientReferenceID: req.Owner.Reference(),
		Metadata:          metadata,
	}
}
