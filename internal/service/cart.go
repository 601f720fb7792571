package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/boutique/internal/domain"
	"github.com/dukerupert/boutique/internal/telemetry"
	"github.com/shopspring/decimal"
)

// CartService provides business logic for shopping cart operations
type CartService interface {
	GetCart(ctx context.Context, owner domain.Principal) (*CartView, error)
	AddItem(ctx context.Context, owner domain.Principal, productID string, quantity int) (*domain.CartItem, error)
	SetQuantity(ctx context.Context, owner domain.Principal, cartItemID string, quantity int) error
	RemoveItem(ctx context.Context, owner domain.Principal, cartItemID string) error
}

// CartView is a priced cart for display. It is not validated against stock.
type CartView struct {
	Items       []domain.LineItem
	Unavailable []string
	Subtotal    decimal.Decimal
	ItemCount   int
}

type cartService struct {
	store      domain.CartStore
	catalog    domain.CatalogLookup
	aggregator *Aggregator
	timeout    time.Duration
	metrics    *telemetry.CheckoutMetrics
	logger     *slog.Logger
}

// NewCartService creates a new CartService instance
func NewCartService(store domain.CartStore, catalog domain.CatalogLookup, aggregator *Aggregator, timeout time.Duration, metrics *telemetry.CheckoutMetrics, logger *slog.Logger) CartService {
	return &cartService{
		store:      store,
		catalog:    catalog,
		aggregator: aggregator,
		timeout:    timeout,
		metrics:    metrics,
		logger:     logger.With("service", "cart"),
	}
}

func (s *cartService) GetCart(ctx context.Context, owner domain.Principal) (*CartView, error) {
	if owner.OwnerKey() == "" {
		return nil, domain.ErrMissingPrincipal
	}

	payload, err := s.store.GetCart(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	agg, err := s.aggregator.Aggregate(ctx, payload)
	if err != nil {
		return nil, err
	}

	view := &CartView{
		Items:       agg.Items,
		Unavailable: agg.Unavailable,
		Subtotal:    agg.Subtotal,
	}
	for _, li := range agg.Items {
		view.ItemCount += li.Quantity
	}
	return view, nil
}

func (s *cartService) AddItem(ctx context.Context, owner domain.Principal, productID string, quantity int) (*domain.CartItem, error) {
	if owner.OwnerKey() == "" {
		return nil, domain.ErrMissingPrincipal
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, domain.NewValidationError("cart.add_item", "product_id", "is required")
	}
	if quantity < 1 || quantity > domain.MaxItemQuantity {
		return nil, domain.ErrInvalidQuantity
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	products, err := s.catalog.GetProductsByIDs(lookupCtx, []string{productID})
	if err != nil {
		return nil, domain.NewCheckoutError(domain.KindCatalogLookupFailed, err)
	}
	if _, ok := products[productID]; !ok {
		return nil, domain.ErrProductNotFound
	}

	item, err := s.store.AddItem(ctx, owner, productID, quantity)
	if err != nil {
		return nil, fmt.Errorf("add cart item: %w", err)
	}

	s.metrics.CartUpdated("add")
	s.logger.Debug("cart item added",
		"owner", owner.Reference(),
		"product_id", productID,
		"quantity", item.Quantity)

	return &item, nil
}

func (s *cartService) SetQuantity(ctx context.Context, owner domain.Principal, cartItemID string, quantity int) error {
	if owner.OwnerKey() == "" {
		return domain.ErrMissingPrincipal
	}
	if quantity < 0 || quantity > domain.MaxItemQuantity {
		return domain.ErrInvalidQuantity
	}

	if err := s.store.SetQuantity(ctx, owner, cartItemID, quantity); err != nil {
		return fmt.Errorf("set cart item quantity: %w", err)
	}

	action := "set_quantity"
	if quantity == 0 {
		action = "remove"
	}
	s.metrics.CartUpdated(action)
	return nil
}

func (s *cartService) RemoveItem(ctx context.Context, owner domain.Principal, cartItemID string) error {
	if owner.OwnerKey() == "" {
		return domain.ErrMissingPrincipal
	}

	if err := s.store.RemoveItem(ctx, owner, cartItemID); err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}

	s.metrics.CartUpdated("remove")
	return nil
}
