package storefront

import (
	"context"
	"net/http"

	"github.com/dukerupert/boutique/internal/domain"
	"github.com/dukerupert/boutique/internal/service"
	"github.com/google/uuid"
)

// mockCartService implements service.CartService for testing
type mockCartService struct {
	getCartFunc     func(ctx context.Context, owner domain.Principal) (*service.CartView, error)
	addItemFunc     func(ctx context.Context, owner domain.Principal, productID string, quantity int) (*domain.CartItem, error)
	setQuantityFunc func(ctx context.Context, owner domain.Principal, cartItemID string, quantity int) error
	removeItemFunc  func(ctx context.Context, owner domain.Principal, cartItemID string) error
}

func (m *mockCartService) GetCart(ctx context.Context, owner domain.Principal) (*service.CartView, error) {
	if m.getCartFunc != nil {
		return m.getCartFunc(ctx, owner)
	}
	return &service.CartView{}, nil
}

func (m *mockCartService) AddItem(ctx context.Context, owner domain.Principal, productID string, quantity int) (*domain.CartItem, error) {
	if m.addItemFunc != nil {
		return m.addItemFunc(ctx, owner, productID, quantity)
	}
	return &domain.CartItem{ID: "line-1", ProductID: productID, Quantity: quantity}, nil
}

func (m *mockCartService) SetQuantity(ctx context.Context, owner domain.Principal, cartItemID string, quantity int) error {
	if m.setQuantityFunc != nil {
		return m.setQuantityFunc(ctx, owner, cartItemID, quantity)
	}
	return nil
}

func (m *mockCartService) RemoveItem(ctx context.Context, owner domain.Principal, cartItemID string) error {
	if m.removeItemFunc != nil {
		return m.removeItemFunc(ctx, owner, cartItemID)
	}
	return nil
}

// mockCheckoutService implements service.CheckoutService for testing
type mockCheckoutService struct {
	runCheckoutFunc func(ctx context.Context, params service.CheckoutParams) (*service.CheckoutResult, error)
	calls           []service.CheckoutParams
}

func (m *mockCheckoutService) RunCheckout(ctx context.Context, params service.CheckoutParams) (*service.CheckoutResult, error) {
	m.calls = append(m.calls, params)
	if m.runCheckoutFunc != nil {
		return m.runCheckoutFunc(ctx, params)
	}
	return &service.CheckoutResult{
		RedirectURL: "https://pay.example.com/session/cs_1",
		SessionID:   "cs_1",
		State:       domain.StateRedirected,
	}, nil
}

var (
	guestPrincipal = domain.Principal{SessionID: "guest-token"}
	userPrincipal  = domain.Principal{UserID: uuid.MustParse("3f1c2a7e-8d4b-4c1a-9e2f-0a1b2c3d4e5f"), SessionID: "user-token"}
)

func withPrincipal(r *http.Request, p domain.Principal) *http.Request {
	return r.WithContext(domain.NewContextWithPrincipal(r.Context(), &p))
}
