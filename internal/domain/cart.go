package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// MaxItemQuantity caps the quantity of a single cart line.
const MaxItemQuantity = 10

// =============================================================================
// CART DOMAIN ERRORS
// =============================================================================

var (
	ErrCartItemNotFound = &Error{Code: ENOTFOUND, Message: "Cart item not found"}
	ErrProductNotFound  = &Error{Code: ENOTFOUND, Message: "Product not found"}
	ErrInvalidQuantity  = &Error{Code: EINVALID, Message: "Quantity must be between 1 and 10"}
	ErrMissingPrincipal = &Error{Code: EUNAUTHORIZED, Message: "No cart owner for this request"}
)

// CartItem is one persisted cart entry. The cart never stores a price.
type CartItem struct {
	ID        string
	ProductID string
	Quantity  int
}

// Product is the catalog snapshot used to price a cart.
type Product struct {
	ID                   string
	Title                string
	Price                decimal.Decimal
	Stock                int
	Category             string
	SubscriptionDuration *string
}

// LineItem is a priced cart entry for the duration of one checkout attempt.
type LineItem struct {
	CartItemID string
	ProductID  string
	Title      string
	UnitPrice  decimal.Decimal
	Quantity   int
	Stock      int
	LineTotal  decimal.Decimal
}

// NewLineItem prices a cart entry against its product.
func NewLineItem(product Product, item CartItem) LineItem {
	return LineItem{
		CartItemID: item.ID,
		ProductID:  product.ID,
		Title:      product.Title,
		UnitPrice:  product.Price,
		Quantity:   item.Quantity,
		Stock:      product.Stock,
		LineTotal:  product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
	}
}

// Aggregate is the priced view of a cart.
type Aggregate struct {
	// Items holds resolvable entries in cart order.
	Items []LineItem

	// Unavailable lists product IDs with no catalog entry, in cart order.
	Unavailable []string

	// Duplicates lists product IDs that appear on more than one cart line.
	Duplicates []string

	// Subtotal is the sum of LineTotal over Items.
	Subtotal decimal.Decimal
}

// CartStore persists carts keyed by owning principal.
// Writes are last-write-wins.
type CartStore interface {
	// GetCart returns the owner's cart. A missing cart is an empty envelope.
	GetCart(ctx context.Context, owner Principal) (CartPayload, error)

	// AddItem adds quantity units of a product, merging into an existing line.
	AddItem(ctx context.Context, owner Principal, productID string, quantity int) (CartItem, error)

	// SetQuantity replaces the quantity of a line. Zero removes the line.
	SetQuantity(ctx context.Context, owner Principal, cartItemID string, quantity int) error

	// RemoveItem deletes a line.
	RemoveItem(ctx context.Context, owner Principal, cartItemID string) error
}

// CatalogLookup resolves products. It is the source of truth for prices.
type CatalogLookup interface {
	// GetProductsByIDs resolves every known id in one round trip.
	// Unknown ids are absent from the result.
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]Product, error)
}
