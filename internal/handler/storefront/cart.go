package storefront

import (
	"net/http"

	"github.com/dukerupert/boutique/internal/domain"
	"github.com/dukerupert/boutique/internal/handler"
	"github.com/dukerupert/boutique/internal/service"
	"github.com/shopspring/decimal"
)

// CartHandler handles all cart-related storefront routes
type CartHandler struct {
	cartService service.CartService
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService service.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

type addItemRequest struct {
	ProductID string `json:"product_id" validate:"required,max=128"`
	Quantity  *int   `json:"quantity" validate:"omitempty,min=1,max=10"`
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,min=0,max=10"`
}

type cartItemResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type cartLineResponse struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	InStock   bool            `json:"in_stock"`
}

type cartResponse struct {
	Items       []cartLineResponse `json:"items"`
	Unavailable []string           `json:"unavailable"`
	Subtotal    decimal.Decimal    `json:"subtotal"`
	ItemCount   int                `json:"item_count"`
}

func newCartResponse(view *service.CartView) cartResponse {
	resp := cartResponse{
		Items:       make([]cartLineResponse, 0, len(view.Items)),
		Unavailable: view.Unavailable,
		Subtotal:    view.Subtotal,
		ItemCount:   view.ItemCount,
	}
	if resp.Unavailable == nil {
		resp.Unavailable = []string{}
	}
	for _, li := range view.Items {
		resp.Items = append(resp.Items, cartLineResponse{
			ID:        li.CartItemID,
			ProductID: li.ProductID,
			Title:     li.Title,
			UnitPrice: li.UnitPrice,
			Quantity:  li.Quantity,
			LineTotal: li.LineTotal,
			InStock:   li.Stock >= li.Quantity,
		})
	}
	return resp
}

// View handles GET /api/cart
func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	owner, err := principal(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	view, err := h.cartService.GetCart(r.Context(), owner)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, newCartResponse(view))
}

// Add handles POST /api/cart/items
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	owner, err := principal(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req addItemRequest
	if err := handler.DecodeJSON(r, "cart.add_item", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	item, err := h.cartService.AddItem(r.Context(), owner, req.ProductID, quantity)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.WriteJSON(w, http.StatusCreated, cartItemResponse{
		ID:        item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
	})
}

// Update handles PATCH /api/cart/items/{id}. A quantity of zero removes the line.
func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	owner, err := principal(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req setQuantityRequest
	if err := handler.DecodeJSON(r, "cart.set_quantity", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	if err := h.cartService.SetQuantity(r.Context(), owner, r.PathValue("id"), *req.Quantity); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Remove handles DELETE /api/cart/items/{id}
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	owner, err := principal(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		handler.ErrorResponse(w, r, domain.ErrCartItemNotFound)
		return
	}

	if err := h.cartService.RemoveItem(r.Context(), owner, id); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
