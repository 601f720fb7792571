package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// CartShape records which of the two stored cart layouts a payload came from.
type CartShape int

const (
	// ShapeEnvelope is {"items": [...]}, the layout written today.
	ShapeEnvelope CartShape = iota

	// ShapeBareList is a top-level JSON array, written by older releases.
	ShapeBareList
)

func (s CartShape) String() string {
	switch s {
	case ShapeEnvelope:
		return "envelope"
	case ShapeBareList:
		return "bare_list"
	default:
		return "unknown"
	}
}

// CartPayload is a cart resolved at the storage boundary. Items are in
// stored order; duplicates are kept as-is.
type CartPayload struct {
	Shape CartShape
	Items []CartItem
}

// EmptyCart returns the payload of an owner with no cart yet.
func EmptyCart() CartPayload {
	return CartPayload{Shape: ShapeEnvelope, Items: []CartItem{}}
}

// flexID accepts ids stored as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// storedFields holds one JSON object keyed by its exact member names.
// encoding/json matches struct tags case-insensitively, so stored objects
// are read through a map to keep "Items" or "PRODUCTID" from passing.
type storedFields map[string]json.RawMessage

// decode unmarshals the member named key into dst. A missing member leaves
// dst untouched.
func (f storedFields) decode(key string, dst any) error {
	raw, ok := f[key]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

// ParseCartPayload decodes a stored cart. It accepts a bare item array or an
// object with an "items" array; each item names its product by "productId"
// or, failing that, by "product.id". Member names are matched exactly.
// Anything else is a malformed cart.
func ParseCartPayload(raw []byte) (CartPayload, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return CartPayload{}, malformedCart("empty payload")
	}

	var (
		shape    CartShape
		rawItems []byte
	)
	switch trimmed[0] {
	case '[':
		shape = ShapeBareList
		rawItems = trimmed
	case '{':
		var env storedFields
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return CartPayload{}, malformedCart("invalid envelope: %v", err)
		}
		items := bytes.TrimSpace(env["items"])
		if len(items) == 0 || items[0] != '[' {
			return CartPayload{}, malformedCart("envelope has no items array")
		}
		shape = ShapeEnvelope
		rawItems = items
	default:
		return CartPayload{}, malformedCart("unrecognized payload shape")
	}

	var stored []storedFields
	if err := json.Unmarshal(rawItems, &stored); err != nil {
		return CartPayload{}, malformedCart("invalid items: %v", err)
	}

	items := make([]CartItem, 0, len(stored))
	for i, fields := range stored {
		item, err := parseStoredItem(fields)
		if err != nil {
			return CartPayload{}, malformedCart("item %d: %v", i, err)
		}
		items = append(items, item)
	}

	return CartPayload{Shape: shape, Items: items}, nil
}

func parseStoredItem(fields storedFields) (CartItem, error) {
	var (
		id, productID flexID
		product       storedFields
		quantity      int
	)
	if err := fields.decode("id", &id); err != nil {
		return CartItem{}, err
	}
	if err := fields.decode("productId", &productID); err != nil {
		return CartItem{}, err
	}
	if err := fields.decode("product", &product); err != nil {
		return CartItem{}, err
	}
	if err := fields.decode("quantity", &quantity); err != nil {
		return CartItem{}, err
	}

	if productID == "" && product != nil {
		if err := product.decode("id", &productID); err != nil {
			return CartItem{}, fmt.Errorf("product.%w", err)
		}
	}
	if productID == "" {
		return CartItem{}, fmt.Errorf("no product reference")
	}
	if quantity < 1 {
		return CartItem{}, fmt.Errorf("quantity %d", quantity)
	}

	if id == "" {
		// Older rows carried no line id; the product id is unique per cart.
		id = "legacy:" + productID
	}

	return CartItem{
		ID:        string(id),
		ProductID: string(productID),
		Quantity:  quantity,
	}, nil
}

type encodedItem struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Encode always writes the envelope layout.
func (p CartPayload) Encode() ([]byte, error) {
	items := make([]encodedItem, len(p.Items))
	for i, item := range p.Items {
		items[i] = encodedItem{ID: item.ID, ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return json.Marshal(struct {
		Items []encodedItem `json:"items"`
	}{Items: items})
}

// ProductIDs returns the distinct product ids in first-seen order.
func (p CartPayload) ProductIDs() []string {
	seen := make(map[string]struct{}, len(p.Items))
	ids := make([]string, 0, len(p.Items))
	for _, item := range p.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

// WithItemAdded merges quantity units of productID into the cart. An existing
// line grows, capped at MaxItemQuantity; otherwise a new line with newID is
// appended. Returns the updated payload and the affected line.
func (p CartPayload) WithItemAdded(productID string, quantity int, newID string) (CartPayload, CartItem, error) {
	if quantity < 1 || quantity > MaxItemQuantity {
		return p, CartItem{}, ErrInvalidQuantity
	}

	items := make([]CartItem, len(p.Items), len(p.Items)+1)
	copy(items, p.Items)

	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity = min(items[i].Quantity+quantity, MaxItemQuantity)
			return CartPayload{Shape: ShapeEnvelope, Items: items}, items[i], nil
		}
	}

	item := CartItem{ID: newID, ProductID: productID, Quantity: quantity}
	items = append(items, item)
	return CartPayload{Shape: ShapeEnvelope, Items: items}, item, nil
}

// WithQuantity sets the quantity of a line. Zero removes the line.
func (p CartPayload) WithQuantity(cartItemID string, quantity int) (CartPayload, error) {
	if quantity == 0 {
		return p.WithoutItem(cartItemID)
	}
	if quantity < 0 || quantity > MaxItemQuantity {
		return p, ErrInvalidQuantity
	}

	items := make([]CartItem, len(p.Items))
	copy(items, p.Items)
	for i := range items {
		if items[i].ID == cartItemID {
			items[i].Quantity = quantity
			return CartPayload{Shape: ShapeEnvelope, Items: items}, nil
		}
	}
	return p, ErrCartItemNotFound
}

// WithoutItem removes a line.
func (p CartPayload) WithoutItem(cartItemID string) (CartPayload, error) {
	items := make([]CartItem, 0, len(p.Items))
	found := false
	for _, item := range p.Items {
		if item.ID == cartItemID {
			found = true
			continue
		}
		items = append(items, item)
	}
	if !found {
		return p, ErrCartItemNotFound
	}
	return CartPayload{Shape: ShapeEnvelope, Items: items}, nil
}

// String is used in logs.
func (p CartPayload) String() string {
	return p.Shape.String() + "(" + strconv.Itoa(len(p.Items)) + " items)"
}
