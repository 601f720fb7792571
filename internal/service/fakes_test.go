package service

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/dukerupert/boutique/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ============================================================================
// Mock Implementations
// ============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func product(id string, price string, stock int) domain.Product {
	return domain.Product{
		ID:    id,
		Title: "Product " + id,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
}

// fakeCatalog implements domain.CatalogLookup and records every call.
type fakeCatalog struct {
	mu       sync.Mutex
	products map[string]domain.Product
	err      error
	delay    time.Duration
	calls    [][]string
}

func newFakeCatalog(products ...domain.Product) *fakeCatalog {
	c := &fakeCatalog{products: make(map[string]domain.Product)}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *fakeCatalog) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	c.mu.Lock()
	c.calls = append(c.calls, append([]string(nil), ids...))
	c.mu.Unlock()

	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.err != nil {
		return nil, c.err
	}

	out := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (c *fakeCatalog) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// fakeCartStore implements domain.CartStore over raw stored documents.
type fakeCartStore struct {
	mu     sync.Mutex
	raw    map[string][]byte
	getErr error
	nextID int
}

func newFakeCartStore() *fakeCartStore {
	return &fakeCartStore{raw: make(map[string][]byte)}
}

func (s *fakeCartStore) put(owner domain.Principal, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw[owner.OwnerKey()] = []byte(raw)
}

func (s *fakeCartStore) load(owner domain.Principal) (domain.CartPayload, error) {
	raw, ok := s.raw[owner.OwnerKey()]
	if !ok {
		return domain.EmptyCart(), nil
	}
	return domain.ParseCartPayload(raw)
}

func (s *fakeCartStore) save(owner domain.Principal, p domain.CartPayload) error {
	raw, err := p.Encode()
	if err != nil {
		return err
	}
	s.raw[owner.OwnerKey()] = raw
	return nil
}

func (s *fakeCartStore) GetCart(ctx context.Context, owner domain.Principal) (domain.CartPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return domain.CartPayload{}, s.getErr
	}
	return s.load(owner)
}

func (s *fakeCartStore) AddItem(ctx context.Context, owner domain.Principal, productID string, quantity int) (domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.load(owner)
	if err != nil {
		return domain.CartItem{}, err
	}
	s.nextID++
	p, item, err := p.WithItemAdded(productID, quantity, "item-"+strconv.Itoa(s.nextID))
	if err != nil {
		return domain.CartItem{}, err
	}
	return item, s.save(owner, p)
}

func (s *fakeCartStore) SetQuantity(ctx context.Context, owner domain.Principal, cartItemID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.load(owner)
	if err != nil {
		return err
	}
	if p, err = p.WithQuantity(cartItemID, quantity); err != nil {
		return err
	}
	return s.save(owner, p)
}

func (s *fakeCartStore) RemoveItem(ctx context.Context, owner domain.Principal, cartItemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.load(owner)
	if err != nil {
		return err
	}
	if p, err = p.WithoutItem(cartItemID); err != nil {
		return err
	}
	return s.save(owner, p)
}

// fakeOrgs implements OrganizationDirectory.
type fakeOrgs struct {
	members map[uuid.UUID]uuid.UUID // user -> organization
	err     error
	calls   int
}

func (o *fakeOrgs) IsMember(ctx context.Context, userID, organizationID uuid.UUID) (bool, error) {
	o.calls++
	if o.err != nil {
		return false, o.err
	}
	return o.members[userID] == organizationID, nil
}

type traceKey struct{}

// ctxRecordingHandler records, per message, the trace value found on the
// context each record was logged with.
type ctxRecordingHandler struct {
	mu     sync.Mutex
	traces map[string][]any
}

func newCtxRecordingHandler() *ctxRecordingHandler {
	return &ctxRecordingHandler{traces: map[string][]any{}}
}

func (h *ctxRecordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *ctxRecordingHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.traces[r.Message] = append(h.traces[r.Message], ctx.Value(traceKey{}))
	return nil
}

func (h *ctxRecordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *ctxRecordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *ctxRecordingHandler) tracesFor(msg string) []any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.traces[msg]
}
