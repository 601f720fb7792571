package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/boutique/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCartService(store *fakeCartStore, catalog *fakeCatalog) CartService {
	logger := testLogger()
	return NewCartService(store, catalog, NewAggregator(catalog, time.Second, nil, logger), time.Second, nil, logger)
}

func TestCartService_AddItemMergesAndCaps(t *testing.T) {
	store := newFakeCartStore()
	svc := newTestCartService(store, newFakeCatalog(product("p1", "2.00", 50)))
	ctx := context.Background()

	first, err := svc.AddItem(ctx, guest, "p1", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, first.Quantity)

	second, err := svc.AddItem(ctx, guest, "p1", 9)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, domain.MaxItemQuantity, second.Quantity)

	view, err := svc.GetCart(ctx, guest)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 10, view.ItemCount)
	assert.Equal(t, "20.00", view.Subtotal.StringFixed(2))
}

func TestCartService_AddItemRejects(t *testing.T) {
	svc := newTestCartService(newFakeCartStore(), newFakeCatalog(product("p1", "2.00", 50)))
	ctx := context.Background()

	_, err := svc.AddItem(ctx, guest, "p1", 11)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = svc.AddItem(ctx, guest, "p1", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = svc.AddItem(ctx, guest, "missing", 1)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	_, err = svc.AddItem(ctx, guest, "  ", 1)
	assert.True(t, domain.IsValidationError(err))

	_, err = svc.AddItem(ctx, domain.Principal{}, "p1", 1)
	assert.ErrorIs(t, err, domain.ErrMissingPrincipal)
}

func TestCartService_SetQuantityAndRemove(t *testing.T) {
	store := newFakeCartStore()
	store.put(guest, `[{"id":"a","productId":"p1","quantity":1},{"id":"b","productId":"p2","quantity":1}]`)
	svc := newTestCartService(store, newFakeCatalog(product("p1", "1.00", 9), product("p2", "1.00", 9)))
	ctx := context.Background()

	require.NoError(t, svc.SetQuantity(ctx, guest, "a", 7))
	assert.ErrorIs(t, svc.SetQuantity(ctx, guest, "a", 11), domain.ErrInvalidQuantity)
	assert.ErrorIs(t, svc.SetQuantity(ctx, guest, "a", -1), domain.ErrInvalidQuantity)
	assert.ErrorIs(t, svc.SetQuantity(ctx, guest, "zzz", 1), domain.ErrCartItemNotFound)

	require.NoError(t, svc.SetQuantity(ctx, guest, "b", 0))
	view, err := svc.GetCart(ctx, guest)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 7, view.Items[0].Quantity)

	require.NoError(t, svc.RemoveItem(ctx, guest, "a"))
	assert.ErrorIs(t, svc.RemoveItem(ctx, guest, "a"), domain.ErrCartItemNotFound)

	view, err = svc.GetCart(ctx, guest)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.True(t, view.Subtotal.IsZero())
}

func TestCartService_LegacyCartIsRewrittenAsEnvelope(t *testing.T) {
	store := newFakeCartStore()
	store.put(guest, `[{"product":{"id":"p1"},"quantity":1}]`)
	svc := newTestCartService(store, newFakeCatalog(product("p1", "1.00", 9)))

	require.NoError(t, svc.SetQuantity(context.Background(), guest, "legacy:p1", 3))
	assert.JSONEq(t, `{"items":[{"id":"legacy:p1","productId":"p1","quantity":3}]}`, string(store.raw[guest.OwnerKey()]))
}

func TestCartService_GetCartShowsUnavailable(t *testing.T) {
	store := newFakeCartStore()
	store.put(guest, `[{"productId":"p1","quantity":1},{"productId":"gone","quantity":1}]`)
	svc := newTestCartService(store, newFakeCatalog(product("p1", "1.00", 9)))

	view, err := svc.GetCart(context.Background(), guest)
	require.NoError(t, err)
	assert.Equal(t, []string{"gone"}, view.Unavailable)
	assert.Len(t, view.Items, 1)
}

func TestCartService_StoreErrorsAreWrapped(t *testing.T) {
	store := newFakeCartStore()
	store.getErr = errors.New("pool closed")
	svc := newTestCartService(store, newFakeCatalog())

	_, err := svc.GetCart(context.Background(), guest)
	assert.ErrorContains(t, err, "get cart: pool closed")
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
}
