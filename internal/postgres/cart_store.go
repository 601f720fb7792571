package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/dukerupert/boutique/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	getCartSQL = `SELECT payload FROM carts WHERE owner_key = $1`

	lockCartSQL = `SELECT payload FROM carts WHERE owner_key = $1 FOR UPDATE`

	upsertCartSQL = `
		INSERT INTO carts (owner_key, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (owner_key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`

	pruneGuestCartsSQL = `DELETE FROM carts WHERE owner_key LIKE 'session:%' AND updated_at < $1`
)

// CartStore implements domain.CartStore with one JSONB document per owner.
// Rows written by older releases may hold either stored layout; every write
// stores the envelope layout.
type CartStore struct {
	pool  DBPool
	newID func() string
}

// Compile-time check that CartStore implements domain.CartStore.
var _ domain.CartStore = (*CartStore)(nil)

// NewCartStore creates a new PostgreSQL-backed cart store.
func NewCartStore(pool DBPool) *CartStore {
	return &CartStore{pool: pool, newID: uuid.NewString}
}

func (s *CartStore) GetCart(ctx context.Context, owner domain.Principal) (domain.CartPayload, error) {
	key := owner.OwnerKey()
	if key == "" {
		return domain.CartPayload{}, domain.ErrMissingPrincipal
	}

	var raw []byte
	err := s.pool.QueryRow(ctx, getCartSQL, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.EmptyCart(), nil
		}
		return domain.CartPayload{}, domain.Internal(err, "cart.get", "failed to load cart")
	}

	return domain.ParseCartPayload(raw)
}

func (s *CartStore) AddItem(ctx context.Context, owner domain.Principal, productID string, quantity int) (domain.CartItem, error) {
	var added domain.CartItem
	err := s.mutate(ctx, owner, "cart.add_item", func(p domain.CartPayload) (domain.CartPayload, error) {
		next, item, err := p.WithItemAdded(productID, quantity, s.newID())
		added = item
		return next, err
	})
	return added, err
}

func (s *CartStore) SetQuantity(ctx context.Context, owner domain.Principal, cartItemID string, quantity int) error {
	return s.mutate(ctx, owner, "cart.set_quantity", func(p domain.CartPayload) (domain.CartPayload, error) {
		return p.WithQuantity(cartItemID, quantity)
	})
}

func (s *CartStore) RemoveItem(ctx context.Context, owner domain.Principal, cartItemID string) error {
	return s.mutate(ctx, owner, "cart.remove_item", func(p domain.CartPayload) (domain.CartPayload, error) {
		return p.WithoutItem(cartItemID)
	})
}

// mutate loads the owner's cart under a row lock, applies fn and stores the result.
func (s *CartStore) mutate(ctx context.Context, owner domain.Principal, op string, fn func(domain.CartPayload) (domain.CartPayload, error)) error {
	key := owner.OwnerKey()
	if key == "" {
		return domain.ErrMissingPrincipal
	}

	var domainErr error
	err := inTx(ctx, s.pool, func(tx pgx.Tx) error {
		current := domain.EmptyCart()

		var raw []byte
		err := tx.QueryRow(ctx, lockCartSQL, key).Scan(&raw)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
		case err != nil:
			return err
		default:
			if current, err = domain.ParseCartPayload(raw); err != nil {
				domainErr = err
				return err
			}
		}

		next, err := fn(current)
		if err != nil {
			domainErr = err
			return err
		}

		encoded, err := next.Encode()
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, upsertCartSQL, key, encoded)
		return err
	})
	if err != nil {
		if domainErr != nil {
			return domainErr
		}
		return domain.Internal(err, op, "failed to update cart")
	}
	return nil
}

// PruneGuestCarts deletes guest carts untouched since before cutoff.
// Signed-in carts are kept.
func (s *CartStore) PruneGuestCarts(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, pruneGuestCartsSQL, cutoff)
	if err != nil {
		return 0, domain.Internal(err, "cart.prune", "failed to prune guest carts")
	}
	return tag.RowsAffected(), nil
}
