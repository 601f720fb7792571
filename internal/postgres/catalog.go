package postgres

import (
	"context"
	"fmt"

	"github.com/dukerupert/boutique/internal/domain"
	"github.com/shopspring/decimal"
)

const getProductsByIDsSQL = `
	SELECT id, title, price::text, stock, category, COALESCE(subscription_duration, '')
	FROM products
	WHERE id = ANY($1)`

// Catalog implements domain.CatalogLookup over the products table.
type Catalog struct {
	pool DBPool
}

// Compile-time check that Catalog implements domain.CatalogLookup.
var _ domain.CatalogLookup = (*Catalog)(nil)

// NewCatalog creates a new PostgreSQL-backed catalog.
func NewCatalog(pool DBPool) *Catalog {
	return &Catalog{pool: pool}
}

// GetProductsByIDs resolves all ids with a single query.
func (c *Catalog) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	products := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	rows, err := c.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p            domain.Product
			price        string
			subscription string
		)
		if err := rows.Scan(&p.ID, &p.Title, &price, &p.Stock, &p.Category, &subscription); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}

		p.Price, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("product %s has invalid price %q: %w", p.ID, price, err)
		}
		if subscription != "" {
			p.SubscriptionDuration = &subscription
		}

		products[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}
