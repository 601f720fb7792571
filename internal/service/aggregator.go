package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukerupert/boutique/internal/domain"
	"github.com/dukerupert/boutique/internal/telemetry"
	"github.com/shopspring/decimal"
)

// Aggregator prices a cart against the catalog. It never writes.
type Aggregator struct {
	catalog domain.CatalogLookup
	timeout time.Duration
	metrics *telemetry.CheckoutMetrics
	logger  *slog.Logger
}

// NewAggregator creates an Aggregator. timeout bounds each catalog call.
func NewAggregator(catalog domain.CatalogLookup, timeout time.Duration, metrics *telemetry.CheckoutMetrics, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		catalog: catalog,
		timeout: timeout,
		metrics: metrics,
		logger:  logger.With("service", "aggregator"),
	}
}

// Aggregate resolves every cart entry with one batched catalog call, made
// even for an empty cart. Entries whose product is gone are left out of
// Items and reported in Unavailable. Duplicate lines are priced as stored.
func (a *Aggregator) Aggregate(ctx context.Context, payload domain.CartPayload) (*domain.Aggregate, error) {
	ids := payload.ProductIDs()

	lookupCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	products, err := a.catalog.GetProductsByIDs(lookupCtx, ids)
	a.metrics.ObserveCatalog(start, err)
	if err != nil {
		a.logger.Error("catalog lookup failed",
			"products", len(ids),
			"duration", time.Since(start),
			"error", err)
		return nil, domain.NewCheckoutError(domain.KindCatalogLookupFailed, err)
	}

	agg := &domain.Aggregate{
		Items:       make([]domain.LineItem, 0, len(payload.Items)),
		Unavailable: []string{},
		Duplicates:  []string{},
		Subtotal:    decimal.Zero,
	}

	seen := make(map[string]int, len(payload.Items))
	for _, item := range payload.Items {
		seen[item.ProductID]++
		first := seen[item.ProductID] == 1

		product, ok := products[item.ProductID]
		if !ok {
			if first {
				agg.Unavailable = append(agg.Unavailable, item.ProductID)
			}
			continue
		}
		if seen[item.ProductID] == 2 {
			agg.Duplicates = append(agg.Duplicates, item.ProductID)
		}

		line := domain.NewLineItem(product, item)
		agg.Items = append(agg.Items, line)
		agg.Subtotal = agg.Subtotal.Add(line.LineTotal)
	}

	if len(agg.Duplicates) > 0 {
		a.logger.Warn("cart holds duplicate product lines",
			"shape", payload.Shape.String(),
			"products", agg.Duplicates)
	}

	return agg, nil
}
