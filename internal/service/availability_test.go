package service

import (
	"testing"

	"github.com/dukerupert/boutique/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func aggregateOf(lines ...domain.LineItem) *domain.Aggregate {
	agg := &domain.Aggregate{Items: lines, Subtotal: decimal.Zero}
	for _, l := range lines {
		agg.Subtotal = agg.Subtotal.Add(l.LineTotal)
	}
	return agg
}

func line(id string, price string, qty, stock int) domain.LineItem {
	p := product(id, price, stock)
	return domain.NewLineItem(p, domain.CartItem{ID: "line-" + id, ProductID: id, Quantity: qty})
}

func TestValidateAvailability_ScenarioB(t *testing.T) {
	_, err := ValidateAvailability(aggregateOf(line("p1", "10.00", 6, 5)))
	require.Error(t, err)

	assert.Equal(t, []domain.Violation{{
		Kind:      domain.ViolationInsufficientStock,
		ProductID: "p1",
		Title:     "Product p1",
		Requested: 6,
		Available: 5,
	}}, domain.CheckoutViolations(err))
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
}

func TestValidateAvailability_CollectsEveryViolation(t *testing.T) {
	agg := aggregateOf(
		line("p1", "1.00", 3, 1),
		line("p2", "1.00", 1, 5),
		line("p3", "1.00", 4, 0),
	)
	agg.Unavailable = []string{"gone"}

	_, err := ValidateAvailability(agg)
	require.Error(t, err)

	violations := domain.CheckoutViolations(err)
	require.Len(t, violations, 3)
	assert.Equal(t, domain.ViolationProductsUnavailable, violations[0].Kind)
	assert.Equal(t, "p1", violations[1].ProductID)
	assert.Equal(t, "p3", violations[2].ProductID)
	assert.Equal(t, 0, violations[2].Available)
}

func TestValidateAvailability_SumsDuplicateLines(t *testing.T) {
	agg := aggregateOf(line("p1", "1.00", 2, 3), line("p1", "1.00", 2, 3))

	_, err := ValidateAvailability(agg)
	require.Error(t, err)
	violations := domain.CheckoutViolations(err)
	require.Len(t, violations, 1)
	assert.Equal(t, 4, violations[0].Requested)
	assert.Equal(t, 3, violations[0].Available)
}

func TestValidateAvailability_ZeroSubtotal(t *testing.T) {
	t.Run("empty cart", func(t *testing.T) {
		_, err := ValidateAvailability(aggregateOf())
		assert.Equal(t, []domain.Violation{{Kind: domain.ViolationInvalidTotal}}, domain.CheckoutViolations(err))
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	})

	t.Run("free products", func(t *testing.T) {
		_, err := ValidateAvailability(aggregateOf(line("p1", "0.00", 1, 5)))
		assert.Equal(t, []domain.Violation{{Kind: domain.ViolationInvalidTotal}}, domain.CheckoutViolations(err))
	})
}

func TestValidateAvailability_PassThrough(t *testing.T) {
	agg := aggregateOf(line("p1", "10.00", 5, 5), line("p2", "0.50", 1, 1))

	items, err := ValidateAvailability(agg)
	require.NoError(t, err)
	assert.Equal(t, agg.Items, items)

	again, err := ValidateAvailability(&domain.Aggregate{Items: items, Subtotal: agg.Subtotal})
	require.NoError(t, err)
	assert.Equal(t, items, again)
}
