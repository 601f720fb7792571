package service

import (
	"github.com/dukerupert/boutique/internal/domain"
)

// ValidateAvailability checks that an aggregate can be sold as-is. Every
// violation is collected into one validation_failed error. Stock is compared
// against the total quantity requested per product. Nothing is reserved:
// stock may change between this check and payment.
//
// On success the aggregate's items are returned unchanged.
func ValidateAvailability(agg *domain.Aggregate) ([]domain.LineItem, error) {
	var violations []domain.Violation

	if len(agg.Unavailable) > 0 {
		ids := make([]string, len(agg.Unavailable))
		copy(ids, agg.Unavailable)
		violations = append(violations, domain.Violation{
			Kind:       domain.ViolationProductsUnavailable,
			ProductIDs: ids,
		})
	}

	type demand struct {
		line      domain.LineItem
		requested int
	}
	order := make([]string, 0, len(agg.Items))
	demands := make(map[string]*demand, len(agg.Items))
	for _, line := range agg.Items {
		d, ok := demands[line.ProductID]
		if !ok {
			d = &demand{line: line}
			demands[line.ProductID] = d
			order = append(order, line.ProductID)
		}
		d.requested += line.Quantity
	}

	for _, id := range order {
		d := demands[id]
		if d.requested > d.line.Stock {
			violations = append(violations, domain.Violation{
				Kind:      domain.ViolationInsufficientStock,
				ProductID: id,
				Title:     d.line.Title,
				Requested: d.requested,
				Available: max(d.line.Stock, 0),
			})
		}
	}

	if !agg.Subtotal.IsPositive() {
		violations = append(violations, domain.Violation{Kind: domain.ViolationInvalidTotal})
	}

	if len(violations) > 0 {
		return nil, domain.ValidationFailed(violations)
	}
	return agg.Items, nil
}
