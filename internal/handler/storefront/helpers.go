// Package storefront serves the customer-facing cart and checkout endpoints.
package storefront

import (
	"net/http"

	"github.com/dukerupert/boutique/internal/domain"
)

// principal returns the acting principal resolved by middleware, or
// ErrMissingPrincipal if the request carries none.
func principal(r *http.Request) (domain.Principal, error) {
	p := domain.PrincipalFromContext(r.Context())
	if p == nil || p.OwnerKey() == "" {
		return domain.Principal{}, domain.ErrMissingPrincipal
	}
	return *p, nil
}
