package routes

import (
	"net/http"

	"github.com/dukerupert/boutique/internal/handler/storefront"
	"github.com/dukerupert/boutique/internal/middleware"
)

// StorefrontDeps contains dependencies for storefront routes
type StorefrontDeps struct {
	// Cart
	CartHandler *storefront.CartHandler

	// Checkout
	CheckoutHandler *storefront.CheckoutHandler

	// CheckoutLimiter throttles payment session creation per principal
	CheckoutLimiter *middleware.RateLimiter
}

// OpsDeps contains dependencies for operational endpoints
type OpsDeps struct {
	Health  http.HandlerFunc
	Metrics http.Handler
}
