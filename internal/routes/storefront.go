package routes

import (
	"github.com/dukerupert/boutique/internal/router"
)

// RegisterStorefrontRoutes registers the cart and checkout routes.
//
// JSON clients use the /api routes. The HTML checkout form posts to
// /checkout and follows a 303 redirect to the payment page.
func RegisterStorefrontRoutes(r *router.Router, deps StorefrontDeps) {
	// Shopping cart
	r.Get("/api/cart", deps.CartHandler.View)
	r.Post("/api/cart/items", deps.CartHandler.Add)
	r.Patch("/api/cart/items/{id}", deps.CartHandler.Update)
	r.Delete("/api/cart/items/{id}", deps.CartHandler.Remove)

	// Checkout
	checkout := r.Group(deps.CheckoutLimiter.Middleware)
	checkout.Post("/api/checkout", deps.CheckoutHandler.Create)
	checkout.Post("/checkout", deps.CheckoutHandler.Submit)
}

// RegisterOpsRoutes registers health and metrics endpoints. These skip the
// principal middleware so probes do not mint guest sessions.
func RegisterOpsRoutes(r *router.Router, deps OpsDeps) {
	r.Get("/health", deps.Health)
	r.Handle("GET", "/metrics", deps.Metrics)
}
