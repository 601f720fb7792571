// Package cookie provides helpers for the storefront session cookie.
package cookie

import (
	"net/http"
)

// SessionCookieName carries the session token that identifies the acting
// principal. Guest carts are keyed by it.
const SessionCookieName = "boutique_session"

// Config holds cookie configuration.
type Config struct {
	// Domain scopes cookies to a parent domain (e.g. "shop.example.com").
	// Empty means a host-only cookie.
	Domain string

	// Secure determines whether cookies require HTTPS.
	// Should be true in production, false in development.
	Secure bool
}

// NewConfig creates a new cookie configuration.
func NewConfig(domain string, secure bool) *Config {
	return &Config{
		Domain: domain,
		Secure: secure,
	}
}

// SetSession sets an HttpOnly, SameSite=Lax session cookie on path "/".
func (c *Config) SetSession(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, c.base(name, value, maxAge))
}

func (c *Config) base(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Domain:   c.Domain,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Get retrieves a cookie value from the request.
// Returns empty string if cookie not found.
func Get(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
