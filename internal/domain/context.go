// Package domain provides the core boutique types: carts, products, checkout
// requests, the checkout error taxonomy, and request-scoped context helpers.
package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	// principalContextKey stores the acting principal in context.
	principalContextKey contextKey = iota
)

// Principal is the party acting on a request. A guest has only a SessionID;
// an authenticated user also has a UserID.
type Principal struct {
	UserID    uuid.UUID
	SessionID string
}

// IsAuthenticated reports whether the principal is a known user.
func (p Principal) IsAuthenticated() bool {
	return p.UserID != uuid.Nil
}

// OwnerKey identifies the cart owned by this principal. Authenticated users
// keep one cart across sessions; guests own the cart of their session.
func (p Principal) OwnerKey() string {
	if p.IsAuthenticated() {
		return "user:" + p.UserID.String()
	}
	if p.SessionID == "" {
		return ""
	}
	return "session:" + p.SessionID
}

// Reference identifies the principal in logs and payment metadata without
// exposing the session token. Guests are referenced by a digest of it.
func (p Principal) Reference() string {
	if p.IsAuthenticated() {
		return "user:" + p.UserID.String()
	}
	if p.SessionID == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(p.SessionID))
	return "guest:" + hex.EncodeToString(sum[:8])
}

// NewContextWithPrincipal returns a new context with the principal attached.
func NewContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext retrieves the principal from context.
// Returns nil if no principal is present.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey).(*Principal)
	return p
}
