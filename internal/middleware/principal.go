package middleware

import (
	"context"
	"net/http"

	"github.com/dukerupert/boutique/internal/cookie"
	"github.com/dukerupert/boutique/internal/domain"
	"github.com/dukerupert/boutique/internal/service"
	"github.com/dukerupert/boutique/internal/telemetry"
	"github.com/google/uuid"
)

type contextKey string

// guestSessionMaxAge keeps a guest cart for 30 days of inactivity.
const guestSessionMaxAge = 30 * 24 * 60 * 60

// SessionResolver maps a session token to the signed-in user, returning
// uuid.Nil for guest sessions.
type SessionResolver interface {
	ResolveUser(ctx context.Context, token string) (uuid.UUID, error)
}

// WithPrincipal attaches the acting principal to every request. Requests
// without a usable session cookie get a fresh guest session. A resolver
// failure degrades to a guest principal for the same session.
func WithPrincipal(sessions SessionResolver, cookies *cookie.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token := cookie.Get(r, cookie.SessionCookieName)
			if !validSessionToken(token) {
				fresh, err := service.GenerateSessionID()
				if err != nil {
					respondInternalError(w, r, err)
					return
				}
				token = fresh
				cookies.SetSession(w, cookie.SessionCookieName, token, guestSessionMaxAge)
			}

			p := &domain.Principal{SessionID: token}
			if userID, err := sessions.ResolveUser(ctx, token); err != nil {
				GetLogger(ctx).Warn("session lookup failed, continuing as guest", "error", err)
			} else {
				p.UserID = userID
			}

			next.ServeHTTP(w, r.WithContext(domain.NewContextWithPrincipal(ctx, p)))
		})
	}
}

func validSessionToken(token string) bool {
	if len(token) < 16 || len(token) > 256 {
		return false
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.':
		default:
			return false
		}
	}
	return true
}

// SentryUser reports the acting principal to Sentry.
func SentryUser(ctx context.Context) *telemetry.UserInfo {
	p := domain.PrincipalFromContext(ctx)
	if p == nil {
		return nil
	}
	info := &telemetry.UserInfo{SessionID: p.SessionID}
	if p.IsAuthenticated() {
		info.ID = p.UserID.String()
	}
	return info
}
