package middleware

import (
	"context"
	"net/http"
	"strings"

	"eventregistration/internal/delivery/http/helpers"
	"eventregistration/internal/domain"
)

type contextKey string

const identityKey contextKey = "identity"

// SetIdentity returns a context with the identity set. Used by auth middleware.
func SetIdentity(ctx context.Context, ident domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

// IdentityFromContext returns the identity from the context. The zero value
// (an anonymous visitor) is returned when no identity was attached.
func IdentityFromContext(ctx context.Context) domain.Identity {
	ident, ok := ctx.Value(identityKey).(domain.Identity)
	if !ok {
		return domain.Identity{}
	}
	return ident
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", false
	}
	token := strings.TrimSpace(auth[len(prefix):])
	return token, token != ""
}

// RequireAuth returns a wrapper that validates the Bearer token and sets the
// identity in the request context. If the token is missing or invalid, it
// responds with 401 and does not call next.
func RequireAuth(verifier domain.IdentityVerifier) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "missing or malformed authorization header")
				return
			}
			ident, err := verifier.Verify(token)
			if err != nil {
				helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "invalid or expired token")
				return
			}
			r = r.WithContext(SetIdentity(r.Context(), ident))
			next(w, r)
		}
	}
}

// RequireAdmin is RequireAuth plus a superuser check, for admin-only
// operations such as price overrides and fee overrides.
func RequireAdmin(verifier domain.IdentityVerifier) func(http.HandlerFunc) http.HandlerFunc {
	requireAuth := RequireAuth(verifier)
	return func(next http.HandlerFunc) http.HandlerFunc {
		return requireAuth(func(w http.ResponseWriter, r *http.Request) {
			if !IdentityFromContext(r.Context()).Superuser {
				helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "admin access required")
				return
			}
			next(w, r)
		})
	}
}

// OptionalAuth resolves the identity when a valid Bearer token is present and
// proceeds anonymously otherwise. Registration and pricing lookups are open
// to visitors; the identity only changes which tiers they see.
func OptionalAuth(verifier domain.IdentityVerifier) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if token, ok := bearerToken(r); ok {
				if ident, err := verifier.Verify(token); err == nil {
					r = r.WithContext(SetIdentity(r.Context(), ident))
				}
			}
			next(w, r)
		}
	}
}
