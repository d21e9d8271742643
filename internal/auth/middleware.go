package auth

import (
	"context"
	"net/http"
	"strings"

	"budgetwise/internal/core"
	"budgetwise/internal/log"
)

// CookieName is the cookie the dashboard reads the bearer token from when
// no Authorization header is sent.
const CookieName = "budgetwise_token"

type contextKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id core.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity on ctx, or the zero (unauthenticated) identity.
func FromContext(ctx context.Context) core.Identity {
	id, _ := ctx.Value(contextKey{}).(core.Identity)
	return id
}

// Accessor implements ports.IdentityAccessor over the request context.
type Accessor struct{}

func (Accessor) Identity(ctx context.Context) core.Identity { return FromContext(ctx) }

// TokenFromRequest extracts the bearer token from the Authorization header
// or the session cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// Middleware resolves the caller's identity and stores it on the request
// context. Requests without a valid token continue unauthenticated; handlers
// decide what that means. A nil verifier leaves every request unauthenticated.
func Middleware(v *Verifier, logger *log.Logger) func(http.Handler) http.Handler {
	logger = logger.WithComponent(log.ComponentAuth)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" || v == nil {
				next.ServeHTTP(w, r)
				return
			}
			id, err := v.Verify(token)
			if err != nil {
				logger.DebugContext(r.Context(), "Rejected bearer token", log.FieldError, err)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// Require rejects unauthenticated requests with 401.
func Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !FromContext(r.Context()).Authenticated {
			w.Header().Set("WWW-Authenticate", `Bearer realm="budgetwise"`)
			http.Error(w, "User not authenticated", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
