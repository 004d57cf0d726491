// Package middleware contains HTTP middleware for the API server.
package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type contextKey string

const principalContextKey contextKey = "principal"

// Principal describes the authenticated caller of an API request.
type Principal struct {
	Admin bool
}

// RequireAuth is middleware that requires a valid bearer token. The user
// token grants regular access, the admin token additionally sets the Admin
// flag on the principal. An empty user token disables authentication, which
// is meant for local single-user setups.
func RequireAuth(userToken, adminToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userToken == "" && adminToken == "" {
				ctx := SetPrincipalInContext(r.Context(), &Principal{})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			token := bearerToken(r)
			var principal *Principal
			switch {
			case adminToken != "" && tokenEqual(token, adminToken):
				principal = &Principal{Admin: true}
			case userToken != "" && tokenEqual(token, userToken):
				principal = &Principal{}
			default:
				w.Header().Set("Content-Type", "application/json")
				http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
				return
			}

			ctx := SetPrincipalInContext(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipalFromContext retrieves the principal from the request context.
func GetPrincipalFromContext(ctx context.Context) *Principal {
	principal, ok := ctx.Value(principalContextKey).(*Principal)
	if !ok {
		return nil
	}
	return principal
}

// SetPrincipalInContext adds a principal to the context.
// This is primarily for testing - use RequireAuth middleware in production.
func SetPrincipalInContext(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimPrefix(header, prefix)
}

func tokenEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
