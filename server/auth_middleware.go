package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/friend-links/token"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyClaims stores the verified session claims
const ContextKeyClaims ContextKey = "claims"

const (
	msgAuthRequired  = "Authentication required"
	msgAdminRequired = "Admin access required"
)

// ClaimsFromContext returns the claims stored by RequireAuth.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(ContextKeyClaims).(*token.Claims)
	return claims, ok && claims != nil
}

// RequireAuth rejects requests without a valid bearer session token.
// Verification failures are not distinguished in the response.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, ok := s.services.Flow.Verify(r)
			if !ok {
				writeJSONError(w, msgAuthRequired, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireAdmin must run after RequireAuth.
func (s *Server) RequireAdmin() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeJSONError(w, msgAuthRequired, http.StatusUnauthorized)
				return
			}
			if !s.services.Flow.IsAdmin(claims) {
				writeJSONError(w, msgAdminRequired, http.StatusForbidden)
				return
			}
			next(w, r)
		}
	}
}
