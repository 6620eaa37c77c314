package middleware

import (
	"context"
	"net/http"

	"github.com/ikjoobang/xivix-ai-core-sub000/internal/auth"
)

// SessionVerifier validates a bearer session token.
type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (*auth.Claims, error)
}

// AdminJWT admits requests carrying a live session token (signed, unexpired,
// not logged out) and puts its claims on the request context. Without a
// verifier every request is refused.
func AdminJWT(verifier SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				reject(w, http.StatusUnauthorized, MsgLoginRequired)
				return
			}
			token := auth.BearerToken(r)
			if token == "" {
				reject(w, http.StatusUnauthorized, MsgLoginRequired)
				return
			}
			claims, err := verifier.VerifySession(r.Context(), token)
			if err != nil {
				reject(w, http.StatusUnauthorized, MsgSessionInvalid)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

// RequireAdmin admits platform admins only; store owners get 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.ClaimsFromContext(r.Context())
		if !ok || !claims.IsAdmin() {
			reject(w, http.StatusForbidden, MsgForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
