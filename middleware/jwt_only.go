package middleware

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

// RequireAuthenticated rejects requests that [Gateway] left anonymous with
// 401 token_missing. It must be mounted behind Gateway.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := goSession.PrincipalFromContext(r.Context()); !ok {
			writeError(w, goSession.ErrTokenMissing)
			return
		}
		next.ServeHTTP(w, r)
	})
}
