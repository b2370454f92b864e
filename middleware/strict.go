package middleware

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

// RequireScopes guards a route on provider scopes. Anonymous callers get 401;
// callers whose grant lacks a scope get 403 scopes_missing with the missing
// set, so the client can start a re-consent flow instead of a login.
func RequireScopes(engine *goSession.Engine, scopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := goSession.PrincipalFromContext(r.Context())
			if !ok {
				writeError(w, goSession.ErrTokenMissing)
				return
			}
			if engine == nil {
				writeError(w, goSession.ErrEngineNotReady)
				return
			}
			if err := engine.RequireScopes(r.Context(), p.SubjectID, scopes...); err != nil {
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
