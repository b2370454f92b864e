package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	goSession "github.com/MrEthical07/goSession"
)

// FailureHandler writes the response for a request whose access token was
// present but rejected.
type FailureHandler func(w http.ResponseWriter, r *http.Request, err error)

type gatewayOptions struct {
	onFailure      FailureHandler
	bearerFallback bool
}

// GatewayOption configures [Gateway].
type GatewayOption func(*gatewayOptions)

// WithFailureHandler replaces the default 401 JSON response.
func WithFailureHandler(h FailureHandler) GatewayOption {
	return func(o *gatewayOptions) {
		o.onFailure = h
	}
}

// WithBearerFallback also accepts an access token from the Authorization
// header when the access cookie is absent. Useful for non-browser clients.
func WithBearerFallback() GatewayOption {
	return func(o *gatewayOptions) {
		o.bearerFallback = true
	}
}

// Gateway authenticates each request from its access cookie.
//
//	Absent            -> anonymous, next handler runs
//	Present & valid   -> principal bound, next handler runs
//	Present & expired -> failure handler, code token_expired
//	Present & invalid -> failure handler, code token_invalid
//
// The client IP and User-Agent are attached to the context for audit events
// in every case. A rejected access cookie is expired on the client before the
// failure handler runs.
//
// Login, refresh and logout must not sit behind the Gateway: a stale access
// cookie would block the very routes that replace or clear it.
func Gateway(engine *goSession.Engine, opts ...GatewayOption) func(http.Handler) http.Handler {
	o := gatewayOptions{onFailure: DefaultFailureHandler}
	for _, opt := range opts {
		opt(&o)
	}

	var cookie goSession.CookieConfig
	if engine != nil {
		cookie = engine.Config().Cookie
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				o.onFailure(w, r, goSession.ErrEngineNotReady)
				return
			}

			r = r.WithContext(requestMetadata(r))

			token, fromCookie := cookieValue(r, cookie.AccessName)
			ok := fromCookie
			if !ok && o.bearerFallback {
				token, ok = bearerToken(r.Header.Get("Authorization"))
			}
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := engine.ValidateAccess(token)
			if err != nil {
				if fromCookie {
					clearAccessCookie(w, cookie)
				}
				o.onFailure(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(goSession.WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequestMetadata attaches the client IP and User-Agent to the request
// context without authenticating. Mount it on public session routes.
func RequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(requestMetadata(r)))
	})
}

func requestMetadata(r *http.Request) context.Context {
	ctx := goSession.WithClientIP(r.Context(), clientIP(r))
	return goSession.WithUserAgent(ctx, r.UserAgent())
}

// DefaultFailureHandler answers with the status and JSON code that match err.
func DefaultFailureHandler(w http.ResponseWriter, _ *http.Request, err error) {
	writeError(w, err)
}

func cookieValue(r *http.Request, name string) (string, bool) {
	if name == "" {
		return "", false
	}
	c, err := r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
