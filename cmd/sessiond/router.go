package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	goSession "github.com/MrEthical07/goSession"
	promexport "github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/MrEthical07/goSession/middleware"
)

const requestTimeout = 30 * time.Second

func newRouter(engine *goSession.Engine) http.Handler {
	h := middleware.NewHandlers(engine)
	refreshPath := engine.Config().Cookie.RefreshPath

	r := chi.NewRouter()
	r.Use(
		chimw.RequestID,
		chimw.Recoverer,
		chimw.Timeout(requestTimeout),
	)

	r.Get("/healthz", healthHandler(engine))
	r.Handle("/metrics", promexport.Handler(promexport.NewCollector(engine)))

	// Login, refresh and logout replace or clear the access cookie, so a
	// stale one must not gate them.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequestMetadata)
		r.Post("/auth/login/id-token", idTokenLoginHandler(engine))
		r.Post(refreshPath, h.Refresh)
		r.Post("/auth/logout", h.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Gateway(engine), middleware.RequireAuthenticated)
		r.Get("/me", h.Me)
		r.Post("/auth/disconnect", h.Disconnect)
		r.Get("/provider/scopes", scopesHandler(engine))
	})

	return r
}

func healthHandler(engine *goSession.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		latency, err := engine.Ping(r.Context())
		if err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "redis_latency": latency.String()})
	}
}

// idTokenLoginRequest is what the front-end posts after the provider
// handshake: the ID token plus whatever the token endpoint granted.
type idTokenLoginRequest struct {
	IDToken      string `json:"id_token"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
}

func idTokenLoginHandler(engine *goSession.Engine) http.HandlerFunc {
	cookie := engine.Config().Cookie
	return func(w http.ResponseWriter, r *http.Request) {
		var req idTokenLoginRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request"})
			return
		}

		var tokens *goSession.ProviderTokens
		if req.AccessToken != "" {
			tokens = &goSession.ProviderTokens{
				AccessToken:  req.AccessToken,
				RefreshToken: req.RefreshToken,
				Expiry:       time.Now().Add(time.Duration(req.ExpiresIn) * time.Second),
				Scopes:       strings.Fields(req.Scope),
			}
		}

		pair, _, err := engine.LoginWithIDToken(r.Context(), req.IDToken, tokens)
		if err != nil {
			middleware.DefaultFailureHandler(w, r, err)
			return
		}

		middleware.SetSessionCookies(w, cookie, pair, time.Now())
		w.WriteHeader(http.StatusNoContent)
	}
}

func scopesHandler(engine *goSession.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := goSession.PrincipalFromContext(r.Context())
		scopes, err := engine.GrantedScopes(r.Context(), p.SubjectID)
		if err != nil {
			middleware.DefaultFailureHandler(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string][]string{"scopes": scopes})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
