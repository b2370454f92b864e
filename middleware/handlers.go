package middleware

import (
	"errors"
	"net/http"
	"time"

	goSession "github.com/MrEthical07/goSession"
)

// Handlers serves the session endpoints backed by an Engine.
type Handlers struct {
	engine *goSession.Engine
	cookie goSession.CookieConfig
	now    func() time.Time
}

// NewHandlers returns the endpoint handlers for engine.
func NewHandlers(engine *goSession.Engine) *Handlers {
	return &Handlers{
		engine: engine,
		cookie: engine.Config().Cookie,
		now:    time.Now,
	}
}

type identityResponse struct {
	SubjectID   string `json:"subject_id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Refresh rotates the session from the refresh cookie. 204 with new cookies
// on success. Authentication failures clear both cookies and answer 401. A
// session backend outage answers 503 and leaves the cookies alone so the
// client can retry.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	token, _ := cookieValue(r, h.cookie.RefreshName)

	pair, err := h.engine.Refresh(r.Context(), token)
	if err != nil {
		if !goSession.IsRetryable(err) && !errors.Is(err, goSession.ErrRefreshRateLimited) {
			ClearSessionCookies(w, h.cookie)
		}
		writeError(w, err)
		return
	}

	SetSessionCookies(w, h.cookie, pair, h.now())
	w.WriteHeader(http.StatusNoContent)
}

// Logout always answers 204 and clears the cookies. The stored session is
// cleared when the access or refresh token still identifies the caller.
// The provider credential is kept. A session backend failure is logged by
// the engine and does not change the response.
//
// The refresh cookie only reaches this handler when Cookie.RefreshPath is a
// prefix of the logout path (for example "/auth"). With the default
// "/auth/refresh" only the access cookie identifies the caller.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if sub := h.subjectForLogout(r); sub != "" {
		// Logged and audited by the engine.
		_ = h.engine.Logout(r.Context(), sub)
	}
	ClearSessionCookies(w, h.cookie)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) subjectForLogout(r *http.Request) string {
	if p, ok := goSession.PrincipalFromContext(r.Context()); ok {
		return p.SubjectID
	}
	if token, ok := cookieValue(r, h.cookie.AccessName); ok {
		if p, err := h.engine.ValidateAccess(token); err == nil {
			return p.SubjectID
		}
	}
	if token, ok := cookieValue(r, h.cookie.RefreshName); ok {
		if sub, err := h.engine.SubjectFromRefresh(token); err == nil {
			return sub
		}
	}
	return ""
}

// Me returns the caller's identity, or 401.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := goSession.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, goSession.ErrTokenMissing)
		return
	}

	id, err := h.engine.Me(r.Context(), p.SubjectID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, identityResponse{
		SubjectID:   id.SubjectID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		AvatarURL:   id.AvatarURL,
	})
}

// Disconnect revokes the provider grant, deletes the stored credential and
// ends the session. 204 on success, 401 when anonymous.
func (h *Handlers) Disconnect(w http.ResponseWriter, r *http.Request) {
	p, ok := goSession.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, goSession.ErrTokenMissing)
		return
	}

	if err := h.engine.Disconnect(r.Context(), p.SubjectID); err != nil {
		writeError(w, err)
		return
	}

	ClearSessionCookies(w, h.cookie)
	w.WriteHeader(http.StatusNoContent)
}
