package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

type errorBody struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

// StatusFor maps an Engine error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, goSession.ErrSessionBackendUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, goSession.ErrRefreshRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, goSession.ErrScopesMissing),
		errors.Is(err, goSession.ErrCredentialRevoked),
		errors.Is(err, goSession.ErrCredentialNotFound):
		return http.StatusForbidden
	case errors.Is(err, goSession.ErrTokenMissing),
		errors.Is(err, goSession.ErrTokenMalformed),
		errors.Is(err, goSession.ErrTokenExpired),
		errors.Is(err, goSession.ErrTokenWrongType),
		errors.Is(err, goSession.ErrTokenInvalid),
		errors.Is(err, goSession.ErrRefreshReuseDetected),
		errors.Is(err, goSession.ErrRefreshInvalid),
		errors.Is(err, goSession.ErrIdentityInvalid),
		errors.Is(err, goSession.ErrIdentityNotFound):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, errorBody{
		Error:   goSession.ErrorCode(err),
		Missing: goSession.MissingScopes(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
