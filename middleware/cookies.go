package middleware

import (
	"net/http"
	"time"

	goSession "github.com/MrEthical07/goSession"
)

// SetSessionCookies writes the access and refresh cookies for pair. The
// refresh cookie is scoped to the refresh endpoint path.
func SetSessionCookies(w http.ResponseWriter, cfg goSession.CookieConfig, pair goSession.TokenPair, now time.Time) {
	http.SetCookie(w, sessionCookie(cfg, cfg.AccessName, "/", pair.AccessToken, maxAge(pair.AccessExpiresAt, now)))
	http.SetCookie(w, sessionCookie(cfg, cfg.RefreshName, cfg.RefreshPath, pair.RefreshToken, maxAge(pair.RefreshExpiresAt, now)))
}

// ClearSessionCookies expires both session cookies on the client.
func ClearSessionCookies(w http.ResponseWriter, cfg goSession.CookieConfig) {
	clearAccessCookie(w, cfg)
	http.SetCookie(w, sessionCookie(cfg, cfg.RefreshName, cfg.RefreshPath, "", -1))
}

func clearAccessCookie(w http.ResponseWriter, cfg goSession.CookieConfig) {
	http.SetCookie(w, sessionCookie(cfg, cfg.AccessName, "/", "", -1))
}

func sessionCookie(cfg goSession.CookieConfig, name, path, value string, age int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   cfg.Domain,
		MaxAge:   age,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	}
}

func maxAge(expiresAt, now time.Time) int {
	secs := int(expiresAt.Sub(now) / time.Second)
	if secs < 1 {
		return -1
	}
	return secs
}
