package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType distinguishes access tokens from refresh tokens inside the signed claims.
type TokenType string

const (
	// TypeAccess marks a short-lived token presented on every request.
	TypeAccess TokenType = "access"
	// TypeRefresh marks a long-lived token accepted only by the refresh endpoint.
	TypeRefresh TokenType = "refresh"
)

func (t TokenType) valid() bool {
	return t == TypeAccess || t == TypeRefresh
}

// SessionClaims is the decoded, fixed-shape view of a session token.
// It is rebuilt on every decode and never persisted.
type SessionClaims struct {
	Subject   string
	Type      TokenType
	JTI       string // refresh tokens only
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Remaining returns the lifetime left at now, floored at zero.
func (c SessionClaims) Remaining(now time.Time) time.Duration {
	d := c.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// tokenClaims is the wire shape. jti travels in RegisteredClaims.ID.
type tokenClaims struct {
	Type TokenType `json:"type"`
	jwt.RegisteredClaims
}

func (c *tokenClaims) session() SessionClaims {
	out := SessionClaims{
		Subject: c.Subject,
		Type:    c.Type,
		JTI:     c.ID,
		Issuer:  c.Issuer,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out
}
