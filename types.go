package goSession

import (
	"context"
	"time"
)

// Identity is the profile record kept for a subject. SubjectID is the
// provider's stable subject identifier.
type Identity struct {
	SubjectID   string
	Email       string
	DisplayName string
	AvatarURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProviderTokens is the identity provider's grant as returned by its token
// endpoint. RefreshToken may be empty; providers often issue one only on first
// consent.
type ProviderTokens struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	Scopes       []string
}

// TokenPair defines a public type used by goSession APIs.
//
// It is the session's own access/refresh pair, never the provider's.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Principal is the authenticated caller attached to a request.
type Principal struct {
	SubjectID string
	ExpiresAt time.Time
}

// LoginInput is what the provider handshake hands over once it has succeeded.
// Tokens is nil when the provider granted nothing beyond identity.
type LoginInput struct {
	Identity Identity
	Tokens   *ProviderTokens
}

// IdentityRepository persists identity profiles.
//
// UpsertIdentity returns the stored record so timestamps reflect the database.
// FindIdentity returns [ErrIdentityNotFound] for unknown subjects.
type IdentityRepository interface {
	UpsertIdentity(ctx context.Context, identity Identity) (Identity, error)
	FindIdentity(ctx context.Context, subjectID string) (Identity, error)
}

// Revoker revokes a provider token at the provider's revocation endpoint.
type Revoker interface {
	Revoke(ctx context.Context, token string) error
}

// ProviderRefresher exchanges a provider refresh token for a new grant.
// Implementations return an error wrapping [ErrCredentialRevoked] when the
// provider reports the grant is gone.
type ProviderRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (ProviderTokens, error)
}

// IdentityVerifier verifies a raw OIDC ID token and extracts the identity claims.
type IdentityVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (Identity, error)
}
