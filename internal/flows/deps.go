package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/jwt"
)

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Login    LoginDeps
	Refresh  RefreshDeps
	Validate ValidateDeps
	Logout   LogoutDeps
	Scopes   ScopeDeps
	Provider ProviderTokenDeps
}

// TokenIssuer is the subset of *jwt.Manager the flows need.
type TokenIssuer interface {
	IssueAccess(subjectID string) (string, error)
	IssueRefresh(subjectID string) (string, jwt.SessionClaims, error)
	Now() time.Time
	AccessTTL() time.Duration
}

// ProviderGrant is a provider token response, detached from any transport type.
type ProviderGrant struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	Scopes       []string
}

// IssuedPair is a freshly signed access/refresh pair plus the refresh claims
// the session store needs.
type IssuedPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	RefreshJTI       string
}

// RemainingTTL returns the time until the refresh token expires, rounded down
// to whole seconds and never below one second.
func (p IssuedPair) RemainingTTL(now time.Time) time.Duration {
	ttl := p.RefreshExpiresAt.Sub(now).Truncate(time.Second)
	if ttl < time.Second {
		return time.Second
	}
	return ttl
}

func issuePair(tokens TokenIssuer, subjectID string) (IssuedPair, error) {
	access, err := tokens.IssueAccess(subjectID)
	if err != nil {
		return IssuedPair{}, err
	}
	refresh, claims, err := tokens.IssueRefresh(subjectID)
	if err != nil {
		return IssuedPair{}, err
	}
	return IssuedPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  claims.IssuedAt.Add(tokens.AccessTTL()),
		RefreshExpiresAt: claims.ExpiresAt,
		RefreshJTI:       claims.JTI,
	}, nil
}

func warn(fn func(string, ...any), msg string, args ...any) {
	if fn != nil {
		fn(msg, args...)
	}
}

func bounded(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
