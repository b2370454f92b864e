package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/vault"
)

// ProviderTokenFailureKind classifies provider access token lookups.
type ProviderTokenFailureKind int

const (
	ProviderTokenFailureNone ProviderTokenFailureKind = iota
	ProviderTokenFailureNotFound
	ProviderTokenFailureRevoked
	ProviderTokenFailureDecrypt
	ProviderTokenFailureUpstream
	ProviderTokenFailureBackend
)

// ProviderTokenResult carries a usable provider access token.
type ProviderTokenResult struct {
	Failure     ProviderTokenFailureKind
	Err         error
	AccessToken string
	Expiry      time.Time
	Refreshed   bool
}

type ProviderCredentialStore interface {
	FindDecrypted(ctx context.Context, subjectID string) (*vault.Credential, error)
	SaveOrUpdate(ctx context.Context, subjectID, access, refresh string, accessExpiry time.Time, scopes vault.ScopeSet) error
	MarkRevoked(ctx context.Context, subjectID string) error
}

// ProviderTokenDeps captures provider token dependencies.
type ProviderTokenDeps struct {
	Credentials ProviderCredentialStore
	// RefreshUpstream may be nil; expired tokens are then reported revoked.
	RefreshUpstream func(ctx context.Context, refreshToken string) (ProviderGrant, error)
	// IsGrantRevoked reports upstream errors that mean the refresh token is dead.
	IsGrantRevoked func(error) bool
	Now            func() time.Time
	// ExpiryMargin treats tokens expiring within the margin as expired.
	ExpiryMargin   time.Duration
	RefreshTimeout time.Duration
	NotFound       error
	Warn           func(string, ...any)
}

// RunProviderAccessToken returns the stored provider access token, refreshing
// it upstream first when it is expired.
func RunProviderAccessToken(ctx context.Context, subjectID string, deps ProviderTokenDeps) ProviderTokenResult {
	cred, err := deps.Credentials.FindDecrypted(ctx, subjectID)
	if err != nil {
		if deps.NotFound != nil && errors.Is(err, deps.NotFound) {
			return ProviderTokenResult{Failure: ProviderTokenFailureNotFound, Err: err}
		}
		return ProviderTokenResult{Failure: ProviderTokenFailureBackend, Err: err}
	}
	if cred.Revoked {
		return ProviderTokenResult{Failure: ProviderTokenFailureRevoked}
	}

	if !cred.Expired(deps.Now().Add(deps.ExpiryMargin)) {
		access, err := cred.AccessToken()
		if err != nil {
			return ProviderTokenResult{Failure: ProviderTokenFailureDecrypt, Err: err}
		}
		return ProviderTokenResult{AccessToken: access, Expiry: cred.AccessExpiry}
	}

	if deps.RefreshUpstream == nil || !cred.HasRefreshToken() {
		return ProviderTokenResult{Failure: ProviderTokenFailureRevoked}
	}
	refresh, err := cred.RefreshToken()
	if err != nil {
		return ProviderTokenResult{Failure: ProviderTokenFailureDecrypt, Err: err}
	}

	rctx, cancel := bounded(ctx, deps.RefreshTimeout)
	grant, err := deps.RefreshUpstream(rctx, refresh)
	cancel()
	if err != nil {
		if deps.IsGrantRevoked != nil && deps.IsGrantRevoked(err) {
			if markErr := deps.Credentials.MarkRevoked(ctx, subjectID); markErr != nil {
				warn(deps.Warn, "mark credential revoked failed", "subject_id", subjectID, "error", markErr)
			}
			return ProviderTokenResult{Failure: ProviderTokenFailureRevoked, Err: err}
		}
		return ProviderTokenResult{Failure: ProviderTokenFailureUpstream, Err: err}
	}

	scopes := cred.Scopes
	if len(grant.Scopes) > 0 {
		scopes = vault.NewScopeSet(grant.Scopes...)
	}
	if err := deps.Credentials.SaveOrUpdate(ctx, subjectID, grant.AccessToken, grant.RefreshToken, grant.Expiry, scopes); err != nil {
		return ProviderTokenResult{Failure: ProviderTokenFailureBackend, Err: err}
	}

	return ProviderTokenResult{AccessToken: grant.AccessToken, Expiry: grant.Expiry, Refreshed: true}
}
