package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/vault"
)

type LogoutSessionStore interface {
	Clear(ctx context.Context, subjectID string) error
}

type DisconnectCredentialStore interface {
	FindDecrypted(ctx context.Context, subjectID string) (*vault.Credential, error)
	Disconnect(ctx context.Context, subjectID string) error
}

// LogoutDeps captures logout and disconnect dependencies.
type LogoutDeps struct {
	SessionStore      LogoutSessionStore
	Credentials       DisconnectCredentialStore
	Revoke            func(ctx context.Context, token string) error
	RevocationTimeout time.Duration
	Warn              func(string, ...any)
}

// DisconnectResult reports each step independently. Revocation failures never
// stop the local deletes.
type DisconnectResult struct {
	Revoked       bool
	RevocationErr error
	CredentialErr error
	SessionErr    error
}

// Err returns the first local failure. Revocation failures are excluded.
func (r DisconnectResult) Err() error {
	if r.CredentialErr != nil {
		return r.CredentialErr
	}
	return r.SessionErr
}

// RunLogout clears only the subject's refresh session entry.
func RunLogout(ctx context.Context, subjectID string, deps LogoutDeps) error {
	return deps.SessionStore.Clear(ctx, subjectID)
}

// RunDisconnect revokes the provider grant upstream (best-effort, bounded),
// then deletes the stored credential and the refresh session entry.
func RunDisconnect(ctx context.Context, subjectID string, deps LogoutDeps) DisconnectResult {
	var result DisconnectResult

	if deps.Credentials != nil {
		result.Revoked, result.RevocationErr = revokeUpstream(ctx, subjectID, deps)
		if result.RevocationErr != nil {
			warn(deps.Warn, "upstream revocation failed", "subject_id", subjectID, "error", result.RevocationErr)
		}
		result.CredentialErr = deps.Credentials.Disconnect(ctx, subjectID)
	}

	result.SessionErr = deps.SessionStore.Clear(ctx, subjectID)
	return result
}

func revokeUpstream(ctx context.Context, subjectID string, deps LogoutDeps) (bool, error) {
	if deps.Revoke == nil {
		return false, nil
	}

	cred, err := deps.Credentials.FindDecrypted(ctx, subjectID)
	if err != nil {
		if errors.Is(err, vault.ErrCredentialNotFound) {
			return false, nil
		}
		return false, err
	}

	// The refresh token outlives the access token and revoking it ends the
	// whole grant at most providers.
	var token string
	if cred.HasRefreshToken() {
		token, err = cred.RefreshToken()
	} else {
		token, err = cred.AccessToken()
	}
	if err != nil {
		return false, err
	}

	rctx, cancel := bounded(ctx, deps.RevocationTimeout)
	defer cancel()
	if err := deps.Revoke(rctx, token); err != nil {
		return false, err
	}
	return true, nil
}
