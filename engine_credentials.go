package goSession

import (
	"context"
	"errors"
	"fmt"
	"time"

	internalflows "github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/vault"
)

// ProviderAccessToken returns a usable provider access token for subjectID.
// An expired token is refreshed upstream first (bounded by the upstream
// refresh timeout) and the new grant is sealed back into the vault.
//
// Errors: [ErrCredentialNotFound], [ErrCredentialRevoked] when the grant is
// flagged revoked or cannot be refreshed, [ErrCryptoDecryptFailed],
// [ErrUpstreamRefreshFailed].
func (e *Engine) ProviderAccessToken(ctx context.Context, subjectID string) (string, time.Time, error) {
	if e.vault == nil {
		return "", time.Time{}, ErrEngineNotReady
	}

	result := internalflows.RunProviderAccessToken(ctx, subjectID, e.providerTokenFlowDeps())
	switch result.Failure {
	case internalflows.ProviderTokenFailureNone:
		if result.Refreshed {
			e.metricInc(MetricProviderTokenRefreshed)
			e.emitAudit(ctx, auditEventProviderTokenRefreshed, true, subjectID, nil, nil)
		}
		return result.AccessToken, result.Expiry, nil

	case internalflows.ProviderTokenFailureNotFound:
		return "", time.Time{}, ErrCredentialNotFound

	case internalflows.ProviderTokenFailureRevoked:
		if result.Err != nil {
			e.metricInc(MetricProviderTokenRefreshFailure)
			e.emitAudit(ctx, auditEventProviderTokenRefreshErr, false, subjectID, ErrCredentialRevoked, nil)
		}
		return "", time.Time{}, ErrCredentialRevoked

	case internalflows.ProviderTokenFailureDecrypt:
		e.metricInc(MetricDecryptFailure)
		e.logger.Error().Str("subject_id", subjectID).Str("reason", decryptReason(result.Err)).Msg("stored credential failed to decrypt")
		return "", time.Time{}, result.Err

	case internalflows.ProviderTokenFailureUpstream:
		err := fmt.Errorf("%w: %v", ErrUpstreamRefreshFailed, result.Err)
		e.metricInc(MetricProviderTokenRefreshFailure)
		e.logger.Warn().Err(result.Err).Str("subject_id", subjectID).Msg("provider token refresh failed")
		e.emitAudit(ctx, auditEventProviderTokenRefreshErr, false, subjectID, err, nil)
		return "", time.Time{}, err

	default:
		return "", time.Time{}, result.Err
	}
}

// Me returns the stored identity for subjectID.
func (e *Engine) Me(ctx context.Context, subjectID string) (Identity, error) {
	if e.identities == nil {
		return Identity{}, ErrEngineNotReady
	}
	return e.identities.FindIdentity(ctx, subjectID)
}

func (e *Engine) providerTokenFlowDeps() internalflows.ProviderTokenDeps {
	deps := internalflows.ProviderTokenDeps{
		Credentials: e.vault,
		IsGrantRevoked: func(err error) bool {
			return errors.Is(err, ErrCredentialRevoked)
		},
		Now:            e.jwtManager.Now,
		ExpiryMargin:   e.config.Upstream.ExpiryMargin,
		RefreshTimeout: e.config.Upstream.RefreshTimeout,
		NotFound:       vault.ErrCredentialNotFound,
		Warn:           e.warn,
	}
	if e.refresher != nil {
		deps.RefreshUpstream = func(ctx context.Context, refreshToken string) (internalflows.ProviderGrant, error) {
			tokens, err := e.refresher.Refresh(ctx, refreshToken)
			if err != nil {
				return internalflows.ProviderGrant{}, err
			}
			return internalflows.ProviderGrant{
				AccessToken:  tokens.AccessToken,
				RefreshToken: tokens.RefreshToken,
				Expiry:       tokens.Expiry,
				Scopes:       tokens.Scopes,
			}, nil
		}
	}
	return deps
}

func decryptReason(err error) string {
	var de *vault.DecryptError
	if errors.As(err, &de) {
		return string(de.Reason)
	}
	return "unknown"
}
