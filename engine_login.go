package goSession

import (
	"context"
	"fmt"
	"strings"

	internalflows "github.com/MrEthical07/goSession/internal/flows"
)

// CompleteLogin finishes a login after the provider handshake succeeded: the
// identity is upserted, any provider grant is sealed into the vault, and a new
// session pair is issued. Saving the new refresh jti supersedes every earlier
// refresh token of the subject.
func (e *Engine) CompleteLogin(ctx context.Context, in LoginInput) (TokenPair, error) {
	in.Identity.SubjectID = strings.TrimSpace(in.Identity.SubjectID)
	subjectID := in.Identity.SubjectID

	var grant *internalflows.ProviderGrant
	if in.Tokens != nil {
		grant = &internalflows.ProviderGrant{
			AccessToken:  in.Tokens.AccessToken,
			RefreshToken: in.Tokens.RefreshToken,
			Expiry:       in.Tokens.Expiry,
			Scopes:       in.Tokens.Scopes,
		}
	}

	result := internalflows.RunLogin(ctx, subjectID, grant, e.loginFlowDeps(in.Identity))
	if result.Failure != internalflows.LoginFailureNone {
		err := e.loginError(result)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, subjectID, err, nil)
		return TokenPair{}, err
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventLoginSuccess, true, subjectID, nil, func() map[string]string {
		return map[string]string{
			"credential_saved": fmt.Sprint(grant != nil && grant.AccessToken != "" && e.vault != nil),
		}
	})
	return pairFromFlow(result.Pair), nil
}

// LoginWithIDToken verifies rawIDToken with the configured [IdentityVerifier]
// and then runs [Engine.CompleteLogin]. tokens may be nil.
func (e *Engine) LoginWithIDToken(ctx context.Context, rawIDToken string, tokens *ProviderTokens) (TokenPair, Identity, error) {
	if e.verifier == nil {
		return TokenPair{}, Identity{}, ErrEngineNotReady
	}

	identity, err := e.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrIdentityInvalid, err)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", err, func() map[string]string {
			return map[string]string{"stage": "id_token"}
		})
		return TokenPair{}, Identity{}, err
	}

	pair, err := e.CompleteLogin(ctx, LoginInput{Identity: identity, Tokens: tokens})
	if err != nil {
		return TokenPair{}, Identity{}, err
	}
	return pair, identity, nil
}

func (e *Engine) loginFlowDeps(identity Identity) internalflows.LoginDeps {
	deps := internalflows.LoginDeps{
		Tokens:       e.jwtManager,
		SessionStore: e.sessionStore,
		Warn:         e.warn,
	}
	if e.identities != nil {
		deps.SaveIdentity = func(ctx context.Context) error {
			_, err := e.identities.UpsertIdentity(ctx, identity)
			return err
		}
	}
	if e.vault != nil {
		deps.Credentials = e.vault
	}
	if e.config.Security.EnableRefreshThrottle {
		deps.ResetThrottle = e.rateLimiter.ResetRefresh
	}
	return deps
}

func (e *Engine) loginError(result internalflows.LoginResult) error {
	switch result.Failure {
	case internalflows.LoginFailureSubject:
		return ErrIdentityInvalid
	case internalflows.LoginFailureSession:
		e.logger.Error().Err(result.Err).Str("subject_id", result.SubjectID).Msg("refresh session save failed")
		return result.Err
	case internalflows.LoginFailureCredential:
		e.logger.Error().Err(result.Err).Str("subject_id", result.SubjectID).Msg("credential save failed")
		return result.Err
	default:
		return result.Err
	}
}

func pairFromFlow(p internalflows.IssuedPair) TokenPair {
	return TokenPair{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshExpiresAt: p.RefreshExpiresAt,
	}
}
