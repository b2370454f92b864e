package goSession

import (
	"context"
	"fmt"
	"strings"

	internalflows "github.com/MrEthical07/goSession/internal/flows"
)

// Logout ends the subject's session: its refresh session entry is cleared so
// no outstanding refresh token can be rotated again. The provider credential
// is kept. Access tokens already issued stay valid until they expire.
func (e *Engine) Logout(ctx context.Context, subjectID string) error {
	if strings.TrimSpace(subjectID) == "" {
		return ErrIdentityInvalid
	}

	if err := internalflows.RunLogout(ctx, subjectID, e.logoutFlowDeps()); err != nil {
		e.logger.Warn().Err(err).Str("subject_id", subjectID).Msg("logout failed to clear refresh session")
		e.emitAudit(ctx, auditEventLogout, false, subjectID, err, nil)
		return err
	}

	e.metricInc(MetricLogout)
	e.metricInc(MetricSessionInvalidated)
	e.emitAudit(ctx, auditEventLogout, true, subjectID, nil, nil)
	return nil
}

// Disconnect revokes the provider grant upstream and deletes the stored
// credential and the refresh session. Revocation is best-effort and bounded by
// the upstream revocation timeout: its failure is logged, counted and audited
// but never returned, and the local deletes happen regardless.
func (e *Engine) Disconnect(ctx context.Context, subjectID string) error {
	if strings.TrimSpace(subjectID) == "" {
		return ErrIdentityInvalid
	}

	result := internalflows.RunDisconnect(ctx, subjectID, e.logoutFlowDeps())
	if result.RevocationErr != nil {
		e.metricInc(MetricUpstreamRevocationFailure)
		if ErrorCode(result.RevocationErr) == "decrypt_failed" {
			e.metricInc(MetricDecryptFailure)
		}
		e.emitAudit(ctx, auditEventUpstreamRevocationFail, false, subjectID, result.RevocationErr, nil)
	}

	if err := result.Err(); err != nil {
		e.emitAudit(ctx, auditEventDisconnect, false, subjectID, err, nil)
		return err
	}

	e.metricInc(MetricDisconnect)
	e.metricInc(MetricSessionInvalidated)
	e.emitAudit(ctx, auditEventDisconnect, true, subjectID, nil, func() map[string]string {
		return map[string]string{"upstream_revoked": fmt.Sprint(result.Revoked)}
	})
	return nil
}

func (e *Engine) logoutFlowDeps() internalflows.LogoutDeps {
	deps := internalflows.LogoutDeps{
		SessionStore:      e.sessionStore,
		RevocationTimeout: e.config.Upstream.RevocationTimeout,
		Warn:              e.warn,
	}
	if e.vault != nil {
		deps.Credentials = e.vault
	}
	if e.revoker != nil {
		deps.Revoke = e.revoker.Revoke
	}
	return deps
}
