package goSession

import (
	"context"
	"strings"

	internalflows "github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/vault"
)

// RequireScopes checks that the subject's stored provider grant includes every
// scope in required. It returns a [*MissingScopesError] listing exactly the
// missing scopes, [ErrCredentialRevoked] for a revoked grant, or nil. An empty
// required list always passes.
func (e *Engine) RequireScopes(ctx context.Context, subjectID string, required ...string) error {
	if strings.TrimSpace(subjectID) == "" {
		return ErrIdentityInvalid
	}

	deps := internalflows.ScopeDeps{}
	if e.vault != nil {
		deps.Credentials = e.vault
	}

	result := internalflows.RunRequireScopes(ctx, subjectID, vault.NewScopeSet(required...), deps)
	switch result.Failure {
	case internalflows.ScopeFailureNone:
		return nil
	case internalflows.ScopeFailureMissing:
		err := &MissingScopesError{Missing: result.Missing}
		e.metricInc(MetricScopesMissing)
		e.emitAudit(ctx, auditEventScopesMissing, false, subjectID, err, func() map[string]string {
			return map[string]string{"missing": strings.Join(result.Missing, " ")}
		})
		return err
	case internalflows.ScopeFailureRevoked:
		return ErrCredentialRevoked
	default:
		return result.Err
	}
}

// GrantedScopes returns the scopes of the subject's stored provider grant.
func (e *Engine) GrantedScopes(ctx context.Context, subjectID string) ([]string, error) {
	if e.vault == nil {
		return nil, ErrEngineNotReady
	}
	scopes, err := e.vault.GrantedScopes(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return scopes.Slice(), nil
}
