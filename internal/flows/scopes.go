package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/vault"
)

// ScopeFailureKind classifies scope enforcement failures.
type ScopeFailureKind int

const (
	ScopeFailureNone ScopeFailureKind = iota
	ScopeFailureMissing
	ScopeFailureRevoked
	ScopeFailureBackend
)

// ScopeResult carries the missing scopes on failure.
type ScopeResult struct {
	Failure ScopeFailureKind
	Err     error
	Missing []string
}

type ScopeCredentialStore interface {
	FindDecrypted(ctx context.Context, subjectID string) (*vault.Credential, error)
}

// ScopeDeps captures scope enforcement dependencies.
type ScopeDeps struct {
	Credentials ScopeCredentialStore
}

// RunRequireScopes checks the granted scopes are a superset of required.
// An empty required set passes without touching storage. A subject with no
// stored credential is missing every required scope.
func RunRequireScopes(ctx context.Context, subjectID string, required vault.ScopeSet, deps ScopeDeps) ScopeResult {
	if len(required) == 0 {
		return ScopeResult{}
	}
	if deps.Credentials == nil {
		return ScopeResult{Failure: ScopeFailureMissing, Missing: required.Slice()}
	}

	cred, err := deps.Credentials.FindDecrypted(ctx, subjectID)
	if err != nil {
		if errors.Is(err, vault.ErrCredentialNotFound) {
			return ScopeResult{Failure: ScopeFailureMissing, Missing: required.Slice()}
		}
		return ScopeResult{Failure: ScopeFailureBackend, Err: err}
	}
	if cred.Revoked {
		return ScopeResult{Failure: ScopeFailureRevoked}
	}

	if missing := cred.Scopes.Missing(required); len(missing) > 0 {
		return ScopeResult{Failure: ScopeFailureMissing, Missing: missing}
	}
	return ScopeResult{}
}
