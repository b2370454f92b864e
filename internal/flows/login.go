package flows

import (
	"context"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/vault"
)

// LoginFailureKind classifies login completion failures.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureSubject
	LoginFailureIdentity
	LoginFailureCredential
	LoginFailureIssue
	LoginFailureSession
)

// LoginResult carries the issued pair or a classified failure.
type LoginResult struct {
	Failure   LoginFailureKind
	Err       error
	SubjectID string
	Pair      IssuedPair
}

type LoginSessionStore interface {
	Save(ctx context.Context, subjectID, jti string, ttl time.Duration) error
}

type LoginCredentialStore interface {
	SaveOrUpdate(ctx context.Context, subjectID, access, refresh string, accessExpiry time.Time, scopes vault.ScopeSet) error
}

// LoginDeps captures login completion dependencies. Credentials may be nil
// when no vault is configured; grants are then dropped.
type LoginDeps struct {
	SaveIdentity  func(ctx context.Context) error
	Credentials   LoginCredentialStore
	Tokens        TokenIssuer
	SessionStore  LoginSessionStore
	ResetThrottle func(ctx context.Context, subjectID string) error
	Warn          func(string, ...any)
}

// RunLogin runs everything downstream of a successful provider handshake:
// identity upsert, credential sealing, session pair issue and jti install.
// Saving the new jti invalidates any earlier refresh token for the subject.
func RunLogin(ctx context.Context, subjectID string, grant *ProviderGrant, deps LoginDeps) LoginResult {
	if strings.TrimSpace(subjectID) == "" {
		return LoginResult{Failure: LoginFailureSubject}
	}

	if deps.SaveIdentity != nil {
		if err := deps.SaveIdentity(ctx); err != nil {
			return LoginResult{Failure: LoginFailureIdentity, Err: err, SubjectID: subjectID}
		}
	}

	if grant != nil && grant.AccessToken != "" && deps.Credentials != nil {
		err := deps.Credentials.SaveOrUpdate(
			ctx,
			subjectID,
			grant.AccessToken,
			grant.RefreshToken,
			grant.Expiry,
			vault.NewScopeSet(grant.Scopes...),
		)
		if err != nil {
			return LoginResult{Failure: LoginFailureCredential, Err: err, SubjectID: subjectID}
		}
	}

	pair, err := issuePair(deps.Tokens, subjectID)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssue, Err: err, SubjectID: subjectID}
	}

	if err := deps.SessionStore.Save(ctx, subjectID, pair.RefreshJTI, pair.RemainingTTL(deps.Tokens.Now())); err != nil {
		return LoginResult{Failure: LoginFailureSession, Err: err, SubjectID: subjectID}
	}

	if deps.ResetThrottle != nil {
		if err := deps.ResetThrottle(ctx, subjectID); err != nil {
			warn(deps.Warn, "refresh throttle reset failed", "subject_id", subjectID, "error", err)
		}
	}

	return LoginResult{SubjectID: subjectID, Pair: pair}
}
