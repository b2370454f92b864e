package goSession

import (
	"errors"
	"strings"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/vault"
)

var (
	// ErrTokenMissing is returned when no access or refresh token was presented.
	ErrTokenMissing = errors.New("token missing")
	// ErrTokenMalformed is returned when a token cannot be parsed or lacks required claims.
	ErrTokenMalformed = jwt.ErrTokenMalformed
	// ErrTokenExpired is returned when a token is past its expiry beyond the allowed skew.
	ErrTokenExpired = jwt.ErrTokenExpired
	// ErrTokenWrongType is returned when a refresh token is presented as an access token or vice versa.
	ErrTokenWrongType = jwt.ErrTokenWrongType
	// ErrTokenInvalid is returned for bad signatures, unknown keys and issuer mismatch.
	ErrTokenInvalid = jwt.ErrTokenInvalid
	// ErrRefreshInvalid is returned when the subject has no live refresh session.
	ErrRefreshInvalid = errors.New("refresh session invalid")
	// ErrRefreshReuseDetected is returned when a superseded refresh token is presented.
	// The subject's refresh session has been cleared by the time it is returned.
	ErrRefreshReuseDetected = errors.New("refresh token reuse detected")
	// ErrRefreshRateLimited is an exported constant or variable used by the session engine.
	ErrRefreshRateLimited = errors.New("refresh rate limited")
	// ErrScopesMissing is matched by [*MissingScopesError].
	ErrScopesMissing = errors.New("required scopes missing")
	// ErrCredentialRevoked is returned when the stored provider grant is known to be dead.
	ErrCredentialRevoked = errors.New("provider credential revoked")
	// ErrCredentialNotFound is an exported constant or variable used by the session engine.
	ErrCredentialNotFound = vault.ErrCredentialNotFound
	// ErrCryptoDecryptFailed is matched by every [*vault.DecryptError].
	ErrCryptoDecryptFailed = vault.ErrDecryptFailed
	// ErrCryptoKeyMisconfigured is returned at build time for a missing or
	// wrong-length master key.
	ErrCryptoKeyMisconfigured = vault.ErrKeyMisconfigured
	// ErrUpstreamRevocationFailed wraps revocation endpoint failures. It is
	// logged and counted, never returned from Disconnect.
	ErrUpstreamRevocationFailed = errors.New("upstream revocation failed")
	// ErrUpstreamRefreshFailed wraps provider token endpoint failures other than a revoked grant.
	ErrUpstreamRefreshFailed = errors.New("upstream token refresh failed")
	// ErrSessionBackendUnavailable is returned when the refresh session store
	// fails or times out. It is the only retryable error.
	ErrSessionBackendUnavailable = session.ErrRedisUnavailable
	// ErrIdentityInvalid is returned when a login carries no subject identifier.
	ErrIdentityInvalid = errors.New("identity invalid")
	// ErrIdentityNotFound is returned by [IdentityRepository.FindIdentity] for unknown subjects.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrEngineNotReady is returned when an Engine method needs a component that
	// was not configured (no credential repository, no identity verifier).
	ErrEngineNotReady = errors.New("engine not ready")
)

// MissingScopesError reports which required scopes the subject's provider
// grant lacks. Missing is sorted.
type MissingScopesError struct {
	Missing []string
}

func (e *MissingScopesError) Error() string {
	return "required scopes missing: " + strings.Join(e.Missing, " ")
}

// Is reports a match for [ErrScopesMissing].
func (e *MissingScopesError) Is(target error) bool {
	return target == ErrScopesMissing
}

// MissingScopes extracts the missing scope list from err, or nil.
func MissingScopes(err error) []string {
	var mse *MissingScopesError
	if errors.As(err, &mse) {
		return append([]string(nil), mse.Missing...)
	}
	return nil
}

// ErrorCode maps err to a stable machine-readable code for responses and
// audit events. It returns "" for nil.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrTokenMissing):
		return "token_missing"
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrTokenMalformed),
		errors.Is(err, ErrTokenWrongType),
		errors.Is(err, ErrTokenInvalid):
		return "token_invalid"
	case errors.Is(err, ErrRefreshReuseDetected):
		return "refresh_reuse"
	case errors.Is(err, ErrRefreshInvalid):
		return "refresh_invalid"
	case errors.Is(err, ErrRefreshRateLimited):
		return "refresh_rate_limited"
	case errors.Is(err, ErrScopesMissing):
		return "scopes_missing"
	case errors.Is(err, ErrCredentialRevoked):
		return "credential_revoked"
	case errors.Is(err, ErrCredentialNotFound):
		return "credential_not_found"
	case errors.Is(err, ErrCryptoDecryptFailed):
		return "decrypt_failed"
	case errors.Is(err, ErrCryptoKeyMisconfigured):
		return "key_misconfigured"
	case errors.Is(err, ErrUpstreamRevocationFailed):
		return "upstream_revocation_failed"
	case errors.Is(err, ErrUpstreamRefreshFailed):
		return "upstream_refresh_failed"
	case errors.Is(err, ErrSessionBackendUnavailable):
		return "session_unavailable"
	case errors.Is(err, ErrIdentityInvalid):
		return "identity_invalid"
	case errors.Is(err, ErrIdentityNotFound):
		return "identity_not_found"
	case errors.Is(err, ErrEngineNotReady):
		return "engine_not_ready"
	default:
		return "internal_error"
	}
}

// IsRetryable reports whether the caller may retry the same request. Only a
// refresh session backend outage qualifies.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrSessionBackendUnavailable)
}
