package flows

import (
	"errors"
	"strings"

	"github.com/MrEthical07/goSession/jwt"
)

// ValidateFailureKind classifies access-token validation failures.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureMissing
	ValidateFailureExpired
	ValidateFailureWrongType
	ValidateFailureMalformed
	ValidateFailureInvalid
)

// ValidateResult returns either the decoded claims or a classified failure.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Claims  jwt.SessionClaims
}

// ValidateDeps captures access validation dependencies.
type ValidateDeps struct {
	DecodeAccess func(string) (jwt.SessionClaims, error)
}

// RunValidate decodes an access token. Nothing is cached: every call verifies
// signature, issuer, expiry and type afresh.
func RunValidate(tokenStr string, deps ValidateDeps) ValidateResult {
	if strings.TrimSpace(tokenStr) == "" {
		return ValidateResult{Failure: ValidateFailureMissing}
	}

	claims, err := deps.DecodeAccess(tokenStr)
	if err != nil {
		return ValidateResult{
			Failure: classifyDecode(err),
			Err:     err,
		}
	}
	return ValidateResult{Claims: claims}
}

func classifyDecode(err error) ValidateFailureKind {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ValidateFailureExpired
	case errors.Is(err, jwt.ErrTokenWrongType):
		return ValidateFailureWrongType
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ValidateFailureMalformed
	default:
		return ValidateFailureInvalid
	}
}
