package goSession

import (
	"time"

	internalflows "github.com/MrEthical07/goSession/internal/flows"
)

// ValidateAccess verifies an access token and returns the principal it names.
// Only the subject and expiry are taken from the claims.
//
//	Performance: no I/O; signature, issuer, expiry and type are checked on every call.
func (e *Engine) ValidateAccess(tokenStr string) (Principal, error) {
	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
		defer func() { e.metrics.Observe(MetricValidateLatency, time.Since(start)) }()
	}

	result := internalflows.RunValidate(tokenStr, internalflows.ValidateDeps{
		DecodeAccess: e.jwtManager.DecodeAccess,
	})
	if result.Failure != internalflows.ValidateFailureNone {
		e.metricInc(MetricValidateFailure)
		if result.Failure == internalflows.ValidateFailureMissing {
			return Principal{}, ErrTokenMissing
		}
		return Principal{}, result.Err
	}

	e.metricInc(MetricValidateSuccess)
	return Principal{
		SubjectID: result.Claims.Subject,
		ExpiresAt: result.Claims.ExpiresAt,
	}, nil
}

// SubjectFromRefresh decodes a refresh token without consulting the session
// store. Logout uses it to identify the subject when no access token is
// presented.
func (e *Engine) SubjectFromRefresh(tokenStr string) (string, error) {
	claims, err := e.jwtManager.DecodeRefresh(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
