package goSession

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	internalflows "github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/session"
)

// Refresh rotates the session: the presented refresh token must carry the
// subject's current jti, in which case a new pair is issued and its jti
// installed in the same atomic step. Presenting any other jti clears the
// subject's session and returns [ErrRefreshReuseDetected].
//
//	Performance: one Redis round-trip (two with the refresh throttle enabled).
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", ErrTokenMissing, nil)
		return TokenPair{}, ErrTokenMissing
	}

	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricRefreshLatency, time.Since(start)) }()
	}

	result := internalflows.RunRefresh(ctx, refreshToken, e.refreshFlowDeps())
	if result.Failure == internalflows.RefreshFailureNone {
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, auditEventRefreshSuccess, true, result.SubjectID, nil, nil)
		return pairFromFlow(result.Pair), nil
	}

	switch result.Failure {
	case internalflows.RefreshFailureRateLimited:
		if !errors.Is(result.Err, rate.ErrRateLimited) {
			err := fmt.Errorf("%w: %v", ErrSessionBackendUnavailable, result.Err)
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshInvalid, false, result.SubjectID, err, nil)
			return TokenPair{}, err
		}
		e.metricInc(MetricRefreshRateLimited)
		e.emitAudit(ctx, auditEventRefreshRateLimited, false, result.SubjectID, ErrRefreshRateLimited, nil)
		return TokenPair{}, ErrRefreshRateLimited

	case internalflows.RefreshFailureReuse:
		e.metricInc(MetricRefreshFailure)
		e.metricInc(MetricRefreshReuseDetected)
		e.metricInc(MetricSessionInvalidated)
		if e.config.Security.EnableReplayTracking {
			e.metricInc(MetricReplayDetected)
		}
		e.logger.Warn().Str("subject_id", result.SubjectID).Msg("refresh token reuse detected, session cleared")
		e.emitAudit(ctx, auditEventRefreshReuseDetected, false, result.SubjectID, ErrRefreshReuseDetected, nil)
		return TokenPair{}, ErrRefreshReuseDetected

	case internalflows.RefreshFailureSessionNotFound:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, result.SubjectID, ErrRefreshInvalid, nil)
		return TokenPair{}, ErrRefreshInvalid

	default:
		e.metricInc(MetricRefreshFailure)
		if result.Failure == internalflows.RefreshFailureBackend {
			e.logger.Error().Err(result.Err).Str("subject_id", result.SubjectID).Msg("refresh rotation failed")
		}
		e.emitAudit(ctx, auditEventRefreshInvalid, false, result.SubjectID, result.Err, nil)
		return TokenPair{}, result.Err
	}
}

func (e *Engine) refreshFlowDeps() internalflows.RefreshDeps {
	deps := internalflows.RefreshDeps{
		DecodeRefresh:        e.jwtManager.DecodeRefresh,
		Tokens:               e.jwtManager,
		SessionStore:         e.sessionStore,
		EnableReplayTracking: e.config.Security.EnableReplayTracking,
		ReplayWindow:         e.config.Security.ReplayWindow,
		Warn:                 e.warn,
		JTIMismatch:          session.ErrRefreshJTIMismatch,
		SessionNotFound:      session.ErrRefreshSessionNotFound,
	}
	if e.config.Security.EnableRefreshThrottle {
		deps.RateLimiter = e.rateLimiter
	}
	return deps
}
