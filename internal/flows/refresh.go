package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/jwt"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureDecode
	RefreshFailureRateLimited
	RefreshFailureIssue
	RefreshFailureReuse
	RefreshFailureSessionNotFound
	RefreshFailureBackend
)

// RefreshResult carries either the issued token pair or failure metadata.
type RefreshResult struct {
	Failure   RefreshFailureKind
	Err       error
	SubjectID string
	Pair      IssuedPair
}

type RefreshRateLimiter interface {
	CheckRefresh(ctx context.Context, subjectID string) error
}

type RefreshSessionStore interface {
	Matches(ctx context.Context, subjectID, jti string) (bool, error)
	Rotate(ctx context.Context, subjectID, currentJTI, nextJTI string, ttl time.Duration) error
	Clear(ctx context.Context, subjectID string) error
	TrackReplayAnomaly(ctx context.Context, subjectID string, ttl time.Duration) error
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	DecodeRefresh        func(string) (jwt.SessionClaims, error)
	Tokens               TokenIssuer
	RateLimiter          RefreshRateLimiter
	SessionStore         RefreshSessionStore
	EnableReplayTracking bool
	ReplayWindow         time.Duration
	Warn                 func(string, ...any)
	JTIMismatch          error
	SessionNotFound      error
}

// RunRefresh executes refresh rotation. The check of the presented jti and the
// install of the new one happen in a single store call; any mismatch leaves the
// subject with no live refresh session.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	claims, err := deps.DecodeRefresh(refreshToken)
	if err != nil {
		return RefreshResult{
			Failure: RefreshFailureDecode,
			Err:     err,
		}
	}
	subjectID := claims.Subject

	// Only the holder of the current jti spends the throttle budget. A stale
	// token skips the throttle and reaches Rotate, which clears the entry.
	if deps.RateLimiter != nil {
		current, err := deps.SessionStore.Matches(ctx, subjectID, claims.JTI)
		if err != nil {
			return RefreshResult{
				Failure:   RefreshFailureBackend,
				Err:       err,
				SubjectID: subjectID,
			}
		}
		if current {
			if err := deps.RateLimiter.CheckRefresh(ctx, subjectID); err != nil {
				return RefreshResult{
					Failure:   RefreshFailureRateLimited,
					Err:       err,
					SubjectID: subjectID,
				}
			}
		}
	}

	pair, err := issuePair(deps.Tokens, subjectID)
	if err != nil {
		return RefreshResult{
			Failure:   RefreshFailureIssue,
			Err:       err,
			SubjectID: subjectID,
		}
	}

	err = deps.SessionStore.Rotate(ctx, subjectID, claims.JTI, pair.RefreshJTI, pair.RemainingTTL(deps.Tokens.Now()))
	if err != nil {
		switch {
		case deps.JTIMismatch != nil && errors.Is(err, deps.JTIMismatch):
			if deps.EnableReplayTracking {
				if trackErr := deps.SessionStore.TrackReplayAnomaly(ctx, subjectID, deps.ReplayWindow); trackErr != nil {
					warn(deps.Warn, "replay anomaly tracking failed", "subject_id", subjectID, "error", trackErr)
				}
			}
			return RefreshResult{
				Failure:   RefreshFailureReuse,
				Err:       err,
				SubjectID: subjectID,
			}
		case deps.SessionNotFound != nil && errors.Is(err, deps.SessionNotFound):
			return RefreshResult{
				Failure:   RefreshFailureSessionNotFound,
				Err:       err,
				SubjectID: subjectID,
			}
		default:
			return RefreshResult{
				Failure:   RefreshFailureBackend,
				Err:       err,
				SubjectID: subjectID,
			}
		}
	}

	return RefreshResult{
		SubjectID: subjectID,
		Pair:      pair,
	}
}
