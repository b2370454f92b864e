package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is returned when the backing store fails or the call
// deadline expires. Callers should treat it as retryable: the remote state
// change may or may not have happened.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrRefreshSessionNotFound is returned by Rotate when the subject has no live entry.
var ErrRefreshSessionNotFound = errors.New("refresh session not found")

// ErrRefreshJTIMismatch is returned by Rotate when the presented jti is not the
// current one. The entry has already been deleted when this is returned.
var ErrRefreshJTIMismatch = errors.New("refresh jti mismatch")

// ErrInvalidTTL is returned when saving with a non-positive TTL.
var ErrInvalidTTL = errors.New("refresh session ttl must be > 0")

// DefaultTimeout bounds each store call when no timeout is configured.
const DefaultTimeout = 2 * time.Second

const (
	rotateStatusNotFound int64 = 0
	rotateStatusMismatch int64 = 2
	rotateStatusRotated  int64 = 3
)

const rotateScript = `
local current = redis.call("GET", KEYS[1])
if not current then
  return 0
end
if current ~= ARGV[1] then
  redis.call("DEL", KEYS[1])
  return 2
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 3
`

var rotateLua = redis.NewScript(rotateScript)

// RefreshStore is the Redis-backed single-slot refresh session store.
//
//	Performance: one round-trip per call; Rotate is a single EVALSHA.
type RefreshStore struct {
	redis   redis.UniversalClient
	prefix  string
	timeout time.Duration
}

// NewRefreshStore creates a [RefreshStore]. prefix namespaces keys; timeout
// bounds every call (DefaultTimeout when <= 0).
func NewRefreshStore(client redis.UniversalClient, prefix string, timeout time.Duration) *RefreshStore {
	if prefix == "" {
		prefix = "gs"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RefreshStore{
		redis:   client,
		prefix:  prefix,
		timeout: timeout,
	}
}

func (s *RefreshStore) key(subjectID string) string {
	return s.prefix + ":rt:" + subjectID
}

func (s *RefreshStore) replayKey(subjectID string) string {
	return s.prefix + ":rp:" + subjectID
}

func (s *RefreshStore) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Save unconditionally installs jti as the subject's current refresh id.
func (s *RefreshStore) Save(ctx context.Context, subjectID, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	if err := s.redis.Set(ctx, s.key(subjectID), jti, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Matches reports whether jti is exactly the subject's current refresh id.
// A missing entry is not an error; it simply does not match.
func (s *RefreshStore) Matches(ctx context.Context, subjectID, jti string) (bool, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	current, err := s.redis.Get(ctx, s.key(subjectID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if jti == "" || len(current) != len(jti) {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(current), []byte(jti)) == 1, nil
}

// Clear removes the subject's entry. Clearing a missing entry succeeds.
func (s *RefreshStore) Clear(ctx context.Context, subjectID string) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	if err := s.redis.Del(ctx, s.key(subjectID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Rotate atomically replaces currentJTI with nextJTI under a fresh TTL.
//
//	Security: compare-and-swap in one script; a mismatch deletes the entry
//	before returning ErrRefreshJTIMismatch.
func (s *RefreshStore) Rotate(ctx context.Context, subjectID, currentJTI, nextJTI string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	if currentJTI == "" || nextJTI == "" {
		return errors.New("refresh jti required")
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	code, err := rotateLua.Run(
		ctx,
		s.redis,
		[]string{s.key(subjectID)},
		currentJTI,
		nextJTI,
		ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch code {
	case rotateStatusRotated:
		return nil
	case rotateStatusNotFound:
		return ErrRefreshSessionNotFound
	case rotateStatusMismatch:
		return ErrRefreshJTIMismatch
	default:
		return fmt.Errorf("%w: unknown rotate script status %d", ErrRedisUnavailable, code)
	}
}

// TrackReplayAnomaly increments the replay counter for a subject. The window
// starts on the first hit.
func (s *RefreshStore) TrackReplayAnomaly(ctx context.Context, subjectID string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	key := s.replayKey(subjectID)
	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count == 1 {
		if err := s.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return nil
}

// ReplayAnomalies returns the replay counter for a subject.
func (s *RefreshStore) ReplayAnomalies(ctx context.Context, subjectID string) (int, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	count, err := s.redis.Get(ctx, s.replayKey(subjectID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(count), nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *RefreshStore) Ping(ctx context.Context) (time.Duration, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
