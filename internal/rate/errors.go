package rate

import "errors"

var (
	// ErrRateLimited is returned when a subject exceeds its refresh budget for the window.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable is returned when the counter backend fails.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
