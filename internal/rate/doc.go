// Package rate provides the Redis-backed refresh throttle.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys are
// "<prefix>:ar:<subjectID>".
//
// # What this package must NOT do
//
//   - Decide what a throttled request means for the session (flows do that).
//   - Be imported outside the goSession module.
package rate
