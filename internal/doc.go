// Package internal holds code that is private to goSession.
//
// # Sub-packages
//
//   - flows: pure-function orchestrators behind every Engine operation
//   - rate: Redis-backed refresh attempt throttle
//
// Nothing here appears in the public API, and no package outside the
// goSession module may import it.
package internal
