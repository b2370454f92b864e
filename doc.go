// Package goSession provides the token lifecycle and credential-protection
// layer that sits behind an OAuth/OIDC login: short-lived access tokens,
// rotating refresh tokens with reuse detection, encrypted storage of the
// identity provider's tokens, scope enforcement and best-effort upstream
// revocation.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Engine], [Builder], [Config],
// the error taxonomy and value types ([TokenPair], [Principal], [Identity]).
// Token signing lives in jwt, the refresh session slot in session, the
// credential cipher and repository contract in vault. Flow orchestration
// lives under internal/ and is never exported.
//
// # What this package must NOT do
//
//   - Expose Redis clients, ciphertext or plaintext provider tokens in logs,
//     audit events or error messages.
//   - Read ambient global state. Every secret and timeout flows from [Config].
//   - Import any sub-package that re-imports goSession (vault/postgres and
//     upstream are wired by the caller).
//
// # Performance contract
//
// ValidateAccess is the hot path and never touches Redis. Refresh performs a
// single compare-and-swap round-trip (plus one when the throttle is enabled).
package goSession
