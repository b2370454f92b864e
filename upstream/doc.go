// Package upstream talks to the identity provider on behalf of goSession.
//
// It provides three adapters that plug into the engine builder:
//
//   - [Revoker] posts RFC 7009 revocation requests with bounded retries.
//   - [Refresher] exchanges a stored provider refresh token for a new grant
//     through golang.org/x/oauth2.
//   - [IdentityVerifier] verifies provider ID tokens with go-oidc and maps
//     their claims onto [goSession.Identity].
//
// None of these types hold per-user state. They are safe for concurrent use.
package upstream
