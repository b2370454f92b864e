// Package session tracks the single currently-valid refresh-token id (jti) per
// subject in Redis.
//
// # Single-active-session policy
//
// Each subject owns exactly one key whose value is the jti of the newest refresh
// token and whose TTL is that token's remaining lifetime. Saving a new jti
// implicitly invalidates every older one. A signed refresh token proves
// authenticity; only this store proves currency.
//
// # Rotation
//
// [RefreshStore.Rotate] runs "compare current jti, install next jti" as one Lua
// script so two concurrent refreshes presenting the same token cannot both win.
// A mismatch deletes the entry: the presented token was either already rotated
// (reuse) or belongs to a cleared session.
//
// # What this package must NOT do
//
//   - Import goSession or jwt (no upward imports).
//   - Interpret token signatures or claims.
//   - Block without a deadline; every call is bounded by the store timeout.
package session
