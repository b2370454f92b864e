// Package middleware exposes the HTTP surface of goSession: the
// authentication gateway, route guards, session cookies and the refresh,
// logout, me and disconnect endpoint handlers.
//
// # Gateway
//
//   - [Gateway] reads the access cookie on every request. No cookie means an
//     anonymous request and is passed through untouched. A valid token binds a
//     [goSession.Principal] to the request context. Any other token is
//     rejected through the configured [FailureHandler].
//   - [RequireAuthenticated] rejects anonymous requests on protected routes.
//   - [RequireScopes] additionally checks the provider scopes granted to the
//     caller and answers 403 with the missing set.
//
// Failures are written as JSON bodies of the form {"error": "<code>"} using
// [goSession.ErrorCode].
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement token or session logic itself; all decisions are delegated to the
// Engine. Nothing is cached across requests.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly.
//   - Access Redis or the credential vault.
//   - Trust any claim beyond the subject id bound by the Engine.
package middleware
