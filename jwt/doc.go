// Package jwt issues and verifies the application's own session tokens.
//
// Both access and refresh tokens are HS256-signed JWTs. The token type is part
// of the signed claims so an access token can never be accepted where a refresh
// token is expected (and the reverse). Refresh tokens additionally carry a jti
// that the session store uses as the "current version" marker.
//
// # What this package must NOT do
//
//   - Decide whether a refresh token is still current (that is the session store's job).
//   - Access Redis or any other I/O.
//   - Expose the raw claim map; callers only ever see [SessionClaims].
package jwt
