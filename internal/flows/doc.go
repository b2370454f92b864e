// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunRefresh, RunValidate, RunDisconnect, etc.)
// accepts a typed dependency struct and returns a result carrying a failure
// kind. The root package maps kinds to public errors, metrics and audit events.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the token manager, refresh store, vault,
// throttle and upstream provider. They do NOT own any of these resources;
// ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSession (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency interfaces.
package flows
