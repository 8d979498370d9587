// Package goSession provides a login and session-token engine: fast-credential
// login with per-client throttling, opaque authenticated-encryption tokens that
// carry a privilege mask, and validation that revokes tokens implicitly when
// the user's password changes.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Engine], [Builder], [Config], and value types
// ([Token], [Identity], [MetricsSnapshot]). Flow orchestration, the login throttle,
// audit dispatch and metrics live under internal/ and are never exported. Token
// encoding lives in token, credential caching in credential, and the token
// store in session.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or encoding details in its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is allocation-only
//     until Build).
//   - Import any sub-package that re-imports goSession (no import cycles).
//   - Reveal to callers whether a login failed on the username or on the credential.
//
// # Performance contract
//
// ValidateToken is the hot path: one AEAD open, one denylist lookup and one
// password-hash read from the profile store. Login performs at most one slow hash
// comparison per stored hash until that hash changes.
package goSession
