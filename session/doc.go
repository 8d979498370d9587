// Package session issues, validates and revokes opaque session tokens.
//
// # Validation order
//
// Decode (malformed and tampered tokens are indistinguishable) → issued-at
// skew check → expiry re-derived from the decoded mask → denylist →
// current stored password hash compared with the snapshot in the claims.
// A changed stored hash therefore revokes every outstanding token of that
// user without enumerating them.
//
// # Dual layer
//
// Every issuance is appended to a durable [TokenLog] before the token is
// returned; a failed append aborts issuance. The in-process [ActiveCache]
// indexes live fingerprints per user for logout-all and enumeration. It is
// never consulted to accept or reject a token.
//
// # Architecture boundaries
//
// This package owns the [Store], its records and the store interfaces. It does
// NOT check credentials, throttle logins or decide which privileges a user may
// request; those belong to the Engine.
//
// # What this package must NOT do
//
//   - Import goSession or any internal package (no upward imports).
//   - Keep raw token text in memory after issuance; only fingerprints are held.
//   - Hold a lock across a profile, log or denylist call.
package session
