// Package middleware adapts goSession.Engine validation to net/http.
//
// # Guards
//
//   - [Guard] validates the token and injects the identity into the context.
//   - [RequirePrivileges] additionally requires privilege bits on the token.
//
// The token is read from the "token" header, or from an Authorization bearer
// value. Handlers retrieve the caller with goSession.IdentityFromContext.
//
// # What this package must NOT do
//
//   - Decode tokens directly (delegates to Engine).
//   - Access Redis or the profile store.
package middleware
