// Package privilege defines the token privilege bitmask carried inside session
// claims.
//
// # Architecture boundaries
//
// This package owns bit assignments and name parsing only. It never decides
// lifetimes or grants; the token package derives expiry from [Mask.Elevated]
// and the engine checks requested masks against profile grants.
//
// # What this package must NOT do
//
//   - Import goSession or any sibling package.
//   - Perform I/O.
package privilege
