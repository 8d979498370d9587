// Package pgstore implements the profile store and the durable token log on
// PostgreSQL through pgx.
//
// # Tables
//
//   - users             : id, name, safe_name (unique), pw_bcrypt, token_priv
//   - token_issuances   : append-only issuance records keyed by fingerprint
//   - token_revocations : append-only revocation records
//
// The schema is owned by the embedded goose migrations; call [Migrate] before
// first use.
package pgstore
