// Package redisstore implements the durable token log and the revocation
// denylist on Redis.
//
// # Keys
//
//   - <prefix>:log:issuance   : stream, one entry per issued token
//   - <prefix>:log:revocation : stream, one entry per revoked token
//   - <prefix>:deny:<fp>      : string with TTL = remaining token lifetime
//
// Stream entries carry the record CBOR-encoded under the "rec" field plus the
// user id under "uid" for ad-hoc inspection with redis-cli.
//
// # What this package must NOT do
//
//   - Store raw token text; only fingerprints reach Redis.
//   - Decide validity; it only answers membership questions.
package redisstore
