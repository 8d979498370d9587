// Package token turns session claims into opaque authenticated ciphertexts
// and back.
//
// # Wire format
//
//	base64url( nonce[24] ‖ tag[16] ‖ ciphertext )
//
// The plaintext is a versioned, length-prefixed binary encoding of [Claims].
// The AEAD is XChaCha20-Poly1305 keyed from the server secret through
// HKDF-SHA256.
//
// # What this package must NOT do
//
//   - Consult any store. Expiry is re-derived from the decoded mask by
//     [ExpiresAt]; revocation lives in the session package.
//   - Report which of [ErrMalformed] and [ErrAuthenticationFailed] occurred
//     to end users. Both mean "invalid token".
package token
