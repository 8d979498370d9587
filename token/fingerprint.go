package token

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Fingerprint returns the one-way identifier of an opaque token used by
// logs, caches and denylists. The raw token is never stored.
func Fingerprint(opaque string) string {
	sum := blake3.Sum256([]byte(opaque))
	return hex.EncodeToString(sum[:])
}
