package token

import (
	"time"

	"github.com/MrEthical07/goSession/privilege"
)

const (
	// ElevatedLifetime applies to masks above [privilege.ElevatedThreshold].
	ElevatedLifetime = 24 * time.Hour
	// StandardLifetime applies to every other mask.
	StandardLifetime = 30 * 24 * time.Hour
)

// Lifetime derives the token lifetime from its privilege mask.
func Lifetime(mask privilege.Mask) time.Duration {
	if mask.Elevated() {
		return ElevatedLifetime
	}
	return StandardLifetime
}

// ExpiresAt returns the absolute expiry of c, derived from the decoded
// mask and issuance time only.
func ExpiresAt(c Claims) time.Time {
	return time.Unix(c.IssuedAt, 0).Add(Lifetime(c.Mask))
}

// Expired reports whether c is past its expiry at now. A token is still
// valid at exactly its expiry second.
func Expired(c Claims, now time.Time) bool {
	return now.After(ExpiresAt(c))
}
