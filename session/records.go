package session

import (
	"context"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/privilege"
)

// Revocation reasons recorded in [RevocationRecord].
const (
	ReasonLogout         = "logout"
	ReasonLogoutAll      = "logout_all"
	ReasonPasswordChange = "password_change"
)

// Profile is the subset of a user profile the session layer reads.
type Profile struct {
	ID           int64
	Name         string
	SafeName     string
	PasswordHash string
	Privileges   privilege.Mask
}

// IssuanceRecord is written once per issued token.
type IssuanceRecord struct {
	UserID        int64     `json:"user_id" cbor:"1,keyasint"`
	Fingerprint   string    `json:"fingerprint" cbor:"2,keyasint"`
	ClientAgent   string    `json:"client_agent" cbor:"3,keyasint"`
	ClientAddress string    `json:"client_address" cbor:"4,keyasint"`
	IssuedAt      time.Time `json:"issued_at" cbor:"5,keyasint"`
	ExpiresAt     time.Time `json:"expires_at" cbor:"6,keyasint"`
}

// RevocationRecord is written once per revoked token.
type RevocationRecord struct {
	UserID      int64     `json:"user_id" cbor:"1,keyasint"`
	Fingerprint string    `json:"fingerprint" cbor:"2,keyasint"`
	RevokedAt   time.Time `json:"revoked_at" cbor:"3,keyasint"`
	Reason      string    `json:"reason" cbor:"4,keyasint"`
}

// ProfileStore is the read-only view of user profiles. Unknown users yield
// [ErrProfileNotFound].
type ProfileStore interface {
	ProfileByName(ctx context.Context, name string) (Profile, error)
	ProfileByID(ctx context.Context, userID int64) (Profile, error)
	PasswordHash(ctx context.Context, userID int64) (string, error)
	PrivilegeMask(ctx context.Context, userID int64) (privilege.Mask, error)
}

// TokenLog is the append-only durable token log.
type TokenLog interface {
	AppendIssuance(ctx context.Context, rec IssuanceRecord) error
	AppendRevocation(ctx context.Context, rec RevocationRecord) error
}

// Denylist holds fingerprints of explicitly revoked tokens until the tokens
// would have expired anyway.
type Denylist interface {
	Add(ctx context.Context, fingerprint string, expiresAt, now time.Time) error
	Contains(ctx context.Context, fingerprint string) (bool, error)
}

// SafeName normalizes a display name for lookups: lower case with spaces
// replaced by underscores.
func SafeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}
