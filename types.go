package goSession

import (
	"time"

	"github.com/MrEthical07/goSession/privilege"
	"github.com/MrEthical07/goSession/session"
)

// ProfileStore resolves users by name and id. See [session.ProfileStore].
type ProfileStore = session.ProfileStore

// TokenLog durably records issuances and revocations. See [session.TokenLog].
type TokenLog = session.TokenLog

// Denylist holds fingerprints of logged-out tokens. See [session.Denylist].
type Denylist = session.Denylist

// Profile is a stored user.
type Profile = session.Profile

// ActiveToken is one entry of [Engine.ActiveTokens].
type ActiveToken = session.ActiveToken

// LoginRequest is the input to [Engine.Login].
//
// FastCredential is the client-side digest of the password; the server only
// ever sees this value. RequestedMask zero means [privilege.Login].
type LoginRequest struct {
	Username       string
	FastCredential string
	ClientAddress  string
	ClientAgent    string
	RequestedMask  privilege.Mask
}

// Token is an issued session token.
type Token struct {
	Token     string
	ExpiresAt time.Time
}

// Identity is the result of a successful [Engine.ValidateToken].
type Identity struct {
	UserID    int64
	Mask      privilege.Mask
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Has reports whether the identity carries every privilege in p.
func (i *Identity) Has(p privilege.Mask) bool {
	return i != nil && i.Mask.Has(p)
}
