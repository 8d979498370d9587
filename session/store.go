package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goSession/privilege"
	"github.com/MrEthical07/goSession/token"
)

// DefaultMaxClockSkew is how far in the future a token's issue time may lie.
const DefaultMaxClockSkew = 30 * time.Second

// Config tunes a [Store].
type Config struct {
	// MaxClockSkew bounds how far IssuedAt may be ahead of the validating clock.
	MaxClockSkew time.Duration
}

// IssueRequest describes a token to issue. StoredHash is the user's canonical
// password hash at this moment and becomes the revocation anchor.
type IssueRequest struct {
	UserID        int64
	StoredHash    string
	Mask          privilege.Mask
	ClientAgent   string
	ClientAddress string
	Now           time.Time
}

// Issued is a committed token.
type Issued struct {
	Token       string
	ExpiresAt   time.Time
	Fingerprint string
	Claims      token.Claims
}

// Store issues, validates and revokes tokens.
type Store struct {
	codec    *token.Codec
	profiles ProfileStore
	log      TokenLog
	denylist Denylist
	active   *ActiveCache
	config   Config
}

// NewStore wires a [Store]. denylist may be nil, in which case logout only
// clears the active index and records the revocation.
func NewStore(codec *token.Codec, profiles ProfileStore, log TokenLog, denylist Denylist, cfg Config) *Store {
	if cfg.MaxClockSkew <= 0 {
		cfg.MaxClockSkew = DefaultMaxClockSkew
	}
	return &Store{
		codec:    codec,
		profiles: profiles,
		log:      log,
		denylist: denylist,
		active:   NewActiveCache(),
		config:   cfg,
	}
}

// Issue builds, encodes and commits a token.
//
// The issuance record is appended before anything is cached. If the append
// fails, or ctx is done once it returns, no token is returned and nothing is
// indexed.
func (s *Store) Issue(ctx context.Context, req IssueRequest) (Issued, error) {
	nonce, err := s.codec.NewNonce()
	if err != nil {
		return Issued{}, fmt.Errorf("%w: %v", ErrIssuanceFailed, err)
	}

	claims := token.Claims{
		UserID:       req.UserID,
		Mask:         req.Mask,
		IssuedAt:     req.Now.Unix(),
		Nonce:        nonce,
		PasswordHash: req.StoredHash,
	}
	expiresAt := token.ExpiresAt(claims)

	opaque, err := s.codec.Encode(claims)
	if err != nil {
		return Issued{}, fmt.Errorf("%w: %v", ErrIssuanceFailed, err)
	}
	fingerprint := token.Fingerprint(opaque)

	err = s.log.AppendIssuance(ctx, IssuanceRecord{
		UserID:        req.UserID,
		Fingerprint:   fingerprint,
		ClientAgent:   req.ClientAgent,
		ClientAddress: req.ClientAddress,
		IssuedAt:      time.Unix(claims.IssuedAt, 0).UTC(),
		ExpiresAt:     expiresAt.UTC(),
	})
	if err != nil {
		return Issued{}, fmt.Errorf("%w: %v", ErrIssuanceFailed, err)
	}
	if err := ctx.Err(); err != nil {
		return Issued{}, err
	}

	s.active.Put(req.UserID, fingerprint, expiresAt)

	return Issued{
		Token:       opaque,
		ExpiresAt:   expiresAt,
		Fingerprint: fingerprint,
		Claims:      claims,
	}, nil
}

// Validate decodes opaque and checks it against the current state of the
// world. Errors match one of [ErrTokenInvalid], [ErrTokenExpired],
// [ErrTokenRevoked], [ErrUserNotFound] or [ErrBackendUnavailable].
func (s *Store) Validate(ctx context.Context, opaque string, now time.Time) (token.Claims, error) {
	claims, err := s.codec.Decode(opaque)
	if err != nil {
		return token.Claims{}, ErrTokenInvalid
	}

	if time.Unix(claims.IssuedAt, 0).Sub(now) > s.config.MaxClockSkew {
		return token.Claims{}, fmt.Errorf("%w: issued in the future", ErrTokenInvalid)
	}

	fingerprint := token.Fingerprint(opaque)

	if token.Expired(claims, now) {
		s.active.Remove(claims.UserID, fingerprint)
		return token.Claims{}, ErrTokenExpired
	}

	if s.denylist != nil {
		denied, err := s.denylist.Contains(ctx, fingerprint)
		if err != nil {
			return token.Claims{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		if denied {
			return token.Claims{}, ErrTokenRevoked
		}
	}

	current, err := s.profiles.PasswordHash(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return token.Claims{}, ErrUserNotFound
		}
		return token.Claims{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if subtle.ConstantTimeCompare([]byte(current), []byte(claims.PasswordHash)) != 1 {
		return token.Claims{}, ErrTokenRevoked
	}

	return claims, nil
}

// Revoke logs a token out. It drops the token from the active index, denies
// it until its natural expiry and appends a revocation record. Tokens that
// fail to decode yield [ErrTokenInvalid] and change nothing.
func (s *Store) Revoke(ctx context.Context, opaque string, now time.Time) (token.Claims, error) {
	claims, err := s.codec.Decode(opaque)
	if err != nil {
		return token.Claims{}, ErrTokenInvalid
	}

	fingerprint := token.Fingerprint(opaque)
	expiresAt := token.ExpiresAt(claims)
	indexed := s.active.Remove(claims.UserID, fingerprint)

	if err := s.revoke(ctx, claims.UserID, fingerprint, expiresAt, ReasonLogout, now); err != nil {
		if indexed {
			s.active.Put(claims.UserID, fingerprint, expiresAt)
		}
		return claims, err
	}
	return claims, nil
}

// RevokeUser revokes every indexed token of userID and returns how many were
// revoked. Tokens not in the index stay valid until expiry or a password change.
// A token whose revocation fails is put back in the index so a retry reaches
// it.
func (s *Store) RevokeUser(ctx context.Context, userID int64, reason string, now time.Time) (int, error) {
	var firstErr error
	revoked := 0
	for _, t := range s.active.RemoveUser(userID) {
		if err := s.revoke(ctx, userID, t.Fingerprint, t.ExpiresAt, reason, now); err != nil {
			s.active.Put(userID, t.Fingerprint, t.ExpiresAt)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		revoked++
	}
	return revoked, firstErr
}

// Active lists the user's indexed, unexpired tokens.
func (s *Store) Active(userID int64, now time.Time) []ActiveToken {
	return s.active.List(userID, now)
}

// ActiveCount returns the number of indexed tokens across all users.
func (s *Store) ActiveCount() int {
	return s.active.Len()
}

func (s *Store) revoke(ctx context.Context, userID int64, fingerprint string, expiresAt time.Time, reason string, now time.Time) error {
	if s.denylist != nil && now.Before(expiresAt) {
		if err := s.denylist.Add(ctx, fingerprint, expiresAt, now); err != nil {
			return fmt.Errorf("%w: %v", ErrRevocationFailed, err)
		}
	}

	err := s.log.AppendRevocation(ctx, RevocationRecord{
		UserID:      userID,
		Fingerprint: fingerprint,
		RevokedAt:   now.UTC(),
		Reason:      reason,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRevocationFailed, err)
	}
	return nil
}
