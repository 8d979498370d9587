package session

import "errors"

var (
	// ErrTokenInvalid covers malformed and tampered tokens alike.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is returned once the lifetime derived from the mask has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked is returned for denylisted tokens and stale password snapshots.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrUserNotFound is returned when the token's user no longer exists.
	ErrUserNotFound = errors.New("user not found")
	// ErrIssuanceFailed is returned when a token could not be committed.
	ErrIssuanceFailed = errors.New("token issuance failed")
	// ErrRevocationFailed is returned when a revocation could not be recorded.
	ErrRevocationFailed = errors.New("token revocation failed")
	// ErrBackendUnavailable wraps profile store and denylist read failures.
	ErrBackendUnavailable = errors.New("session backend unavailable")

	// ErrProfileNotFound must be returned by [ProfileStore] implementations for
	// unknown users.
	ErrProfileNotFound = errors.New("profile not found")
)
