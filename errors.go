package goSession

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials is returned for unknown users and wrong credentials alike.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrLoginThrottled is matched by every [*ThrottleError].
	ErrLoginThrottled = errors.New("login throttled")
	// ErrClientMetadataRequired is returned when a login lacks the client address or agent.
	ErrClientMetadataRequired = errors.New("client address and agent are required")
	// ErrCredentialConfig is returned when the stored hash cannot be used. It is
	// a server-side fault and does not count against the client.
	ErrCredentialConfig = errors.New("stored credential misconfigured")
	// ErrPrivilegeNotGranted is returned when the requested mask exceeds the user's grant.
	ErrPrivilegeNotGranted = errors.New("requested privileges not granted")
	// ErrIssuanceFailed is returned when a token could not be durably recorded.
	ErrIssuanceFailed = errors.New("token issuance failed")
	// ErrRevocationFailed is returned when a revocation could not be recorded.
	ErrRevocationFailed = errors.New("token revocation failed")
	// ErrTokenInvalid is returned for malformed and tampered tokens.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is returned once a token's lifetime has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked is returned for logged-out tokens and tokens issued before a password change.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrUserNotFound is returned when a token's user no longer exists.
	ErrUserNotFound = errors.New("user not found")
	// ErrBackendUnavailable is returned when a store or the throttle backend fails.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrEngineNotReady is returned by methods on a nil or unbuilt engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ThrottleError is returned by Login while the client is locked out.
type ThrottleError struct {
	RetryAfter time.Duration
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrLoginThrottled, e.RetryAfter.Round(time.Second))
}

// Is makes errors.Is(err, ErrLoginThrottled) hold.
func (e *ThrottleError) Is(target error) bool {
	return target == ErrLoginThrottled
}
