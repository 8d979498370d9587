package throttle

import (
	"context"
	"errors"
	"time"
)

const (
	// MaxFailures is the number of failures that locks a client.
	MaxFailures = 3
	// Window is the lockout window measured from the first failure.
	Window = 5 * time.Minute
)

// ErrBackendUnavailable indicates the throttle state could not be read or written.
var ErrBackendUnavailable = errors.New("throttle backend unavailable")

// Decision is the outcome of a throttle check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Throttle is implemented by [Memory] and [Redis].
type Throttle interface {
	// Check must be called before any credential verification.
	Check(ctx context.Context, clientID string, now time.Time) (Decision, error)
	RecordFailure(ctx context.Context, clientID string, now time.Time) error
}

// decide applies the lockout rule to one entry.
func decide(count int64, windowStart, now time.Time) Decision {
	elapsed := now.Sub(windowStart)
	if count >= MaxFailures && elapsed <= Window {
		return Decision{Allowed: false, RetryAfter: Window - elapsed}
	}
	return Decision{Allowed: true}
}

// expired reports whether a failure at now starts a fresh window.
func expired(windowStart, now time.Time) bool {
	return now.Sub(windowStart) > Window
}
