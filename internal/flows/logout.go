package flows

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/token"
)

// LogoutStore is the slice of the session store used by logout flows.
type LogoutStore interface {
	Revoke(ctx context.Context, opaque string, now time.Time) (token.Claims, error)
	RevokeUser(ctx context.Context, userID int64, reason string, now time.Time) (int, error)
}

// LogoutMetrics carries metric IDs needed by logout flows.
type LogoutMetrics struct {
	Logout                   int
	LogoutAll                int
	PasswordChangeRevocation int
}

// LogoutEvents carries audit event names used by logout flows.
type LogoutEvents struct {
	Logout                   string
	LogoutAll                string
	PasswordChangeRevocation string
}

// LogoutErrors carries host-level sentinel errors used by logout flows.
type LogoutErrors struct {
	EngineNotReady   error
	TokenInvalid     error
	RevocationFailed error
}

// LogoutDeps captures logout dependencies.
type LogoutDeps struct {
	Store LogoutStore
	Now   func() time.Time
	// ForgetCredential evicts a stored hash from the verifier cache.
	ForgetCredential func(slowHash string)

	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, userID int64, username string, err error, metadata func() map[string]string)

	Metrics LogoutMetrics
	Events  LogoutEvents
	Errors  LogoutErrors
}

func (d *LogoutDeps) defaults() {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.ForgetCredential == nil {
		d.ForgetCredential = func(string) {}
	}
	if d.MetricInc == nil {
		d.MetricInc = func(int) {}
	}
	if d.EmitAudit == nil {
		d.EmitAudit = func(context.Context, string, bool, int64, string, error, func() map[string]string) {}
	}
}

// RunLogout revokes a single token. It returns the revoked token's user id.
func RunLogout(ctx context.Context, opaque string, deps LogoutDeps) (int64, error) {
	if deps.Store == nil {
		return 0, deps.Errors.EngineNotReady
	}
	deps.defaults()

	claims, err := deps.Store.Revoke(ctx, opaque, deps.Now())
	if err != nil {
		if errors.Is(err, session.ErrTokenInvalid) {
			return 0, deps.Errors.TokenInvalid
		}
		deps.EmitAudit(ctx, deps.Events.Logout, false, claims.UserID, "", deps.Errors.RevocationFailed, func() map[string]string {
			return map[string]string{"fingerprint": token.Fingerprint(opaque)}
		})
		return claims.UserID, fmt.Errorf("%w: %v", deps.Errors.RevocationFailed, err)
	}

	deps.MetricInc(deps.Metrics.Logout)
	deps.EmitAudit(ctx, deps.Events.Logout, true, claims.UserID, "", nil, func() map[string]string {
		return map[string]string{"fingerprint": token.Fingerprint(opaque)}
	})
	return claims.UserID, nil
}

// RunLogoutAll revokes every indexed token of userID.
func RunLogoutAll(ctx context.Context, userID int64, deps LogoutDeps) (int, error) {
	return runRevokeUser(ctx, userID, session.ReasonLogoutAll, deps.Metrics.LogoutAll, deps.Events.LogoutAll, deps)
}

// RunPasswordChanged reacts to a password change for userID. The old hash is
// evicted from the verifier cache and every indexed token is denylisted. Tokens
// carrying the old hash are also rejected by validation on their own, so this
// only narrows the window for indexed tokens.
func RunPasswordChanged(ctx context.Context, userID int64, oldHash string, deps LogoutDeps) (int, error) {
	deps.defaults()
	if oldHash != "" {
		deps.ForgetCredential(oldHash)
	}
	return runRevokeUser(ctx, userID, session.ReasonPasswordChange, deps.Metrics.PasswordChangeRevocation, deps.Events.PasswordChangeRevocation, deps)
}

func runRevokeUser(ctx context.Context, userID int64, reason string, metric int, event string, deps LogoutDeps) (int, error) {
	if deps.Store == nil {
		return 0, deps.Errors.EngineNotReady
	}
	deps.defaults()

	revoked, err := deps.Store.RevokeUser(ctx, userID, reason, deps.Now())
	if err != nil {
		deps.EmitAudit(ctx, event, false, userID, "", deps.Errors.RevocationFailed, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return revoked, fmt.Errorf("%w: %v", deps.Errors.RevocationFailed, err)
	}

	deps.MetricInc(metric)
	deps.EmitAudit(ctx, event, true, userID, "", nil, func() map[string]string {
		return map[string]string{
			"reason":  reason,
			"revoked": strconv.Itoa(revoked),
		}
	})
	return revoked, nil
}
