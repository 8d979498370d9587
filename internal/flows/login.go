package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goSession/privilege"
)

// LoginRequest is the flow-local login input.
type LoginRequest struct {
	Username       string
	FastCredential string
	ClientAddress  string
	ClientAgent    string
	RequestedMask  privilege.Mask
}

// LoginProfile is the flow-local view of a stored user.
type LoginProfile struct {
	UserID       int64
	Name         string
	PasswordHash string
	Privileges   privilege.Mask
}

// LoginIssueRequest is handed to the token issuer once credentials and
// privileges have been checked.
type LoginIssueRequest struct {
	UserID        int64
	StoredHash    string
	Mask          privilege.Mask
	ClientAddress string
	ClientAgent   string
	Now           time.Time
}

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	Token       string
	ExpiresAt   time.Time
	Fingerprint string
	UserID      int64
	Mask        privilege.Mask
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess          int
	LoginFailure          int
	LoginThrottled        int
	RejectedMetadata      int
	CredentialConfigError int
	PrivilegeDenied       int
	TokenIssued           int
	IssuanceFailed        int
	LoginLatency          int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess   string
	LoginFailure   string
	LoginThrottled string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady         error
	InvalidCredentials     error
	ClientMetadataRequired error
	CredentialConfig       error
	PrivilegeNotGranted    error
	IssuanceFailed         error
	BackendUnavailable     error
	// Throttled builds the error returned while the client is locked out.
	Throttled func(retryAfter time.Duration) error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	DefaultMask privilege.Mask
	Now         func() time.Time

	CheckThrottle func(ctx context.Context, clientID string, now time.Time) (allowed bool, retryAfter time.Duration, err error)
	RecordFailure func(ctx context.Context, clientID string, now time.Time) error

	LookupProfile     func(ctx context.Context, username string) (LoginProfile, error)
	IsProfileNotFound func(error) bool

	VerifyCredential func(slowHash, fast string) (bool, error)
	// DummyVerify burns a slow comparison for unknown users.
	DummyVerify func(fast string)

	Issue func(ctx context.Context, req LoginIssueRequest) (LoginResult, error)

	MetricInc func(int)
	Observe   func(int, time.Duration)
	EmitAudit func(ctx context.Context, event string, success bool, userID int64, username string, err error, metadata func() map[string]string)
	Warn      func(msg string, args ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

func (d *LoginDeps) ready() bool {
	return d.CheckThrottle != nil &&
		d.RecordFailure != nil &&
		d.LookupProfile != nil &&
		d.VerifyCredential != nil &&
		d.Issue != nil
}

func (d *LoginDeps) defaults() {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.IsProfileNotFound == nil {
		d.IsProfileNotFound = func(error) bool { return false }
	}
	if d.DummyVerify == nil {
		d.DummyVerify = func(string) {}
	}
	if d.MetricInc == nil {
		d.MetricInc = func(int) {}
	}
	if d.Observe == nil {
		d.Observe = func(int, time.Duration) {}
	}
	if d.EmitAudit == nil {
		d.EmitAudit = func(context.Context, string, bool, int64, string, error, func() map[string]string) {}
	}
	if d.Warn == nil {
		d.Warn = func(string, ...any) {}
	}
	if d.Errors.Throttled == nil {
		d.Errors.Throttled = func(time.Duration) error { return d.Errors.InvalidCredentials }
	}
	if d.DefaultMask == 0 {
		d.DefaultMask = privilege.Default
	}
}

// RunLogin authenticates req and issues a token.
//
// The throttle is consulted before any credential work so a locked client
// cannot probe passwords. Unknown users and wrong credentials both count as a
// failure and produce the same error.
func RunLogin(ctx context.Context, req LoginRequest, deps LoginDeps) (LoginResult, error) {
	if !deps.ready() {
		return LoginResult{}, deps.Errors.EngineNotReady
	}
	deps.defaults()

	if req.ClientAddress == "" || req.ClientAgent == "" {
		deps.MetricInc(deps.Metrics.RejectedMetadata)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, 0, req.Username, deps.Errors.ClientMetadataRequired, func() map[string]string {
			return map[string]string{"reason": "missing_client_metadata"}
		})
		return LoginResult{}, deps.Errors.ClientMetadataRequired
	}

	now := deps.Now()
	start := time.Now()
	defer func() {
		deps.Observe(deps.Metrics.LoginLatency, time.Since(start))
	}()

	allowed, retryAfter, err := deps.CheckThrottle(ctx, req.ClientAddress, now)
	if err != nil {
		deps.Warn("goSession: login throttle unavailable", "error", err)
		return LoginResult{}, fmt.Errorf("%w: %v", deps.Errors.BackendUnavailable, err)
	}
	if !allowed {
		throttled := deps.Errors.Throttled(retryAfter)
		deps.MetricInc(deps.Metrics.LoginThrottled)
		deps.EmitAudit(ctx, deps.Events.LoginThrottled, false, 0, req.Username, throttled, func() map[string]string {
			return map[string]string{"retry_after": retryAfter.String()}
		})
		return LoginResult{}, throttled
	}

	profile, err := deps.LookupProfile(ctx, req.Username)
	if err != nil {
		if !deps.IsProfileNotFound(err) {
			return LoginResult{}, fmt.Errorf("%w: %v", deps.Errors.BackendUnavailable, err)
		}
		deps.DummyVerify(req.FastCredential)
		return LoginResult{}, rejectCredential(ctx, req, 0, "unknown_user", now, deps)
	}

	ok, err := deps.VerifyCredential(profile.PasswordHash, req.FastCredential)
	if err != nil {
		deps.MetricInc(deps.Metrics.CredentialConfigError)
		deps.Warn("goSession: stored credential unusable", "user_id", profile.UserID, "error", err)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, profile.UserID, req.Username, deps.Errors.CredentialConfig, func() map[string]string {
			return map[string]string{"reason": "credential_config"}
		})
		return LoginResult{}, fmt.Errorf("%w: %v", deps.Errors.CredentialConfig, err)
	}
	if !ok {
		return LoginResult{}, rejectCredential(ctx, req, profile.UserID, "bad_credential", now, deps)
	}

	mask := req.RequestedMask
	if mask == 0 {
		mask = deps.DefaultMask
	}
	if !mask.SubsetOf(profile.Privileges) {
		deps.MetricInc(deps.Metrics.PrivilegeDenied)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, profile.UserID, req.Username, deps.Errors.PrivilegeNotGranted, func() map[string]string {
			return map[string]string{
				"reason":    "privilege_not_granted",
				"requested": mask.String(),
			}
		})
		return LoginResult{}, deps.Errors.PrivilegeNotGranted
	}

	result, err := deps.Issue(ctx, LoginIssueRequest{
		UserID:        profile.UserID,
		StoredHash:    profile.PasswordHash,
		Mask:          mask,
		ClientAddress: req.ClientAddress,
		ClientAgent:   req.ClientAgent,
		Now:           now,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return LoginResult{}, ctxErr
		}
		deps.MetricInc(deps.Metrics.IssuanceFailed)
		deps.Warn("goSession: token issuance failed", "user_id", profile.UserID, "error", err)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, profile.UserID, req.Username, deps.Errors.IssuanceFailed, func() map[string]string {
			return map[string]string{"reason": "issuance_failed"}
		})
		return LoginResult{}, fmt.Errorf("%w: %v", deps.Errors.IssuanceFailed, err)
	}

	deps.MetricInc(deps.Metrics.TokenIssued)
	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, profile.UserID, req.Username, nil, func() map[string]string {
		return map[string]string{
			"fingerprint": result.Fingerprint,
			"mask":        mask.String(),
		}
	})

	return result, nil
}

func rejectCredential(ctx context.Context, req LoginRequest, userID int64, reason string, now time.Time, deps LoginDeps) error {
	if err := deps.RecordFailure(ctx, req.ClientAddress, now); err != nil {
		deps.Warn("goSession: failed to record login failure", "error", err)
	}
	deps.MetricInc(deps.Metrics.LoginFailure)
	deps.EmitAudit(ctx, deps.Events.LoginFailure, false, userID, req.Username, deps.Errors.InvalidCredentials, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return deps.Errors.InvalidCredentials
}
