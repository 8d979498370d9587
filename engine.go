package goSession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/goSession/credential"
	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/metrics"
	"github.com/MrEthical07/goSession/internal/throttle"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/privilege"
	"github.com/MrEthical07/goSession/session"
)

// Engine authenticates users and manages their session tokens. All state is
// owned by the Engine; two engines never share caches or throttle tables.
//
// Engine instances are built by [Builder.Build] and are safe for concurrent use.
type Engine struct {
	config    Config
	store     *session.Store
	profiles  ProfileStore
	throttle  throttle.Throttle
	verifier  *credential.Verifier
	hasher    password.Hasher
	dummyHash string
	audit     *internalaudit.Dispatcher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
	flows     flows.Service
}

// Close stops the audit dispatcher (flushing queued events) and releases the
// verifier cache.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.verifier != nil {
		e.verifier.Close()
	}
}

// AuditDropped returns the number of audit events discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine's counters and histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// VerifierStats returns the credential cache counters.
func (e *Engine) VerifierStats() credential.Stats {
	if e == nil || e.verifier == nil {
		return credential.Stats{}
	}
	return e.verifier.Stats()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.flows.Initialized()
}

// Login checks the client's throttle state before any credential work, then
// verifies the fast credential against the stored slow hash, checks the
// requested privileges and issues a token whose issuance is durably recorded
// before it is returned.
//
// Login returns [ErrClientMetadataRequired], a [*ThrottleError] matching
// [ErrLoginThrottled], [ErrInvalidCredentials] (unknown user and wrong
// credential alike), [ErrCredentialConfig], [ErrPrivilegeNotGranted],
// [ErrIssuanceFailed], [ErrBackendUnavailable] or the context's error.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*Token, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	if req.ClientAddress != "" {
		ctx = WithClientIP(ctx, req.ClientAddress)
	}
	if req.ClientAgent != "" {
		ctx = WithUserAgent(ctx, req.ClientAgent)
	}

	res, err := e.flows.Login(ctx, flows.LoginRequest{
		Username:       req.Username,
		FastCredential: req.FastCredential,
		ClientAddress:  req.ClientAddress,
		ClientAgent:    req.ClientAgent,
		RequestedMask:  req.RequestedMask,
	})
	if err != nil {
		return nil, err
	}

	return &Token{Token: res.Token, ExpiresAt: res.ExpiresAt}, nil
}

// ValidateToken returns the identity carried by opaque, or one of
// [ErrTokenInvalid], [ErrTokenExpired], [ErrTokenRevoked], [ErrUserNotFound]
// and [ErrBackendUnavailable]. A token is revoked once it is logged out or the
// user's stored password hash no longer matches the hash it was issued with.
func (e *Engine) ValidateToken(ctx context.Context, opaque string) (*Identity, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res := e.flows.Validate(ctx, opaque)
	switch res.Failure {
	case flows.ValidateFailureNone:
		return &Identity{
			UserID:    res.Claims.UserID,
			Mask:      res.Claims.Mask,
			IssuedAt:  time.Unix(res.Claims.IssuedAt, 0).UTC(),
			ExpiresAt: res.ExpiresAt.UTC(),
		}, nil
	case flows.ValidateFailureInvalid:
		return nil, ErrTokenInvalid
	case flows.ValidateFailureExpired:
		return nil, ErrTokenExpired
	case flows.ValidateFailureRevoked:
		return nil, ErrTokenRevoked
	case flows.ValidateFailureUserNotFound:
		return nil, ErrUserNotFound
	default:
		e.logger.WarnContext(ctx, "goSession: token validation backend failure", "error", res.Err)
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, res.Err)
	}
}

// Logout revokes opaque. With the denylist enabled the token is rejected by
// ValidateToken immediately; the revocation is always recorded in the token log.
//
// Logout returns [ErrTokenInvalid] for tokens that do not decode and
// [ErrRevocationFailed] when the denylist or the token log write fails.
func (e *Engine) Logout(ctx context.Context, opaque string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	_, err := e.flows.Logout(ctx, opaque)
	return err
}

// CurrentUser validates opaque and returns the token owner's profile. The
// returned profile never carries the password hash.
func (e *Engine) CurrentUser(ctx context.Context, opaque string) (*Profile, error) {
	identity, err := e.ValidateToken(ctx, opaque)
	if err != nil {
		return nil, err
	}

	profile, err := e.profiles.ProfileByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, session.ErrProfileNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	profile.PasswordHash = ""
	return &profile, nil
}

// ActiveTokens lists userID's unexpired tokens issued by this engine.
func (e *Engine) ActiveTokens(userID int64) []ActiveToken {
	if !e.ready() {
		return nil
	}
	return e.store.Active(userID, e.now())
}

// RevokeAllForUser logs out every token of userID issued by this engine and
// returns how many were revoked.
func (e *Engine) RevokeAllForUser(ctx context.Context, userID int64) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	return e.flows.LogoutAll(ctx, userID)
}

// PasswordChanged must be called after userID's stored hash is replaced.
// oldHash is evicted from the credential cache and every indexed token of the
// user is revoked. Tokens not indexed by this engine are rejected by
// ValidateToken anyway, because their hash snapshot no longer matches.
func (e *Engine) PasswordChanged(ctx context.Context, userID int64, oldHash string) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	return e.flows.PasswordChanged(ctx, userID, oldHash)
}

// HashCredential produces a stored hash for a fast credential with the
// engine's password hasher.
func (e *Engine) HashCredential(fast string) (string, error) {
	if e == nil || e.hasher == nil {
		return "", ErrEngineNotReady
	}
	return e.hasher.Hash(fast)
}

func (e *Engine) buildFlows() flows.Service {
	emit := func(ctx context.Context, event string, success bool, userID int64, username string, err error, metadata func() map[string]string) {
		e.emitAudit(ctx, event, success, userID, username, err, metadata)
	}
	inc := func(id int) { e.metricInc(MetricID(id)) }
	observe := func(id int, d time.Duration) { e.metrics.Observe(MetricID(id), d) }

	return flows.New(flows.Deps{
		Login: flows.LoginDeps{
			DefaultMask: privilege.Default,
			Now:         e.now,
			CheckThrottle: func(ctx context.Context, clientID string, now time.Time) (bool, time.Duration, error) {
				d, err := e.throttle.Check(ctx, clientID, now)
				return d.Allowed, d.RetryAfter, err
			},
			RecordFailure: e.throttle.RecordFailure,
			LookupProfile: func(ctx context.Context, username string) (flows.LoginProfile, error) {
				p, err := e.profiles.ProfileByName(ctx, username)
				if err != nil {
					return flows.LoginProfile{}, err
				}
				return flows.LoginProfile{
					UserID:       p.ID,
					Name:         p.Name,
					PasswordHash: p.PasswordHash,
					Privileges:   p.Privileges,
				}, nil
			},
			IsProfileNotFound: func(err error) bool { return errors.Is(err, session.ErrProfileNotFound) },
			VerifyCredential:  e.verifier.Verify,
			DummyVerify: func(fast string) {
				_, _ = e.hasher.Compare(e.dummyHash, fast)
			},
			Issue: func(ctx context.Context, req flows.LoginIssueRequest) (flows.LoginResult, error) {
				issued, err := e.store.Issue(ctx, session.IssueRequest{
					UserID:        req.UserID,
					StoredHash:    req.StoredHash,
					Mask:          req.Mask,
					ClientAgent:   req.ClientAgent,
					ClientAddress: req.ClientAddress,
					Now:           req.Now,
				})
				if err != nil {
					return flows.LoginResult{}, err
				}
				return flows.LoginResult{
					Token:       issued.Token,
					ExpiresAt:   issued.ExpiresAt,
					Fingerprint: issued.Fingerprint,
					UserID:      req.UserID,
					Mask:        req.Mask,
				}, nil
			},
			MetricInc: inc,
			Observe:   observe,
			EmitAudit: emit,
			Warn: func(msg string, args ...any) {
				e.logger.Warn(msg, args...)
			},
			Metrics: flows.LoginMetrics{
				LoginSuccess:          int(MetricLoginSuccess),
				LoginFailure:          int(MetricLoginFailure),
				LoginThrottled:        int(MetricLoginThrottled),
				RejectedMetadata:      int(MetricLoginRejectedMetadata),
				CredentialConfigError: int(MetricCredentialConfigError),
				PrivilegeDenied:       int(MetricPrivilegeDenied),
				TokenIssued:           int(MetricTokenIssued),
				IssuanceFailed:        int(MetricIssuanceFailed),
				LoginLatency:          int(MetricLoginLatency),
			},
			Events: flows.LoginEvents{
				LoginSuccess:   auditEventLoginSuccess,
				LoginFailure:   auditEventLoginFailure,
				LoginThrottled: auditEventLoginThrottled,
			},
			Errors: flows.LoginErrors{
				EngineNotReady:         ErrEngineNotReady,
				InvalidCredentials:     ErrInvalidCredentials,
				ClientMetadataRequired: ErrClientMetadataRequired,
				CredentialConfig:       ErrCredentialConfig,
				PrivilegeNotGranted:    ErrPrivilegeNotGranted,
				IssuanceFailed:         ErrIssuanceFailed,
				BackendUnavailable:     ErrBackendUnavailable,
				Throttled: func(retryAfter time.Duration) error {
					return &ThrottleError{RetryAfter: retryAfter}
				},
			},
		},
		Validate: flows.ValidateDeps{
			Store:     e.store,
			Now:       e.now,
			MetricInc: inc,
			Observe:   observe,
			Metrics: flows.ValidateMetrics{
				ValidateSuccess:      int(MetricValidateSuccess),
				ValidateInvalid:      int(MetricValidateInvalid),
				ValidateExpired:      int(MetricValidateExpired),
				ValidateRevoked:      int(MetricValidateRevoked),
				ValidateUserNotFound: int(MetricValidateUserNotFound),
				ValidateLatency:      int(MetricValidateLatency),
			},
		},
		Logout: flows.LogoutDeps{
			Store:            e.store,
			Now:              e.now,
			ForgetCredential: e.verifier.Forget,
			MetricInc:        inc,
			EmitAudit:        emit,
			Metrics: flows.LogoutMetrics{
				Logout:                   int(MetricLogout),
				LogoutAll:                int(MetricLogoutAll),
				PasswordChangeRevocation: int(MetricPasswordChangeRevocation),
			},
			Events: flows.LogoutEvents{
				Logout:                   auditEventLogout,
				LogoutAll:                auditEventLogoutAll,
				PasswordChangeRevocation: auditEventPasswordChangeRevocation,
			},
			Errors: flows.LogoutErrors{
				EngineNotReady:   ErrEngineNotReady,
				TokenInvalid:     ErrTokenInvalid,
				RevocationFailed: ErrRevocationFailed,
			},
		},
	})
}
