package flows

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/privilege"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/token"
)

var (
	errNotReady      = errors.New("not ready")
	errInvalid       = errors.New("invalid credentials")
	errMetadata      = errors.New("metadata required")
	errConfig        = errors.New("credential config")
	errPrivilege     = errors.New("privilege not granted")
	errIssuance      = errors.New("issuance failed")
	errBackend       = errors.New("backend unavailable")
	errThrottled     = errors.New("throttled")
	errTokenInvalid  = errors.New("token invalid")
	errRevocationErr = errors.New("revocation failed")
)

type loginHarness struct {
	calls     []string
	failures  int
	locked    time.Duration
	profile   LoginProfile
	lookupErr error
	verifyOK  bool
	verifyErr error
	issueErr  error
	issued    LoginIssueRequest
	metrics   map[int]int
	events    []string
}

func newLoginHarness() *loginHarness {
	return &loginHarness{
		profile: LoginProfile{
			UserID:       7,
			Name:         "alice",
			PasswordHash: "$2a$stored",
			Privileges:   privilege.Login | privilege.PostContent,
		},
		verifyOK: true,
		metrics:  map[int]int{},
	}
}

const (
	mSuccess = iota + 1
	mFailure
	mThrottled
	mMetadata
	mConfig
	mPrivilege
	mIssued
	mIssuanceFailed
	mLatency
)

func (h *loginHarness) deps() LoginDeps {
	return LoginDeps{
		Now: func() time.Time { return time.Unix(1_700_000_000, 0) },
		CheckThrottle: func(_ context.Context, clientID string, _ time.Time) (bool, time.Duration, error) {
			h.calls = append(h.calls, "throttle:"+clientID)
			if h.locked > 0 {
				return false, h.locked, nil
			}
			return true, 0, nil
		},
		RecordFailure: func(context.Context, string, time.Time) error {
			h.failures++
			return nil
		},
		LookupProfile: func(_ context.Context, username string) (LoginProfile, error) {
			h.calls = append(h.calls, "lookup:"+username)
			return h.profile, h.lookupErr
		},
		IsProfileNotFound: func(err error) bool { return errors.Is(err, session.ErrProfileNotFound) },
		VerifyCredential: func(string, string) (bool, error) {
			h.calls = append(h.calls, "verify")
			return h.verifyOK, h.verifyErr
		},
		DummyVerify: func(string) { h.calls = append(h.calls, "dummy") },
		Issue: func(_ context.Context, req LoginIssueRequest) (LoginResult, error) {
			h.calls = append(h.calls, "issue")
			h.issued = req
			if h.issueErr != nil {
				return LoginResult{}, h.issueErr
			}
			return LoginResult{Token: "opaque", Fingerprint: "fp", UserID: req.UserID, Mask: req.Mask}, nil
		},
		MetricInc: func(id int) { h.metrics[id]++ },
		EmitAudit: func(_ context.Context, event string, _ bool, _ int64, _ string, _ error, metadata func() map[string]string) {
			if metadata != nil {
				_ = metadata()
			}
			h.events = append(h.events, event)
		},
		Metrics: LoginMetrics{
			LoginSuccess:          mSuccess,
			LoginFailure:          mFailure,
			LoginThrottled:        mThrottled,
			RejectedMetadata:      mMetadata,
			CredentialConfigError: mConfig,
			PrivilegeDenied:       mPrivilege,
			TokenIssued:           mIssued,
			IssuanceFailed:        mIssuanceFailed,
			LoginLatency:          mLatency,
		},
		Events: LoginEvents{
			LoginSuccess:   "login_success",
			LoginFailure:   "login_failure",
			LoginThrottled: "login_throttled",
		},
		Errors: LoginErrors{
			EngineNotReady:         errNotReady,
			InvalidCredentials:     errInvalid,
			ClientMetadataRequired: errMetadata,
			CredentialConfig:       errConfig,
			PrivilegeNotGranted:    errPrivilege,
			IssuanceFailed:         errIssuance,
			BackendUnavailable:     errBackend,
			Throttled: func(d time.Duration) error {
				return fmt.Errorf("%w: retry after %s", errThrottled, d)
			},
		},
	}
}

func loginRequest() LoginRequest {
	return LoginRequest{
		Username:       "alice",
		FastCredential: "5f4dcc3b5aa765d61d8327deb882cf99",
		ClientAddress:  "1.2.3.4",
		ClientAgent:    "test-agent",
	}
}

func TestRunLoginSuccessUsesDefaultMask(t *testing.T) {
	h := newLoginHarness()

	res, err := RunLogin(context.Background(), loginRequest(), h.deps())
	if err != nil {
		t.Fatalf("RunLogin: %v", err)
	}
	if res.Token != "opaque" {
		t.Fatalf("token = %q", res.Token)
	}
	if h.issued.Mask != privilege.Default {
		t.Fatalf("issued mask = %v, want %v", h.issued.Mask, privilege.Default)
	}
	if h.issued.StoredHash != h.profile.PasswordHash {
		t.Fatalf("issued hash = %q", h.issued.StoredHash)
	}
	if h.metrics[mSuccess] != 1 || h.metrics[mIssued] != 1 {
		t.Fatalf("metrics = %v", h.metrics)
	}
	if len(h.events) != 1 || h.events[0] != "login_success" {
		t.Fatalf("events = %v", h.events)
	}
}

func TestRunLoginChecksThrottleBeforeCredentials(t *testing.T) {
	h := newLoginHarness()
	h.locked = 4 * time.Minute

	_, err := RunLogin(context.Background(), loginRequest(), h.deps())
	if !errors.Is(err, errThrottled) {
		t.Fatalf("expected throttled, got %v", err)
	}
	if len(h.calls) != 1 || h.calls[0] != "throttle:1.2.3.4" {
		t.Fatalf("calls = %v", h.calls)
	}
	if h.failures != 0 {
		t.Fatalf("throttled attempt must not record a failure")
	}
	if h.metrics[mThrottled] != 1 {
		t.Fatalf("metrics = %v", h.metrics)
	}
}

func TestRunLoginRejectsMissingMetadata(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*LoginRequest)
	}{
		{name: "address", mutate: func(r *LoginRequest) { r.ClientAddress = "" }},
		{name: "agent", mutate: func(r *LoginRequest) { r.ClientAgent = "" }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := newLoginHarness()
			req := loginRequest()
			tc.mutate(&req)

			_, err := RunLogin(context.Background(), req, h.deps())
			if !errors.Is(err, errMetadata) {
				t.Fatalf("expected metadata error, got %v", err)
			}
			if len(h.calls) != 0 {
				t.Fatalf("no dependency should run, calls = %v", h.calls)
			}
		})
	}
}

func TestRunLoginUnknownUserLooksLikeBadCredential(t *testing.T) {
	h := newLoginHarness()
	h.lookupErr = session.ErrProfileNotFound

	_, unknownErr := RunLogin(context.Background(), loginRequest(), h.deps())

	h2 := newLoginHarness()
	h2.verifyOK = false
	_, badErr := RunLogin(context.Background(), loginRequest(), h2.deps())

	if unknownErr != badErr || !errors.Is(unknownErr, errInvalid) {
		t.Fatalf("unknown=%v bad=%v", unknownErr, badErr)
	}
	if h.failures != 1 || h2.failures != 1 {
		t.Fatalf("failures unknown=%d bad=%d", h.failures, h2.failures)
	}
	if h.calls[len(h.calls)-1] != "dummy" {
		t.Fatalf("unknown user must burn a dummy comparison, calls = %v", h.calls)
	}
}

func TestRunLoginLookupBackendError(t *testing.T) {
	h := newLoginHarness()
	h.lookupErr = errors.New("connection refused")

	_, err := RunLogin(context.Background(), loginRequest(), h.deps())
	if !errors.Is(err, errBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if h.failures != 0 {
		t.Fatalf("backend errors must not count as failures")
	}
}

func TestRunLoginThrottleBackendErrorFailsClosed(t *testing.T) {
	h := newLoginHarness()
	deps := h.deps()
	deps.CheckThrottle = func(context.Context, string, time.Time) (bool, time.Duration, error) {
		return false, 0, errors.New("redis down")
	}

	_, err := RunLogin(context.Background(), loginRequest(), deps)
	if !errors.Is(err, errBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestRunLoginMalformedHashIsConfigError(t *testing.T) {
	h := newLoginHarness()
	h.verifyErr = errors.New("malformed hash")

	_, err := RunLogin(context.Background(), loginRequest(), h.deps())
	if !errors.Is(err, errConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
	if h.failures != 0 {
		t.Fatalf("config errors must not count as failures")
	}
	if h.metrics[mConfig] != 1 {
		t.Fatalf("metrics = %v", h.metrics)
	}
}

func TestRunLoginPrivilegeNotGranted(t *testing.T) {
	h := newLoginHarness()
	req := loginRequest()
	req.RequestedMask = privilege.Login | privilege.LoginAdminPanel

	_, err := RunLogin(context.Background(), req, h.deps())
	if !errors.Is(err, errPrivilege) {
		t.Fatalf("expected privilege error, got %v", err)
	}
	for _, c := range h.calls {
		if c == "issue" {
			t.Fatalf("must not issue when privileges are missing")
		}
	}
}

func TestRunLoginIssuanceFailure(t *testing.T) {
	h := newLoginHarness()
	h.issueErr = session.ErrIssuanceFailed

	_, err := RunLogin(context.Background(), loginRequest(), h.deps())
	if !errors.Is(err, errIssuance) {
		t.Fatalf("expected issuance error, got %v", err)
	}
	if h.metrics[mIssuanceFailed] != 1 || h.metrics[mSuccess] != 0 {
		t.Fatalf("metrics = %v", h.metrics)
	}
}

func TestRunLoginCancelledDuringIssue(t *testing.T) {
	h := newLoginHarness()
	ctx, cancel := context.WithCancel(context.Background())
	deps := h.deps()
	deps.Issue = func(ctx context.Context, _ LoginIssueRequest) (LoginResult, error) {
		cancel()
		return LoginResult{}, ctx.Err()
	}

	_, err := RunLogin(ctx, loginRequest(), deps)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if h.metrics[mIssuanceFailed] != 0 {
		t.Fatalf("cancellation is not an issuance failure")
	}
}

func TestRunLoginNotReady(t *testing.T) {
	_, err := RunLogin(context.Background(), loginRequest(), LoginDeps{Errors: LoginErrors{EngineNotReady: errNotReady}})
	if !errors.Is(err, errNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
}

type stubStore struct {
	validateErr error
	claims      token.Claims
	revokeErr   error
	revoked     int
	reasons     []string
}

func (s *stubStore) Validate(context.Context, string, time.Time) (token.Claims, error) {
	return s.claims, s.validateErr
}

func (s *stubStore) Revoke(context.Context, string, time.Time) (token.Claims, error) {
	return s.claims, s.revokeErr
}

func (s *stubStore) RevokeUser(_ context.Context, _ int64, reason string, _ time.Time) (int, error) {
	s.reasons = append(s.reasons, reason)
	return s.revoked, s.revokeErr
}

func TestRunValidateClassifiesErrors(t *testing.T) {
	cases := []struct {
		err  error
		want ValidateFailureKind
	}{
		{nil, ValidateFailureNone},
		{session.ErrTokenInvalid, ValidateFailureInvalid},
		{session.ErrTokenExpired, ValidateFailureExpired},
		{session.ErrTokenRevoked, ValidateFailureRevoked},
		{session.ErrUserNotFound, ValidateFailureUserNotFound},
		{fmt.Errorf("%w: timeout", session.ErrBackendUnavailable), ValidateFailureBackend},
	}

	for _, tc := range cases {
		counts := map[int]int{}
		res := RunValidate(context.Background(), "opaque", ValidateDeps{
			Store:     &stubStore{validateErr: tc.err, claims: token.Claims{UserID: 3, Mask: privilege.Login, IssuedAt: 100}},
			MetricInc: func(id int) { counts[id]++ },
			Metrics:   ValidateMetrics{ValidateSuccess: 1, ValidateInvalid: 2, ValidateExpired: 3, ValidateRevoked: 4, ValidateUserNotFound: 5},
		})
		if res.Failure != tc.want {
			t.Fatalf("err %v: failure = %v, want %v", tc.err, res.Failure, tc.want)
		}
		if tc.err == nil && res.Claims.UserID != 3 {
			t.Fatalf("claims not returned: %+v", res.Claims)
		}
		if tc.want != ValidateFailureBackend && counts[int(tc.want)+1] != 1 {
			t.Fatalf("err %v: metrics = %v", tc.err, counts)
		}
	}
}

func TestRunLogoutMapsErrors(t *testing.T) {
	deps := LogoutDeps{Errors: LogoutErrors{TokenInvalid: errTokenInvalid, RevocationFailed: errRevocationErr}}

	deps.Store = &stubStore{revokeErr: session.ErrTokenInvalid}
	if _, err := RunLogout(context.Background(), "x", deps); !errors.Is(err, errTokenInvalid) {
		t.Fatalf("expected token invalid, got %v", err)
	}

	deps.Store = &stubStore{revokeErr: session.ErrRevocationFailed, claims: token.Claims{UserID: 9}}
	userID, err := RunLogout(context.Background(), "x", deps)
	if !errors.Is(err, errRevocationErr) || userID != 9 {
		t.Fatalf("expected revocation failure for user 9, got %d %v", userID, err)
	}

	deps.Store = &stubStore{claims: token.Claims{UserID: 9}}
	if userID, err := RunLogout(context.Background(), "x", deps); err != nil || userID != 9 {
		t.Fatalf("RunLogout = %d %v", userID, err)
	}
}

func TestRunPasswordChangedForgetsOldHash(t *testing.T) {
	store := &stubStore{revoked: 2}
	var forgotten []string

	n, err := RunPasswordChanged(context.Background(), 4, "$2a$old", LogoutDeps{
		Store:            store,
		ForgetCredential: func(h string) { forgotten = append(forgotten, h) },
	})
	if err != nil || n != 2 {
		t.Fatalf("RunPasswordChanged = %d %v", n, err)
	}
	if len(forgotten) != 1 || forgotten[0] != "$2a$old" {
		t.Fatalf("forgotten = %v", forgotten)
	}
	if len(store.reasons) != 1 || store.reasons[0] != session.ReasonPasswordChange {
		t.Fatalf("reasons = %v", store.reasons)
	}
}

func TestRunLogoutAllReason(t *testing.T) {
	store := &stubStore{revoked: 1}
	if _, err := RunLogoutAll(context.Background(), 4, LogoutDeps{Store: store}); err != nil {
		t.Fatalf("RunLogoutAll: %v", err)
	}
	if store.reasons[0] != session.ReasonLogoutAll {
		t.Fatalf("reasons = %v", store.reasons)
	}
}
