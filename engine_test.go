package goSession

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/internal/memstore"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/privilege"
	"github.com/MrEthical07/goSession/token"
	"golang.org/x/crypto/bcrypt"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	engine   *Engine
	profiles *memstore.Profiles
	log      *memstore.TokenLog
	clock    *testClock
	hasher   password.Hasher
}

func testSecret() []byte {
	return []byte(strings.Repeat("s", token.MinSecretLength))
}

func fastCredential(pw string) string {
	sum := md5.Sum([]byte(pw))
	return hex.EncodeToString(sum[:])
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.Secret = testSecret()
	return cfg
}

func newTestEnv(t testing.TB, mutate func(*Builder)) *testEnv {
	t.Helper()

	env := &testEnv{
		profiles: memstore.NewProfiles(),
		log:      memstore.NewTokenLog(),
		clock:    newTestClock(),
		hasher:   password.Dispatch(password.Bcrypt{Cost: bcrypt.MinCost}),
	}

	b := New().
		WithConfig(testConfig()).
		WithProfileStore(env.profiles).
		WithTokenLog(env.log).
		WithPasswordHasher(env.hasher).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithClock(env.clock.Now)
	if mutate != nil {
		mutate(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	env.engine = engine
	return env
}

func (env *testEnv) addUser(t testing.TB, name, pw string, mask privilege.Mask) int64 {
	t.Helper()
	hash, err := env.hasher.Hash(fastCredential(pw))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	prof, err := env.profiles.Add(name, hash, mask)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	return prof.ID
}

func loginReq(name, pw string) LoginRequest {
	return LoginRequest{
		Username:       name,
		FastCredential: fastCredential(pw),
		ClientAddress:  "1.2.3.4",
		ClientAgent:    "Mozilla/5.0",
	}
}

func TestAliceThrottledThenLogsIn(t *testing.T) {
	env := newTestEnv(t, nil)
	userID := env.addUser(t, "Alice", "correct horse", privilege.Login)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := env.engine.Login(ctx, loginReq("alice", "wrong"))
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
		env.clock.Advance(20 * time.Second)
	}

	_, err := env.engine.Login(ctx, loginReq("alice", "correct horse"))
	var te *ThrottleError
	if !errors.As(err, &te) || !errors.Is(err, ErrLoginThrottled) {
		t.Fatalf("expected throttle error, got %v", err)
	}
	if te.RetryAfter != 4*time.Minute {
		t.Fatalf("RetryAfter = %v, want 4m", te.RetryAfter)
	}

	env.clock.Advance(5 * time.Minute)

	tok, err := env.engine.Login(ctx, loginReq("alice", "correct horse"))
	if err != nil {
		t.Fatalf("login after window: %v", err)
	}
	if want := env.clock.Now().Add(30 * 24 * time.Hour); !tok.ExpiresAt.Equal(want) {
		t.Fatalf("ExpiresAt = %v, want %v", tok.ExpiresAt, want)
	}

	identity, err := env.engine.ValidateToken(ctx, tok.Token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if identity.UserID != userID || identity.Mask != privilege.Login {
		t.Fatalf("unexpected identity %+v", identity)
	}

	snap := env.engine.MetricsSnapshot()
	if snap.Counters[MetricLoginFailure] != 3 || snap.Counters[MetricLoginThrottled] != 1 || snap.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("unexpected counters %v", snap.Counters)
	}
}

func TestUnknownUserCountsTowardThrottle(t *testing.T) {
	env := newTestEnv(t, nil)
	env.addUser(t, "alice", "pw", privilege.Login)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := env.engine.Login(ctx, loginReq("nobody", "pw")); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	}
	if _, err := env.engine.Login(ctx, loginReq("alice", "pw")); !errors.Is(err, ErrLoginThrottled) {
		t.Fatalf("expected throttle from same address, got %v", err)
	}

	other := loginReq("alice", "pw")
	other.ClientAddress = "5.6.7.8"
	if _, err := env.engine.Login(ctx, other); err != nil {
		t.Fatalf("other client must not be throttled: %v", err)
	}
}

func TestPasswordChangeRevokesImplicitly(t *testing.T) {
	env := newTestEnv(t, nil)
	userID := env.addUser(t, "alice", "old", privilege.Login)
	ctx := context.Background()

	tok, err := env.engine.Login(ctx, loginReq("alice", "old"))
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	oldProfile, err := env.profiles.ProfileByID(ctx, userID)
	if err != nil {
		t.Fatalf("ProfileByID: %v", err)
	}

	newHash, err := env.hasher.Hash(fastCredential("new"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if err := env.profiles.SetPasswordHash(userID, newHash); err != nil {
		t.Fatalf("SetPasswordHash: %v", err)
	}

	if _, err := env.engine.ValidateToken(ctx, tok.Token); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked after hash change, got %v", err)
	}

	revoked, err := env.engine.PasswordChanged(ctx, userID, oldProfile.PasswordHash)
	if err != nil || revoked != 1 {
		t.Fatalf("PasswordChanged = %d, %v", revoked, err)
	}
	if len(env.engine.ActiveTokens(userID)) != 0 {
		t.Fatal("active tokens must be cleared")
	}

	if _, err := env.engine.Login(ctx, loginReq("alice", "old")); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old credential must fail, got %v", err)
	}
	if _, err := env.engine.Login(ctx, loginReq("alice", "new")); err != nil {
		t.Fatalf("new credential: %v", err)
	}
}

func TestLogoutDeniesToken(t *testing.T) {
	env := newTestEnv(t, nil)
	userID := env.addUser(t, "alice", "pw", privilege.Login)
	ctx := context.Background()

	tok, err := env.engine.Login(ctx, loginReq("alice", "pw"))
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if len(env.engine.ActiveTokens(userID)) != 1 {
		t.Fatal("expected one active token")
	}

	if err := env.engine.Logout(ctx, tok.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := env.engine.ValidateToken(ctx, tok.Token); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
	if len(env.engine.ActiveTokens(userID)) != 0 {
		t.Fatal("logout must clear the active entry")
	}
	if recs := env.log.Revocations(); len(recs) != 1 || recs[0].Reason != "logout" {
		t.Fatalf("unexpected revocations %+v", recs)
	}

	if err := env.engine.Logout(ctx, "garbage"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestMemoryDenylistDropsExpiredEntries(t *testing.T) {
	deny := memstore.NewDenylist()
	env := newTestEnv(t, func(b *Builder) { b.WithDenylist(deny) })
	env.addUser(t, "alice", "pw", privilege.Login)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		tok, err := env.engine.Login(ctx, loginReq("alice", "pw"))
		if err != nil {
			t.Fatalf("Login %d: %v", i, err)
		}
		if err := env.engine.Logout(ctx, tok.Token); err != nil {
			t.Fatalf("Logout %d: %v", i, err)
		}
	}
	if deny.Len() != 50 {
		t.Fatalf("denylist len=%d want 50", deny.Len())
	}

	env.clock.Advance(60 * 24 * time.Hour)

	tok, err := env.engine.Login(ctx, loginReq("alice", "pw"))
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := env.engine.ValidateToken(ctx, tok.Token); err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if err := env.engine.Logout(ctx, tok.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if deny.Len() != 1 {
		t.Fatalf("expired denylist entries kept: len=%d", deny.Len())
	}
	if _, err := env.engine.ValidateToken(ctx, tok.Token); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
}

func TestLogoutWithoutDenylistKeepsTokenValid(t *testing.T) {
	env := newTestEnv(t, func(b *Builder) {
		cfg := testConfig()
		cfg.Session.EnableDenylist = false
		b.WithConfig(cfg)
	})
	env.addUser(t, "alice", "pw", privilege.Login)
	ctx := context.Background()

	tok, err := env.engine.Login(ctx, loginReq("alice", "pw"))
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := env.engine.Logout(ctx, tok.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := env.engine.ValidateToken(ctx, tok.Token); err != nil {
		t.Fatalf("without a denylist the token stays valid, got %v", err)
	}
}

func TestLoginRequiresClientMetadata(t *testing.T) {
	env := newTestEnv(t, nil)
	env.addUser(t, "alice", "pw", privilege.Login)

	req := loginReq("alice", "pw")
	req.ClientAgent = ""
	if _, err := env.engine.Login(context.Background(), req); !errors.Is(err, ErrClientMetadataRequired) {
		t.Fatalf("expected ErrClientMetadataRequired, got %v", err)
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricLoginRejectedMetadata]; got != 1 {
		t.Fatalf("rejected metadata counter = %d", got)
	}
}

func TestLoginPrivileges(t *testing.T) {
	env := newTestEnv(t, nil)
	env.addUser(t, "mod", "pw", privilege.Login|privilege.LoginAdminPanel|privilege.EditUsers)
	env.addUser(t, "user", "pw", privilege.Login)
	ctx := context.Background()

	req := loginReq("user", "pw")
	req.RequestedMask = privilege.Login | privilege.EditUsers
	if _, err := env.engine.Login(ctx, req); !errors.Is(err, ErrPrivilegeNotGranted) {
		t.Fatalf("expected ErrPrivilegeNotGranted, got %v", err)
	}

	req = loginReq("mod", "pw")
	req.RequestedMask = privilege.Login | privilege.EditUsers
	tok, err := env.engine.Login(ctx, req)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if want := env.clock.Now().Add(24 * time.Hour); !tok.ExpiresAt.Equal(want) {
		t.Fatalf("elevated ExpiresAt = %v, want %v", tok.ExpiresAt, want)
	}

	env.clock.Advance(24*time.Hour + time.Second)
	if _, err := env.engine.ValidateToken(ctx, tok.Token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestIssuanceFailsClosed(t *testing.T) {
	env := newTestEnv(t, nil)
	userID := env.addUser(t, "alice", "pw", privilege.Login)
	env.log.FailIssuance = errors.New("disk full")

	tok, err := env.engine.Login(context.Background(), loginReq("alice", "pw"))
	if !errors.Is(err, ErrIssuanceFailed) || tok != nil {
		t.Fatalf("expected ErrIssuanceFailed and no token, got %v %v", tok, err)
	}
	if len(env.engine.ActiveTokens(userID)) != 0 {
		t.Fatal("failed issuance must not be indexed")
	}
}

func TestMalformedHashIsConfigurationError(t *testing.T) {
	env := newTestEnv(t, nil)
	if _, err := env.profiles.Add("broken", "not-a-hash", privilege.Login); err != nil {
		t.Fatalf("Add: %v", err)
	}

	for i := 0; i < 4; i++ {
		_, err := env.engine.Login(context.Background(), loginReq("broken", "pw"))
		if !errors.Is(err, ErrCredentialConfig) {
			t.Fatalf("attempt %d: expected ErrCredentialConfig, got %v", i+1, err)
		}
	}
}

func TestVerifierCacheSkipsSlowHash(t *testing.T) {
	env := newTestEnv(t, nil)
	env.addUser(t, "alice", "pw", privilege.Login)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := env.engine.Login(ctx, loginReq("alice", "pw")); err != nil {
			t.Fatalf("Login %d: %v", i, err)
		}
	}

	stats := env.engine.VerifierStats()
	if stats.SlowChecks != 1 || stats.Hits != 2 {
		t.Fatalf("unexpected verifier stats %+v", stats)
	}
}

func TestCurrentUserHidesHash(t *testing.T) {
	env := newTestEnv(t, nil)
	userID := env.addUser(t, "Big Bob", "pw", privilege.Login)
	ctx := context.Background()

	tok, err := env.engine.Login(ctx, loginReq("big bob", "pw"))
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	prof, err := env.engine.CurrentUser(ctx, tok.Token)
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if prof.ID != userID || prof.Name != "Big Bob" || prof.SafeName != "big_bob" {
		t.Fatalf("unexpected profile %+v", prof)
	}
	if prof.PasswordHash != "" {
		t.Fatal("CurrentUser must not expose the password hash")
	}

	env.profiles.Delete(userID)
	if _, err := env.engine.CurrentUser(ctx, tok.Token); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestRevokeAllForUser(t *testing.T) {
	env := newTestEnv(t, nil)
	userID := env.addUser(t, "alice", "pw", privilege.Login)
	ctx := context.Background()

	var tokens []string
	for i := 0; i < 3; i++ {
		tok, err := env.engine.Login(ctx, loginReq("alice", "pw"))
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		tokens = append(tokens, tok.Token)
	}

	n, err := env.engine.RevokeAllForUser(ctx, userID)
	if err != nil || n != 3 {
		t.Fatalf("RevokeAllForUser = %d, %v", n, err)
	}
	for _, tok := range tokens {
		if _, err := env.engine.ValidateToken(ctx, tok); !errors.Is(err, ErrTokenRevoked) {
			t.Fatalf("expected ErrTokenRevoked, got %v", err)
		}
	}
}

func TestBackendFailureDuringValidate(t *testing.T) {
	env := newTestEnv(t, nil)
	env.addUser(t, "alice", "pw", privilege.Login)
	ctx := context.Background()

	tok, err := env.engine.Login(ctx, loginReq("alice", "pw"))
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	env.profiles.Err = errors.New("connection reset")

	if _, err := env.engine.ValidateToken(ctx, tok.Token); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
	if _, err := env.engine.Login(ctx, loginReq("alice", "pw")); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable on login, got %v", err)
	}
}

func TestNilEngineNotReady(t *testing.T) {
	var e *Engine
	if _, err := e.Login(context.Background(), loginReq("a", "b")); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := e.ValidateToken(context.Background(), "x"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	e.Close()
}
