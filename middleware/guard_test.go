package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/memstore"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/privilege"
	"golang.org/x/crypto/bcrypt"
)

const testCredential = "5f4dcc3b5aa765d61d8327deb882cf99"

func newEngine(t *testing.T, grant privilege.Mask) *goSession.Engine {
	t.Helper()

	hasher := password.Dispatch(password.Bcrypt{Cost: bcrypt.MinCost})
	hash, err := hasher.Hash(testCredential)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	profiles := memstore.NewProfiles()
	if _, err := profiles.Add("bob", hash, grant); err != nil {
		t.Fatalf("Add: %v", err)
	}

	cfg := goSession.DefaultConfig()
	cfg.Token.Secret = []byte(strings.Repeat("k", 32))

	engine, err := goSession.New().
		WithConfig(cfg).
		WithProfileStore(profiles).
		WithTokenLog(memstore.NewTokenLog()).
		WithPasswordHasher(hasher).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func login(t *testing.T, engine *goSession.Engine, mask privilege.Mask) string {
	t.Helper()
	tok, err := engine.Login(context.Background(), goSession.LoginRequest{
		Username:       "bob",
		FastCredential: testCredential,
		ClientAddress:  "10.0.0.1",
		ClientAgent:    "test",
		RequestedMask:  mask,
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return tok.Token
}

func okHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := goSession.IdentityFromContext(r.Context())
		if !ok {
			t.Fatal("identity missing from context")
		}
		w.Header().Set("X-User", identity.Mask.String())
		w.WriteHeader(http.StatusNoContent)
	})
}

func serve(h http.Handler, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGuardAcceptsTokenHeaderAndBearer(t *testing.T) {
	engine := newEngine(t, privilege.Login)
	tok := login(t, engine, 0)
	h := Guard(engine)(okHandler(t))

	if rec := serve(h, TokenHeader, tok); rec.Code != http.StatusNoContent {
		t.Fatalf("token header: expected 204, got %d", rec.Code)
	}
	if rec := serve(h, "Authorization", "Bearer "+tok); rec.Code != http.StatusNoContent {
		t.Fatalf("bearer: expected 204, got %d", rec.Code)
	}
}

func TestGuardRejectsMissingAndBadTokens(t *testing.T) {
	engine := newEngine(t, privilege.Login)
	h := Guard(engine)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	cases := []struct {
		name, header, value string
	}{
		{"missing", "", ""},
		{"garbage", TokenHeader, "not-a-token"},
		{"empty bearer", "Authorization", "Bearer "},
		{"basic auth", "Authorization", "Basic Ym9iOnB3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := serve(h, tc.header, tc.value); rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestGuardRejectsLoggedOutToken(t *testing.T) {
	engine := newEngine(t, privilege.Login)
	tok := login(t, engine, 0)
	if err := engine.Logout(context.Background(), tok); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	h := Guard(engine)(okHandler(t))
	if rec := serve(h, TokenHeader, tok); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rec.Code)
	}
}

func TestGuardNilEngine(t *testing.T) {
	h := Guard(nil)(okHandler(t))
	if rec := serve(h, TokenHeader, "x"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequirePrivileges(t *testing.T) {
	grant := privilege.Login | privilege.EditUsers
	engine := newEngine(t, grant)

	plain := login(t, engine, privilege.Login)
	elevated := login(t, engine, grant)

	h := RequirePrivileges(engine, privilege.EditUsers)(okHandler(t))

	if rec := serve(h, TokenHeader, plain); rec.Code != http.StatusForbidden {
		t.Fatalf("plain token: expected 403, got %d", rec.Code)
	}
	if rec := serve(h, TokenHeader, elevated); rec.Code != http.StatusNoContent {
		t.Fatalf("elevated token: expected 204, got %d", rec.Code)
	}
	if rec := serve(h, "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", rec.Code)
	}
}
