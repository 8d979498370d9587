package test

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync/atomic"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/memstore"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/privilege"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// cmdCounter is a go-redis Hook that counts the number of Redis round-trips
// (individual commands and pipeline calls).
type cmdCounter struct {
	commands  atomic.Int64
	pipelines atomic.Int64
}

func (h *cmdCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *cmdCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.commands.Add(1)
		return next(ctx, cmd)
	}
}

func (h *cmdCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		h.pipelines.Add(1)
		h.commands.Add(int64(len(cmds)))
		return next(ctx, cmds)
	}
}

func (h *cmdCounter) Reset() {
	h.commands.Store(0)
	h.pipelines.Store(0)
}

func (h *cmdCounter) Commands() int64  { return h.commands.Load() }
func (h *cmdCounter) Pipelines() int64 { return h.pipelines.Load() }

type redisEnv struct {
	engine   *goSession.Engine
	profiles *memstore.Profiles
	hasher   password.Hasher
	mr       *miniredis.Miniredis
	rdb      *redis.Client
	counter  *cmdCounter
}

func fastCredential(pw string) string {
	sum := md5.Sum([]byte(pw))
	return hex.EncodeToString(sum[:])
}

// newRedisEngine builds an engine whose throttle, denylist and token log all
// live in miniredis, with a command counter on the client.
func newRedisEngine(t *testing.T) *redisEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	// Warm the connection so handshake commands are not counted.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("warmup ping: %v", err)
	}
	counter := &cmdCounter{}
	rdb.AddHook(counter)

	env := &redisEnv{
		profiles: memstore.NewProfiles(),
		hasher:   password.Dispatch(password.Bcrypt{Cost: bcrypt.MinCost}),
		mr:       mr,
		rdb:      rdb,
		counter:  counter,
	}

	cfg := goSession.DefaultConfig()
	cfg.Token.Secret = []byte(strings.Repeat("t", 32))
	cfg.Throttle.Backend = goSession.ThrottleBackendRedis
	cfg.Session.RedisPrefix = "it"

	engine, err := goSession.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithProfileStore(env.profiles).
		WithPasswordHasher(env.hasher).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	env.engine = engine
	counter.Reset()
	return env
}

func (env *redisEnv) addUser(t *testing.T, name, pw string) int64 {
	t.Helper()
	hash, err := env.hasher.Hash(fastCredential(pw))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	prof, err := env.profiles.Add(name, hash, privilege.Login)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	return prof.ID
}

func loginRequest(name, pw, addr string) goSession.LoginRequest {
	return goSession.LoginRequest{
		Username:       name,
		FastCredential: fastCredential(pw),
		ClientAddress:  addr,
		ClientAgent:    "integration-test",
	}
}
