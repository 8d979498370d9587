// Command gosession-loadtest drives concurrent logins and validations through
// a Redis-backed engine and prints latency percentiles.
package main

import (
	"cmp"
	"context"
	"crypto/md5"
	crand "crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/memstore"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/privilege"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

type options struct {
	users       int
	tokens      int
	concurrency int
	ops         int
	logins      int
	cost        int
	redisAddr   string
	prefix      string
}

func main() {
	var o options
	flag.IntVar(&o.users, "users", 1000, "number of users to seed")
	flag.IntVar(&o.tokens, "tokens", 10000, "number of tokens to issue before the validate phase")
	flag.IntVar(&o.concurrency, "concurrency", 256, "number of concurrent workers")
	flag.IntVar(&o.ops, "ops", 200000, "validate operations")
	flag.IntVar(&o.logins, "logins", 20000, "login operations (verifier cache warm)")
	flag.IntVar(&o.cost, "bcrypt-cost", bcrypt.MinCost, "bcrypt cost for seeded users")
	flag.StringVar(&o.redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	flag.StringVar(&o.prefix, "prefix", "gsload", "redis key prefix")
	flag.Parse()

	if err := run(context.Background(), o); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o options) error {
	if o.users <= 0 || o.tokens <= 0 || o.concurrency <= 0 || o.ops <= 0 || o.logins <= 0 {
		return errors.New("users, tokens, concurrency, ops and logins must be > 0")
	}

	client, closeRedis, err := openRedis(cmp.Or(o.redisAddr, os.Getenv("REDIS_ADDR")))
	if err != nil {
		return err
	}
	defer closeRedis()

	hasher := password.Dispatch(password.Bcrypt{Cost: o.cost})
	profiles := memstore.NewProfiles()

	fmt.Printf("seeding %d users...\n", o.users)
	seedStart := time.Now()
	for i := range o.users {
		hash, err := hasher.Hash(credentialFor(i))
		if err != nil {
			return fmt.Errorf("hash: %w", err)
		}
		if _, err := profiles.Add(nameFor(i), hash, privilege.Login); err != nil {
			return fmt.Errorf("add user: %w", err)
		}
	}

	secret := make([]byte, 32)
	if _, err := crand.Read(secret); err != nil {
		return fmt.Errorf("secret: %w", err)
	}
	cfg := goSession.DefaultConfig()
	cfg.Token.Secret = secret
	cfg.Session.RedisPrefix = o.prefix
	cfg.Metrics.EnableLatencyHistograms = true

	engine, err := goSession.New().
		WithConfig(cfg).
		WithRedis(client).
		WithProfileStore(profiles).
		WithPasswordHasher(hasher).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	issued := make([]string, o.tokens)
	for i := range issued {
		tok, err := engine.Login(ctx, loginRequest(i%o.users, i))
		if err != nil {
			return fmt.Errorf("seed login: %w", err)
		}
		issued[i] = tok.Token
	}
	fmt.Printf("seeded in %s\n", time.Since(seedStart).Round(time.Millisecond))

	validate := runPhase(o.ops, o.concurrency, func(r *rand.Rand, _ int) error {
		_, err := engine.ValidateToken(ctx, issued[r.IntN(len(issued))])
		return err
	})
	login := runPhase(o.logins, o.concurrency, func(r *rand.Rand, i int) error {
		_, err := engine.Login(ctx, loginRequest(r.IntN(o.users), i))
		return err
	})

	fmt.Println("---- results ----")
	validate.print("validate")
	login.print("login")

	vs := engine.VerifierStats()
	fmt.Printf("verifier cache: hits=%d misses=%d\n", vs.Hits, vs.Misses)
	return nil
}

// openRedis connects to addr, or to an in-process miniredis when addr is
// empty.
func openRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
}

// runPhase spreads ops calls of op across workers. Each worker keeps its own
// latency slice; they are merged once all workers finish.
func runPhase(ops, workers int, op func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg       sync.WaitGroup
		next     atomic.Int64
		failures atomic.Int64
	)
	perWorker := make([][]time.Duration, workers)

	start := time.Now()
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(w)))
			for {
				i := int(next.Add(1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				if err := op(r, i); err != nil {
					failures.Add(1)
				}
				perWorker[w] = append(perWorker[w], time.Since(t0))
			}
		}()
	}
	wg.Wait()

	s := phaseStats{total: time.Since(start), failures: failures.Load()}
	samples := slices.Concat(perWorker...)
	if len(samples) == 0 {
		return s
	}
	slices.Sort(samples)
	s.ops = len(samples)
	s.p50 = samples[(len(samples)-1)*50/100]
	s.p95 = samples[(len(samples)-1)*95/100]
	s.p99 = samples[(len(samples)-1)*99/100]
	return s
}

func (s phaseStats) print(name string) {
	var rate float64
	if s.total > 0 {
		rate = float64(s.ops) / s.total.Seconds()
	}
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name, s.ops, s.failures, s.total.Round(time.Millisecond), rate,
		s.p50.Round(time.Microsecond), s.p95.Round(time.Microsecond), s.p99.Round(time.Microsecond))
}

func nameFor(i int) string {
	return "user" + strconv.Itoa(i)
}

func credentialFor(i int) string {
	sum := md5.Sum([]byte("pw-" + strconv.Itoa(i)))
	return hex.EncodeToString(sum[:])
}

// loginRequest spreads client addresses so the throttle never engages.
func loginRequest(user, i int) goSession.LoginRequest {
	return goSession.LoginRequest{
		Username:       nameFor(user),
		FastCredential: credentialFor(user),
		ClientAddress:  fmt.Sprintf("10.%d.%d.%d", (i>>16)&0xff, (i>>8)&0xff, i&0xff),
		ClientAgent:    "gosession-loadtest",
	}
}
