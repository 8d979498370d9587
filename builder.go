package goSession

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/MrEthical07/goSession/credential"
	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/logging"
	"github.com/MrEthical07/goSession/internal/memstore"
	"github.com/MrEthical07/goSession/internal/metrics"
	"github.com/MrEthical07/goSession/internal/throttle"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/redisstore"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/token"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A Builder may be used for one successful
// Build only.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	profiles ProfileStore
	tokenLog TokenLog
	denylist Denylist
	hasher   password.Hasher

	auditSink AuditSink
	logger    *slog.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies a Redis client. Unless overridden, it backs the token
// log and the denylist, and it is required by the "redis" throttle backend.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithProfileStore sets the required user store.
func (b *Builder) WithProfileStore(store ProfileStore) *Builder {
	b.profiles = store
	return b
}

// WithTokenLog sets the durable issuance and revocation log.
func (b *Builder) WithTokenLog(log TokenLog) *Builder {
	b.tokenLog = log
	return b
}

// WithDenylist sets the denylist used when Session.EnableDenylist is on.
func (b *Builder) WithDenylist(denylist Denylist) *Builder {
	b.denylist = denylist
	return b
}

// WithPasswordHasher sets the slow hash implementation. The default compares
// bcrypt and argon2id hashes.
func (b *Builder) WithPasswordHasher(h password.Hasher) *Builder {
	b.hasher = h
	return b
}

// WithAuditSink sets the audit destination. Audit must also be enabled in
// the configuration.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the server-side logger.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the engine's time source.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles in-process metrics.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the login and validate latency histograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
//
// Build fails when the profile store is missing, when the "redis" throttle
// backend is selected without a Redis client, or when the configuration is
// invalid.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.profiles == nil {
		return nil, errors.New("profile store required")
	}
	if cfg.Throttle.Backend == ThrottleBackendRedis && b.redis == nil {
		return nil, errors.New("redis throttle backend requires redis client")
	}

	logger := b.logger
	if logger == nil {
		logger = logging.Setup(logging.Options{
			Service: cfg.Logging.Service,
			Format:  cfg.Logging.Format,
			Level:   cfg.Logging.Level,
		}, os.Stderr)
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	hasher := b.hasher
	if hasher == nil {
		hasher = password.Dispatch(password.Bcrypt{})
	}

	// -------- TOKEN CODEC --------
	codec, err := token.NewCodec(cloneBytes(cfg.Token.Secret))
	if err != nil {
		return nil, err
	}

	// -------- DURABLE STORES --------
	log := b.tokenLog
	if log == nil {
		if b.redis != nil {
			log = redisstore.NewTokenLog(b.redis, cfg.Session.RedisPrefix)
		} else {
			logger.Warn("goSession: no token log configured, issuance records are kept in memory")
			log = memstore.NewTokenLog()
		}
	}

	var denylist Denylist
	if cfg.Session.EnableDenylist {
		denylist = b.denylist
		if denylist == nil {
			if b.redis != nil {
				denylist = redisstore.NewDenylist(b.redis, cfg.Session.RedisPrefix)
			} else {
				denylist = memstore.NewDenylist()
			}
		}
	}

	store := session.NewStore(codec, b.profiles, log, denylist, session.Config{
		MaxClockSkew: cfg.Session.MaxClockSkew,
	})

	// -------- THROTTLE --------
	var thr throttle.Throttle
	switch cfg.Throttle.Backend {
	case ThrottleBackendRedis:
		thr = throttle.NewRedis(b.redis, cfg.Session.RedisPrefix)
	default:
		thr = throttle.NewMemory()
	}

	// -------- METRICS / AUDIT --------
	m := metrics.New(metrics.Config{
		Enabled:                 cfg.Metrics.Enabled,
		EnableLatencyHistograms: cfg.Metrics.EnableLatencyHistograms,
	})

	var sink AuditSink = b.auditSink
	if sink == nil {
		sink = internalaudit.NewSlogSink(logger)
	}
	audit := internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		OnDrop: func(ev internalaudit.Event) {
			logger.Warn("goSession: audit event dropped", "event_type", ev.EventType)
		},
	}, sink)

	// -------- CREDENTIAL VERIFIER --------
	verifier, err := credential.New(hasher, credential.Config{
		MaxEntries: cfg.Verifier.CacheMaxEntries,
		TTL:        cfg.Verifier.CacheTTL,
		OnLookup: func(hit bool) {
			if hit {
				m.Inc(metrics.MetricVerifierCacheHit)
			} else {
				m.Inc(metrics.MetricVerifierCacheMiss)
			}
		},
	})
	if err != nil {
		audit.Close()
		return nil, err
	}

	dummyHash, err := newDummyHash(hasher)
	if err != nil {
		verifier.Close()
		audit.Close()
		return nil, err
	}

	engine := &Engine{
		config:    cloneConfig(cfg),
		store:     store,
		profiles:  b.profiles,
		throttle:  thr,
		verifier:  verifier,
		hasher:    hasher,
		dummyHash: dummyHash,
		audit:     audit,
		metrics:   m,
		logger:    logger,
		now:       now,
	}
	engine.flows = engine.buildFlows()

	b.built = true

	return engine, nil
}

// newDummyHash hashes a random value with h. Logins for unknown users compare
// against it so they cost the same as a wrong credential.
func newDummyHash(h password.Hasher) (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return h.Hash(hex.EncodeToString(raw))
}
