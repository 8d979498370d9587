package goSession

import (
	"errors"
	"time"

	"github.com/MrEthical07/goSession/token"
)

// Config defines the engine's tunables. Build clones it, so later mutation by
// the caller has no effect on a running engine.
type Config struct {
	Token    TokenConfig
	Verifier VerifierConfig
	Session  SessionConfig
	Throttle ThrottleConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	Logging  LoggingConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig holds the server secret that seals every token. Changing it
// invalidates all outstanding tokens.
type TokenConfig struct {
	Secret []byte
}

/*
====================================
VERIFIER CONFIG
====================================
*/

// VerifierConfig sizes the cache of successful slow-hash comparisons.
type VerifierConfig struct {
	CacheMaxEntries int64
	// CacheTTL bounds how long a remembered verification is trusted. Zero keeps
	// entries until evicted.
	CacheTTL time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls token validation and revocation.
type SessionConfig struct {
	// EnableDenylist makes Logout effective immediately. Without it a
	// logged-out token stays valid until expiry or a password change.
	EnableDenylist bool
	MaxClockSkew   time.Duration
	// RedisPrefix namespaces every key written by the Redis-backed stores.
	RedisPrefix string
}

/*
====================================
THROTTLE CONFIG
====================================
*/

// ThrottleConfig selects the login throttle backend.
type ThrottleConfig struct {
	// Backend is "memory" or "redis". "redis" requires [Builder.WithRedis].
	Backend string
}

/*
====================================
AUDIT / METRICS / LOGGING
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// LoggingConfig is used when the builder creates its own logger.
type LoggingConfig struct {
	Service string
	Format  string // "json" (default) or "text"
	Level   string
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the defaults with no secret set.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Verifier: VerifierConfig{
			CacheMaxEntries: 100_000,
			CacheTTL:        24 * time.Hour,
		},
		Session: SessionConfig{
			EnableDenylist: true,
			MaxClockSkew:   30 * time.Second,
			RedisPrefix:    "gs",
		},
		Throttle: ThrottleConfig{
			Backend: ThrottleBackendMemory,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		Logging: LoggingConfig{
			Service: "gosession",
			Format:  "json",
			Level:   "info",
		},
	}
}

// Throttle backends.
const (
	ThrottleBackendMemory = "memory"
	ThrottleBackendRedis  = "redis"
)

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Token
	if len(c.Token.Secret) == 0 {
		return errors.New("Token Secret is required")
	}
	if len(c.Token.Secret) < token.MinSecretLength {
		return errors.New("Token Secret must be at least 32 bytes")
	}

	// Verifier
	if c.Verifier.CacheMaxEntries <= 0 {
		return errors.New("Verifier CacheMaxEntries must be > 0")
	}
	if c.Verifier.CacheTTL < 0 {
		return errors.New("Verifier CacheTTL must be >= 0")
	}

	// Session
	if c.Session.MaxClockSkew <= 0 {
		return errors.New("Session MaxClockSkew must be > 0")
	}
	if c.Session.MaxClockSkew > 5*time.Minute {
		return errors.New("Session MaxClockSkew must be <= 5m")
	}
	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}

	// Throttle
	switch c.Throttle.Backend {
	case ThrottleBackendMemory, ThrottleBackendRedis:
	default:
		return errors.New("Throttle Backend must be 'memory' or 'redis'")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Logging
	switch c.Logging.Format {
	case "", "json", "text":
	default:
		return errors.New("Logging Format must be 'json' or 'text'")
	}

	return nil
}
