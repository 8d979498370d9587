package goSession

import (
	"time"

	"github.com/MrEthical07/goSession/internal/throttle"
	"github.com/MrEthical07/goSession/token"
)

// SecurityReport summarizes the security posture of a built engine. It never
// includes secret material.
type SecurityReport struct {
	TokenCipher          string
	TokenSecretBytes     int
	ElevatedLifetime     time.Duration
	StandardLifetime     time.Duration
	MaxClockSkew         time.Duration
	DenylistEnabled      bool
	ThrottleBackend      string
	ThrottleMaxFailures  int
	ThrottleWindow       time.Duration
	VerifierCacheEntries int64
	VerifierCacheTTL     time.Duration
	AuditEnabled         bool
	AuditDropIfFull      bool
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	return SecurityReport{
		TokenCipher:          "xchacha20-poly1305",
		TokenSecretBytes:     len(e.config.Token.Secret),
		ElevatedLifetime:     token.ElevatedLifetime,
		StandardLifetime:     token.StandardLifetime,
		MaxClockSkew:         e.config.Session.MaxClockSkew,
		DenylistEnabled:      e.config.Session.EnableDenylist,
		ThrottleBackend:      e.config.Throttle.Backend,
		ThrottleMaxFailures:  throttle.MaxFailures,
		ThrottleWindow:       throttle.Window,
		VerifierCacheEntries: e.config.Verifier.CacheMaxEntries,
		VerifierCacheTTL:     e.config.Verifier.CacheTTL,
		AuditEnabled:         e.config.Audit.Enabled,
		AuditDropIfFull:      e.config.Audit.DropIfFull,
	}
}
