package main

import (
	"io"
	"log/slog"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/logging"
	"github.com/MrEthical07/goSession/internal/memstore"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type securityView struct {
	TokenCipher          string `yaml:"token-cipher"`
	TokenSecretBytes     int    `yaml:"token-secret-bytes"`
	ElevatedLifetime     string `yaml:"elevated-lifetime"`
	StandardLifetime     string `yaml:"standard-lifetime"`
	MaxClockSkew         string `yaml:"max-clock-skew"`
	DenylistEnabled      bool   `yaml:"denylist"`
	ThrottleBackend      string `yaml:"throttle-backend"`
	ThrottleMaxFailures  int    `yaml:"throttle-max-failures"`
	ThrottleWindow       string `yaml:"throttle-window"`
	VerifierCacheEntries int64  `yaml:"verifier-cache-entries"`
	VerifierCacheTTL     string `yaml:"verifier-cache-ttl"`
	AuditEnabled         bool   `yaml:"audit"`
	AuditDropIfFull      bool   `yaml:"audit-drop-if-full"`
}

type inspectView struct {
	Config   ctlConfig     `yaml:"config"`
	Security *securityView `yaml:"security,omitempty"`
	Error    string        `yaml:"error,omitempty"`
}

// NewInspectCmd creates the inspect subcommand.
func NewInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print the effective configuration and security posture",
		Long: `Print the merged file and flag configuration as YAML, with secrets redacted,
followed by the security report of an engine built from it. Nothing is
contacted; stores are replaced by in-memory stand-ins.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFromCommand(cmd)
			if err != nil {
				return err
			}
			return writeInspect(cmd.OutOrStdout(), cfg)
		},
	}
}

func writeInspect(w io.Writer, cfg ctlConfig) error {
	view := inspectView{Config: redacted(cfg)}

	report, err := offlineReport(cfg)
	if err != nil {
		view.Error = err.Error()
	} else {
		view.Security = &report
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(view); err != nil {
		return err
	}
	return enc.Close()
}

func redacted(cfg ctlConfig) ctlConfig {
	if cfg.Secret != "" {
		cfg.Secret = logging.Redacted
	}
	if cfg.DatabaseURL != "" {
		cfg.DatabaseURL = logging.Redacted
	}
	return cfg
}

func offlineReport(cfg ctlConfig) (securityView, error) {
	engineCfg, err := cfg.engineConfig()
	if err != nil {
		return securityView{}, err
	}
	// The report only reflects configuration, so the redis backend is
	// inspected as memory.
	backend := engineCfg.Throttle.Backend
	engineCfg.Throttle.Backend = goSession.ThrottleBackendMemory

	engine, err := goSession.New().
		WithConfig(engineCfg).
		WithProfileStore(memstore.NewProfiles()).
		WithTokenLog(memstore.NewTokenLog()).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		return securityView{}, err
	}
	defer engine.Close()

	r := engine.SecurityReport()
	return securityView{
		TokenCipher:          r.TokenCipher,
		TokenSecretBytes:     r.TokenSecretBytes,
		ElevatedLifetime:     r.ElevatedLifetime.String(),
		StandardLifetime:     r.StandardLifetime.String(),
		MaxClockSkew:         r.MaxClockSkew.String(),
		DenylistEnabled:      r.DenylistEnabled,
		ThrottleBackend:      backend,
		ThrottleMaxFailures:  r.ThrottleMaxFailures,
		ThrottleWindow:       r.ThrottleWindow.String(),
		VerifierCacheEntries: r.VerifierCacheEntries,
		VerifierCacheTTL:     r.VerifierCacheTTL.String(),
		AuditEnabled:         r.AuditEnabled,
		AuditDropIfFull:      r.AuditDropIfFull,
	}, nil
}
