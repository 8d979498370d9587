package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	goSession "github.com/MrEthical07/goSession"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ctlConfig is the flat file and flag configuration. Keys match flag names.
type ctlConfig struct {
	Listen          string `koanf:"listen" yaml:"listen"`
	DatabaseURL     string `koanf:"database-url" yaml:"database-url"`
	RedisAddr       string `koanf:"redis-addr" yaml:"redis-addr"`
	RedisPrefix     string `koanf:"redis-prefix" yaml:"redis-prefix"`
	Secret          string `koanf:"secret" yaml:"secret"`
	ThrottleBackend string `koanf:"throttle-backend" yaml:"throttle-backend"`
	Denylist        bool   `koanf:"denylist" yaml:"denylist"`
	TrustRemoteAddr bool   `koanf:"trust-remote-addr" yaml:"trust-remote-addr"`
	Audit           bool   `koanf:"audit" yaml:"audit"`
	LogFormat       string `koanf:"log-format" yaml:"log-format"`
	LogLevel        string `koanf:"log-level" yaml:"log-level"`
	ConnectAttempts uint64 `koanf:"connect-attempts" yaml:"connect-attempts"`
}

// Default values for configuration flags.
const (
	defaultListen          = "127.0.0.1:8080"
	defaultConnectAttempts = 5
)

// Environment fallbacks for values that should not live in files.
const (
	envDatabaseURL = "DATABASE_URL"
	envSecret      = "GOSESSION_SECRET"
)

func addConfigFlags(fs *pflag.FlagSet) {
	defaults := goSession.DefaultConfig()

	fs.String("listen", defaultListen, "HTTP listen address")
	fs.String("database-url", "", "Postgres DSN (default: $DATABASE_URL)")
	fs.String("redis-addr", "", "Redis address for the denylist, token log stream and throttle")
	fs.String("redis-prefix", defaults.Session.RedisPrefix, "Redis key prefix")
	fs.String("secret", "", "hex token secret, at least 32 bytes (default: $GOSESSION_SECRET)")
	fs.String("throttle-backend", defaults.Throttle.Backend, "login throttle backend (memory or redis)")
	fs.Bool("denylist", defaults.Session.EnableDenylist, "revoke logged-out tokens immediately")
	fs.Bool("trust-remote-addr", false, "use the peer address when no proxy header is present")
	fs.Bool("audit", defaults.Audit.Enabled, "emit audit events to the log")
	fs.String("log-format", defaults.Logging.Format, "log format (json or text)")
	fs.String("log-level", defaults.Logging.Level, "log level")
	fs.Uint64("connect-attempts", defaultConnectAttempts, "retries when connecting to Postgres or Redis")
}

// loadConfig merges the YAML file at path with fs. Flags set explicitly win;
// unset flags only fill keys the file left out.
func loadConfig(path string, fs *pflag.FlagSet) (ctlConfig, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return ctlConfig{}, fmt.Errorf("load config file: %w", err)
		}
	}
	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return ctlConfig{}, fmt.Errorf("load flags: %w", err)
	}

	var cfg ctlConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return ctlConfig{}, fmt.Errorf("decode config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv(envDatabaseURL)
	}
	if cfg.Secret == "" {
		cfg.Secret = os.Getenv(envSecret)
	}
	return cfg, nil
}

func configFromCommand(cmd *cobra.Command) (ctlConfig, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return ctlConfig{}, err
	}
	return loadConfig(path, cmd.Flags())
}

// engineConfig translates cfg into a validated engine configuration.
func (cfg ctlConfig) engineConfig() (goSession.Config, error) {
	if cfg.Secret == "" {
		return goSession.Config{}, errors.New("secret is required (--secret or $" + envSecret + ")")
	}
	secret, err := hex.DecodeString(cfg.Secret)
	if err != nil {
		return goSession.Config{}, fmt.Errorf("secret must be hex: %w", err)
	}

	out := goSession.DefaultConfig()
	out.Token.Secret = secret
	out.Session.EnableDenylist = cfg.Denylist
	out.Session.RedisPrefix = cfg.RedisPrefix
	out.Throttle.Backend = cfg.ThrottleBackend
	out.Audit.Enabled = cfg.Audit
	out.Logging.Format = cfg.LogFormat
	out.Logging.Level = cfg.LogLevel
	out.Logging.Service = "gosessionctl"

	if err := out.Validate(); err != nil {
		return goSession.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return out, nil
}
