package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/httpapi"
	"github.com/MrEthical07/goSession/internal/logging"
	promexport "github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/MrEthical07/goSession/pgstore"
	"github.com/MrEthical07/goSession/redisstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 10 * time.Second
	healthTimeout   = 2 * time.Second
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the session HTTP API",
		Long: `Serve /auth/login, /auth/check, /auth/logout and /auth/@me backed by Postgres,
with Prometheus metrics on /metrics. With --redis-addr, Redis holds the
denylist and can back the login throttle.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFromCommand(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
}

func newLogger(cfg ctlConfig) *slog.Logger {
	return logging.Setup(logging.Options{
		Service: "gosessionctl",
		Version: version,
		Format:  cfg.LogFormat,
		Level:   cfg.LogLevel,
	}, os.Stderr)
}

func runServe(ctx context.Context, cfg ctlConfig) error {
	engineCfg, err := cfg.engineConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	pool, err := connectPostgres(ctx, logger, cfg.DatabaseURL, cfg.ConnectAttempts)
	if err != nil {
		return err
	}
	defer pool.Close()

	builder := goSession.New().
		WithConfig(engineCfg).
		WithProfileStore(pgstore.NewProfiles(pool)).
		WithTokenLog(pgstore.NewTokenLog(pool)).
		WithLogger(logger)

	var health pinger
	if cfg.RedisAddr != "" {
		rdb, err := connectRedis(ctx, logger, cfg.RedisAddr, cfg.ConnectAttempts)
		if err != nil {
			return err
		}
		defer rdb.Close()
		deny := redisstore.NewDenylist(rdb, engineCfg.Session.RedisPrefix)
		builder = builder.WithRedis(rdb).WithDenylist(deny)
		health = deny
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           newServeMux(engine, cfg, logger, health),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// pinger is the Redis round trip checked by /healthz.
type pinger interface {
	Ping(ctx context.Context) (time.Duration, error)
}

func newServeMux(engine *goSession.Engine, cfg ctlConfig, logger *slog.Logger, health pinger) *http.ServeMux {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		promexport.NewCollector(engine),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux := http.NewServeMux()
	httpapi.New(engine, httpapi.Options{
		Logger:          logger,
		TrustRemoteAddr: cfg.TrustRemoteAddr,
	}).Register(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("GET /healthz", healthHandler(health, logger))
	return mux
}

// healthHandler answers 204, or 503 when health is set and Redis does not
// answer within healthTimeout.
func healthHandler(health pinger, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			rtt, err := health.Ping(ctx)
			if err != nil {
				logger.WarnContext(r.Context(), "health check failed", "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Header().Set("X-Redis-RTT", rtt.String())
		}
		w.WriteHeader(http.StatusNoContent)
	})
}
