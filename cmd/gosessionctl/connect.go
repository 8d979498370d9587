package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/goSession/pgstore"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

const connectBackoffBase = 250 * time.Millisecond

func connectBackoff(attempts uint64) retry.Backoff {
	return retry.WithMaxRetries(attempts, retry.NewExponential(connectBackoffBase))
}

// connectPostgres opens a pool, retrying while the database is unreachable.
func connectPostgres(ctx context.Context, logger *slog.Logger, dsn string, attempts uint64) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database-url is required (--database-url or $%s)", envDatabaseURL)
	}

	var pool *pgxpool.Pool
	err := retry.Do(ctx, connectBackoff(attempts), func(ctx context.Context) error {
		p, err := pgstore.Open(ctx, dsn)
		if err != nil {
			logger.WarnContext(ctx, "postgres not ready", "error", err)
			return retry.RetryableError(err)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return pool, nil
}

// connectRedis returns a client once PING succeeds.
func connectRedis(ctx context.Context, logger *slog.Logger, addr string, attempts uint64) (redis.UniversalClient, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})

	err := retry.Do(ctx, connectBackoff(attempts), func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			logger.WarnContext(ctx, "redis not ready", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}
