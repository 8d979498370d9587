package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist stores revoked fingerprints as keys that expire together with the
// token, so Redis prunes them without a sweeper.
type Denylist struct {
	redis  redis.UniversalClient
	prefix string
}

// NewDenylist returns a Redis [session.Denylist]. An empty prefix selects
// [DefaultPrefix].
func NewDenylist(client redis.UniversalClient, prefix string) *Denylist {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Denylist{redis: client, prefix: prefix}
}

func (d *Denylist) key(fingerprint string) string {
	return d.prefix + ":deny:" + fingerprint
}

// Add denies fingerprint until expiresAt. Tokens already expired at now are
// skipped; validation rejects them anyway.
func (d *Denylist) Add(ctx context.Context, fingerprint string, expiresAt, now time.Time) error {
	ttl := expiresAt.Sub(now)
	if ttl <= 0 {
		return nil
	}
	if ttl < time.Second {
		ttl = time.Second
	}

	if err := d.redis.Set(ctx, d.key(fingerprint), expiresAt.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Contains reports whether fingerprint is denied.
func (d *Denylist) Contains(ctx context.Context, fingerprint string) (bool, error) {
	n, err := d.redis.Exists(ctx, d.key(fingerprint)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n == 1, nil
}

// Ping measures a round trip to Redis.
func (d *Denylist) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := d.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
