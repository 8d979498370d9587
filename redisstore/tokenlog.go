package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession/session"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps Redis command failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrCorruptRecord is returned when a stream entry cannot be decoded.
var ErrCorruptRecord = errors.New("corrupt token log record")

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "gs"

// TokenLog appends issuance and revocation records to Redis streams.
type TokenLog struct {
	redis  redis.UniversalClient
	prefix string
}

// NewTokenLog returns a stream-backed [session.TokenLog]. An empty prefix
// selects [DefaultPrefix].
func NewTokenLog(client redis.UniversalClient, prefix string) *TokenLog {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &TokenLog{redis: client, prefix: prefix}
}

func (l *TokenLog) issuanceKey() string   { return l.prefix + ":log:issuance" }
func (l *TokenLog) revocationKey() string { return l.prefix + ":log:revocation" }

func (l *TokenLog) AppendIssuance(ctx context.Context, rec session.IssuanceRecord) error {
	return l.append(ctx, l.issuanceKey(), rec.UserID, rec)
}

func (l *TokenLog) AppendRevocation(ctx context.Context, rec session.RevocationRecord) error {
	return l.append(ctx, l.revocationKey(), rec.UserID, rec)
}

// RecentIssuances returns up to limit issuance records, newest first.
func (l *TokenLog) RecentIssuances(ctx context.Context, limit int64) ([]session.IssuanceRecord, error) {
	msgs, err := l.redis.XRevRangeN(ctx, l.issuanceKey(), "+", "-", limit).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	out := make([]session.IssuanceRecord, 0, len(msgs))
	for _, msg := range msgs {
		var rec session.IssuanceRecord
		if err := decodeEntry(msg, &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// RecentRevocations returns up to limit revocation records, newest first.
func (l *TokenLog) RecentRevocations(ctx context.Context, limit int64) ([]session.RevocationRecord, error) {
	msgs, err := l.redis.XRevRangeN(ctx, l.revocationKey(), "+", "-", limit).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	out := make([]session.RevocationRecord, 0, len(msgs))
	for _, msg := range msgs {
		var rec session.RevocationRecord
		if err := decodeEntry(msg, &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (l *TokenLog) append(ctx context.Context, stream string, userID int64, rec any) error {
	payload, err := marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	err = l.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"uid": userID,
			"rec": payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func decodeEntry(msg redis.XMessage, out any) error {
	raw, ok := msg.Values["rec"].(string)
	if !ok {
		return fmt.Errorf("%w: entry %s has no payload", ErrCorruptRecord, msg.ID)
	}
	if err := unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%w: entry %s: %v", ErrCorruptRecord, msg.ID, err)
	}
	return nil
}
