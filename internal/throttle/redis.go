package throttle

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const recordFailureScript = `
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local start = redis.call("HGET", KEYS[1], "start")
if (not start) or (now - tonumber(start) > window) then
  redis.call("HSET", KEYS[1], "count", "1", "start", ARGV[1])
else
  redis.call("HINCRBY", KEYS[1], "count", 1)
end
redis.call("PEXPIRE", KEYS[1], ARGV[2])
return 1
`

var recordFailureLua = redis.NewScript(recordFailureScript)

// Redis is a [Throttle] shared by every process using the same Redis.
type Redis struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedis returns a Redis-backed throttle. Keys are "<prefix>:thr:<clientID>".
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{redis: client, prefix: prefix}
}

func (r *Redis) key(clientID string) string {
	if r.prefix == "" {
		return "thr:" + clientID
	}
	return r.prefix + ":thr:" + clientID
}

// Check reads the client's counter and applies the lockout rule.
func (r *Redis) Check(ctx context.Context, clientID string, now time.Time) (Decision, error) {
	vals, err := r.redis.HMGet(ctx, r.key(clientID), "count", "start").Result()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return Decision{Allowed: true}, nil
	}

	count, err := parseInt(vals[0])
	if err != nil {
		return Decision{}, fmt.Errorf("%w: count: %v", ErrBackendUnavailable, err)
	}
	startMS, err := parseInt(vals[1])
	if err != nil {
		return Decision{}, fmt.Errorf("%w: start: %v", ErrBackendUnavailable, err)
	}

	return decide(count, time.UnixMilli(startMS), now), nil
}

// RecordFailure counts one failed attempt atomically.
func (r *Redis) RecordFailure(ctx context.Context, clientID string, now time.Time) error {
	err := recordFailureLua.Run(ctx, r.redis, []string{r.key(clientID)}, now.UnixMilli(), Window.Milliseconds()).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func parseInt(v interface{}) (int64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected type %T", v)
	}
	return strconv.ParseInt(s, 10, 64)
}
