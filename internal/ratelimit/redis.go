package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	redisclient "github.com/openclaw/wallet-relay-go/internal/redis"
)

// checkScript implements the fixed window atomically: the first hit in a
// window sets the expiry, later hits only increment.
var checkScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
return {current, ttl}
`)

// Redis is a fixed-window limiter sharing its budget across relay
// instances. On Redis failure it denies: admission fails closed.
type Redis struct {
	client *redisclient.Client
	window time.Duration
	max    int
}

func NewRedis(client *redisclient.Client, window time.Duration, max int) *Redis {
	return &Redis{client: client, window: window, max: max}
}

func (r *Redis) key(key string) string {
	return redisclient.Key("ratelimit", "session", key)
}

func (r *Redis) Check(ctx context.Context, key string) bool {
	result, err := checkScript.Run(ctx, r.client.Client, []string{r.key(key)}, r.window.Milliseconds()).Int64Slice()
	if err != nil || len(result) != 2 {
		log.Warn().Err(err).Str("key", key).Msg("rate limit check failed, denying request")
		return false
	}
	return result[0] <= int64(r.max)
}

func (r *Redis) Info(ctx context.Context, key string) (int, time.Time) {
	now := time.Now()

	pipe := r.client.Pipeline()
	getCmd := pipe.Get(ctx, r.key(key))
	ttlCmd := pipe.PTTL(ctx, r.key(key))
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		log.Warn().Err(err).Str("key", key).Msg("rate limit info failed")
		return 0, now.Add(r.window)
	}

	count, err := getCmd.Int()
	if err != nil {
		return r.max, now.Add(r.window)
	}
	ttl := ttlCmd.Val()
	if ttl <= 0 {
		return r.max, now.Add(r.window)
	}

	remaining := r.max - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, now.Add(ttl)
}
