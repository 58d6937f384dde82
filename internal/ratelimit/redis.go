package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"membership-service/internal/config"
	"membership-service/internal/util"
)

const redisKeyPrefix = "ratelimit:"

// takeScript meters a fixed window atomically. Denied requests do not
// increment the counter, matching the in-memory ledger.
const takeScript = `
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current >= tonumber(ARGV[1]) then
    return 0
end
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 1
`

// RedisLedger shares one fixed-window budget across process instances.
// Used when REDIS_URL is configured; single-instance deployments run on
// the in-memory ledger instead.
type RedisLedger struct {
	client *redis.Client
}

func NewRedisLedger(cfg *config.Config, logger *zap.Logger) (*RedisLedger, error) {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	util.Info("Redis rate-limit ledger initialized", zap.String("url", cfg.Redis.URL))
	return &RedisLedger{client: client}, nil
}

func (r *RedisLedger) Take(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	result, err := r.client.Eval(ctx, takeScript,
		[]string{redisKeyPrefix + key}, limit, window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to take from rate limit window: %w", err)
	}
	return result == 1, nil
}

func (r *RedisLedger) Reset(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to reset rate limit window: %w", err)
	}
	return nil
}

func (r *RedisLedger) HealthCheck(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisLedger) Close() error {
	if r.client != nil {
		if err := r.client.Close(); err != nil {
			util.Error("failed to close Redis ledger", zap.Error(err))
			return err
		}
		util.Info("Redis ledger closed")
	}
	return nil
}
