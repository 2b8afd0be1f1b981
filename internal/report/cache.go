package report

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores raw report documents. Implementations must treat a miss as
// (nil, false, nil). Set records key under reportID so Invalidate can drop
// the copies cached for every token.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, reportID, key string, raw []byte) error
	Delete(ctx context.Context, key string) error
	Invalidate(ctx context.Context, reportID string) error
}

// Key scopes a cached report to the caller's token so one user never reads a
// document fetched with another user's credentials.
func Key(token, reportID string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf("report:%s:%s", hex.EncodeToString(sum[:8]), reportID)
}

func indexKey(reportID string) string {
	return "report-index:" + reportID
}

// NoopCache never stores anything.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (NoopCache) Set(context.Context, string, string, []byte) error { return nil }
func (NoopCache) Delete(context.Context, string) error              { return nil }
func (NoopCache) Invalidate(context.Context, string) error          { return nil }

// RedisCache keeps raw documents in redis with a fixed TTL.
type RedisCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisCache connects to redisURL and pings it.
func NewRedisCache(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCacheFromClient(client, ttl), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{redis: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get report cache: %w", err)
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, reportID, key string, raw []byte) error {
	idx := indexKey(reportID)
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, raw, c.ttl)
		pipe.SAdd(ctx, idx, key)
		pipe.Expire(ctx, idx, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set report cache: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.redis.Del(ctx, key).Err()
}

// Invalidate deletes every cached copy of reportID together with its index.
func (c *RedisCache) Invalidate(ctx context.Context, reportID string) error {
	idx := indexKey(reportID)
	keys, err := c.redis.SMembers(ctx, idx).Result()
	if err != nil {
		return fmt.Errorf("failed to read report cache index: %w", err)
	}
	return c.redis.Del(ctx, append(keys, idx)...).Err()
}

// Close releases the redis connection pool.
func (c *RedisCache) Close() error {
	return c.redis.Close()
}
