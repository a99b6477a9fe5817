// Package cache holds the Redis-backed cache of the global crypto market
// snapshot. Derived liquidity metrics are always recomputed and never cached.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"liquidity-monitor/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	globalMarketKey = "liquidity:global-market"

	// DefaultGlobalTTL bounds how stale the cached /global snapshot may get.
	DefaultGlobalTTL = time.Hour
)

var (
	newRedisClient = func(opts *redis.Options) *redis.Client {
		return redis.NewClient(opts)
	}
	pingRedis = func(ctx context.Context, client *redis.Client) error {
		return client.Ping(ctx).Err()
	}
	parseRedisURL = redis.ParseURL
)

// InitRedis connects to addr, which may be host:port or a redis:// URL. An
// empty addr disables the cache and returns a nil client.
func InitRedis(ctx context.Context, addr string) (*redis.Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, nil
	}

	opts := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := parseRedisURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		opts = parsed
	}

	client := newRedisClient(opts)
	if err := pingRedis(ctx, client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// RedisClient is the subset of *redis.Client the cache uses.
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// GlobalMarketCache stores the latest /global snapshot.
type GlobalMarketCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewGlobalMarketCache(client RedisClient, ttl time.Duration) *GlobalMarketCache {
	if ttl <= 0 {
		ttl = DefaultGlobalTTL
	}
	return &GlobalMarketCache{client: client, ttl: ttl}
}

// Get returns the cached snapshot, or nil on a miss.
func (c *GlobalMarketCache) Get(ctx context.Context) (*domain.GlobalMarket, error) {
	raw, err := c.client.Get(ctx, globalMarketKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read global market cache: %w", err)
	}

	var gm domain.GlobalMarket
	if err := json.Unmarshal(raw, &gm); err != nil {
		return nil, fmt.Errorf("decode global market cache: %w", err)
	}
	return &gm, nil
}

// Set caches gm. A nil snapshot is ignored.
func (c *GlobalMarketCache) Set(ctx context.Context, gm *domain.GlobalMarket) error {
	if gm == nil {
		return nil
	}
	data, err := json.Marshal(gm)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, globalMarketKey, data, c.ttl).Err()
}
