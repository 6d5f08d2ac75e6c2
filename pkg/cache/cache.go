// Package cache keeps the most recent ProcessedSample per symbol in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-alerts/pkg/config"
	"github.com/shubham-shewale/stock-alerts/pkg/models"
)

const keyPrefix = "stock:latest:"

// RedisClient is the subset of go-redis the cache needs
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

func Key(symbol string) string {
	return keyPrefix + symbol
}

// LatestCache is a last-writer-wins store of the newest value per symbol.
// Entries expire after their TTL; a missing entry only degrades analytics.
type LatestCache struct {
	rdb    RedisClient
	logger *zap.Logger
}

func NewLatestCache(rdb RedisClient, logger *zap.Logger) *LatestCache {
	return &LatestCache{rdb: rdb, logger: logger}
}

func (c *LatestCache) Set(ctx context.Context, symbol string, value models.ProcessedSample, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal latest %s: %w", symbol, err)
	}
	if err := c.rdb.Set(ctx, Key(symbol), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", symbol, err)
	}
	return nil
}

// Get returns nil when the symbol has no live entry.
func (c *LatestCache) Get(ctx context.Context, symbol string) (*models.ProcessedSample, error) {
	raw, err := c.rdb.Get(ctx, Key(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", symbol, err)
	}
	var v models.ProcessedSample
	if err := json.Unmarshal(raw, &v); err != nil {
		// A corrupt entry is no better than an absent one.
		c.logger.Warn("Discarding unreadable cache entry", zap.String("symbol", symbol), zap.Error(err))
		return nil, nil
	}
	return &v, nil
}

// GetMany returns the live entries for symbols; absent symbols are omitted.
func (c *LatestCache) GetMany(ctx context.Context, symbols []string) (map[string]models.ProcessedSample, error) {
	out := make(map[string]models.ProcessedSample, len(symbols))
	if len(symbols) == 0 {
		return out, nil
	}
	keys := make([]string, len(symbols))
	for i, s := range symbols {
		keys[i] = Key(s)
	}
	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var ps models.ProcessedSample
		if err := json.Unmarshal([]byte(s), &ps); err != nil {
			c.logger.Warn("Discarding unreadable cache entry", zap.String("symbol", symbols[i]), zap.Error(err))
			continue
		}
		out[symbols[i]] = ps
	}
	return out, nil
}

func (c *LatestCache) Delete(ctx context.Context, symbol string) error {
	if err := c.rdb.Del(ctx, Key(symbol)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", symbol, err)
	}
	return nil
}

func (c *LatestCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// NewClient builds a Redis client without contacting the server.
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Connect opens a Redis client and waits for it to answer PING.
func Connect(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	rdb := NewClient(cfg)

	b := retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis not ready", zap.String("addr", cfg.Addr), zap.Error(err))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}
