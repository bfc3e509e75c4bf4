// Package cache memoizes computation results keyed by SKU and an input
// fingerprint. The inventory core never sees it; the service wraps calls.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/stockintel/internal/config"
	"github.com/andresuchdata/stockintel/pkg/metrics"
)

// Kind namespaces cached results per computation.
type Kind string

const (
	KindForecast Kind = "forecast"
	KindBacktest Kind = "backtest"
)

type ResultCache interface {
	// Get decodes the cached value for (kind, sku, input) into dst.
	Get(ctx context.Context, kind Kind, sku string, input any, dst any) (bool, error)
	Set(ctx context.Context, kind Kind, sku string, input any, value any) error
	// InvalidateSKU drops every cached result of kind for sku.
	InvalidateSKU(ctx context.Context, kind Kind, sku string) error
	InvalidateAll(ctx context.Context) error
}

type redisResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopResultCache struct{}

func NewResultCache(cfg config.CacheConfig) (ResultCache, error) {
	if !cfg.Enabled {
		return &noopResultCache{}, nil
	}

	client, err := dialRedis(cfg)
	if err != nil {
		return nil, err
	}

	return NewRedisResultCache(client, cfg.ResultTTL()), nil
}

// NewRedisResultCache wraps an existing client.
func NewRedisResultCache(client *redis.Client, ttl time.Duration) ResultCache {
	if ttl <= 0 {
		ttl = defaultResultTTL
	}
	return &redisResultCache{client: client, ttl: ttl}
}

func NewNoopResultCache() ResultCache {
	return &noopResultCache{}
}

func (c *redisResultCache) Get(ctx context.Context, kind Kind, sku string, input any, dst any) (bool, error) {
	key, err := BuildKey(kind, sku, input)
	if err != nil {
		return false, err
	}

	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()
		return false, nil
	}
	if err != nil {
		metrics.CacheRequestsTotal.WithLabelValues("error").Inc()
		return false, fmt.Errorf("redis get failed: %w", err)
	}

	if err := json.Unmarshal(payload, dst); err != nil {
		metrics.CacheRequestsTotal.WithLabelValues("error").Inc()
		return false, fmt.Errorf("decode %s cache: %w", kind, err)
	}

	metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
	return true, nil
}

func (c *redisResultCache) Set(ctx context.Context, kind Kind, sku string, input any, value any) error {
	key, err := BuildKey(kind, sku, input)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s cache: %w", kind, err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisResultCache) InvalidateSKU(ctx context.Context, kind Kind, sku string) error {
	_, err := c.purge(ctx, skuPattern(kind, sku))
	return err
}

func (c *redisResultCache) InvalidateAll(ctx context.Context) error {
	_, err := c.purge(ctx, allResultsPattern())
	return err
}

func (n *noopResultCache) Get(ctx context.Context, kind Kind, sku string, input any, dst any) (bool, error) {
	return false, nil
}

func (n *noopResultCache) Set(ctx context.Context, kind Kind, sku string, input any, value any) error {
	return nil
}

func (n *noopResultCache) InvalidateSKU(ctx context.Context, kind Kind, sku string) error {
	return nil
}

func (n *noopResultCache) InvalidateAll(ctx context.Context) error {
	return nil
}
