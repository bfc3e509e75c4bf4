package cache

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockintel/internal/config"
)

const (
	defaultResultTTL  = 5 * time.Minute
	purgeScanBatch    = 100
	redisPingDeadline = 5 * time.Second
)

// dialRedis connects with the URL when one is configured, host and port
// otherwise, and checks the server answers.
func dialRedis(cfg config.CacheConfig) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     net.JoinHostPort(orDefault(cfg.RedisHost, "127.0.0.1"), orDefault(cfg.RedisPort, "6379")),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	if cfg.RedisURL != "" {
		parsed, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = parsed
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingDeadline)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// purge deletes every result key matching pattern and returns how many were
// removed.
func (c *redisResultCache) purge(ctx context.Context, pattern string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, purgeScanBatch).Result()
		if err != nil {
			return deleted, fmt.Errorf("redis scan failed: %w", err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("redis delete failed: %w", err)
			}
			deleted += int(n)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	log.Debug().Str("pattern", pattern).Int("deleted", deleted).Msg("Purged cached results")
	return deleted, nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
