package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockintel/internal/config"
)

type forecastInput struct {
	History []float64 `json:"history"`
	Periods int       `json:"periods"`
}

type forecastOutput struct {
	Values []float64 `json:"values"`
	Method string    `json:"method"`
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, ResultCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisResultCache(client, time.Minute)
}

func TestRedisResultCache_RoundTrip(t *testing.T) {
	mr, c := setupRedis(t)
	ctx := context.Background()
	in := forecastInput{History: []float64{1, 2, 3}, Periods: 2}

	var out forecastOutput
	hit, err := c.Get(ctx, KindForecast, "SKU-1", in, &out)
	require.NoError(t, err)
	assert.False(t, hit)

	want := forecastOutput{Values: []float64{3, 3}, Method: "sma"}
	require.NoError(t, c.Set(ctx, KindForecast, "SKU-1", in, want))

	hit, err = c.Get(ctx, KindForecast, "SKU-1", in, &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, want, out)

	key, err := BuildKey(KindForecast, "SKU-1", in)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL(key))

	mr.FastForward(2 * time.Minute)
	hit, err = c.Get(ctx, KindForecast, "SKU-1", in, &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisResultCache_DifferentInputsDoNotCollide(t *testing.T) {
	_, c := setupRedis(t)
	ctx := context.Background()

	a := forecastInput{History: []float64{1, 2, 3}, Periods: 2}
	b := forecastInput{History: []float64{1, 2, 3}, Periods: 3}
	require.NoError(t, c.Set(ctx, KindForecast, "SKU-1", a, forecastOutput{Method: "a"}))

	var out forecastOutput
	hit, err := c.Get(ctx, KindForecast, "SKU-1", b, &out)
	require.NoError(t, err)
	assert.False(t, hit)

	hit, err = c.Get(ctx, KindBacktest, "SKU-1", a, &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisResultCache_Invalidate(t *testing.T) {
	mr, c := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, KindForecast, "SKU-1", 1, "x"))
	require.NoError(t, c.Set(ctx, KindForecast, "SKU-1", 2, "y"))
	require.NoError(t, c.Set(ctx, KindForecast, "SKU-2", 1, "z"))
	require.NoError(t, c.Set(ctx, KindBacktest, "SKU-1", 1, "w"))

	require.NoError(t, c.InvalidateSKU(ctx, KindForecast, "SKU-1"))
	assert.Len(t, mr.Keys(), 2)

	require.NoError(t, c.InvalidateAll(ctx))
	assert.Empty(t, mr.Keys())
}

func TestRedisResultCache_InvalidateIsolatesLookalikeSKUs(t *testing.T) {
	mr, c := setupRedis(t)
	ctx := context.Background()

	for _, sku := range []string{"a", "a:b", "a*", "[a]", "b?"} {
		require.NoError(t, c.Set(ctx, KindForecast, sku, 1, sku))
	}

	require.NoError(t, c.InvalidateSKU(ctx, KindForecast, "a"))
	assert.Len(t, mr.Keys(), 4)

	require.NoError(t, c.InvalidateSKU(ctx, KindForecast, "*"))
	assert.Len(t, mr.Keys(), 4)

	var out string
	hit, err := c.Get(ctx, KindForecast, "a:b", 1, &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "a:b", out)

	require.NoError(t, c.InvalidateSKU(ctx, KindForecast, "a*"))
	hit, err = c.Get(ctx, KindForecast, "a*", 1, &out)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, mr.Keys(), 3)
}

func TestBuildKey_NormalizesSKU(t *testing.T) {
	a, err := BuildKey(KindBacktest, " SKU-1 ", 7)
	require.NoError(t, err)
	b, err := BuildKey(KindBacktest, "sku-1", 7)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotContains(t, a, "sku-1")
}

func TestNewResultCache_DisabledIsNoop(t *testing.T) {
	c, err := NewResultCache(config.CacheConfig{Enabled: false})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, KindForecast, "SKU", 1, "v"))
	var out string
	hit, err := c.Get(ctx, KindForecast, "SKU", 1, &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestNewResultCache_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := NewResultCache(config.CacheConfig{Enabled: true, RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	_, ok := c.(*redisResultCache)
	assert.True(t, ok)

	_, err = NewResultCache(config.CacheConfig{Enabled: true, RedisURL: "::bad::"})
	assert.Error(t, err)
}

func TestFingerprintStable(t *testing.T) {
	a, err := Fingerprint(map[string]int{"b": 2, "a": 1})
	require.NoError(t, err)
	b, err := Fingerprint(map[string]int{"a": 1, "b": 2})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 40)
}
