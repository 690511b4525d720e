package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventrack-api/internal/application/inventory"
	"github.com/jhoicas/inventrack-api/internal/infrastructure/cache"
	"github.com/jhoicas/inventrack-api/pkg/config"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "inventrack:stock:42", cache.Key(42))
	assert.Equal(t, "inventrack:stock-gen:42", cache.GenerationKey(42))
}

func newMiniCache(t *testing.T) (*cache.RedisStockCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewRedisStockCache(client, time.Minute, nil), mr
}

func TestRedisStockCache_SetGetInvalidate(t *testing.T) {
	c, mr := newMiniCache(t)
	ctx := context.Background()

	gen, err := c.Generation(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	require.NoError(t, c.Set(ctx, &inventory.StockSummary{ProductID: 1, Total: 7}, gen))
	got, ok := c.Get(ctx, 1)
	require.True(t, ok)
	assert.Equal(t, int64(7), got.Total)
	assert.Equal(t, time.Minute, mr.TTL(cache.Key(1)))

	require.NoError(t, c.Invalidate(ctx, 1))
	_, ok = c.Get(ctx, 1)
	assert.False(t, ok)
	gen, err = c.Generation(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
}

// Un resumen calculado antes de una invalidación no llega a la caché.
func TestRedisStockCache_SetSkipsStaleGeneration(t *testing.T) {
	c, _ := newMiniCache(t)
	ctx := context.Background()

	before, err := c.Generation(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx, 1))

	require.NoError(t, c.Set(ctx, &inventory.StockSummary{ProductID: 1, Total: 10}, before))
	_, ok := c.Get(ctx, 1)
	assert.False(t, ok, "el resumen viejo no debe guardarse")

	current, err := c.Generation(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, &inventory.StockSummary{ProductID: 1, Total: 3}, current))
	got, ok := c.Get(ctx, 1)
	require.True(t, ok)
	assert.Equal(t, int64(3), got.Total)

	// Otro producto tiene su propia generación.
	other, err := c.Generation(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(0), other)
}

func TestRedisStockCache_CorruptEntryIsMiss(t *testing.T) {
	c, mr := newMiniCache(t)
	require.NoError(t, mr.Set(cache.Key(5), "{no-json"))
	_, ok := c.Get(context.Background(), 5)
	assert.False(t, ok)
}

// unreachableClient apunta a un puerto cerrado: todas las operaciones fallan rápido.
func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestRedisStockCache_DegradesWhenRedisIsDown(t *testing.T) {
	client := unreachableClient()
	defer client.Close()
	c := cache.NewRedisStockCache(client, time.Second, nil)
	ctx := context.Background()

	s, ok := c.Get(ctx, 1)
	assert.False(t, ok)
	assert.Nil(t, s)

	_, err := c.Generation(ctx, 1)
	assert.Error(t, err)
	assert.Error(t, c.Set(ctx, &inventory.StockSummary{ProductID: 1, Total: 3}, 0))
	assert.Error(t, c.Invalidate(ctx, 1))
}

func TestNewClient_PingFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := cache.NewClient(ctx, config.RedisConfig{Addr: "127.0.0.1:1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping")
}
