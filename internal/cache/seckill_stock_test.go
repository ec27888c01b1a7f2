package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return server, client
}

func TestSeckillStockDecrSentinel(t *testing.T) {
	_, client := newTestRedis(t)
	stock := NewSeckillStockCache(client, "test")
	ctx := context.Background()

	require.NoError(t, stock.Load(ctx, 1, 2, time.Minute))

	remaining, err := stock.Decr(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), remaining)

	remaining, err = stock.Decr(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), remaining, "zero means just sold out, not insufficient")

	_, err = stock.Decr(ctx, 1, 1)
	assert.True(t, errors.Is(err, ErrSeckillStockInsufficient))

	value, found, err := stock.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(0), value)
}

func TestSeckillStockMissingKey(t *testing.T) {
	_, client := newTestRedis(t)
	stock := NewSeckillStockCache(client, "test")
	ctx := context.Background()

	_, found, err := stock.Get(ctx, 9)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = stock.Decr(ctx, 9, 1)
	assert.ErrorIs(t, err, ErrSeckillStockInsufficient)

	restored, err := stock.Incr(ctx, 9, 1)
	require.NoError(t, err)
	assert.False(t, restored, "incr must not recreate an expired key")
	_, found, _ = stock.Get(ctx, 9)
	assert.False(t, found)
}

func TestSeckillStockLoadTTLAndForget(t *testing.T) {
	server, client := newTestRedis(t)
	stock := NewSeckillStockCache(client, "test")
	ctx := context.Background()

	require.NoError(t, stock.Load(ctx, 3, 10, 30*time.Second))
	assert.Equal(t, 30*time.Second, server.TTL("test:seckill_sku_stock:3"))

	restored, err := stock.Incr(ctx, 3, 2)
	require.NoError(t, err)
	assert.True(t, restored)
	value, _, _ := stock.Get(ctx, 3)
	assert.Equal(t, int64(12), value)

	require.NoError(t, stock.Load(ctx, 3, 10, 0))
	assert.False(t, server.Exists("test:seckill_sku_stock:3"))

	require.NoError(t, stock.Load(ctx, 3, 10, time.Minute))
	server.FastForward(2 * time.Minute)
	_, found, _ := stock.Get(ctx, 3)
	assert.False(t, found)
}

func TestTryLockIsExclusive(t *testing.T) {
	_, client := newTestRedis(t)
	SetClient(client, "test")
	t.Cleanup(func() { SetClient(nil, "") })
	ctx := context.Background()

	first, ok, err := TryLock(ctx, "lock:job", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = TryLock(ctx, "lock:job", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, first.Release(ctx))
	second, ok, err := TryLock(ctx, "lock:job", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, second.Release(ctx))
}
