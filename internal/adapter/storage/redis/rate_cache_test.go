package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *goredis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
}

func TestRateCache_SetGet(t *testing.T) {
	client := newTestClient(t)
	cache := NewRateCache(client)
	ctx := context.Background()

	rate := decimal.RequireFromString("5.8812")
	require.NoError(t, cache.Set(ctx, "USD", "BRL", rate, time.Minute))

	got, ok, err := cache.Get(ctx, "USD", "BRL")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, got.Equal(rate))
}

func TestRateCache_Miss(t *testing.T) {
	client := newTestClient(t)
	cache := NewRateCache(client)

	_, ok, err := cache.Get(context.Background(), "USD", "EUR")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRateCache_Invalidate(t *testing.T) {
	client := newTestClient(t)
	cache := NewRateCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "USD", "BRL", decimal.NewFromInt(6), time.Minute))
	require.NoError(t, cache.Invalidate(ctx, "USD", "BRL"))

	_, ok, err := cache.Get(ctx, "USD", "BRL")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRateCache_FullPrecisionRoundTrip(t *testing.T) {
	client := newTestClient(t)
	cache := NewRateCache(client)
	ctx := context.Background()

	rate := decimal.RequireFromString("5.88123456789")
	require.NoError(t, cache.Set(ctx, "USD", "BRL", rate, time.Minute))

	got, ok, err := cache.Get(ctx, "USD", "BRL")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "5.88123456789", got.String())
}
