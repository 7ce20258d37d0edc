package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// RateCache implements ports.RateCache: a short-TTL read-through
// cache over each pair's current rate. SnapshotRate invalidates the
// pair so a stale rate lives at most one TTL.
type RateCache struct {
	client *goredis.Client
	prefix string
}

// NewRateCache creates a new Redis-backed current-rate cache.
func NewRateCache(client *goredis.Client) *RateCache {
	return &RateCache{
		client: client,
		prefix: "fxrate:",
	}
}

func (c *RateCache) key(base, quote string) string {
	return c.prefix + base + ":" + quote
}

// Get retrieves a cached rate. The second return is false on a miss.
func (c *RateCache) Get(ctx context.Context, base, quote string) (decimal.Decimal, bool, error) {
	val, err := c.client.Get(ctx, c.key(base, quote)).Result()
	if err != nil {
		if err == goredis.Nil {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("redis rate get: %w", err)
	}
	rate, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("parse cached rate: %w", err)
	}
	return rate, true, nil
}

// Set stores a rate with TTL. Rates travel as strings to keep full
// precision.
func (c *RateCache) Set(ctx context.Context, base, quote string, rate decimal.Decimal, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(base, quote), rate.String(), ttl).Err(); err != nil {
		return fmt.Errorf("redis rate set: %w", err)
	}
	return nil
}

// Invalidate drops a pair's cached rate.
func (c *RateCache) Invalidate(ctx context.Context, base, quote string) error {
	if err := c.client.Del(ctx, c.key(base, quote)).Err(); err != nil {
		return fmt.Errorf("redis rate invalidate: %w", err)
	}
	return nil
}
