package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// SweepLock implements ports.SweepLock using Redis SET NX, so only
// one instance runs the reserve-release sweep at a time.
type SweepLock struct {
	client *goredis.Client
	key    string
}

// NewSweepLock creates a new Redis-backed sweep lock.
func NewSweepLock(client *goredis.Client) *SweepLock {
	return &SweepLock{
		client: client,
		key:    "scheduler:reserve-release:lock",
	}
}

// Acquire attempts to take the lock. Returns false if another
// instance holds it.
func (l *SweepLock) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis sweep lock acquire: %w", err)
	}
	return ok, nil
}

// Release drops the lock.
func (l *SweepLock) Release(ctx context.Context) error {
	if err := l.client.Del(ctx, l.key).Err(); err != nil {
		return fmt.Errorf("redis sweep lock release: %w", err)
	}
	return nil
}
