// Package cache keeps the odds board and fast-simulation results in Redis and
// fans board versions out over pub/sub.
package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Connect opens a client and verifies it with a PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache.Connect: ping %s: %w", addr, err)
	}
	return rdb, nil
}
