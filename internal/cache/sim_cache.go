package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func keySimulation(key string) string { return "sim:result:" + key }

// SimCache stores fast-simulation results under an opaque request key.
type SimCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSimCache creates a SimCache whose entries expire after ttl.
func NewSimCache(rdb *redis.Client, ttl time.Duration) *SimCache {
	return &SimCache{rdb: rdb, ttl: ttl}
}

// LoadSimulation decodes the cached result into dst.  It reports false on a
// miss.
func (c *SimCache) LoadSimulation(ctx context.Context, key string, dst any) (bool, error) {
	b, err := c.rdb.Get(ctx, keySimulation(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sim_cache.LoadSimulation: %w", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, fmt.Errorf("sim_cache.LoadSimulation: unmarshal: %w", err)
	}
	return true, nil
}

// StoreSimulation caches v under key.
func (c *SimCache) StoreSimulation(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("sim_cache.StoreSimulation: marshal: %w", err)
	}
	if err := c.rdb.Set(ctx, keySimulation(key), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("sim_cache.StoreSimulation: %w", err)
	}
	return nil
}
