package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/mediafetch/internal/core/domain"
)

// DefaultResultTTL is used when the cache is built with a non-positive TTL.
const DefaultResultTTL = 10 * time.Minute

// ResultCache stores successful results as JSON values with a TTL.
type ResultCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewResultCache creates a cache on top of client.
func NewResultCache(client *Client, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}
	return &ResultCache{rdb: client.rdb, ttl: ttl}
}

// Name identifies the backend in metrics.
func (c *ResultCache) Name() string {
	return "redis"
}

// Get returns the cached result for key, if any.
func (c *ResultCache) Get(ctx context.Context, key string) (domain.OrchestrationResult, bool, error) {
	var result domain.OrchestrationResult

	data, err := c.rdb.Get(ctx, resultKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return result, false, nil
	}
	if err != nil {
		return result, false, fmt.Errorf("failed to get cached result: %w", err)
	}

	if err := json.Unmarshal(data, &result); err != nil {
		return result, false, fmt.Errorf("failed to unmarshal cached result: %w", err)
	}
	return result, true, nil
}

// Set stores result under key. Failed results are ignored.
func (c *ResultCache) Set(ctx context.Context, key string, result domain.OrchestrationResult) error {
	if !result.Success {
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := c.rdb.Set(ctx, resultKey(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache result: %w", err)
	}
	return nil
}
