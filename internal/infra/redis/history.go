package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/mediafetch/internal/core/domain"
	"github.com/vietddude/mediafetch/internal/infra/storage"
)

// DefaultHistoryCapacity bounds the sorted set when no capacity is given.
const DefaultHistoryCapacity = 1000

// HistoryRepo keeps recent results in a sorted set scored by completion time.
type HistoryRepo struct {
	rdb      *redis.Client
	capacity int64
}

var (
	_ storage.HistoryRepository = (*HistoryRepo)(nil)
	_ storage.Pruner            = (*HistoryRepo)(nil)
)

// NewHistoryRepo creates a Redis-backed history repository.
func NewHistoryRepo(client *Client, capacity int) *HistoryRepo {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &HistoryRepo{rdb: client.rdb, capacity: int64(capacity)}
}

// Save adds a result and trims the set to capacity.
func (r *HistoryRepo) Save(ctx context.Context, result domain.OrchestrationResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	pipe := r.rdb.TxPipeline()
	pipe.ZAdd(ctx, historyKey(), redis.Z{
		Score:  historyScore(result.CompletedAt),
		Member: data,
	})
	// Keep only the newest entries
	pipe.ZRemRangeByRank(ctx, historyKey(), 0, -(r.capacity + 1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save history entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (r *HistoryRepo) Recent(ctx context.Context, limit int) ([]domain.OrchestrationResult, error) {
	if limit <= 0 {
		limit = storage.DefaultRecentLimit
	}

	members, err := r.rdb.ZRevRange(ctx, historyKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange failed: %w", err)
	}

	results := make([]domain.OrchestrationResult, 0, len(members))
	for _, m := range members {
		var res domain.OrchestrationResult
		if err := json.Unmarshal([]byte(m), &res); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history entry: %w", err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Count returns the number of stored entries.
func (r *HistoryRepo) Count(ctx context.Context) (int, error) {
	n, err := r.rdb.ZCard(ctx, historyKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard failed: %w", err)
	}
	return int(n), nil
}

// DeleteOlderThan removes entries completed before cutoff.
func (r *HistoryRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	upper := "(" + strconv.FormatFloat(historyScore(cutoff), 'f', -1, 64)
	n, err := r.rdb.ZRemRangeByScore(ctx, historyKey(), "-inf", upper).Result()
	if err != nil {
		return 0, fmt.Errorf("zremrangebyscore failed: %w", err)
	}
	return n, nil
}

func historyScore(t time.Time) float64 {
	return float64(t.UnixMilli())
}
