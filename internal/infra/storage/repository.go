package storage

import (
	"context"
	"time"

	"github.com/vietddude/mediafetch/internal/core/domain"
)

// DefaultRecentLimit is used when a caller asks for a non-positive number of entries.
const DefaultRecentLimit = 20

// HistoryRepository stores finished orchestration results.
type HistoryRepository interface {
	// Save appends a result
	Save(ctx context.Context, result domain.OrchestrationResult) error

	// Recent returns up to limit results, newest first
	Recent(ctx context.Context, limit int) ([]domain.OrchestrationResult, error)

	// Count returns the number of stored results
	Count(ctx context.Context) (int, error)
}

// Pruner is implemented by history stores that support retention.
type Pruner interface {
	// DeleteOlderThan removes results completed before cutoff and returns how many were removed
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
