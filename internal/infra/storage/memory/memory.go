package memory

import (
	"context"
	"sync"

	"github.com/vietddude/mediafetch/internal/core/domain"
	"github.com/vietddude/mediafetch/internal/infra/storage"
)

// DefaultCapacity is the number of results kept by NewHistoryRepo(0).
const DefaultCapacity = 500

// HistoryRepo is a fixed-size ring of recent results.
type HistoryRepo struct {
	mu    sync.RWMutex
	ring  []domain.OrchestrationResult
	next  int
	count int
}

var _ storage.HistoryRepository = (*HistoryRepo)(nil)

// NewHistoryRepo creates a ring holding capacity results.
func NewHistoryRepo(capacity int) *HistoryRepo {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &HistoryRepo{ring: make([]domain.OrchestrationResult, capacity)}
}

func (r *HistoryRepo) Save(ctx context.Context, result domain.OrchestrationResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ring[r.next] = result
	r.next = (r.next + 1) % len(r.ring)
	if r.count < len(r.ring) {
		r.count++
	}
	return nil
}

func (r *HistoryRepo) Recent(ctx context.Context, limit int) ([]domain.OrchestrationResult, error) {
	if limit <= 0 {
		limit = storage.DefaultRecentLimit
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := min(limit, r.count)
	out := make([]domain.OrchestrationResult, 0, n)
	for i := 1; i <= n; i++ {
		idx := (r.next - i + len(r.ring)) % len(r.ring)
		out = append(out, r.ring[idx])
	}
	return out, nil
}

func (r *HistoryRepo) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count, nil
}
