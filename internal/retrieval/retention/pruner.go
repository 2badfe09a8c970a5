// Package retention removes expired retrieval history.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/mediafetch/internal/infra/storage"
	"github.com/vietddude/mediafetch/internal/retrieval/metrics"
)

// Pruner deletes history entries older than the retention period.
type Pruner struct {
	retention time.Duration
	store     storage.Pruner
	logger    *slog.Logger
	now       func() time.Time
}

// NewPruner creates a new Pruner worker. A non-positive retention disables it.
func NewPruner(retention time.Duration, store storage.Pruner, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		retention: retention,
		store:     store,
		logger:    logger.With("component", "pruner"),
		now:       time.Now,
	}
}

// Interval returns how often the pruner runs: a tenth of the retention, between 1m and 1h.
func (p *Pruner) Interval() time.Duration {
	interval := min(p.retention/10, time.Hour)
	return max(interval, time.Minute)
}

// Start runs the pruner loop until ctx is done.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 || p.store == nil {
		return
	}

	ticker := time.NewTicker(p.Interval())
	defer ticker.Stop()

	p.Prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Prune(ctx)
		}
	}
}

// Prune runs a single retention pass and returns the number of removed entries.
func (p *Pruner) Prune(ctx context.Context) int64 {
	cutoff := p.now().Add(-p.retention)

	n, err := p.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Error("Failed to prune history", "cutoff", cutoff, "error", err)
		return 0
	}
	if n > 0 {
		metrics.HistoryPruned.Add(float64(n))
		p.logger.Info("Pruned history", "removed", n, "cutoff", cutoff)
	}
	return n
}
