// Package service glues the orchestrator to caching and history.
package service

import (
	"context"
	"log/slog"

	"github.com/vietddude/mediafetch/internal/core/domain"
	"github.com/vietddude/mediafetch/internal/infra/provider"
	"github.com/vietddude/mediafetch/internal/infra/storage"
	"github.com/vietddude/mediafetch/internal/retrieval/batch"
	"github.com/vietddude/mediafetch/internal/retrieval/metrics"
	"github.com/vietddude/mediafetch/internal/retrieval/orchestrator"
)

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithCache enables result caching.
func WithCache(c ResultCache) Option {
	return func(f *Fetcher) { f.cache = c }
}

// WithHistory records every finished result.
func WithHistory(h storage.HistoryRepository) Option {
	return func(f *Fetcher) { f.history = h }
}

// WithBatchConfig sets the batch runner configuration.
func WithBatchConfig(cfg batch.Config) Option {
	return func(f *Fetcher) { f.batchCfg = cfg }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// Fetcher runs requests through cache, orchestrator and history.
type Fetcher struct {
	orch     *orchestrator.Orchestrator
	runner   *batch.Runner
	batchCfg batch.Config
	cache    ResultCache
	history  storage.HistoryRepository
	logger   *slog.Logger
}

// New creates a Fetcher around orch.
func New(orch *orchestrator.Orchestrator, opts ...Option) *Fetcher {
	f := &Fetcher{
		orch:     orch,
		batchCfg: batch.DefaultConfig,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With("component", "fetcher")
	f.runner = batch.NewRunner(f, f.batchCfg)
	return f
}

// Fetch classifies raw and retrieves it.
func (f *Fetcher) Fetch(ctx context.Context, raw string, opts ...orchestrator.Option) domain.OrchestrationResult {
	return f.Orchestrate(ctx, orchestrator.NewRequest(raw), opts...)
}

// Orchestrate serves req from the cache when possible, otherwise runs the orchestrator.
// Cache and history errors are logged and never change the result.
func (f *Fetcher) Orchestrate(ctx context.Context, req domain.Request, opts ...orchestrator.Option) domain.OrchestrationResult {
	key := CacheKey(req.RawInput)

	if cached, ok := f.lookup(ctx, key); ok {
		cached.Request = req
		return cached
	}

	result := f.orch.Orchestrate(ctx, req, opts...)

	if f.history != nil {
		if err := f.history.Save(ctx, result); err != nil {
			f.logger.Warn("Failed to save history", "request_id", req.ID, "error", err)
		}
	}
	if f.cache != nil && result.Success {
		if err := f.cache.Set(ctx, key, result); err != nil {
			f.logger.Warn("Failed to cache result", "backend", f.cache.Name(), "error", err)
		}
	}
	return result
}

func (f *Fetcher) lookup(ctx context.Context, key string) (domain.OrchestrationResult, bool) {
	if f.cache == nil {
		return domain.OrchestrationResult{}, false
	}

	cached, ok, err := f.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues(f.cache.Name(), "error").Inc()
		f.logger.Warn("Cache lookup failed", "backend", f.cache.Name(), "error", err)
		return domain.OrchestrationResult{}, false
	case !ok || !cached.Success:
		metrics.CacheLookups.WithLabelValues(f.cache.Name(), "miss").Inc()
		return domain.OrchestrationResult{}, false
	}
	metrics.CacheLookups.WithLabelValues(f.cache.Name(), "hit").Inc()
	return cached, true
}

// FetchBatch retrieves every raw input under the batch runner. concurrency is
// capped at the configured max_concurrency; a non-positive value uses it as is.
func (f *Fetcher) FetchBatch(ctx context.Context, raws []string, concurrency int, onProgress batch.ProgressFunc) []domain.BatchItem {
	if limit := f.runner.Config().MaxConcurrency; concurrency < 1 || concurrency > limit {
		concurrency = limit
	}
	reqs := make([]domain.Request, len(raws))
	for i, raw := range raws {
		reqs[i] = orchestrator.NewRequest(raw)
	}
	results := f.runner.Run(ctx, reqs, concurrency, onProgress)
	return batch.Items(reqs, results)
}

// History returns recent results, or nil when no history store is configured.
func (f *Fetcher) History(ctx context.Context, limit int) ([]domain.OrchestrationResult, error) {
	if f.history == nil {
		return nil, nil
	}
	return f.history.Recent(ctx, limit)
}

// Adapters returns the tiers in priority order.
func (f *Fetcher) Adapters() []provider.Adapter {
	return f.orch.Adapters()
}

// BatchConfig returns the batch runner configuration.
func (f *Fetcher) BatchConfig() batch.Config {
	return f.runner.Config()
}
