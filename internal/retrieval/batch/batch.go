// Package batch fans many orchestrations out in fixed-size chunks.
package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/mediafetch/internal/core/domain"
	"github.com/vietddude/mediafetch/internal/retrieval/metrics"
	"github.com/vietddude/mediafetch/internal/retrieval/orchestrator"
)

// Status is the batch progress phase.
type Status string

const (
	StatusStarting        Status = "starting"
	StatusProcessingChunk Status = "processing_chunk"
	StatusItemCompleted   Status = "item_completed"
	StatusChunkCompleted  Status = "chunk_completed"
	StatusWaiting         Status = "waiting_between_chunks"
	StatusCompleted       Status = "completed"
)

// Progress is reported to the ProgressFunc. Completed never decreases within a run.
type Progress struct {
	Status      Status  `json:"status"`
	Completed   int     `json:"completed"`
	Total       int     `json:"total"`
	Percentage  float64 `json:"percentage"`
	Chunk       int     `json:"chunk"`
	TotalChunks int     `json:"total_chunks"`
	Succeeded   int     `json:"succeeded"`
	Failed      int     `json:"failed"`

	// Index and Result are set for item_completed.
	Index  int                         `json:"index,omitempty"`
	Result *domain.OrchestrationResult `json:"result,omitempty"`
}

// ProgressFunc receives batch progress. Calls are serialized.
type ProgressFunc func(Progress)

// Orchestrator runs one request.
type Orchestrator interface {
	Orchestrate(ctx context.Context, req domain.Request, opts ...orchestrator.Option) domain.OrchestrationResult
}

// Config controls chunking.
type Config struct {
	MaxConcurrency int           `yaml:"max_concurrency"`
	ChunkDelay     time.Duration `yaml:"chunk_delay"`
}

// DefaultConfig pauses twice the provider rate-limit delay between chunks.
var DefaultConfig = Config{
	MaxConcurrency: 3,
	ChunkDelay:     4 * time.Second,
}

// Runner executes batches against one Orchestrator.
type Runner struct {
	orch  Orchestrator
	cfg   Config
	log   *slog.Logger
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRunner creates a Runner.
func NewRunner(orch Orchestrator, cfg Config) *Runner {
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = DefaultConfig.MaxConcurrency
	}
	if cfg.ChunkDelay < 0 {
		cfg.ChunkDelay = 0
	}
	return &Runner{
		orch:  orch,
		cfg:   cfg,
		log:   slog.Default(),
		sleep: sleepCtx,
	}
}

// Run is a convenience wrapper using DefaultConfig's chunk delay.
func Run(ctx context.Context, orch Orchestrator, reqs []domain.Request, maxConcurrency int, onProgress ProgressFunc) []domain.OrchestrationResult {
	return NewRunner(orch, DefaultConfig).Run(ctx, reqs, maxConcurrency, onProgress)
}

// Config returns the runner configuration.
func (r *Runner) Config() Config {
	return r.cfg
}

// Run executes reqs in contiguous chunks of maxConcurrency, waiting for each chunk to
// finish before starting the next. The output has one result per request, in input order.
// maxConcurrency < 1 uses the runner's configured value.
//
// Cancellation skips the remaining chunk delays; requests that have not started yet
// still get a result, a canceled one.
func (r *Runner) Run(ctx context.Context, reqs []domain.Request, maxConcurrency int, onProgress ProgressFunc) []domain.OrchestrationResult {
	if maxConcurrency < 1 {
		maxConcurrency = r.cfg.MaxConcurrency
	}
	results := make([]domain.OrchestrationResult, len(reqs))
	totalChunks := (len(reqs) + maxConcurrency - 1) / maxConcurrency

	p := &reporter{
		fn:  onProgress,
		log: r.log,
		cur: Progress{Total: len(reqs), TotalChunks: totalChunks},
	}
	p.report(StatusStarting, 0, 0, nil)

	for chunk := 0; chunk < totalChunks; chunk++ {
		start := chunk * maxConcurrency
		end := min(start+maxConcurrency, len(reqs))

		p.report(StatusProcessingChunk, chunk+1, 0, nil)

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				metrics.BatchInflight.Inc()
				defer metrics.BatchInflight.Dec()

				res := r.orch.Orchestrate(ctx, reqs[i])
				results[i] = res
				p.report(StatusItemCompleted, chunk+1, i, &res)
				return nil
			})
		}
		_ = g.Wait()

		p.report(StatusChunkCompleted, chunk+1, 0, nil)

		if chunk < totalChunks-1 && r.cfg.ChunkDelay > 0 {
			p.report(StatusWaiting, chunk+1, 0, nil)
			if err := r.sleep(ctx, r.cfg.ChunkDelay); err != nil {
				r.log.Debug("Batch delay interrupted", "chunk", chunk+1, "error", err)
			}
		}
	}

	p.report(StatusCompleted, totalChunks, 0, nil)
	return results
}

// Items pairs each result with its request and position.
func Items(reqs []domain.Request, results []domain.OrchestrationResult) []domain.BatchItem {
	items := make([]domain.BatchItem, 0, len(results))
	for i, res := range results {
		items = append(items, domain.BatchItem{Index: i, Request: reqs[i], Result: res})
	}
	return items
}

// reporter serializes progress updates so Completed is monotonic for the callback.
type reporter struct {
	mu  sync.Mutex
	fn  ProgressFunc
	log *slog.Logger
	cur Progress
}

func (p *reporter) report(status Status, chunk, index int, res *domain.OrchestrationResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if res != nil {
		p.cur.Completed++
		if res.Success {
			p.cur.Succeeded++
		} else {
			p.cur.Failed++
		}
	}
	if p.fn == nil {
		return
	}

	ev := p.cur
	ev.Status = status
	ev.Chunk = chunk
	ev.Index = index
	ev.Result = res
	if ev.Total > 0 {
		ev.Percentage = float64(ev.Completed) / float64(ev.Total) * 100
	} else if status == StatusCompleted {
		ev.Percentage = 100
	}

	defer func() {
		if rec := recover(); rec != nil {
			p.log.Warn("Batch progress callback panicked", "status", status, "panic", rec)
		}
	}()
	p.fn(ev)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
