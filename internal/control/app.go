// Package control wires configuration into a running retrieval service.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vietddude/mediafetch/internal/api"
	"github.com/vietddude/mediafetch/internal/core/config"
	"github.com/vietddude/mediafetch/internal/core/domain"
	"github.com/vietddude/mediafetch/internal/infra/provider"
	redisclient "github.com/vietddude/mediafetch/internal/infra/redis"
	"github.com/vietddude/mediafetch/internal/infra/storage"
	"github.com/vietddude/mediafetch/internal/infra/storage/memory"
	"github.com/vietddude/mediafetch/internal/infra/storage/sqlstore"
	"github.com/vietddude/mediafetch/internal/retrieval/metrics"
	"github.com/vietddude/mediafetch/internal/retrieval/orchestrator"
	"github.com/vietddude/mediafetch/internal/retrieval/retention"
	"github.com/vietddude/mediafetch/internal/retrieval/service"
	"github.com/vietddude/mediafetch/internal/retrieval/stats"
	"github.com/vietddude/mediafetch/internal/retrieval/verifier"
)

// App owns every long-lived component of the service.
type App struct {
	cfg         *config.AppConfig
	adapters    []provider.Adapter
	orch        *orchestrator.Orchestrator
	fetcher     *service.Fetcher
	server      *api.Server
	pruner      *retention.Pruner
	db          *sqlstore.DB
	redisClient *redisclient.Client
	log         *slog.Logger
}

// Option customizes New.
type Option func(*options)

type options struct {
	observer orchestrator.Observer
	stats    stats.Collector
}

// WithObserver adds a progress observer to every orchestration.
func WithObserver(obs orchestrator.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithStats replaces the process-wide stats collector.
func WithStats(c stats.Collector) Option {
	return func(o *options) { o.stats = c }
}

// New creates an App with all dependencies initialized.
func New(ctx context.Context, cfg *config.AppConfig, opts ...Option) (*App, error) {
	o := options{stats: stats.Default}
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{
		cfg: cfg,
		log: slog.Default().With("component", "app"),
	}

	// 1. Providers
	providers := cfg.EnabledProviders()
	if len(providers) == 0 {
		app.log.Warn("No providers configured, using local extractor")
		providers = DefaultProviders
	}
	adapters, err := BuildAdapters(providers)
	if err != nil {
		return nil, err
	}
	app.adapters = adapters

	// 2. Verifier
	v, err := verifier.FromMode(cfg.Verifier.Mode, adapters, cfg.Verifier.Timeout)
	if err != nil {
		app.Close()
		return nil, err
	}

	observer := LogObserver(slog.Default())
	if o.observer != nil {
		observer = orchestrator.Observers(observer, o.observer)
	}
	app.orch = orchestrator.New(cfg.Retry, adapters,
		orchestrator.WithVerifier(v, cfg.Verifier.Threshold),
		orchestrator.WithStats(o.stats),
		orchestrator.WithObserver(observer),
		orchestrator.WithLogger(slog.Default()),
	)

	// 3. Storage
	if needsRedis(cfg) {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			app.log.Warn("Failed to connect to Redis, falling back to memory", "error", err)
		} else {
			app.redisClient = client
		}
	}

	cache := app.buildCache()
	history, err := app.buildHistory(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	fopts := []service.Option{
		service.WithBatchConfig(cfg.Batch),
		service.WithLogger(slog.Default()),
	}
	if cache != nil {
		fopts = append(fopts, service.WithCache(cache))
	}
	if history != nil {
		fopts = append(fopts, service.WithHistory(history))
		if p, ok := history.(storage.Pruner); ok && cfg.History.Retention > 0 {
			app.pruner = retention.NewPruner(cfg.History.Retention, p, slog.Default())
		}
	}
	app.fetcher = service.New(app.orch, fopts...)

	// 4. API
	app.server = api.NewServer(app.fetcher, o.stats.Snapshot, api.Config{
		Port:           cfg.Server.Port,
		MaxBatch:       cfg.Server.MaxBatch,
		MaxConcurrency: app.fetcher.BatchConfig().MaxConcurrency,
		ReadTimeout:    cfg.Server.ReadTimeout,
	}, slog.Default())

	tags := make([]string, len(adapters))
	for i, a := range adapters {
		tags[i] = a.Tag()
	}
	app.log.Info("Retrieval tiers configured", "tiers", tags, "verifier", cfg.Verifier.Mode)

	return app, nil
}

func needsRedis(cfg *config.AppConfig) bool {
	return cfg.Cache.Backend == config.BackendRedis || cfg.History.Backend == config.BackendRedis
}

func (a *App) buildCache() service.ResultCache {
	switch a.cfg.Cache.Backend {
	case config.BackendNone:
		return nil
	case config.BackendRedis:
		if a.redisClient != nil {
			a.log.Info("Using Redis result cache")
			return redisclient.NewResultCache(a.redisClient, a.cfg.Cache.TTL)
		}
	}
	a.log.Info("Using memory result cache")
	return service.NewMemoryCache(a.cfg.Cache.TTL, a.cfg.Cache.Size)
}

func (a *App) buildHistory(ctx context.Context) (storage.HistoryRepository, error) {
	switch a.cfg.History.Backend {
	case config.BackendNone:
		return nil, nil
	case config.BackendSQL:
		db, err := sqlstore.Open(ctx, a.cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.db = db
		a.log.Info("Using SQL history storage", "driver", db.Driver())
		return sqlstore.NewHistoryRepo(db), nil
	case config.BackendRedis:
		if a.redisClient != nil {
			a.log.Info("Using Redis history storage")
			return redisclient.NewHistoryRepo(a.redisClient, a.cfg.History.Capacity), nil
		}
	}
	a.log.Info("Using memory history storage")
	return memory.NewHistoryRepo(a.cfg.History.Capacity), nil
}

// Fetcher returns the retrieval service.
func (a *App) Fetcher() *service.Fetcher {
	return a.fetcher
}

// Adapters returns the configured tiers in priority order.
func (a *App) Adapters() []provider.Adapter {
	return a.adapters
}

// Handler returns the API handler.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Start starts the API server and background workers. It does not block.
func (a *App) Start(ctx context.Context) error {
	go func() {
		if err := a.server.Start(); err != nil {
			a.log.Error("API server failed", "error", err)
		}
	}()

	if a.db != nil {
		a.db.StartMetricsCollector(ctx)
	}

	if a.pruner != nil {
		a.log.Info("Starting pruner", "retention", a.cfg.History.Retention)
		go a.pruner.Start(ctx)
	}

	go a.runMetricsUpdater(ctx)

	a.log.Info("API listening", "port", a.cfg.Server.Port)
	return nil
}

// Stop shuts the server down and releases connections.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping mediafetch...")
	err := a.server.Stop(ctx)
	a.Close()
	return err
}

// Close releases adapters and storage connections without touching the server.
// Commands that never call Start use it instead of Stop.
func (a *App) Close() {
	CloseAdapters(a.adapters)

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}
}

func (a *App) runMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		a.updateProviderMetrics()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *App) updateProviderMetrics() {
	for _, ad := range a.adapters {
		m, ok := ad.(provider.Monitored)
		if !ok {
			continue
		}
		st := m.Health().Status
		available := 0.0
		if st == provider.StatusHealthy || st == provider.StatusDegraded {
			available = 1
		}
		metrics.ProviderAvailable.WithLabelValues(ad.Tag()).Set(available)
	}
}

// LogObserver logs every orchestration event at debug level.
func LogObserver(logger *slog.Logger) orchestrator.Observer {
	log := logger.With("component", "events")
	return func(ev domain.Event) {
		attrs := []any{"request_id", ev.RequestID, "event", ev.Type}
		if ev.Provider != "" {
			attrs = append(attrs, "provider", ev.Provider, "tier", ev.Tier, "pass", ev.Pass)
		}
		if ev.Reason != "" {
			attrs = append(attrs, "reason", ev.Reason)
		}
		if ev.Delay > 0 {
			attrs = append(attrs, "delay", ev.Delay)
		}
		log.Debug("Orchestration event", attrs...)
	}
}
