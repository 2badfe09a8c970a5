package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttemptsTotal tracks adapter invocations per provider and outcome
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediafetch_attempts_total",
			Help: "Total number of provider attempts",
		},
		[]string{"provider", "outcome"},
	)

	// AttemptLatency tracks adapter invocation latency
	AttemptLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediafetch_attempt_latency_seconds",
			Help:    "Provider attempt latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 45, 60},
		},
		[]string{"provider"},
	)

	// OrchestrationsTotal tracks finished orchestrations
	OrchestrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediafetch_orchestrations_total",
			Help: "Total number of finished orchestrations",
		},
		[]string{"category", "result"},
	)

	// OrchestrationDuration tracks end-to-end orchestration time
	OrchestrationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediafetch_orchestration_duration_seconds",
			Help:    "Orchestration duration in seconds",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"result"},
	)

	// VerificationsTotal tracks verifier runs
	VerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediafetch_verifications_total",
			Help: "Total number of verifier runs",
		},
		[]string{"method", "result"},
	)

	// BatchInflight is the number of orchestrations running inside batches
	BatchInflight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediafetch_batch_inflight",
			Help: "Orchestrations currently running inside a batch chunk",
		},
	)

	// CacheLookups tracks result cache hits and misses
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediafetch_cache_lookups_total",
			Help: "Result cache lookups",
		},
		[]string{"backend", "result"},
	)

	// ProviderThrottles tracks throttle responses per provider
	ProviderThrottles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediafetch_provider_throttles_total",
			Help: "Throttle or block responses received from providers",
		},
		[]string{"provider"},
	)

	// DBConnectionPoolUsage is the share of open connections in the history store pool
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediafetch_db_connection_pool_usage_percent",
			Help: "Open history database connections as a percentage of the pool limit",
		},
	)

	// HistoryPruned counts history rows removed by the retention worker
	HistoryPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediafetch_history_pruned_total",
			Help: "History entries removed by retention",
		},
	)

	// ProviderAvailable is 1 while a provider accepts attempts, 0 while throttled or blocked
	ProviderAvailable = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mediafetch_provider_available",
			Help: "Whether the provider currently accepts attempts",
		},
		[]string{"provider"},
	)
)
