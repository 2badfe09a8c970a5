// Package stats keeps process-wide retrieval counters.
package stats

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Collector receives counter updates from the orchestrator.
// Implementations must be safe for concurrent use.
type Collector interface {
	RecordRequest()
	RecordAttempt(provider string)
	RecordProviderSuccess(provider string)
	RecordVerified(provider string)
	RecordVerificationFailure()
	RecordCompletion(success bool)
	Snapshot() Snapshot
}

// ProviderStats holds per-provider counters.
type ProviderStats struct {
	Attempts          int64 `json:"attempts"`
	Successes         int64 `json:"successes"`
	VerifiedSuccesses int64 `json:"verified_successes"`
}

// Snapshot is a read-only copy of the counters.
type Snapshot struct {
	Providers            map[string]ProviderStats `json:"providers"`
	TotalAttempts        int64                    `json:"total_attempts"`
	SuccessfulDownloads  int64                    `json:"successful_downloads"`
	FailedDownloads      int64                    `json:"failed_downloads"`
	VerificationFailures int64                    `json:"verification_failures"`
}

// SuccessRate returns successful downloads over finished downloads, in percent.
func (s Snapshot) SuccessRate() float64 {
	done := s.SuccessfulDownloads + s.FailedDownloads
	if done == 0 {
		return 0
	}
	return float64(s.SuccessfulDownloads) / float64(done) * 100
}

// ProviderNames returns the provider tags in sorted order.
func (s Snapshot) ProviderNames() []string {
	names := make([]string, 0, len(s.Providers))
	for name := range s.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type providerCounters struct {
	attempts atomic.Int64
	success  atomic.Int64
	verified atomic.Int64
}

// Counters is the atomic Collector implementation.
type Counters struct {
	providers sync.Map // tag -> *providerCounters

	requests             atomic.Int64
	successful           atomic.Int64
	failed               atomic.Int64
	verificationFailures atomic.Int64
}

// NewCounters returns an empty, isolated collector.
func NewCounters() *Counters {
	return &Counters{}
}

// Default is the process-wide collector.
var Default = NewCounters()

// GetStats returns a snapshot of Default.
func GetStats() Snapshot {
	return Default.Snapshot()
}

func (c *Counters) provider(tag string) *providerCounters {
	if v, ok := c.providers.Load(tag); ok {
		return v.(*providerCounters)
	}
	v, _ := c.providers.LoadOrStore(tag, &providerCounters{})
	return v.(*providerCounters)
}

// RecordRequest counts an orchestration that started.
func (c *Counters) RecordRequest() { c.requests.Add(1) }

// RecordAttempt counts one adapter invocation.
func (c *Counters) RecordAttempt(provider string) { c.provider(provider).attempts.Add(1) }

// RecordProviderSuccess counts a plausible success returned by provider.
func (c *Counters) RecordProviderSuccess(provider string) { c.provider(provider).success.Add(1) }

// RecordVerified counts a success from provider that passed verification.
func (c *Counters) RecordVerified(provider string) { c.provider(provider).verified.Add(1) }

// RecordVerificationFailure counts a claimed success rejected by the verifier.
func (c *Counters) RecordVerificationFailure() { c.verificationFailures.Add(1) }

// RecordCompletion counts a finished orchestration.
func (c *Counters) RecordCompletion(success bool) {
	if success {
		c.successful.Add(1)
		return
	}
	c.failed.Add(1)
}

// Snapshot implements Collector.
func (c *Counters) Snapshot() Snapshot {
	snap := Snapshot{
		Providers:            make(map[string]ProviderStats),
		TotalAttempts:        c.requests.Load(),
		SuccessfulDownloads:  c.successful.Load(),
		FailedDownloads:      c.failed.Load(),
		VerificationFailures: c.verificationFailures.Load(),
	}
	c.providers.Range(func(key, value any) bool {
		pc := value.(*providerCounters)
		snap.Providers[key.(string)] = ProviderStats{
			Attempts:          pc.attempts.Load(),
			Successes:         pc.success.Load(),
			VerifiedSuccesses: pc.verified.Load(),
		}
		return true
	})
	return snap
}
