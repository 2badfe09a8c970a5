// Package provider implements retrieval adapters for external media providers.
//
// This package contains:
//   - Adapter interface: one external retrieval strategy
//   - HTTPAdapter: JSON backend in the yt-dlp service style
//   - CommandAdapter: local extractor process
//   - GRPCAdapter: remote extractor over gRPC
//   - SessionAdapter: serialized access to a long-lived interactive session
//   - Monitor: health and rate tracking
package provider

import (
	"context"
	"time"

	"github.com/vietddude/mediafetch/internal/core/domain"
)

// Adapter is one provider-specific retrieval strategy.
// Attempt never retries across tiers and never panics; every failure is a domain.Failure.
type Adapter interface {
	// Tag returns the provider identifier (e.g., "railway", "ytdlp")
	Tag() string

	// Attempt performs a single retrieval for req bounded by timeout
	Attempt(ctx context.Context, req domain.Request, timeout time.Duration) domain.AdapterResult
}

// PlatformSupporter is implemented by adapters that serve a fixed set of categories.
type PlatformSupporter interface {
	Supports(category domain.Category) bool
}

// Monitored is implemented by adapters that expose a health Monitor.
type Monitored interface {
	Health() MonitorStats
}

// Supports reports whether a can serve category. Adapters that do not
// declare a platform set are assumed to serve every known category.
func Supports(a Adapter, category domain.Category) bool {
	if ps, ok := a.(PlatformSupporter); ok {
		return ps.Supports(category)
	}
	return category.IsKnown()
}

// Base implements the tag, platform set and monitoring shared by all adapters.
type Base struct {
	tag       string
	platforms map[domain.Category]struct{}
	timeout   time.Duration
	quota     *Quota

	Monitor *Monitor
}

// NewBase creates a Base. An empty platforms list serves every known category.
func NewBase(tag string, platforms []domain.Category) *Base {
	b := &Base{
		tag:     tag,
		Monitor: NewMonitor(tag),
	}
	if len(platforms) > 0 {
		b.platforms = make(map[domain.Category]struct{}, len(platforms))
		for _, p := range platforms {
			b.platforms[p] = struct{}{}
		}
	}
	return b
}

// Tag returns the provider identifier.
func (b *Base) Tag() string {
	return b.tag
}

// Supports reports whether the adapter serves category.
func (b *Base) Supports(category domain.Category) bool {
	if !category.IsKnown() {
		return false
	}
	if b.platforms == nil {
		return true
	}
	_, ok := b.platforms[category]
	return ok
}

// SetDailyQuota limits the adapter to n attempts per day. n <= 0 removes the limit.
func (b *Base) SetDailyQuota(n int) {
	if n <= 0 {
		b.quota = nil
		return
	}
	b.quota = NewQuota(n)
}

// SetTimeout caps every attempt at d, on top of the caller's timeout. Zero removes the cap.
func (b *Base) SetTimeout(d time.Duration) {
	b.timeout = d
}

func (b *Base) clampTimeout(timeout time.Duration) time.Duration {
	if b.timeout <= 0 {
		return timeout
	}
	if timeout <= 0 || b.timeout < timeout {
		return b.timeout
	}
	return timeout
}

// Health returns the monitor snapshot.
func (b *Base) Health() MonitorStats {
	st := b.Monitor.Stats()
	if b.quota != nil {
		u := b.quota.Usage()
		st.Quota = &u
		if u.Remaining == 0 && st.Status == StatusHealthy {
			st.Status = StatusThrottled
		}
	}
	return st
}

// precheck returns a failure when the attempt must not be made at all.
func (b *Base) precheck(req domain.Request) (domain.AdapterResult, bool) {
	if !b.Supports(req.Category) {
		return domain.Failed(domain.ReasonUnsupported, "category "+string(req.Category)+" not served by "+b.tag), false
	}
	if !b.Monitor.Available() {
		return domain.Failed(domain.ReasonTransient,
			"provider "+b.tag+" throttled, retry after "+b.Monitor.RetryAfter().Round(time.Second).String()), false
	}
	if b.quota != nil && !b.quota.Allow() {
		return domain.Failed(domain.ReasonTransient, "provider "+b.tag+" daily quota exhausted"), false
	}
	return domain.AdapterResult{}, true
}

// record feeds the outcome into the monitor.
func (b *Base) record(res domain.AdapterResult, latency time.Duration) {
	if res.OK() {
		b.Monitor.RecordSuccess(latency)
		return
	}
	b.Monitor.RecordFailure(latency)
}
