package provider

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vietddude/mediafetch/internal/retrieval/metrics"
)

// Status represents the health state of a provider.
type Status string

const (
	StatusHealthy   Status = "healthy"   // Provider is working normally
	StatusDegraded  Status = "degraded"  // Provider is slow or failing often
	StatusThrottled Status = "throttled" // Provider is rate limiting
	StatusBlocked   Status = "blocked"   // Provider has blocked this client
)

// MonitorStats holds monitoring statistics for a provider.
type MonitorStats struct {
	Provider          string        `json:"provider"`
	Status            Status        `json:"status"`
	AverageLatency    time.Duration `json:"average_latency"`
	Successes         int           `json:"successes"`
	Failures          int           `json:"failures"`
	ErrorRate         float64       `json:"error_rate"`
	ThrottleCount429  int           `json:"throttle_count_429"`
	ThrottleCount403  int           `json:"throttle_count_403"`
	RequestsLast1Hour int           `json:"requests_last_1_hour"`
	RetryAfter        time.Duration `json:"retry_after"`
	LastSuccessAt     time.Time     `json:"last_success_at,omitzero"`
	LastFailureAt     time.Time     `json:"last_failure_at,omitzero"`
	Quota             *QuotaUsage   `json:"quota,omitempty"`
}

// Monitor tracks provider health and rate limiting.
type Monitor struct {
	mu       sync.RWMutex
	provider string

	// Response time tracking
	recentLatencies  []time.Duration
	maxLatencyWindow int

	successes     int
	failures      int
	lastSuccessAt time.Time
	lastFailureAt time.Time

	// Throttle tracking
	status429Count     int
	status403Count     int
	throttlePatterns   []string
	lastThrottleTime   time.Time
	retryAfterDuration time.Duration

	requestTimestamps []time.Time
	windowDuration    time.Duration

	slowResponseThreshold time.Duration
	degradedThreshold     float64

	now func() time.Time
}

// NewMonitor creates a monitor with default settings.
func NewMonitor(provider string) *Monitor {
	return &Monitor{
		provider:         provider,
		recentLatencies:  make([]time.Duration, 0, 50),
		maxLatencyWindow: 50,
		throttlePatterns: []string{
			"rate limit",
			"too many requests",
			"quota exceeded",
			"try again later",
			"temporarily blocked",
		},
		windowDuration:        time.Hour,
		slowResponseThreshold: 20 * time.Second,
		degradedThreshold:     0.5,
		now:                   time.Now,
	}
}

// RecordSuccess records a successful attempt with its latency.
func (m *Monitor) RecordSuccess(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.successes++
	m.lastSuccessAt = m.now()
	m.trackLocked(latency)
}

// RecordFailure records a failed attempt.
func (m *Monitor) RecordFailure(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failures++
	m.lastFailureAt = m.now()
	m.trackLocked(latency)
}

func (m *Monitor) trackLocked(latency time.Duration) {
	now := m.now()

	m.recentLatencies = append(m.recentLatencies, latency)
	if len(m.recentLatencies) > m.maxLatencyWindow {
		m.recentLatencies = m.recentLatencies[1:]
	}

	m.requestTimestamps = append(m.requestTimestamps, now)
	cutoff := now.Add(-m.windowDuration)
	i := 0
	for i < len(m.requestTimestamps) && !m.requestTimestamps[i].After(cutoff) {
		i++
	}
	m.requestTimestamps = m.requestTimestamps[i:]
}

// RecordThrottle records a rate limiting or blocking response.
// retryAfter is the raw Retry-After header value, in seconds.
func (m *Monitor) RecordThrottle(statusCode int, retryAfter string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastThrottleTime = m.now()

	switch statusCode {
	case 429:
		m.status429Count++
		m.retryAfterDuration = time.Minute
		if secs, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && secs > 0 {
			m.retryAfterDuration = time.Duration(secs) * time.Second
		}
	case 403:
		m.status403Count++
		m.retryAfterDuration = 10 * time.Minute // Longer for IP block
	}

	metrics.ProviderThrottles.WithLabelValues(m.provider).Inc()
}

// DetectThrottlePattern checks if a message contains throttle patterns.
func (m *Monitor) DetectThrottlePattern(message string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lowerMsg := strings.ToLower(message)
	for _, pattern := range m.throttlePatterns {
		if strings.Contains(lowerMsg, pattern) {
			return true
		}
	}
	return false
}

// Status returns the current status of the provider.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statusLocked()
}

func (m *Monitor) statusLocked() Status {
	throttledRecently := m.now().Sub(m.lastThrottleTime) < m.retryAfterDuration

	if m.status403Count > 0 && throttledRecently {
		return StatusBlocked
	}
	if m.status429Count > 0 && throttledRecently {
		return StatusThrottled
	}

	if total := m.successes + m.failures; total >= 5 {
		if float64(m.failures)/float64(total) > m.degradedThreshold {
			return StatusDegraded
		}
	}
	if len(m.recentLatencies) >= 5 && m.averageLocked() > m.slowResponseThreshold {
		return StatusDegraded
	}

	return StatusHealthy
}

// Available reports whether the provider should be called at all.
func (m *Monitor) Available() bool {
	s := m.Status()
	return s == StatusHealthy || s == StatusDegraded
}

// RetryAfter returns the remaining time before calls are allowed again.
func (m *Monitor) RetryAfter() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.retryAfterLocked()
}

func (m *Monitor) retryAfterLocked() time.Duration {
	if m.retryAfterDuration > 0 {
		remaining := m.retryAfterDuration - m.now().Sub(m.lastThrottleTime)
		if remaining > 0 {
			return remaining
		}
	}
	return 0
}

func (m *Monitor) averageLocked() time.Duration {
	if len(m.recentLatencies) == 0 {
		return 0
	}
	var total time.Duration
	for _, lat := range m.recentLatencies {
		total += lat
	}
	return total / time.Duration(len(m.recentLatencies))
}

// Stats returns current monitoring statistics.
func (m *Monitor) Stats() MonitorStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := MonitorStats{
		Provider:          m.provider,
		Status:            m.statusLocked(),
		AverageLatency:    m.averageLocked(),
		Successes:         m.successes,
		Failures:          m.failures,
		ThrottleCount429:  m.status429Count,
		ThrottleCount403:  m.status403Count,
		RequestsLast1Hour: len(m.requestTimestamps),
		RetryAfter:        m.retryAfterLocked(),
		LastSuccessAt:     m.lastSuccessAt,
		LastFailureAt:     m.lastFailureAt,
	}
	if total := m.successes + m.failures; total > 0 {
		stats.ErrorRate = float64(m.failures) / float64(total)
	}
	return stats
}
