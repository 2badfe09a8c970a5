package provider

import (
	"sync"
	"time"
)

// QuotaUsage holds daily quota statistics for one provider.
type QuotaUsage struct {
	Used            int       `json:"used"`
	CallsThisHour   int       `json:"calls_this_hour"`
	DailyLimit      int       `json:"daily_limit"`
	Remaining       int       `json:"remaining"`
	UsagePercentage float64   `json:"usage_percentage"`
	NextResetAt     time.Time `json:"next_reset_at"`
}

// Quota counts attempts against a daily limit that resets at local midnight.
type Quota struct {
	mu            sync.Mutex
	limit         int
	used          int
	callsThisHour int
	hourStart     time.Time
	resetAt       time.Time
	now           func() time.Time
}

// NewQuota creates a quota allowing limit attempts per day.
func NewQuota(limit int) *Quota {
	q := &Quota{limit: limit, now: time.Now}
	q.resetUnsafe()
	return q
}

// Allow records an attempt and reports whether it fits in the remaining quota.
func (q *Quota) Allow() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	if now.After(q.resetAt) {
		q.resetUnsafe()
	}
	if q.used >= q.limit {
		return false
	}

	if now.Sub(q.hourStart) >= time.Hour {
		q.callsThisHour = 0
		q.hourStart = now
	}
	q.used++
	q.callsThisHour++
	return true
}

// Usage returns the current statistics.
func (q *Quota) Usage() QuotaUsage {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.now().After(q.resetAt) {
		q.resetUnsafe()
	}

	remaining := max(q.limit-q.used, 0)
	pct := 0.0
	if q.limit > 0 {
		pct = float64(q.used) / float64(q.limit) * 100
	}
	return QuotaUsage{
		Used:            q.used,
		CallsThisHour:   q.callsThisHour,
		DailyLimit:      q.limit,
		Remaining:       remaining,
		UsagePercentage: pct,
		NextResetAt:     q.resetAt,
	}
}

func (q *Quota) resetUnsafe() {
	now := q.now()
	q.used = 0
	q.callsThisHour = 0
	q.hourStart = now
	q.resetAt = time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
}
