package orchestrator

import (
	"math"
	"time"
)

// Policy controls how the orchestrator paces tiers and passes.
// It is consulted only between adapter calls, never inside one.
type Policy struct {
	// TierDelay is the pause before moving to the next tier within a pass
	TierDelay time.Duration `yaml:"tier_delay"`
	// AttemptCount is the number of full passes over the adapter list
	AttemptCount int `yaml:"attempt_count"`
	// AttemptDelay is the pause before the second pass
	AttemptDelay time.Duration `yaml:"attempt_delay"`
	// BackoffMultiple grows the pass delay geometrically; 1 keeps it constant
	BackoffMultiple float64 `yaml:"backoff_multiple"`
	// MaxAttemptDelay caps the pass delay; 0 means no cap
	MaxAttemptDelay time.Duration `yaml:"max_attempt_delay"`
	// AttemptTimeout bounds a single adapter call; 0 leaves it to the adapter
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
}

// DefaultPolicy provides sensible defaults.
var DefaultPolicy = Policy{
	TierDelay:       2 * time.Second,
	AttemptCount:    3,
	AttemptDelay:    5 * time.Second,
	BackoffMultiple: 1,
	MaxAttemptDelay: 60 * time.Second,
	AttemptTimeout:  45 * time.Second,
}

// Normalize fixes values that would stall or skip the state machine.
// Zero delays are kept.
func (p Policy) Normalize() Policy {
	if p.AttemptCount < 1 {
		p.AttemptCount = 1
	}
	if p.BackoffMultiple <= 0 {
		p.BackoffMultiple = 1
	}
	if p.TierDelay < 0 {
		p.TierDelay = 0
	}
	if p.AttemptDelay < 0 {
		p.AttemptDelay = 0
	}
	return p
}

// PassDelay returns the pause after pass number pass (1-based) completes.
func (p Policy) PassDelay(pass int) time.Duration {
	if pass < 1 {
		pass = 1
	}
	mult := p.BackoffMultiple
	if mult <= 0 {
		mult = 1
	}
	delay := float64(p.AttemptDelay) * math.Pow(mult, float64(pass-1))
	if p.MaxAttemptDelay > 0 && delay > float64(p.MaxAttemptDelay) {
		delay = float64(p.MaxAttemptDelay)
	}
	return time.Duration(delay)
}
