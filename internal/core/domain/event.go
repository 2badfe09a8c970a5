package domain

import "time"

// EventType names an orchestrator state transition.
type EventType string

const (
	EventClassifying EventType = "classifying"
	EventTierAttempt EventType = "tier_attempt"
	EventTierFailed  EventType = "tier_failed"
	EventVerifying   EventType = "verifying"
	EventRetrying    EventType = "retrying"
	EventSucceeded   EventType = "succeeded"
	EventFailed      EventType = "failed"
)

// Event is a progress notification emitted at most once per transition.
type Event struct {
	Type       EventType     `json:"type"`
	RequestID  string        `json:"request_id"`
	Category   Category      `json:"category,omitempty"`
	Provider   string        `json:"provider,omitempty"`
	Tier       int           `json:"tier"`
	Pass       int           `json:"pass"`
	Reason     FailureReason `json:"reason,omitempty"`
	Confidence float64       `json:"confidence,omitempty"`
	Delay      time.Duration `json:"delay,omitempty"`
	Message    string        `json:"message,omitempty"`
	At         time.Time     `json:"at"`
}
