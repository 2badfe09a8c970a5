package domain

import "time"

// FailureReason classifies why an adapter invocation did not produce an artifact.
type FailureReason string

const (
	ReasonUnsupported        FailureReason = "unsupported"
	ReasonInputRejected      FailureReason = "input_rejected"
	ReasonTimeout            FailureReason = "timeout"
	ReasonNoArtifactFound    FailureReason = "no_artifact_found"
	ReasonTransient          FailureReason = "transient_provider_error"
	ReasonVerificationFailed FailureReason = "verification_failed"
)

// Success is a claimed artifact produced by one adapter.
// The metadata fields are optional and provider specific.
type Success struct {
	ArtifactRef string `json:"artifact_ref"`
	MethodTag   string `json:"method_tag"`
	ProviderTag string `json:"provider_tag"`

	Quality     string `json:"quality,omitempty"`
	Filename    string `json:"filename,omitempty"`
	Title       string `json:"title,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// Failure describes a failed adapter invocation.
type Failure struct {
	Reason  FailureReason `json:"reason"`
	Message string        `json:"message,omitempty"`
}

// AdapterResult is either a Success or a Failure, never both.
// Build it with Succeeded or Failed.
type AdapterResult struct {
	Success *Success `json:"success,omitempty"`
	Failure *Failure `json:"failure,omitempty"`
}

// Succeeded wraps s into an AdapterResult.
func Succeeded(s Success) AdapterResult {
	return AdapterResult{Success: &s}
}

// Failed builds a failure result.
func Failed(reason FailureReason, message string) AdapterResult {
	return AdapterResult{Failure: &Failure{Reason: reason, Message: message}}
}

// OK reports whether the result is a Success.
func (r AdapterResult) OK() bool {
	return r.Success != nil
}

// Reason returns the failure reason, or "" for a success.
func (r AdapterResult) Reason() FailureReason {
	if r.Failure == nil {
		return ""
	}
	return r.Failure.Reason
}

// Verification is the outcome of a verifier run against a claimed success.
type Verification struct {
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
	Reason     string  `json:"reason,omitempty"`
	Passed     bool    `json:"passed"`
}

// AttemptRecord captures a single adapter invocation within one orchestration.
type AttemptRecord struct {
	ProviderTag  string        `json:"provider_tag"`
	TierIndex    int           `json:"tier_index"`
	AttemptIndex int           `json:"attempt_index"`
	Outcome      AdapterResult `json:"outcome"`
	Verification *Verification `json:"verification,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
}

// Duration returns how long the attempt took.
func (a AttemptRecord) Duration() time.Duration {
	return a.FinishedAt.Sub(a.StartedAt)
}

// OrchestrationResult is the final outcome for one Request.
type OrchestrationResult struct {
	Request Request `json:"request"`
	Success bool    `json:"success"`

	ArtifactRef string `json:"artifact_ref,omitempty"`
	ProviderTag string `json:"provider_tag,omitempty"`
	MethodTag   string `json:"method_tag,omitempty"`
	Quality     string `json:"quality,omitempty"`
	Filename    string `json:"filename,omitempty"`
	Title       string `json:"title,omitempty"`

	Confidence         *float64 `json:"confidence,omitempty"`
	VerificationMethod string   `json:"verification_method,omitempty"`

	Attempts        []AttemptRecord     `json:"attempts"`
	TotalDurationMs int64               `json:"total_duration_ms"`
	Error           *OrchestrationError `json:"error,omitempty"`
	CompletedAt     time.Time           `json:"completed_at"`
}

// ProviderTags returns the provider tag of every attempt, in order.
func (r OrchestrationResult) ProviderTags() []string {
	tags := make([]string, len(r.Attempts))
	for i, a := range r.Attempts {
		tags[i] = a.ProviderTag
	}
	return tags
}
