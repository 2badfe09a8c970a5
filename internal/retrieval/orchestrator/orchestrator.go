// Package orchestrator drives provider adapters in priority order under a retry policy
// and folds their outcomes into a single OrchestrationResult.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/mediafetch/internal/core/classify"
	"github.com/vietddude/mediafetch/internal/core/domain"
	"github.com/vietddude/mediafetch/internal/infra/provider"
	"github.com/vietddude/mediafetch/internal/retrieval/metrics"
	"github.com/vietddude/mediafetch/internal/retrieval/stats"
	"github.com/vietddude/mediafetch/internal/retrieval/verifier"
)

type options struct {
	verifier  verifier.Verifier
	threshold float64
	observer  Observer
	stats     stats.Collector
	log       *slog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// Option configures an Orchestrator or a single Orchestrate call.
type Option func(*options)

// WithVerifier enables the verifying stage. A threshold <= 0 uses verifier.DefaultThreshold.
func WithVerifier(v verifier.Verifier, threshold float64) Option {
	return func(o *options) {
		o.verifier = v
		o.threshold = threshold
	}
}

// WithObserver sets the progress observer.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithStats sets the stats collector. The default is stats.Default.
func WithStats(c stats.Collector) Option {
	return func(o *options) { o.stats = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// Orchestrator runs requests against an ordered adapter list.
// It holds no per-request state and is safe for concurrent use.
type Orchestrator struct {
	policy   Policy
	adapters []provider.Adapter
	opts     options
}

// New creates an Orchestrator. Adapters are tried in slice order.
func New(policy Policy, adapters []provider.Adapter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		policy:   policy.Normalize(),
		adapters: append([]provider.Adapter(nil), adapters...),
		opts: options{
			stats: stats.Default,
			log:   slog.Default(),
			sleep: sleepCtx,
		},
	}
	for _, opt := range opts {
		opt(&o.opts)
	}
	return o
}

// Orchestrate is a convenience wrapper for one-off runs.
func Orchestrate(ctx context.Context, req domain.Request, policy Policy, adapters []provider.Adapter, opts ...Option) domain.OrchestrationResult {
	return New(policy, adapters, opts...).Orchestrate(ctx, req)
}

// NewRequest classifies raw and assigns a fresh request ID.
func NewRequest(raw string) domain.Request {
	raw = strings.TrimSpace(raw)
	return domain.Request{
		ID:       uuid.NewString(),
		RawInput: raw,
		Category: classify.Platform(raw),
	}
}

// Policy returns the normalized policy.
func (o *Orchestrator) Policy() Policy {
	return o.policy
}

// Adapters returns the adapters in priority order.
func (o *Orchestrator) Adapters() []provider.Adapter {
	return append([]provider.Adapter(nil), o.adapters...)
}

// Orchestrate runs req to completion. It always returns exactly one result and never panics
// on adapter failures. opts override the orchestrator's options for this call only.
func (o *Orchestrator) Orchestrate(ctx context.Context, req domain.Request, opts ...Option) domain.OrchestrationResult {
	cfg := o.opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.verifier != nil && cfg.threshold <= 0 {
		cfg.threshold = verifier.DefaultThreshold
	}
	if cfg.stats == nil {
		cfg.stats = stats.Default
	}
	if cfg.log == nil {
		cfg.log = slog.Default()
	}
	if cfg.sleep == nil {
		cfg.sleep = sleepCtx
	}

	r := &run{
		policy:   o.policy,
		adapters: o.adapters,
		opts:     cfg,
		req:      req,
		start:    time.Now(),
	}
	return r.execute(ctx)
}

// run holds the state of one orchestration.
type run struct {
	policy   Policy
	adapters []provider.Adapter
	opts     options
	req      domain.Request
	start    time.Time
	attempts []domain.AttemptRecord
}

func (r *run) execute(ctx context.Context) domain.OrchestrationResult {
	r.opts.stats.RecordRequest()
	r.attempts = make([]domain.AttemptRecord, 0, len(r.adapters)*r.policy.AttemptCount)

	r.emit(domain.Event{Type: domain.EventClassifying})
	if r.req.Category == "" {
		r.req.Category = classify.Platform(r.req.RawInput)
	}
	if !r.req.Category.IsKnown() {
		return r.fail(domain.ErrorUnsupportedCategory, "unsupported platform for input", "")
	}
	if len(r.adapters) == 0 {
		return r.fail(domain.ErrorExhausted, "no adapters configured", "")
	}

	var lastReason domain.FailureReason
	for pass := 0; pass < r.policy.AttemptCount; pass++ {
		if pass > 0 {
			delay := r.policy.PassDelay(pass)
			r.emit(domain.Event{Type: domain.EventRetrying, Pass: pass, Delay: delay, Reason: lastReason})
			if err := r.opts.sleep(ctx, delay); err != nil {
				return r.canceled(err, lastReason)
			}
		}

		for tier, adapter := range r.adapters {
			if tier > 0 {
				if err := r.opts.sleep(ctx, r.policy.TierDelay); err != nil {
					return r.canceled(err, lastReason)
				}
			}
			if err := ctx.Err(); err != nil {
				return r.canceled(err, lastReason)
			}

			r.emit(domain.Event{Type: domain.EventTierAttempt, Provider: adapter.Tag(), Tier: tier, Pass: pass})
			rec, accepted := r.attempt(ctx, tier, pass, adapter)
			r.attempts = append(r.attempts, rec)
			if accepted {
				return r.succeed(rec)
			}

			lastReason = rec.Outcome.Reason()
			msg := ""
			if rec.Outcome.Failure != nil {
				msg = rec.Outcome.Failure.Message
			}
			if rec.Verification != nil {
				lastReason = domain.ReasonVerificationFailed
				msg = fmt.Sprintf("confidence %.2f below threshold %.2f", rec.Verification.Confidence, r.opts.threshold)
			}
			r.emit(domain.Event{Type: domain.EventTierFailed, Provider: adapter.Tag(), Tier: tier, Pass: pass, Reason: lastReason, Message: msg})
			r.opts.log.Debug("Tier failed",
				"request", r.req.ID, "provider", adapter.Tag(), "tier", tier, "pass", pass,
				"reason", lastReason, "message", msg)

			if err := ctx.Err(); err != nil {
				return r.canceled(err, lastReason)
			}
		}
	}

	return r.fail(domain.ErrorExhausted,
		fmt.Sprintf("all %d tiers failed after %d passes", len(r.adapters), r.policy.AttemptCount), lastReason)
}

// attempt invokes one adapter and, for a plausible success, the verifier.
// The record is built once with everything it will ever contain.
func (r *run) attempt(ctx context.Context, tier, pass int, adapter provider.Adapter) (domain.AttemptRecord, bool) {
	tag := adapter.Tag()

	started := time.Now()
	res := r.invoke(ctx, adapter)
	finished := time.Now()

	r.opts.stats.RecordAttempt(tag)
	metrics.AttemptLatency.WithLabelValues(tag).Observe(finished.Sub(started).Seconds())

	if res.OK() {
		if classify.IsPlausibleArtifact(res.Success.ArtifactRef, res.Success.ContentType) {
			r.opts.stats.RecordProviderSuccess(tag)
		} else {
			res = domain.Failed(domain.ReasonNoArtifactFound, "implausible artifact reference: "+res.Success.ArtifactRef)
		}
	}

	outcome := "success"
	if !res.OK() {
		outcome = string(res.Reason())
	}
	metrics.AttemptsTotal.WithLabelValues(tag, outcome).Inc()

	rec := domain.AttemptRecord{
		ProviderTag:  tag,
		TierIndex:    tier,
		AttemptIndex: pass,
		Outcome:      res,
		StartedAt:    started,
		FinishedAt:   finished,
	}
	if !res.OK() || r.opts.verifier == nil {
		return rec, res.OK()
	}

	r.emit(domain.Event{Type: domain.EventVerifying, Provider: tag, Tier: tier, Pass: pass})
	v := r.opts.verifier.Verify(ctx, r.req, *res.Success)
	v.Passed = v.Confidence >= r.opts.threshold
	rec.Verification = &v

	if !v.Passed {
		r.opts.stats.RecordVerificationFailure()
		metrics.VerificationsTotal.WithLabelValues(v.Method, "rejected").Inc()
		return rec, false
	}
	r.opts.stats.RecordVerified(tag)
	metrics.VerificationsTotal.WithLabelValues(v.Method, "passed").Inc()
	return rec, true
}

// invoke calls the adapter, converting a panic into a transient failure.
func (r *run) invoke(ctx context.Context, adapter provider.Adapter) (res domain.AdapterResult) {
	defer func() {
		if p := recover(); p != nil {
			r.opts.log.Error("Adapter panicked", "provider", adapter.Tag(), "panic", p)
			res = domain.Failed(domain.ReasonTransient, fmt.Sprintf("adapter panic: %v", p))
		}
	}()

	res = adapter.Attempt(ctx, r.req, r.policy.AttemptTimeout)
	if res.Success == nil && res.Failure == nil {
		res = domain.Failed(domain.ReasonTransient, "adapter returned an empty result")
	}
	return res
}

func (r *run) succeed(rec domain.AttemptRecord) domain.OrchestrationResult {
	s := rec.Outcome.Success
	result := r.result(true)
	result.ArtifactRef = s.ArtifactRef
	result.ProviderTag = rec.ProviderTag
	result.MethodTag = s.MethodTag
	result.Quality = s.Quality
	result.Filename = s.Filename
	result.Title = s.Title
	if rec.Verification != nil {
		conf := rec.Verification.Confidence
		result.Confidence = &conf
		result.VerificationMethod = rec.Verification.Method
	}

	r.emit(domain.Event{
		Type:       domain.EventSucceeded,
		Provider:   rec.ProviderTag,
		Tier:       rec.TierIndex,
		Pass:       rec.AttemptIndex,
		Confidence: confidenceOf(rec),
	})
	r.opts.log.Info("Retrieval succeeded",
		"request", r.req.ID, "category", r.req.Category, "provider", rec.ProviderTag,
		"attempts", len(result.Attempts), "duration_ms", result.TotalDurationMs)
	return result
}

func (r *run) fail(kind domain.ErrorKind, message string, last domain.FailureReason) domain.OrchestrationResult {
	result := r.result(false)
	result.Error = &domain.OrchestrationError{Kind: kind, Message: message, LastReason: last}

	r.emit(domain.Event{Type: domain.EventFailed, Reason: last, Message: result.Error.Error()})
	r.opts.log.Warn("Retrieval failed",
		"request", r.req.ID, "category", r.req.Category, "kind", kind,
		"last_reason", last, "attempts", len(result.Attempts))
	return result
}

func (r *run) canceled(err error, last domain.FailureReason) domain.OrchestrationResult {
	return r.fail(domain.ErrorCanceled, err.Error(), last)
}

// result builds the common part of the final value and records completion.
func (r *run) result(success bool) domain.OrchestrationResult {
	now := time.Now()
	res := domain.OrchestrationResult{
		Request:         r.req,
		Success:         success,
		Attempts:        r.attempts,
		TotalDurationMs: now.Sub(r.start).Milliseconds(),
		CompletedAt:     now,
	}

	label := "failure"
	if success {
		label = "success"
	}
	r.opts.stats.RecordCompletion(success)
	metrics.OrchestrationsTotal.WithLabelValues(string(r.req.Category), label).Inc()
	metrics.OrchestrationDuration.WithLabelValues(label).Observe(now.Sub(r.start).Seconds())
	return res
}

// emit delivers ev to the observer. Observer panics never reach the state machine.
func (r *run) emit(ev domain.Event) {
	if r.opts.observer == nil {
		return
	}
	ev.RequestID = r.req.ID
	ev.Category = r.req.Category
	ev.At = time.Now()

	defer func() {
		if p := recover(); p != nil {
			r.opts.log.Warn("Progress observer panicked", "request", r.req.ID, "event", ev.Type, "panic", p)
		}
	}()
	r.opts.observer(ev)
}

func confidenceOf(rec domain.AttemptRecord) float64 {
	if rec.Verification == nil {
		return 0
	}
	return rec.Verification.Confidence
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
