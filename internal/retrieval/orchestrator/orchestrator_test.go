package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/mediafetch/internal/core/domain"
	"github.com/vietddude/mediafetch/internal/infra/provider"
	"github.com/vietddude/mediafetch/internal/retrieval/stats"
	"github.com/vietddude/mediafetch/internal/retrieval/verifier"
)

// ============================================================================
// Test doubles
// ============================================================================

// fakeAdapter returns results in order, repeating the last one.
type fakeAdapter struct {
	tag     string
	mu      sync.Mutex
	results []domain.AdapterResult
	calls   int
	panics  bool
	block   bool
}

func (f *fakeAdapter) Tag() string { return f.tag }

func (f *fakeAdapter) Attempt(ctx context.Context, req domain.Request, timeout time.Duration) domain.AdapterResult {
	f.mu.Lock()
	i := f.calls
	f.calls++
	f.mu.Unlock()

	if f.panics {
		panic("adapter exploded")
	}
	if f.block {
		<-ctx.Done()
		return domain.Failed(domain.ReasonTimeout, ctx.Err().Error())
	}
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	return f.results[i]
}

func (f *fakeAdapter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func failing(tag string, reason domain.FailureReason) *fakeAdapter {
	return &fakeAdapter{tag: tag, results: []domain.AdapterResult{domain.Failed(reason, "")}}
}

func succeeding(tag, ref string) *fakeAdapter {
	return &fakeAdapter{tag: tag, results: []domain.AdapterResult{
		domain.Succeeded(domain.Success{ArtifactRef: ref, MethodTag: "fake", ProviderTag: tag}),
	}}
}

type constVerifier struct {
	confidence float64
	calls      int
}

func (v *constVerifier) Verify(context.Context, domain.Request, domain.Success) domain.Verification {
	v.calls++
	return domain.Verification{Confidence: v.confidence, Method: "const"}
}

// zeroPolicy runs without any real sleeping.
func zeroPolicy(passes int) Policy {
	return Policy{AttemptCount: passes, BackoffMultiple: 1}
}

func adapters(a ...*fakeAdapter) []provider.Adapter {
	out := make([]provider.Adapter, len(a))
	for i := range a {
		out[i] = a[i]
	}
	return out
}

func withSleep(f func(ctx context.Context, d time.Duration) error) Option {
	return func(o *options) { o.sleep = f }
}

var ytRequest = domain.Request{ID: "req-1", RawInput: "https://youtu.be/abc", Category: domain.CategoryYouTube}

// ============================================================================
// State machine
// ============================================================================

func TestOrchestrate_UnknownCategory(t *testing.T) {
	a := succeeding("A", "https://cdn.example/video.mp4")
	req := domain.Request{ID: "r", RawInput: "https://example.com/page", Category: domain.CategoryUnknown}

	res := Orchestrate(context.Background(), req, zeroPolicy(3), adapters(a), WithStats(stats.NewCounters()))

	if res.Success {
		t.Fatal("expected failure for unknown category")
	}
	if !errors.Is(res.Error, domain.ErrUnsupportedCategory) {
		t.Errorf("expected unsupported category error, got %v", res.Error)
	}
	if len(res.Attempts) != 0 {
		t.Errorf("expected zero attempts, got %d", len(res.Attempts))
	}
	if a.Calls() != 0 {
		t.Errorf("adapter must not be called, got %d calls", a.Calls())
	}
}

func TestOrchestrate_ClassifiesEmptyCategory(t *testing.T) {
	a := succeeding("A", "https://cdn.example/video.mp4")
	req := domain.Request{ID: "r", RawInput: "https://www.tiktok.com/@u/video/1"}

	res := Orchestrate(context.Background(), req, zeroPolicy(1), adapters(a), WithStats(stats.NewCounters()))
	if !res.Success {
		t.Fatalf("expected success, got %v", res.Error)
	}
	if res.Request.Category != domain.CategoryTikTok {
		t.Errorf("expected tiktok category, got %s", res.Request.Category)
	}
}

func TestOrchestrate_FirstPlausibleSuccessWins(t *testing.T) {
	a := failing("A", domain.ReasonNoArtifactFound)
	b := succeeding("B", "https://cdn.example/b.mp4")
	c := succeeding("C", "https://cdn.example/c.mp4")

	res := Orchestrate(context.Background(), ytRequest, zeroPolicy(1), adapters(a, b, c), WithStats(stats.NewCounters()))

	if !res.Success || res.ProviderTag != "B" {
		t.Fatalf("expected success via B, got success=%v provider=%q", res.Success, res.ProviderTag)
	}
	if c.Calls() != 0 {
		t.Error("tiers after the winner must not run")
	}
	if res.Confidence != nil || res.VerificationMethod != "" {
		t.Error("no verification data expected without a verifier")
	}
}

func TestOrchestrate_TimeoutThenSuccess(t *testing.T) {
	a := failing("A", domain.ReasonTimeout)
	b := succeeding("B", "https://cdn.example/video.mp4")

	res := Orchestrate(context.Background(), ytRequest, zeroPolicy(1), adapters(a, b), WithStats(stats.NewCounters()))

	if !res.Success || res.ProviderTag != "B" {
		t.Fatalf("expected success via B, got %+v", res)
	}
	if res.ArtifactRef != "https://cdn.example/video.mp4" {
		t.Errorf("artifact = %q", res.ArtifactRef)
	}
	if len(res.Attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(res.Attempts))
	}
	first, second := res.Attempts[0], res.Attempts[1]
	if first.TierIndex != 0 || first.Outcome.Reason() != domain.ReasonTimeout {
		t.Errorf("unexpected first attempt %+v", first)
	}
	if second.TierIndex != 1 || !second.Outcome.OK() {
		t.Errorf("unexpected second attempt %+v", second)
	}
}

func TestOrchestrate_ExhaustsAllPasses(t *testing.T) {
	a := failing("A", domain.ReasonTransient)
	b := failing("B", domain.ReasonInputRejected)

	res := Orchestrate(context.Background(), ytRequest, zeroPolicy(2), adapters(a, b), WithStats(stats.NewCounters()))

	if res.Success {
		t.Fatal("expected failure")
	}
	if !errors.Is(res.Error, domain.ErrExhausted) {
		t.Fatalf("expected exhausted, got %v", res.Error)
	}
	if res.Error.LastReason != domain.ReasonInputRejected {
		t.Errorf("last reason = %q", res.Error.LastReason)
	}
	if len(res.Attempts) != 4 {
		t.Fatalf("expected 4 attempts, got %d", len(res.Attempts))
	}

	want := []struct{ tier, pass int }{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	for i, w := range want {
		got := res.Attempts[i]
		if got.TierIndex != w.tier || got.AttemptIndex != w.pass {
			t.Errorf("attempt %d = (tier %d, pass %d), want (%d, %d)", i, got.TierIndex, got.AttemptIndex, w.tier, w.pass)
		}
	}
}

func TestOrchestrate_UniqueTierAttemptPairs(t *testing.T) {
	res := Orchestrate(context.Background(), ytRequest, zeroPolicy(3),
		adapters(failing("A", domain.ReasonTimeout), failing("B", domain.ReasonTimeout), failing("C", domain.ReasonTimeout)),
		WithStats(stats.NewCounters()))

	seen := make(map[[2]int]bool)
	for _, rec := range res.Attempts {
		key := [2]int{rec.TierIndex, rec.AttemptIndex}
		if seen[key] {
			t.Fatalf("duplicate record for %v", key)
		}
		seen[key] = true
		if rec.FinishedAt.Before(rec.StartedAt) {
			t.Errorf("record finished before it started: %+v", rec)
		}
	}
	if len(seen) != 9 {
		t.Errorf("expected 9 records, got %d", len(seen))
	}
}

func TestOrchestrate_ImplausibleSuccessAdvances(t *testing.T) {
	a := succeeding("A", "https://paypal.me/donate")
	b := succeeding("B", "https://cdn.example/ok.mp4")

	res := Orchestrate(context.Background(), ytRequest, zeroPolicy(1), adapters(a, b), WithStats(stats.NewCounters()))

	if !res.Success || res.ProviderTag != "B" {
		t.Fatalf("expected success via B, got %+v", res)
	}
	if got := res.Attempts[0].Outcome.Reason(); got != domain.ReasonNoArtifactFound {
		t.Errorf("implausible success should be recorded as no_artifact_found, got %q", got)
	}
}

func TestOrchestrate_AdapterPanicIsRecovered(t *testing.T) {
	a := &fakeAdapter{tag: "A", panics: true}
	b := succeeding("B", "https://cdn.example/ok.mp4")

	res := Orchestrate(context.Background(), ytRequest, zeroPolicy(1), adapters(a, b), WithStats(stats.NewCounters()))
	if !res.Success {
		t.Fatalf("expected success via B, got %v", res.Error)
	}
	if got := res.Attempts[0].Outcome.Reason(); got != domain.ReasonTransient {
		t.Errorf("panic should be recorded as transient, got %q", got)
	}
}

func TestOrchestrate_VerifierProbePanicIsRecovered(t *testing.T) {
	a := succeeding("A", "https://cdn.example/video.mp4")
	b := &fakeAdapter{tag: "B", panics: true}
	ads := adapters(a, b)

	res := Orchestrate(context.Background(), ytRequest, zeroPolicy(1), ads,
		WithVerifier(verifier.NewIndependent(ads, 0), 0.5), WithStats(stats.NewCounters()))

	if !res.Success || res.ProviderTag != "A" {
		t.Fatalf("expected success via A, got %+v", res)
	}
	if b.Calls() != 1 {
		t.Errorf("expected one probe call on B, got %d", b.Calls())
	}
	v := res.Attempts[0].Verification
	if v == nil || v.Method != verifier.MethodIndependent {
		t.Fatalf("expected independent verification, got %+v", v)
	}
}

func TestOrchestrate_NoAdapters(t *testing.T) {
	res := Orchestrate(context.Background(), ytRequest, zeroPolicy(1), nil, WithStats(stats.NewCounters()))
	if res.Success || !errors.Is(res.Error, domain.ErrExhausted) {
		t.Fatalf("expected exhausted with no adapters, got %+v", res)
	}
}

// ============================================================================
// Verification
// ============================================================================

func TestOrchestrate_ZeroConfidenceNeverSucceeds(t *testing.T) {
	a := succeeding("A", "https://cdn.example/a.mp4")
	b := succeeding("B", "https://cdn.example/b.mp4")
	v := &constVerifier{confidence: 0}
	counters := stats.NewCounters()

	res := Orchestrate(context.Background(), ytRequest, zeroPolicy(2), adapters(a, b),
		WithVerifier(v, verifier.DefaultThreshold), WithStats(counters))

	if res.Success {
		t.Fatal("must not succeed when every verification fails")
	}
	if !errors.Is(res.Error, domain.ErrExhausted) {
		t.Fatalf("expected exhausted, got %v", res.Error)
	}
	if res.Error.LastReason != domain.ReasonVerificationFailed {
		t.Errorf("last reason = %q", res.Error.LastReason)
	}
	if len(res.Attempts) != 4 || v.calls != 4 {
		t.Errorf("expected 4 attempts and 4 verifications, got %d and %d", len(res.Attempts), v.calls)
	}
	for _, rec := range res.Attempts {
		if rec.Verification == nil || rec.Verification.Passed {
			t.Errorf("expected a failed verification on %+v", rec)
		}
		if !rec.Outcome.OK() {
			t.Error("the claimed success must be kept unmodified in the record")
		}
	}
	if got := counters.Snapshot().VerificationFailures; got != 4 {
		t.Errorf("verification failures = %d", got)
	}
	if res.Confidence != nil {
		t.Error("confidence is attached only on success")
	}
}

func TestOrchestrate_VerificationAttachesConfidence(t *testing.T) {
	b := succeeding("B", "https://cdn.example/video.mp4")

	res := Orchestrate(context.Background(), ytRequest, zeroPolicy(1), adapters(b),
		WithVerifier(verifier.Rules{}, 0), WithStats(stats.NewCounters()))

	if !res.Success {
		t.Fatalf("expected success, got %v", res.Error)
	}
	if res.Confidence == nil || *res.Confidence < verifier.DefaultThreshold {
		t.Fatalf("expected confidence >= threshold, got %v", res.Confidence)
	}
	if res.VerificationMethod != verifier.MethodRules {
		t.Errorf("method = %q", res.VerificationMethod)
	}
}

func TestOrchestrate_RejectedClaimNotRetriedOnSameTierInPass(t *testing.T) {
	a := succeeding("A", "https://cdn.example/a.mp4")
	b := succeeding("B", "https://cdn.example/b.mp4")
	v := &sequenceVerifier{scores: []float64{0.1, 0.95}}

	res := Orchestrate(context.Background(), ytRequest, zeroPolicy(1), adapters(a, b),
		WithVerifier(v, 0.7), WithStats(stats.NewCounters()))

	if !res.Success || res.ProviderTag != "B" {
		t.Fatalf("expected success via B, got %+v", res)
	}
	if a.Calls() != 1 {
		t.Errorf("rejected adapter should not be retried within the pass, got %d calls", a.Calls())
	}
}

type sequenceVerifier struct {
	scores []float64
	i      int
}

func (v *sequenceVerifier) Verify(context.Context, domain.Request, domain.Success) domain.Verification {
	s := v.scores[v.i]
	v.i++
	return domain.Verification{Confidence: s, Method: "seq"}
}

// ============================================================================
// Timing and cancellation
// ============================================================================

func TestOrchestrate_RequestsPolicyDelays(t *testing.T) {
	var delays []time.Duration
	sleep := func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	policy := Policy{
		TierDelay:       2 * time.Second,
		AttemptCount:    3,
		AttemptDelay:    5 * time.Second,
		BackoffMultiple: 2,
		MaxAttemptDelay: 8 * time.Second,
	}

	Orchestrate(context.Background(), ytRequest, policy,
		adapters(failing("A", domain.ReasonTimeout), failing("B", domain.ReasonTimeout)),
		WithStats(stats.NewCounters()), withSleep(sleep))

	// pass 0: tier gap; retry 5s; pass 1: tier gap; retry min(10s, 8s); pass 2: tier gap
	want := []time.Duration{2 * time.Second, 5 * time.Second, 2 * time.Second, 8 * time.Second, 2 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay %d = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestOrchestrate_CanceledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := failing("A", domain.ReasonTimeout)
	b := succeeding("B", "https://cdn.example/b.mp4")

	sleep := func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}
	res := Orchestrate(ctx, ytRequest, Policy{AttemptCount: 1, TierDelay: time.Hour}, adapters(a, b),
		WithStats(stats.NewCounters()), withSleep(sleep))

	if res.Success || !errors.Is(res.Error, domain.ErrCanceled) {
		t.Fatalf("expected canceled, got %+v", res.Error)
	}
	if b.Calls() != 0 {
		t.Error("no tier may start after cancellation")
	}
	if len(res.Attempts) != 1 {
		t.Errorf("expected the completed attempt to be kept, got %d", len(res.Attempts))
	}
}

func TestOrchestrate_CanceledDuringAttempt(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	a := &fakeAdapter{tag: "A", block: true}
	b := succeeding("B", "https://cdn.example/b.mp4")

	res := Orchestrate(ctx, ytRequest, zeroPolicy(3), adapters(a, b), WithStats(stats.NewCounters()))

	if !errors.Is(res.Error, domain.ErrCanceled) {
		t.Fatalf("expected canceled, got %+v", res.Error)
	}
	if b.Calls() != 0 {
		t.Error("no tier may start after cancellation")
	}
}

func TestOrchestrate_TiersNeverOverlap(t *testing.T) {
	var mu sync.Mutex
	active, maxActive := 0, 0
	track := func() {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		time.Sleep(2 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
	}

	list := make([]provider.Adapter, 0, 4)
	for _, tag := range []string{"A", "B", "C", "D"} {
		list = append(list, &trackingAdapter{tag: tag, track: track})
	}
	Orchestrate(context.Background(), ytRequest, zeroPolicy(2), list, WithStats(stats.NewCounters()))

	if maxActive != 1 {
		t.Errorf("expected strictly sequential tiers, saw %d concurrent", maxActive)
	}
}

type trackingAdapter struct {
	tag   string
	track func()
}

func (a *trackingAdapter) Tag() string { return a.tag }

func (a *trackingAdapter) Attempt(context.Context, domain.Request, time.Duration) domain.AdapterResult {
	a.track()
	return domain.Failed(domain.ReasonTransient, "")
}

// ============================================================================
// Events and stats
// ============================================================================

func TestOrchestrate_EmitsTransitions(t *testing.T) {
	var events []domain.EventType
	obs := func(ev domain.Event) {
		if ev.RequestID != ytRequest.ID {
			t.Errorf("event without request id: %+v", ev)
		}
		events = append(events, ev.Type)
	}

	Orchestrate(context.Background(), ytRequest, zeroPolicy(2),
		adapters(failing("A", domain.ReasonTimeout), succeeding("B", "https://cdn.example/b.mp4")),
		WithVerifier(verifier.Null{}, 0), WithObserver(obs), WithStats(stats.NewCounters()))

	want := []domain.EventType{
		domain.EventClassifying,
		domain.EventTierAttempt, domain.EventTierFailed,
		domain.EventTierAttempt, domain.EventVerifying,
		domain.EventSucceeded,
	}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, events[i], want[i])
		}
	}
}

func TestOrchestrate_RetryingEvent(t *testing.T) {
	var retrying int
	obs := func(ev domain.Event) {
		if ev.Type == domain.EventRetrying {
			retrying++
		}
	}
	res := Orchestrate(context.Background(), ytRequest, zeroPolicy(3), adapters(failing("A", domain.ReasonTimeout)),
		WithObserver(obs), WithStats(stats.NewCounters()))

	if retrying != 2 {
		t.Errorf("expected 2 retrying events, got %d", retrying)
	}
	if !errors.Is(res.Error, domain.ErrExhausted) {
		t.Errorf("expected exhausted, got %v", res.Error)
	}
}

func TestOrchestrate_ObserverPanicIsSwallowed(t *testing.T) {
	obs := func(ev domain.Event) { panic("observer bug") }

	res := Orchestrate(context.Background(), ytRequest, zeroPolicy(1),
		adapters(failing("A", domain.ReasonTimeout), succeeding("B", "https://cdn.example/b.mp4")),
		WithObserver(obs), WithStats(stats.NewCounters()))

	if !res.Success || res.ProviderTag != "B" {
		t.Fatalf("observer panic must not abort the run, got %+v", res)
	}
}

func TestObservers_PanicDoesNotStarveLaterObservers(t *testing.T) {
	var got []domain.EventType
	panicking := func(domain.Event) { panic("observer bug") }
	recording := func(ev domain.Event) { got = append(got, ev.Type) }

	Orchestrate(context.Background(), ytRequest, zeroPolicy(1),
		adapters(succeeding("A", "https://cdn.example/a.mp4")),
		WithObserver(Observers(panicking, nil, recording)), WithStats(stats.NewCounters()))

	if len(got) == 0 {
		t.Fatal("observer after a panicking one received no events")
	}
	if got[len(got)-1] != domain.EventSucceeded {
		t.Errorf("last event = %q, want %q", got[len(got)-1], domain.EventSucceeded)
	}
}

func TestObservers_ReraisesAfterDelivery(t *testing.T) {
	calls := 0
	obs := Observers(func(domain.Event) { panic("first") }, func(domain.Event) { calls++ })

	defer func() {
		if p := recover(); p != "first" {
			t.Errorf("recovered %v, want first", p)
		}
		if calls != 1 {
			t.Errorf("second observer called %d times, want 1", calls)
		}
	}()
	obs(domain.Event{})
}

func TestChannelObserver_NeverBlocks(t *testing.T) {
	ch := make(chan domain.Event, 1)
	obs := ChannelObserver(ch)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			obs(domain.Event{Type: domain.EventTierAttempt})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ChannelObserver blocked on a full channel")
	}
	if len(ch) != 1 {
		t.Errorf("expected one buffered event, got %d", len(ch))
	}
}

func TestOrchestrate_RecordsStats(t *testing.T) {
	counters := stats.NewCounters()
	a := failing("A", domain.ReasonTimeout)
	b := succeeding("B", "https://cdn.example/b.mp4")

	Orchestrate(context.Background(), ytRequest, zeroPolicy(1), adapters(a, b),
		WithVerifier(verifier.Null{}, 0), WithStats(counters))
	Orchestrate(context.Background(), domain.Request{RawInput: "nope"}, zeroPolicy(1), adapters(a, b), WithStats(counters))

	snap := counters.Snapshot()
	if snap.TotalAttempts != 2 {
		t.Errorf("TotalAttempts = %d, want 2", snap.TotalAttempts)
	}
	if snap.SuccessfulDownloads != 1 || snap.FailedDownloads != 1 {
		t.Errorf("unexpected outcomes %+v", snap)
	}
	if got := snap.Providers["A"]; got.Attempts != 1 || got.Successes != 0 {
		t.Errorf("provider A = %+v", got)
	}
	if got := snap.Providers["B"]; got.Attempts != 1 || got.Successes != 1 || got.VerifiedSuccesses != 1 {
		t.Errorf("provider B = %+v", got)
	}
}

func TestOrchestrate_RejectedClaimCountsAsUnverifiedSuccess(t *testing.T) {
	counters := stats.NewCounters()
	a := succeeding("A", "https://cdn.example/a.mp4")

	Orchestrate(context.Background(), ytRequest, zeroPolicy(1), adapters(a),
		WithVerifier(&constVerifier{confidence: 0.1}, 0.7), WithStats(counters))

	snap := counters.Snapshot()
	got := snap.Providers["A"]
	if got.Successes != 1 || got.VerifiedSuccesses != 0 {
		t.Errorf("provider A = %+v, want 1 plausible claim and 0 verified", got)
	}
	if snap.VerificationFailures != 1 || snap.FailedDownloads != 1 {
		t.Errorf("unexpected aggregate counters %+v", snap)
	}
}

// ============================================================================
// Policy
// ============================================================================

func TestPolicy_PassDelay(t *testing.T) {
	p := Policy{AttemptDelay: time.Second, BackoffMultiple: 2, MaxAttemptDelay: 5 * time.Second}
	tests := map[int]time.Duration{
		1: time.Second,
		2: 2 * time.Second,
		3: 4 * time.Second,
		4: 5 * time.Second,
	}
	for pass, want := range tests {
		if got := p.PassDelay(pass); got != want {
			t.Errorf("PassDelay(%d) = %v, want %v", pass, got, want)
		}
	}

	constant := DefaultPolicy
	if constant.PassDelay(1) != constant.PassDelay(3) {
		t.Error("default policy should use a constant pass delay")
	}
}

func TestPolicy_Normalize(t *testing.T) {
	p := Policy{AttemptCount: 0, BackoffMultiple: 0, TierDelay: -time.Second}.Normalize()
	if p.AttemptCount != 1 || p.BackoffMultiple != 1 || p.TierDelay != 0 {
		t.Errorf("unexpected normalized policy %+v", p)
	}
}

func TestNewRequest(t *testing.T) {
	req := NewRequest("  https://vimeo.com/123  ")
	if req.ID == "" {
		t.Error("expected a request id")
	}
	if req.RawInput != "https://vimeo.com/123" || req.Category != domain.CategoryVimeo {
		t.Errorf("unexpected request %+v", req)
	}
	if NewRequest("x").ID == req.ID {
		t.Error("request ids must be unique")
	}
}
