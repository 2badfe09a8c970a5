package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/mediafetch/internal/core/domain"
	"github.com/vietddude/mediafetch/internal/infra/provider"
	"github.com/vietddude/mediafetch/internal/retrieval/batch"
	"github.com/vietddude/mediafetch/internal/retrieval/orchestrator"
	"github.com/vietddude/mediafetch/internal/retrieval/stats"
)

// ============================================================================
// Test doubles
// ============================================================================

type stubAdapter struct {
	*provider.Base
}

func (a *stubAdapter) Attempt(context.Context, domain.Request, time.Duration) domain.AdapterResult {
	return domain.Failed(domain.ReasonTransient, "stub")
}

func newStub(tag string, platforms ...domain.Category) *stubAdapter {
	return &stubAdapter{Base: provider.NewBase(tag, platforms)}
}

// fakeService answers every request with a fixed rule.
type fakeService struct {
	adapters   []provider.Adapter
	history    []domain.OrchestrationResult
	historyErr error
	lastLimit  int
	batchConc  int
}

func (f *fakeService) Orchestrate(ctx context.Context, req domain.Request, opts ...orchestrator.Option) domain.OrchestrationResult {
	res := domain.OrchestrationResult{Request: req, CompletedAt: time.Now()}
	switch {
	case req.Category == domain.CategoryUnknown:
		res.Error = &domain.OrchestrationError{Kind: domain.ErrorUnsupportedCategory, Message: "unsupported"}
	case strings.Contains(req.RawInput, "fail"):
		res.Attempts = []domain.AttemptRecord{{ProviderTag: "a", Outcome: domain.Failed(domain.ReasonTimeout, "slow")}}
		res.Error = &domain.OrchestrationError{Kind: domain.ErrorExhausted, LastReason: domain.ReasonTimeout}
	default:
		conf := 0.9
		res.Success = true
		res.ArtifactRef = "https://cdn.example/v.mp4"
		res.ProviderTag = "a"
		res.MethodTag = "http_api"
		res.Confidence = &conf
		res.VerificationMethod = "rules"
		res.Attempts = []domain.AttemptRecord{{
			ProviderTag:  "a",
			Outcome:      domain.Succeeded(domain.Success{ArtifactRef: res.ArtifactRef, ProviderTag: "a"}),
			Verification: &domain.Verification{Confidence: conf, Method: "rules", Passed: true},
		}}
	}
	return res
}

func (f *fakeService) FetchBatch(ctx context.Context, raws []string, concurrency int, onProgress batch.ProgressFunc) []domain.BatchItem {
	f.batchConc = concurrency
	items := make([]domain.BatchItem, len(raws))
	for i, raw := range raws {
		req := orchestrator.NewRequest(raw)
		items[i] = domain.BatchItem{Index: i, Request: req, Result: f.Orchestrate(ctx, req)}
	}
	return items
}

func (f *fakeService) History(ctx context.Context, limit int) ([]domain.OrchestrationResult, error) {
	f.lastLimit = limit
	return f.history, f.historyErr
}

func (f *fakeService) Adapters() []provider.Adapter { return f.adapters }

func newTestServer(svc *fakeService) *Server {
	snap := func() stats.Snapshot {
		return stats.Snapshot{
			Providers:           map[string]stats.ProviderStats{"a": {Attempts: 4, Successes: 3, VerifiedSuccesses: 2}},
			TotalAttempts:       4,
			SuccessfulDownloads: 3,
			FailedDownloads:     1,
		}
	}
	return NewServer(svc, snap, Config{MaxBatch: 3}, nil)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

// ============================================================================
// /api/download
// ============================================================================

func TestDownload_StatusCodes(t *testing.T) {
	s := newTestServer(&fakeService{})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"success", `{"url":"https://www.youtube.com/watch?v=abc"}`, http.StatusOK},
		{"exhausted", `{"url":"https://vimeo.com/fail"}`, http.StatusBadGateway},
		{"unsupported", `{"url":"https://example.com/video"}`, http.StatusUnprocessableEntity},
		{"missing url", `{}`, http.StatusBadRequest},
		{"relative url", `{"url":"youtube.com/watch"}`, http.StatusBadRequest},
		{"bad scheme", `{"url":"ftp://youtube.com/x"}`, http.StatusBadRequest},
		{"bad json", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/download", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestDownload_ResponsePayload(t *testing.T) {
	s := newTestServer(&fakeService{})
	rec := do(t, s, http.MethodPost, "/api/download", `{"url":"https://www.tiktok.com/@u/video/1"}`)

	resp := decode[downloadResponse](t, rec)
	if !resp.Success || resp.DownloadURL != "https://cdn.example/v.mp4" {
		t.Errorf("unexpected payload: %+v", resp)
	}
	if resp.Platform != "tiktok" || resp.Provider != "a" || resp.Method != "http_api" {
		t.Errorf("unexpected metadata: %+v", resp)
	}
	if resp.Confidence == nil || *resp.Confidence != 0.9 {
		t.Errorf("confidence = %v", resp.Confidence)
	}
	if len(resp.Attempts) != 1 || resp.Attempts[0].Outcome != "success" {
		t.Errorf("unexpected attempts: %+v", resp.Attempts)
	}
}

func TestDownload_FailurePayload(t *testing.T) {
	s := newTestServer(&fakeService{})
	rec := do(t, s, http.MethodPost, "/api/download", `{"url":"https://vimeo.com/fail"}`)

	resp := decode[downloadResponse](t, rec)
	if resp.Success || resp.ErrorKind != "exhausted" || resp.Error == "" {
		t.Errorf("unexpected payload: %+v", resp)
	}
	if len(resp.Attempts) != 1 || resp.Attempts[0].Outcome != "timeout" || resp.Attempts[0].Message != "slow" {
		t.Errorf("unexpected attempts: %+v", resp.Attempts)
	}
}

func TestStatusFor(t *testing.T) {
	canceled := domain.OrchestrationResult{Error: &domain.OrchestrationError{Kind: domain.ErrorCanceled}}
	if got := statusFor(canceled); got != http.StatusGatewayTimeout {
		t.Errorf("canceled status = %d", got)
	}
	if got := statusFor(domain.OrchestrationResult{}); got != http.StatusBadGateway {
		t.Errorf("failure without error status = %d", got)
	}
}

// ============================================================================
// /api/batch
// ============================================================================

func TestBatch(t *testing.T) {
	svc := &fakeService{}
	s := newTestServer(svc)

	rec := do(t, s, http.MethodPost, "/api/batch",
		`{"urls":["https://vimeo.com/1","https://vimeo.com/fail","https://example.com/x"],"concurrency":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	resp := decode[batchResponse](t, rec)
	if len(resp.Results) != 3 || resp.Succeeded != 1 || resp.Failed != 2 {
		t.Errorf("unexpected batch response: %+v", resp)
	}
	if resp.Results[2].Platform != "unknown" {
		t.Errorf("results out of order: %+v", resp.Results[2])
	}
	if svc.batchConc != 2 {
		t.Errorf("concurrency = %d, want 2", svc.batchConc)
	}
}

func TestBatch_CapsConcurrency(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		want      int
	}{
		{"above limit", 50, 3},
		{"within limit", 2, 2},
		{"unset", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			s := NewServer(svc, nil, Config{MaxBatch: 5, MaxConcurrency: 3}, nil)

			body := fmt.Sprintf(`{"urls":["https://vimeo.com/1","https://vimeo.com/2"],"concurrency":%d}`, tt.requested)
			if rec := do(t, s, http.MethodPost, "/api/batch", body); rec.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
			}
			if svc.batchConc != tt.want {
				t.Errorf("concurrency = %d, want %d", svc.batchConc, tt.want)
			}
		})
	}
}

func TestBatch_Rejects(t *testing.T) {
	s := newTestServer(&fakeService{})

	tests := []struct {
		name string
		body string
	}{
		{"empty", `{"urls":[]}`},
		{"too many", `{"urls":["https://a.com","https://b.com","https://c.com","https://d.com"]}`},
		{"invalid item", `{"urls":["https://vimeo.com/1","nope"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(t, s, http.MethodPost, "/api/batch", tt.body); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

// ============================================================================
// Read endpoints
// ============================================================================

func TestHealth(t *testing.T) {
	a := newStub("a")
	b := newStub("b")
	s := newTestServer(&fakeService{adapters: []provider.Adapter{a, b}})

	rec := do(t, s, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[healthResponse](t, rec)
	if resp.Status != provider.StatusHealthy || len(resp.Tiers) != 2 || resp.Tiers[0] != "a" {
		t.Errorf("unexpected health: %+v", resp)
	}

	a.Monitor.RecordThrottle(429, "60")
	resp = decode[healthResponse](t, do(t, s, http.MethodGet, "/api/health", ""))
	if resp.Status != provider.StatusDegraded {
		t.Errorf("status with one throttled tier = %s", resp.Status)
	}

	b.Monitor.RecordThrottle(403, "")
	rec = do(t, s, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status with every tier unavailable = %d", rec.Code)
	}
}

func TestPlatforms(t *testing.T) {
	svc := &fakeService{adapters: []provider.Adapter{
		newStub("all"),
		newStub("tiktok-only", domain.CategoryTikTok),
	}}
	rec := do(t, newTestServer(svc), http.MethodGet, "/api/platforms", "")

	views := decode[[]platformView](t, rec)
	byPlatform := make(map[domain.Category][]string)
	for _, v := range views {
		byPlatform[v.Platform] = v.Tiers
	}
	if got := byPlatform[domain.CategoryTikTok]; len(got) != 2 {
		t.Errorf("tiktok tiers = %v", got)
	}
	if got := byPlatform[domain.CategoryYouTube]; len(got) != 1 || got[0] != "all" {
		t.Errorf("youtube tiers = %v", got)
	}
	if _, ok := byPlatform[domain.CategoryUnknown]; ok {
		t.Error("unknown must not be listed")
	}
}

func TestStats(t *testing.T) {
	rec := do(t, newTestServer(&fakeService{}), http.MethodGet, "/api/stats", "")
	resp := decode[statsResponse](t, rec)

	if resp.TotalAttempts != 4 || resp.SuccessRate != 75 {
		t.Errorf("unexpected stats: %+v", resp)
	}
	if resp.Providers["a"].VerifiedSuccesses != 2 {
		t.Errorf("unexpected provider stats: %+v", resp.Providers)
	}
}

func TestProviders(t *testing.T) {
	svc := &fakeService{adapters: []provider.Adapter{newStub("a")}}
	rec := do(t, newTestServer(svc), http.MethodGet, "/api/providers", "")

	out := decode[[]provider.MonitorStats](t, rec)
	if len(out) != 1 || out[0].Provider != "a" || out[0].Status != provider.StatusHealthy {
		t.Errorf("unexpected providers: %+v", out)
	}
}

func TestHistory(t *testing.T) {
	svc := &fakeService{history: []domain.OrchestrationResult{
		{Success: true, ArtifactRef: "https://cdn.example/1.mp4"},
	}}
	s := newTestServer(svc)

	rec := do(t, s, http.MethodGet, "/api/history?limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[historyResponse](t, rec)
	if resp.Count != 1 || resp.Entries[0].DownloadURL != "https://cdn.example/1.mp4" {
		t.Errorf("unexpected history: %+v", resp)
	}
	if svc.lastLimit != 5 {
		t.Errorf("limit = %d, want 5", svc.lastLimit)
	}

	if rec := do(t, s, http.MethodGet, "/api/history?limit=abc", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", rec.Code)
	}

	svc.historyErr = errors.New("db down")
	if rec := do(t, s, http.MethodGet, "/api/history", ""); rec.Code != http.StatusInternalServerError {
		t.Errorf("history error status = %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	rec := do(t, newTestServer(&fakeService{}), http.MethodGet, "/api/download", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, newTestServer(&fakeService{}), http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
