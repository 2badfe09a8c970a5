package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vietddude/mediafetch/internal/core/classify"
	"github.com/vietddude/mediafetch/internal/core/domain"
	"github.com/vietddude/mediafetch/internal/infra/provider"
	"github.com/vietddude/mediafetch/internal/retrieval/orchestrator"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

type healthResponse struct {
	Status    provider.Status `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	Version   string          `json:"version"`
	Tiers     []string        `json:"tiers"`
}

type downloadRequest struct {
	URL string `json:"url"`
}

type attemptView struct {
	Provider   string   `json:"provider"`
	Tier       int      `json:"tier"`
	Pass       int      `json:"pass"`
	Outcome    string   `json:"outcome"`
	Message    string   `json:"message,omitempty"`
	DurationMs int64    `json:"durationMs"`
	Confidence *float64 `json:"confidence,omitempty"`
}

type downloadResponse struct {
	Success            bool          `json:"success"`
	DownloadURL        string        `json:"downloadUrl,omitempty"`
	Platform           string        `json:"platform"`
	Provider           string        `json:"provider,omitempty"`
	Method             string        `json:"method,omitempty"`
	Quality            string        `json:"quality,omitempty"`
	Filename           string        `json:"filename,omitempty"`
	Title              string        `json:"title,omitempty"`
	Confidence         *float64      `json:"confidence,omitempty"`
	VerificationMethod string        `json:"verificationMethod,omitempty"`
	ProcessingTime     int64         `json:"processingTime"`
	Attempts           []attemptView `json:"attempts"`
	Error              string        `json:"error,omitempty"`
	ErrorKind          string        `json:"errorKind,omitempty"`
	Timestamp          time.Time     `json:"timestamp"`
}

type batchRequest struct {
	URLs        []string `json:"urls"`
	Concurrency int      `json:"concurrency"`
}

type batchResponse struct {
	Results        []downloadResponse `json:"results"`
	Succeeded      int                `json:"succeeded"`
	Failed         int                `json:"failed"`
	ProcessingTime int64              `json:"processingTime"`
}

type platformView struct {
	Platform domain.Category `json:"platform"`
	Tiers    []string        `json:"tiers"`
}

type statsResponse struct {
	Providers            map[string]providerStatsView `json:"providers"`
	TotalAttempts        int64                        `json:"totalAttempts"`
	SuccessfulDownloads  int64                        `json:"successfulDownloads"`
	FailedDownloads      int64                        `json:"failedDownloads"`
	VerificationFailures int64                        `json:"verificationFailures"`
	SuccessRate          float64                      `json:"successRate"`
}

type providerStatsView struct {
	Attempts          int64 `json:"attempts"`
	Successes         int64 `json:"successes"`
	VerifiedSuccesses int64 `json:"verifiedSuccesses"`
}

type historyResponse struct {
	Entries []downloadResponse `json:"entries"`
	Count   int                `json:"count"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	adapters := s.svc.Adapters()
	tiers := make([]string, len(adapters))
	available := 0
	status := provider.StatusHealthy

	for i, a := range adapters {
		tiers[i] = a.Tag()
		m, ok := a.(provider.Monitored)
		if !ok {
			available++
			continue
		}
		switch m.Health().Status {
		case provider.StatusHealthy:
			available++
		case provider.StatusDegraded:
			available++
			status = provider.StatusDegraded
		default:
			status = provider.StatusDegraded
		}
	}

	code := http.StatusOK
	if available == 0 {
		// every tier is throttled or blocked, or none is configured
		status = provider.StatusBlocked
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, healthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Version:   Version,
		Tiers:     tiers,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var body downloadRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validateURL(body.URL); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := orchestrator.NewRequest(strings.TrimSpace(body.URL))
	s.logger.Info("Download requested", "request_id", req.ID, "platform", req.Category)

	result := s.svc.Orchestrate(r.Context(), req)
	writeJSON(w, statusFor(result), toResponse(result))
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var body batchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(body.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "urls is required")
		return
	}
	if len(body.URLs) > s.cfg.MaxBatch {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d urls per batch", s.cfg.MaxBatch))
		return
	}
	raws := make([]string, len(body.URLs))
	for i, u := range body.URLs {
		if err := validateURL(u); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("urls[%d]: %v", i, err))
			return
		}
		raws[i] = strings.TrimSpace(u)
	}

	concurrency := body.Concurrency
	if s.cfg.MaxConcurrency > 0 && concurrency > s.cfg.MaxConcurrency {
		concurrency = s.cfg.MaxConcurrency
	}

	start := time.Now()
	items := s.svc.FetchBatch(r.Context(), raws, concurrency, nil)

	resp := batchResponse{Results: make([]downloadResponse, len(items))}
	for i, item := range items {
		resp.Results[i] = toResponse(item.Result)
		if item.Result.Success {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}
	resp.ProcessingTime = time.Since(start).Milliseconds()

	s.logger.Info("Batch finished", "total", len(items), "succeeded", resp.Succeeded, "failed", resp.Failed)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePlatforms(w http.ResponseWriter, r *http.Request) {
	adapters := s.svc.Adapters()
	categories := classify.Categories()

	out := make([]platformView, 0, len(categories))
	for _, c := range categories {
		view := platformView{Platform: c, Tiers: []string{}}
		for _, a := range adapters {
			if provider.Supports(a, c) {
				view.Tiers = append(view.Tiers, a.Tag())
			}
		}
		out = append(out, view)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.stats()
	resp := statsResponse{
		Providers:            make(map[string]providerStatsView, len(snap.Providers)),
		TotalAttempts:        snap.TotalAttempts,
		SuccessfulDownloads:  snap.SuccessfulDownloads,
		FailedDownloads:      snap.FailedDownloads,
		VerificationFailures: snap.VerificationFailures,
		SuccessRate:          snap.SuccessRate(),
	}
	for tag, p := range snap.Providers {
		resp.Providers[tag] = providerStatsView{
			Attempts:          p.Attempts,
			Successes:         p.Successes,
			VerifiedSuccesses: p.VerifiedSuccesses,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	adapters := s.svc.Adapters()
	out := make([]provider.MonitorStats, 0, len(adapters))
	for _, a := range adapters {
		if m, ok := a.(provider.Monitored); ok {
			out = append(out, m.Health())
			continue
		}
		out = append(out, provider.MonitorStats{Provider: a.Tag(), Status: provider.StatusHealthy})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	entries, err := s.svc.History(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to read history", "error", err)
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}

	resp := historyResponse{Entries: make([]downloadResponse, len(entries)), Count: len(entries)}
	for i, e := range entries {
		resp.Entries[i] = toResponse(e)
	}
	writeJSON(w, http.StatusOK, resp)
}

func validateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return errors.New("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("url must be an absolute http(s) URL")
	}
	return nil
}

func statusFor(result domain.OrchestrationResult) int {
	switch {
	case result.Success:
		return http.StatusOK
	case result.Error == nil:
		return http.StatusBadGateway
	case errors.Is(result.Error, domain.ErrUnsupportedCategory):
		return http.StatusUnprocessableEntity
	case errors.Is(result.Error, domain.ErrCanceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func toResponse(result domain.OrchestrationResult) downloadResponse {
	resp := downloadResponse{
		Success:            result.Success,
		DownloadURL:        result.ArtifactRef,
		Platform:           string(result.Request.Category),
		Provider:           result.ProviderTag,
		Method:             result.MethodTag,
		Quality:            result.Quality,
		Filename:           result.Filename,
		Title:              result.Title,
		Confidence:         result.Confidence,
		VerificationMethod: result.VerificationMethod,
		ProcessingTime:     result.TotalDurationMs,
		Attempts:           make([]attemptView, len(result.Attempts)),
		Timestamp:          result.CompletedAt,
	}
	if result.Error != nil {
		resp.Error = result.Error.Error()
		resp.ErrorKind = string(result.Error.Kind)
	}
	for i, a := range result.Attempts {
		view := attemptView{
			Provider:   a.ProviderTag,
			Tier:       a.TierIndex,
			Pass:       a.AttemptIndex,
			Outcome:    "success",
			DurationMs: a.Duration().Milliseconds(),
		}
		if a.Outcome.Failure != nil {
			view.Outcome = string(a.Outcome.Failure.Reason)
			view.Message = a.Outcome.Failure.Message
		}
		if a.Verification != nil {
			c := a.Verification.Confidence
			view.Confidence = &c
			if !a.Verification.Passed {
				view.Outcome = string(domain.ReasonVerificationFailed)
			}
		}
		resp.Attempts[i] = view
	}
	return resp
}
