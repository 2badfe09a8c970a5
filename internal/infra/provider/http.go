package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vietddude/mediafetch/internal/core/domain"
)

const maxResponseBody = 1 << 20

// HTTPAdapter calls a JSON extraction backend: POST {"url": ...} and read back a download link.
type HTTPAdapter struct {
	*Base
	endpoint   string
	method     string
	httpClient *http.Client
}

type downloadRequest struct {
	URL string `json:"url"`
}

type downloadResponse struct {
	Success     bool   `json:"success"`
	DownloadURL string `json:"download_url"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Format      string `json:"format"`
	Quality     string `json:"quality"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Error       string `json:"error"`
}

// NewHTTPAdapter creates an adapter for the backend at endpoint.
func NewHTTPAdapter(tag, endpoint string, platforms []domain.Category) *HTTPAdapter {
	return &HTTPAdapter{
		Base:     NewBase(tag, platforms),
		endpoint: endpoint,
		method:   "http_api",
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Attempt implements Adapter.
func (a *HTTPAdapter) Attempt(ctx context.Context, req domain.Request, timeout time.Duration) domain.AdapterResult {
	if res, ok := a.precheck(req); !ok {
		return res
	}

	start := time.Now()
	res := a.call(ctx, req, timeout)
	a.record(res, time.Since(start))
	return res
}

func (a *HTTPAdapter) call(ctx context.Context, req domain.Request, timeout time.Duration) domain.AdapterResult {
	timeout = a.clampTimeout(timeout)
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	jsonData, err := json.Marshal(downloadRequest{URL: req.RawInput})
	if err != nil {
		return domain.Failed(domain.ReasonInputRejected, fmt.Sprintf("marshal request: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return domain.Failed(domain.ReasonInputRejected, fmt.Sprintf("create request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.Failed(domain.ReasonTimeout, fmt.Sprintf("backend call: %v", err))
		}
		return domain.Failed(ClassifyError(err), fmt.Sprintf("backend call: %v", err))
	}
	defer resp.Body.Close()

	// Rate limit detection
	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := resp.Header.Get("Retry-After")
		a.Monitor.RecordThrottle(http.StatusTooManyRequests, retryAfter)
		return domain.Failed(domain.ReasonTransient, "rate limited (429), retry after: "+retryAfter)
	}

	// IP blocked detection
	if resp.StatusCode == http.StatusForbidden {
		a.Monitor.RecordThrottle(http.StatusForbidden, "")
		return domain.Failed(domain.ReasonTransient, "ip blocked (403)")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return domain.Failed(ClassifyError(err), fmt.Sprintf("read response: %v", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if a.Monitor.DetectThrottlePattern(string(body)) {
			a.Monitor.RecordThrottle(http.StatusTooManyRequests, "")
			return domain.Failed(domain.ReasonTransient, "throttle detected in response")
		}
		return domain.Failed(ReasonForStatus(resp.StatusCode),
			fmt.Sprintf("http %d: %s", resp.StatusCode, truncate(string(body), 200)))
	}

	var out downloadResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return domain.Failed(domain.ReasonTransient, fmt.Sprintf("parse response: %v", err))
	}

	link := out.DownloadURL
	if link == "" {
		link = out.URL
	}
	if !out.Success || link == "" {
		msg := out.Error
		if msg == "" {
			msg = "backend returned no download link"
		}
		return domain.Failed(ClassifyMessage(msg, domain.ReasonNoArtifactFound), msg)
	}

	quality := out.Quality
	if quality == "" {
		quality = out.Format
	}
	return domain.Succeeded(domain.Success{
		ArtifactRef: link,
		MethodTag:   a.method,
		ProviderTag: a.Tag(),
		Quality:     quality,
		Filename:    out.Filename,
		Title:       out.Title,
		ContentType: out.ContentType,
	})
}

// Close releases idle connections.
func (a *HTTPAdapter) Close() error {
	a.httpClient.CloseIdleConnections()
	return nil
}

// ClassifyMessage classifies a provider error message, falling back to def
// when nothing in the message is recognizable.
func ClassifyMessage(msg string, def domain.FailureReason) domain.FailureReason {
	if strings.TrimSpace(msg) == "" {
		return def
	}
	reason := ClassifyError(errors.New(msg))
	if reason == domain.ReasonTransient && !looksTransient(msg) {
		return def
	}
	return reason
}

func looksTransient(msg string) bool {
	s := strings.ToLower(msg)
	for _, p := range []string{"429", "too many requests", "rate limit", "quota", "try again", "temporarily", "500", "502", "503", "504"} {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
