package cli

import (
	"strings"
	"testing"

	"github.com/vietddude/mediafetch/internal/core/domain"
)

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"1", "2"}, {"3"}}, []columnAlignment{alignRight})
	for _, want := range []string{"A", "B", "1", "2", "3"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Error("empty headers should render nothing")
	}
}

func TestResultRow(t *testing.T) {
	conf := 0.8
	ok := domain.OrchestrationResult{
		Request:         domain.Request{Category: domain.CategoryVimeo},
		Success:         true,
		ArtifactRef:     "https://cdn.example/v.mp4",
		ProviderTag:     "railway",
		Confidence:      &conf,
		TotalDurationMs: 1200,
		Attempts:        make([]domain.AttemptRecord, 2),
	}
	row := resultRow(0, ok)
	if row[0] != "1" || row[1] != "vimeo" || row[3] != "railway" || row[4] != "0.80" || row[6] != "2" {
		t.Errorf("unexpected row: %v", row)
	}
	if row[7] != ok.ArtifactRef {
		t.Errorf("result column = %q", row[7])
	}

	failed := domain.OrchestrationResult{
		Request: domain.Request{Category: domain.CategoryUnknown},
		Error:   &domain.OrchestrationError{Kind: domain.ErrorUnsupportedCategory, Message: "unknown platform"},
	}
	row = resultRow(1, failed)
	if row[3] != "-" || row[4] != "-" {
		t.Errorf("unexpected placeholders: %v", row)
	}
	if !strings.Contains(row[7], "unsupported_category") {
		t.Errorf("result column = %q", row[7])
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate(strings.Repeat("x", 20), 10); got != "xxxxxxx..." {
		t.Errorf("truncate = %q", got)
	}
}
