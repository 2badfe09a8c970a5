package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/vietddude/mediafetch/internal/core/domain"
)

var (
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#95E1A3"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C757D"))
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func statusLabel(success bool) string {
	if success {
		return successStyle.Render("OK")
	}
	return errorStyle.Render("FAIL")
}

func confidenceText(c *float64) string {
	if c == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *c)
}

func outcomeText(res domain.OrchestrationResult) string {
	if res.Success {
		return res.ArtifactRef
	}
	if res.Error != nil {
		return res.Error.Error()
	}
	return "failed"
}

var resultHeaders = []string{"#", "PLATFORM", "STATUS", "PROVIDER", "CONFIDENCE", "TIME", "ATTEMPTS", "RESULT"}

var resultAligns = []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft}

func resultRow(i int, res domain.OrchestrationResult) []string {
	provider := res.ProviderTag
	if provider == "" {
		provider = "-"
	}
	return []string{
		fmt.Sprintf("%d", i+1),
		string(res.Request.Category),
		statusLabel(res.Success),
		provider,
		confidenceText(res.Confidence),
		fmt.Sprintf("%dms", res.TotalDurationMs),
		fmt.Sprintf("%d", len(res.Attempts)),
		truncate(outcomeText(res), 80),
	}
}

func renderResults(results []domain.OrchestrationResult) string {
	rows := make([][]string, len(results))
	for i, res := range results {
		rows[i] = resultRow(i, res)
	}
	return renderTable(resultHeaders, rows, resultAligns)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
