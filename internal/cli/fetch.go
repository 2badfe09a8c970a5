package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/mediafetch/internal/control"
	"github.com/vietddude/mediafetch/internal/core/domain"
	"github.com/vietddude/mediafetch/internal/retrieval/batch"
)

var (
	fetchJSON        bool
	fetchQuiet       bool
	fetchConcurrency int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch URL...",
	Short: "Retrieve one or more media URLs and print the results",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchJSON, "json", false, "print results as JSON")
	fetchCmd.Flags().BoolVarP(&fetchQuiet, "quiet", "q", false, "hide batch progress")
	fetchCmd.Flags().IntVarP(&fetchConcurrency, "concurrency", "c", 0, "requests per chunk (default from config)")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	setupLogging(cfg, slog.LevelWarn)

	ctx, cancel := signalContext()
	defer cancel()

	app, err := control.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize mediafetch: %w", err)
	}
	defer app.Close()

	var onProgress batch.ProgressFunc
	if !fetchQuiet && !fetchJSON && isTerminal(os.Stderr) {
		onProgress = printProgress
	}

	items := app.Fetcher().FetchBatch(ctx, args, fetchConcurrency, onProgress)

	results := make([]domain.OrchestrationResult, len(items))
	failed := 0
	for i, item := range items {
		results[i] = item.Result
		if !item.Result.Success {
			failed++
		}
	}

	out := cmd.OutOrStdout()
	if fetchJSON {
		if err := writeJSON(out, items); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, renderResults(results))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d retrievals failed", failed, len(items))
	}
	return nil
}

func printProgress(p batch.Progress) {
	switch p.Status {
	case batch.StatusItemCompleted, batch.StatusWaiting, batch.StatusCompleted:
	default:
		return
	}
	line := fmt.Sprintf("[%d/%d] %3.0f%% chunk %d/%d  ok=%d failed=%d  %s",
		p.Completed, p.Total, p.Percentage, p.Chunk, p.TotalChunks, p.Succeeded, p.Failed, p.Status)
	fmt.Fprintln(os.Stderr, dimStyle.Render(line))
}
