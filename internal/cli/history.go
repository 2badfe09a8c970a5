package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vietddude/mediafetch/internal/control"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent retrievals from the configured history store",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print entries as JSON")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
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

	entries, err := app.Fetcher().History(ctx, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	out := cmd.OutOrStdout()
	if historyJSON {
		return writeJSON(out, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, dimStyle.Render("No history entries (backend: "+cfg.History.Backend+")"))
		return nil
	}
	fmt.Fprintln(out, renderResults(entries))
	return nil
}
