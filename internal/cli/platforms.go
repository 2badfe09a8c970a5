package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vietddude/mediafetch/internal/control"
	"github.com/vietddude/mediafetch/internal/core/classify"
	"github.com/vietddude/mediafetch/internal/infra/provider"
)

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List supported platforms and the tiers serving each",
	Args:  cobra.NoArgs,
	RunE:  runPlatforms,
}

func init() {
	rootCmd.AddCommand(platformsCmd)
}

func runPlatforms(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	setupLogging(cfg, slog.LevelWarn)

	adapters, err := control.BuildAdapters(cfg.EnabledProviders())
	if err != nil {
		return err
	}
	if len(adapters) == 0 {
		if adapters, err = control.BuildAdapters(control.DefaultProviders); err != nil {
			return err
		}
	}
	defer control.CloseAdapters(adapters)

	rows := make([][]string, 0)
	for _, c := range classify.Categories() {
		var tiers []string
		for _, a := range adapters {
			if provider.Supports(a, c) {
				tiers = append(tiers, a.Tag())
			}
		}
		served := dimStyle.Render("none")
		if len(tiers) > 0 {
			served = strings.Join(tiers, " > ")
		}
		rows = append(rows, []string{string(c), served})
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"PLATFORM", "TIERS"}, rows, nil))
	return nil
}
