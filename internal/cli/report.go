package cli

import (
	"fmt"
	"os"

	"github.com/Pranavrh53/Geo-Watch/internal/delivery"
	"github.com/Pranavrh53/Geo-Watch/internal/report"
	"github.com/Pranavrh53/Geo-Watch/internal/ui"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Inspect finished change detection runs",
}

var reportShowCmd = &cobra.Command{
	Use:   "show <run-id|report.json>",
	Short: "Print the summary of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if _, err := os.Stat(path); err != nil {
			cfg, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			summary, ok := delivery.RunHistory(cfg).Get(args[0])
			if !ok {
				return fmt.Errorf("no report file or recorded run named %q", args[0])
			}
			path = summary.ReportPath
		}

		r, err := report.ReadJSON(path)
		if err != nil {
			return err
		}
		report.PrintSummary(os.Stdout, r)
		return nil
	},
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}
		entries, err := delivery.RunHistory(cfg).List()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			ui.PrintWarning("No runs recorded yet. Run 'geowatch detect' first.")
			return nil
		}
		for _, entry := range entries {
			s := entry.Data
			fmt.Printf("%s  %-20s  %s -> %s  %10.2f ha  %d tiles (%d skipped)\n",
				s.RunID, s.Region, s.BeforeLabel, s.AfterLabel, s.TotalChangeHectares, s.TilesProcessed, s.TilesSkipped)
		}
		return nil
	},
}

func init() {
	reportCmd.AddCommand(reportShowCmd)
	reportCmd.AddCommand(reportListCmd)
	rootCmd.AddCommand(reportCmd)
}
