package cli

import (
	"fmt"
	"os"

	"github.com/Pranavrh53/Geo-Watch/internal/delivery"
	"github.com/Pranavrh53/Geo-Watch/internal/report"
	"github.com/Pranavrh53/Geo-Watch/internal/ui"
	"github.com/spf13/cobra"
)

var (
	detectBefore      string
	detectAfter       string
	detectBeforeLabel string
	detectAfterLabel  string
	detectRegion      string
	detectOut         string
	detectNotify      bool
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Compare before and after mask folders and write a change report",
	Long: `Detect pairs tile_<row>_<col>_mask files from the before and after folders,
applies every transition rule to each pair and writes
change_detection_results.json with per-rule pixel counts and areas.

Tiles present on only one side, or whose masks differ in size, are skipped
and listed in the report.

Example:
  geowatch detect --region bangalore --before data/masks/2020 --after data/masks/2024
  geowatch detect --before a/ --after b/ --gsd 10 --workers 8 --out results/`,
	Args: cobra.NoArgs,
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().StringVar(&detectBefore, "before", "", "folder with the before masks (required)")
	detectCmd.Flags().StringVar(&detectAfter, "after", "", "folder with the after masks (required)")
	detectCmd.Flags().StringVar(&detectBeforeLabel, "before-label", "", "label of the before date (default: folder name)")
	detectCmd.Flags().StringVar(&detectAfterLabel, "after-label", "", "label of the after date (default: folder name)")
	detectCmd.Flags().StringVar(&detectRegion, "region", "", "configured region the tiles belong to")
	detectCmd.Flags().StringVar(&detectOut, "out", "", "output folder (default: data/results/<region>/<before>_vs_<after>)")
	detectCmd.Flags().Float64("gsd", 0, "ground sampling distance in metres per pixel")
	detectCmd.Flags().Int("workers", 0, "number of tiles processed concurrently")
	detectCmd.Flags().Bool("tile-images", false, "write a change overlay PNG per tile")
	detectCmd.Flags().Bool("tile-animations", false, "write a before/after/changes AVI clip per tile")
	detectCmd.Flags().BoolVar(&detectNotify, "notify", false, "post the run summary to Discord")
	_ = detectCmd.MarkFlagRequired("before")
	_ = detectCmd.MarkFlagRequired("after")
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, map[string]string{
		"ground_sampling_distance_m": "gsd",
		"workers":                    "workers",
		"output.tile_images":         "tile-images",
		"output.tile_animations":     "tile-animations",
	})
	if err != nil {
		return err
	}
	if detectRegion != "" {
		if _, err := cfg.Region(detectRegion); err != nil {
			return err
		}
	}

	result, err := delivery.RunRegion(cmd.Context(), cfg, delivery.RunRequest{
		Region:      detectRegion,
		BeforeDir:   detectBefore,
		AfterDir:    detectAfter,
		BeforeLabel: detectBeforeLabel,
		AfterLabel:  detectAfterLabel,
		OutputDir:   detectOut,
		Quiet:       quiet,
		Notify:      detectNotify,
	})
	if err != nil {
		return fmt.Errorf("change detection failed: %w", err)
	}

	report.PrintSummary(os.Stdout, result.Report)
	ui.PrintSuccess(fmt.Sprintf("Report written to %s", result.ReportPath))
	for _, artifact := range result.Artifacts {
		ui.PrintInfof("  %s", artifact)
	}
	return nil
}
