package cli

import (
	"github.com/Pranavrh53/Geo-Watch/internal/ui"
	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Show the class taxonomy and the transition rules in effect",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}
		ui.PrintRules(cfg.ClassTaxonomy, cfg.NoDataClass, cfg.Rules)
		return nil
	},
}

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "List the configured regions and their bounding boxes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}
		ui.PrintRegions(cfg.Regions)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(regionsCmd)
}
