// Package cli holds the geowatch cobra commands.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/Pranavrh53/Geo-Watch/internal/properties"
	"github.com/Pranavrh53/Geo-Watch/internal/ui"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const defaultConfigFile = "geowatch.yaml"

var (
	cfgFile string
	quiet   bool
	vip     = properties.NewViper()
)

var rootCmd = &cobra.Command{
	Use:   "geowatch",
	Short: "GeoWatch - land-cover change detection over satellite tiles",
	Long: `GeoWatch compares classified land-cover masks of the same region at two
dates and reports which transitions happened where: deforestation, new
construction, new roads, water loss and vegetation gain.

Typical flow:
  geowatch fetch --region bangalore --before 2020-01-15 --after 2024-01-15
  geowatch classify --in data/scenes/bangalore/2020-01-15/tiles --out data/masks/bangalore/2020-01-15
  geowatch detect --region bangalore --before data/masks/bangalore/2020-01-15 --after data/masks/bangalore/2024-01-15`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if !quiet && cmd.Name() != "version" {
			ui.PrintBanner()
		}
	},
}

// ExecuteContext runs the root command; ctx is cancelled on interrupt.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "geowatch %s\n", Version)
	},
}

// Version is set at build time with -ldflags.
var Version = "v0.3.0"

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./geowatch.yaml when present)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress banner and progress bars")

	rootCmd.AddCommand(versionCmd)
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile
	}
	return ""
}

// loadConfig binds the given config keys to this command's flags and
// builds the effective configuration. Binding happens per command because
// several commands share a key.
func loadConfig(cmd *cobra.Command, bindings map[string]string) (*properties.Config, error) {
	for key, flag := range bindings {
		if err := bindFlag(vip, key, cmd.Flags().Lookup(flag)); err != nil {
			return nil, err
		}
	}
	return properties.Load(vip, configPath())
}

func bindFlag(v *viper.Viper, key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("no flag bound to %s", key)
	}
	return v.BindPFlag(key, flag)
}
