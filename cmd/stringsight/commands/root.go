package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	analysisConfigFlag string
	verbose            bool
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "stringsight",
	Short: "PV string performance analysis service",
	Long: `StringSight analyzes per-string production data from PV plants:
performance ratios against a theoretical power model, string rankings,
underperformance flags and month-by-month trends.

Usage:
  go run ./cmd/stringsight [command]

Examples:
  go run ./cmd/stringsight analyze --data-dir ./data
  go run ./cmd/stringsight report --data-dir ./data --sections ratios,suspects
  go run ./cmd/stringsight api`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&analysisConfigFlag, "analysis-config", "", "analysis tuning YAML (built-in defaults when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
