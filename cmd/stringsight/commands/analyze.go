package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nea-energy/stringsight/backend/pkg/config"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the analysis pipeline once",
	Long: `Loads production and characterization tables, validates them against
the theoretical power model inputs, and computes performance ratios,
rankings, anomaly flags and monthly trends.

Input comes from explicit files, from monitoring-portal export URLs, or
from a data directory where production*.csv, characterization*.csv and
environment*.csv pair up by sorted filename order.

Example:
  go run ./cmd/stringsight analyze --data-dir ./data
  go run ./cmd/stringsight analyze \
    --production inv1.csv --characterization inv1_strings.csv \
    --environment weather.csv --from 2025-06-01 --to 2025-06-30
  go run ./cmd/stringsight analyze \
    --production https://portal.example/inv1.html \
    --characterization https://portal.example/inv1_strings.csv \
    --environment https://portal.example/weather.csv`,
	RunE: runAnalyze,
}

var (
	analyzeProduction       []string
	analyzeCharacterization []string
	analyzeEnvironment      string
	analyzeDataDir          string
	analyzeInverters        []string
	analyzeStrings          []string
	analyzeFrom             string
	analyzeTo               string
	analyzeOutput           string
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringSliceVar(&analyzeProduction, "production", nil, "production CSV path or URL, repeatable, one per inverter")
	analyzeCmd.Flags().StringSliceVar(&analyzeCharacterization, "characterization", nil, "characterization CSV path or URL, repeatable, paired with --production by order")
	analyzeCmd.Flags().StringVar(&analyzeEnvironment, "environment", "", "environment CSV path or URL (irradiance, ambient temperature)")
	analyzeCmd.Flags().StringVar(&analyzeDataDir, "data-dir", "", "directory of table exports (default: DATA_DIR)")
	analyzeCmd.Flags().StringSliceVar(&analyzeInverters, "inverters", nil, "restrict to these inverters (default: all)")
	analyzeCmd.Flags().StringSliceVar(&analyzeStrings, "strings", nil, "restrict to these strings (default: all)")
	analyzeCmd.Flags().StringVar(&analyzeFrom, "from", "", "window start (RFC3339 or YYYY-MM-DD)")
	analyzeCmd.Flags().StringVar(&analyzeTo, "to", "", "window end (RFC3339 or YYYY-MM-DD)")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "write result JSON to file (default: stdout)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger(cfg)

	acfg, ayaml, err := loadAnalysisConfig(cfg)
	if err != nil {
		return err
	}

	runner, err := newRunner(acfg, ayaml, log)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	if err := loadDatasetForCLI(runner, cfg, analyzeProduction, analyzeCharacterization, analyzeEnvironment, analyzeDataDir); err != nil {
		return err
	}

	filter, err := buildFilter(analyzeInverters, analyzeStrings, analyzeFrom, analyzeTo)
	if err != nil {
		return err
	}

	result, _, err := runner.Analyze(context.Background(), filter)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"strings":   len(result.StringRatios),
		"anomalies": len(result.Anomalies),
		"months":    len(result.MonthlyTrend),
	}).Info("Analysis complete")

	out := os.Stdout
	if analyzeOutput != "" {
		f, err := os.Create(analyzeOutput)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
