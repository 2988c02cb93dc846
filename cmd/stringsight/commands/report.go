package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nea-energy/stringsight/backend/internal/report"
	"github.com/nea-energy/stringsight/backend/pkg/config"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run the pipeline and assemble a report payload",
	Long: `Runs the analysis like 'analyze', then assembles the selected report
sections into the JSON payload consumed by the document generator.

Sections: ratios, ranking, suspects, monthly. Omitting --sections
includes everything.

Example:
  go run ./cmd/stringsight report --data-dir ./data --sections ratios,suspects -o report.json`,
	RunE: runReport,
}

var (
	reportProduction       []string
	reportCharacterization []string
	reportEnvironment      string
	reportDataDir          string
	reportInverters        []string
	reportStrings          []string
	reportFrom             string
	reportTo               string
	reportSections         string
	reportOutput           string
)

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringSliceVar(&reportProduction, "production", nil, "production CSV path or URL, repeatable, one per inverter")
	reportCmd.Flags().StringSliceVar(&reportCharacterization, "characterization", nil, "characterization CSV path or URL, repeatable, paired with --production by order")
	reportCmd.Flags().StringVar(&reportEnvironment, "environment", "", "environment CSV path or URL (irradiance, ambient temperature)")
	reportCmd.Flags().StringVar(&reportDataDir, "data-dir", "", "directory of table exports (default: DATA_DIR)")
	reportCmd.Flags().StringSliceVar(&reportInverters, "inverters", nil, "restrict to these inverters (default: all)")
	reportCmd.Flags().StringSliceVar(&reportStrings, "strings", nil, "restrict to these strings (default: all)")
	reportCmd.Flags().StringVar(&reportFrom, "from", "", "window start (RFC3339 or YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&reportTo, "to", "", "window end (RFC3339 or YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&reportSections, "sections", "", "comma-separated sections: ratios,ranking,suspects,monthly (default: all)")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "write report JSON to file (default: stdout)")
}

func runReport(cmd *cobra.Command, args []string) error {
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

	if err := loadDatasetForCLI(runner, cfg, reportProduction, reportCharacterization, reportEnvironment, reportDataDir); err != nil {
		return err
	}

	filter, err := buildFilter(reportInverters, reportStrings, reportFrom, reportTo)
	if err != nil {
		return err
	}

	result, _, err := runner.Analyze(context.Background(), filter)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	sections := report.AllSections()
	if reportSections != "" {
		sections = report.Sections{}
		for _, name := range strings.Split(reportSections, ",") {
			switch strings.TrimSpace(name) {
			case "ratios":
				sections.RatioTable = true
			case "ranking":
				sections.Ranking = true
			case "suspects":
				sections.SuspectAnalysis = true
			case "monthly":
				sections.MonthlyTrend = true
			default:
				return fmt.Errorf("unknown section %q (valid: ratios, ranking, suspects, monthly)", name)
			}
		}
	}

	builder := report.NewBuilder(log.Zerolog())
	rep := builder.Build(acfg.Meta.SiteID, result, sections)

	out := os.Stdout
	if reportOutput != "" {
		f, err := os.Create(reportOutput)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return rep.WriteJSON(out)
}
