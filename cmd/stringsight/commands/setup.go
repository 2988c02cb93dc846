package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nea-energy/stringsight/backend/internal/analysisconfig"
	"github.com/nea-energy/stringsight/backend/internal/contracts"
	"github.com/nea-energy/stringsight/backend/internal/engine"
	"github.com/nea-energy/stringsight/backend/internal/ingest"
	"github.com/nea-energy/stringsight/backend/pkg/config"
	"github.com/nea-energy/stringsight/backend/pkg/httputil"
	"github.com/nea-energy/stringsight/backend/pkg/logger"
)

// loadAnalysisConfig resolves the analysis tuning. The --analysis-config
// flag wins over ANALYSIS_CONFIG; with neither set the built-in defaults
// apply.
func loadAnalysisConfig(cfg *config.Config) (*analysisconfig.Config, []byte, error) {
	path := analysisConfigFlag
	if path == "" {
		path = cfg.AnalysisConfigPath
	}
	if path == "" {
		def := analysisconfig.Default()
		data, err := yaml.Marshal(def)
		if err != nil {
			return nil, nil, err
		}
		return def, data, nil
	}

	acfg, data, err := analysisconfig.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load analysis config %s: %w", path, err)
	}
	return acfg, data, nil
}

// newLogger builds the process logger, honoring --verbose.
func newLogger(cfg *config.Config) *logger.Logger {
	if verbose {
		cfg.LogLevel = "debug"
	}
	return logger.New(cfg)
}

// newRunner builds a pipeline runner with the portal fetcher wired in, so
// the input flags accept export URLs as well as file paths.
func newRunner(acfg *analysisconfig.Config, ayaml []byte, log *logger.Logger, opts ...engine.RunnerOption) (*engine.Runner, error) {
	fetcher := ingest.NewFetcher(httputil.New(log), ingest.NewReader(log.Zerolog()), log.Zerolog())
	opts = append(opts, engine.WithFetcher(fetcher))
	return engine.NewRunner(acfg, ayaml, log.Zerolog(), opts...)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// loadDatasetForCLI loads explicit inputs (file paths or portal URLs) or a
// data directory into the runner.
func loadDatasetForCLI(runner *engine.Runner, cfg *config.Config, production, characterization []string, environment, dataDir string) error {
	if len(production) > 0 {
		if isURL(production[0]) {
			return runner.LoadRemote(context.Background(), production, characterization, environment)
		}
		return runner.LoadFiles(production, characterization, environment)
	}

	if dataDir == "" {
		dataDir = cfg.DataDir
	}
	if dataDir == "" {
		return fmt.Errorf("no input files and no data directory configured (set --data-dir or DATA_DIR)")
	}
	runner.SetDataDir(dataDir)
	return runner.Reload(context.Background())
}

// buildFilter assembles a filter from CLI flags. Timestamps accept RFC3339
// or a bare date.
func buildFilter(inverters, strings []string, from, to string) (contracts.Filter, error) {
	var filter contracts.Filter
	filter.Inverters = contracts.Selection(inverters)
	filter.Strings = contracts.Selection(strings)

	parse := func(s, name string) (time.Time, error) {
		if s == "" {
			return time.Time{}, nil
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t, nil
		}
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --%s (expected RFC3339 or YYYY-MM-DD): %s", name, s)
		}
		return t, nil
	}

	from_, err := parse(from, "from")
	if err != nil {
		return filter, err
	}
	to_, err := parse(to, "to")
	if err != nil {
		return filter, err
	}
	if !from_.IsZero() || !to_.IsZero() {
		filter.Window = contracts.NewWindow(from_, to_)
	}
	return filter, nil
}
