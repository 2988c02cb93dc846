// Package jobs holds the scheduled jobs of the analysis service.
package jobs

import (
	"context"
	"fmt"

	"github.com/nea-energy/stringsight/backend/internal/contracts"
	"github.com/nea-energy/stringsight/backend/internal/engine"
	"github.com/nea-energy/stringsight/backend/pkg/logger"
)

// ReanalysisJob periodically rescans the data directory and re-runs the
// full-site analysis, so newly exported monitoring files show up without
// manual intervention. Run completion reaches dashboard clients through
// the runner's notifier.
type ReanalysisJob struct {
	runner   *engine.Runner
	schedule string
	logger   *logger.Logger
}

// NewReanalysisJob creates the job with a cron schedule from config.
func NewReanalysisJob(runner *engine.Runner, schedule string, log *logger.Logger) *ReanalysisJob {
	return &ReanalysisJob{
		runner:   runner,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name.
func (j *ReanalysisJob) Name() string {
	return "reanalysis"
}

// Schedule returns the cron schedule.
func (j *ReanalysisJob) Schedule() string {
	return j.schedule
}

// Run reloads the dataset and analyzes the full site over all time.
func (j *ReanalysisJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled reanalysis")

	if err := j.runner.Reload(ctx); err != nil {
		return fmt.Errorf("reload dataset: %w", err)
	}

	result, runID, err := j.runner.Analyze(ctx, contracts.Filter{})
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":    runID,
		"strings":   len(result.StringRatios),
		"anomalies": len(result.Anomalies),
	}).Info("Scheduled reanalysis completed")

	return nil
}
