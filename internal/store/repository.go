// Package store persists analysis runs to PostgreSQL. Each run records the
// configuration snapshot that produced it, so historical results stay
// reproducible after the config changes.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/nea-energy/stringsight/backend/internal/analysisconfig"
	"github.com/nea-energy/stringsight/backend/internal/contracts"
	"github.com/nea-energy/stringsight/backend/pkg/database"
)

const insertRunSQL = `
INSERT INTO analysis_runs (site_id, config_hash, config_yaml, window_start, window_end, result, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`

const insertRatioSQL = `
INSERT INTO string_ratios (run_id, string_id, inverter_id, window_start, window_end, realized_kwh, theoretical_kwh, ratio, defined)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

const insertAnomalySQL = `
INSERT INTO anomaly_flags (run_id, string_id, inverter_id, window_start, window_end, ratio, group_mean, group_std_dev, deviation_sigma, severity, reason)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

const selectRunSQL = `
SELECT id, site_id, config_hash, window_start, window_end, result, created_at
FROM analysis_runs
WHERE id = $1`

const listRunsSQL = `
SELECT id, site_id, config_hash, window_start, window_end, created_at
FROM analysis_runs
WHERE site_id = $1
ORDER BY created_at DESC
LIMIT $2`

// RunRecord is one persisted analysis run.
type RunRecord struct {
	ID          int64                     `json:"id"`
	SiteID      string                    `json:"site_id"`
	ConfigHash  string                    `json:"config_hash"`
	WindowStart time.Time                 `json:"window_start"`
	WindowEnd   time.Time                 `json:"window_end"`
	Result      *contracts.AnalysisResult `json:"result,omitempty"`
	CreatedAt   time.Time                 `json:"created_at"`
}

// Repository reads and writes analysis runs.
type Repository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewRepository creates a repository.
func NewRepository(db *database.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("component", "store.repository").Logger(),
	}
}

// SaveRun persists a run header plus its per-string tables and returns the
// new run ID. Ratio and anomaly rows go in a single batch round trip.
func (r *Repository) SaveRun(ctx context.Context, snap *analysisconfig.RunSnapshot, result *contracts.AnalysisResult) (int64, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal analysis result: %w", err)
	}

	window := result.Filter.Window

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var runID int64
	err = tx.QueryRow(ctx, insertRunSQL,
		snap.SiteID,
		snap.ConfigHash,
		snap.ConfigYAML,
		window.Start,
		window.End,
		resultJSON,
		snap.CreatedAt,
	).Scan(&runID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	batch := &pgx.Batch{}
	for _, ratio := range result.StringRatios {
		batch.Queue(insertRatioSQL,
			runID,
			ratio.StringID,
			ratio.InverterID,
			ratio.Window.Start,
			ratio.Window.End,
			ratio.RealizedKWh,
			ratio.TheoreticalKWh,
			ratio.Ratio,
			ratio.Defined,
		)
	}
	for _, flag := range result.Anomalies {
		batch.Queue(insertAnomalySQL,
			runID,
			flag.StringID,
			flag.InverterID,
			flag.Window.Start,
			flag.Window.End,
			flag.Ratio,
			flag.GroupMean,
			flag.GroupStdDev,
			flag.DeviationSigma,
			string(flag.Severity),
			flag.Reason,
		)
	}

	if batch.Len() > 0 {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return 0, fmt.Errorf("failed to insert run detail row: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return 0, fmt.Errorf("failed to close batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	r.log.Info().
		Int64("run_id", runID).
		Str("site_id", snap.SiteID).
		Int("ratios", len(result.StringRatios)).
		Int("anomalies", len(result.Anomalies)).
		Msg("analysis run persisted")

	return runID, nil
}

// GetRun loads one run with its full result payload.
func (r *Repository) GetRun(ctx context.Context, id int64) (*RunRecord, error) {
	var rec RunRecord
	var resultJSON []byte

	err := r.db.Pool.QueryRow(ctx, selectRunSQL, id).Scan(
		&rec.ID,
		&rec.SiteID,
		&rec.ConfigHash,
		&rec.WindowStart,
		&rec.WindowEnd,
		&resultJSON,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %d: %w", id, err)
	}

	rec.Result = &contracts.AnalysisResult{}
	if err := json.Unmarshal(resultJSON, rec.Result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run %d result: %w", id, err)
	}
	return &rec, nil
}

// ListRuns returns the most recent run headers for a site, newest first.
// Result payloads are not loaded.
func (r *Repository) ListRuns(ctx context.Context, siteID string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Pool.Query(ctx, listRunsSQL, siteID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(&rec.ID, &rec.SiteID, &rec.ConfigHash, &rec.WindowStart, &rec.WindowEnd, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return records, nil
}
