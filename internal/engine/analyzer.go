// Package engine orchestrates one analysis run: validated dataset plus
// filter parameters in, derived tables out. The run is a pure function of
// its inputs; derived state is recomputed, never patched.
package engine

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/nea-energy/stringsight/backend/internal/aggregate"
	"github.com/nea-energy/stringsight/backend/internal/analysisconfig"
	"github.com/nea-energy/stringsight/backend/internal/anomaly"
	"github.com/nea-energy/stringsight/backend/internal/contracts"
	"github.com/nea-energy/stringsight/backend/internal/metrics"
)

// Analyzer runs the full pipeline. Safe to share across concurrent callers:
// it holds only immutable configuration.
type Analyzer struct {
	cfg        *analysisconfig.Config
	configHash string
	metrics    *metrics.Engine
	detector   *anomaly.Detector
	aggregator *aggregate.Aggregator
	scope      anomaly.Scope
	log        zerolog.Logger
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithAnomalyScope overrides the peer-group scope for anomaly detection.
func WithAnomalyScope(scope anomaly.Scope) Option {
	return func(a *Analyzer) { a.scope = scope }
}

// New wires the pipeline components from one configuration.
func New(cfg *analysisconfig.Config, log zerolog.Logger, opts ...Option) (*Analyzer, error) {
	hash, err := analysisconfig.Hash(cfg)
	if err != nil {
		return nil, err
	}

	engineLog := log.With().Str("component", "engine").Logger()
	metricsEngine := metrics.New(cfg, log)

	a := &Analyzer{
		cfg:        cfg,
		configHash: hash,
		metrics:    metricsEngine,
		detector:   anomaly.New(cfg.Anomaly, log),
		aggregator: aggregate.New(cfg, metricsEngine, log),
		scope:      anomaly.ScopePerInverter,
		log:        engineLog,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// ConfigHash identifies the configuration this analyzer was built from.
func (a *Analyzer) ConfigHash() string { return a.configHash }

// Run executes the whole pipeline for one filter. Validation failures and an
// empty filtered window abort the run; per-window statistical insufficiency
// only excludes that window from anomaly output.
func (a *Analyzer) Run(ds *contracts.ValidatedDataset, filter contracts.Filter) (*contracts.AnalysisResult, error) {
	started := time.Now()

	samples, err := a.metrics.ComputePowerSamples(ds, filter)
	if err != nil {
		return nil, err
	}

	stringTotals, inverterTotals := a.metrics.ComputeEnergyTotals(samples, filter.Window)
	stringRatios := a.metrics.ComputePerformanceRatios(stringTotals)
	inverterRatios := a.metrics.ComputePerformanceRatios(inverterTotals)

	ranking := anomaly.RankStrings(stringRatios)
	top, bottom := a.aggregator.TopBottom(ranking)
	flags, skipped := a.detector.Detect(stringRatios, a.scope)

	result := &contracts.AnalysisResult{
		GeneratedAt:        time.Now(),
		Filter:             filter,
		ConfigHash:         a.configHash,
		PowerSamples:       samples,
		StringEnergy:       stringTotals,
		InverterEnergy:     inverterTotals,
		StringRatios:       stringRatios,
		InverterRatios:     inverterRatios,
		Comparison:         a.metrics.Compare(samples, filter.Window),
		Ranking:            ranking,
		TopStrings:         top,
		BottomStrings:      bottom,
		Anomalies:          flags,
		SkippedWindows:     skipped,
		MonthlyTrend:       a.aggregator.MonthlyTrend(samples),
		InverterComparison: a.aggregator.CrossInverterComparison(stringRatios),
	}

	a.log.Info().
		Int("power_samples", len(samples)).
		Int("strings", len(stringRatios)).
		Int("inverters", len(inverterRatios)).
		Int("anomalies", len(flags)).
		Dur("elapsed", time.Since(started)).
		Msg("analysis run completed")

	return result, nil
}
