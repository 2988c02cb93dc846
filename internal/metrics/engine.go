// Package metrics computes realized power/energy, per-inverter sums, and
// performance ratios from a validated dataset.
package metrics

import (
	"github.com/rs/zerolog"

	"github.com/nea-energy/stringsight/backend/internal/analysisconfig"
	"github.com/nea-energy/stringsight/backend/internal/contracts"
	"github.com/nea-energy/stringsight/backend/internal/model"
)

// Engine derives power samples, energy totals and performance ratios.
// Deterministic for a given (dataset, filter) pair; holds no mutable state.
type Engine struct {
	cfg   *analysisconfig.Config
	model *model.Theoretical
	log   zerolog.Logger
}

// New creates a metrics engine.
func New(cfg *analysisconfig.Config, log zerolog.Logger) *Engine {
	return &Engine{
		cfg:   cfg,
		model: model.New(cfg),
		log:   log.With().Str("component", "metrics.engine").Logger(),
	}
}

// ComputePowerSamples pairs realized power with theoretical power for every
// measurement that survives the filter. Filtering happens here, before any
// integration, so partial-window totals reflect only in-window samples.
func (e *Engine) ComputePowerSamples(ds *contracts.ValidatedDataset, filter contracts.Filter) ([]contracts.PowerSample, error) {
	samples := make([]contracts.PowerSample, 0, len(ds.Measurements))
	for _, m := range ds.Measurements {
		if !filter.Matches(m) {
			continue
		}

		var theoretical float64
		if env, ok := ds.EnvironmentAt(m.Timestamp); ok {
			theoretical = e.model.ExpectedPower(ds.Params[m.StringID], env)
		}

		samples = append(samples, contracts.PowerSample{
			Timestamp:    m.Timestamp,
			InverterID:   m.InverterID,
			StringID:     m.StringID,
			RealizedW:    m.PowerW,
			TheoreticalW: theoretical,
		})
	}

	if len(samples) == 0 {
		return nil, contracts.TimeRangeEmptyError{Window: filter.Window}
	}

	e.log.Debug().
		Int("samples", len(samples)).
		Str("window", filter.Window.String()).
		Msg("power samples computed")

	return samples, nil
}

// ComputeEnergyTotals integrates both series of the power samples over the
// window, per string, and sums per-string totals into per-inverter totals.
// Both series share identical window boundaries by construction.
func (e *Engine) ComputeEnergyTotals(samples []contracts.PowerSample, window contracts.Window) (strings, inverters []contracts.EnergyTotal) {
	order, byString := groupByString(samples)

	invIndex := make(map[string]int)
	for _, id := range order {
		series := byString[id]
		realized := model.IntegrateKWh(series, window, func(s contracts.PowerSample) float64 { return s.RealizedW })
		theoretical := model.IntegrateKWh(series, window, func(s contracts.PowerSample) float64 { return s.TheoreticalW })

		inverterID := series[0].InverterID
		strings = append(strings, contracts.EnergyTotal{
			Scope:          contracts.ScopeString,
			StringID:       id,
			InverterID:     inverterID,
			Window:         window,
			RealizedKWh:    realized,
			TheoreticalKWh: theoretical,
		})

		// Inverter-level sums replace per-string sums; same windows.
		idx, ok := invIndex[inverterID]
		if !ok {
			idx = len(inverters)
			invIndex[inverterID] = idx
			inverters = append(inverters, contracts.EnergyTotal{
				Scope:      contracts.ScopeInverter,
				InverterID: inverterID,
				Window:     window,
			})
		}
		inverters[idx].RealizedKWh += realized
		inverters[idx].TheoreticalKWh += theoretical
	}

	return strings, inverters
}

// ComputePerformanceRatios turns energy totals into performance ratios,
// applying the near-zero denominator policy: a ratio whose theoretical
// energy is at or below the threshold is undefined, never coerced to zero.
func (e *Engine) ComputePerformanceRatios(totals []contracts.EnergyTotal) []contracts.PerformanceRatio {
	ratios := make([]contracts.PerformanceRatio, 0, len(totals))
	for _, t := range totals {
		r := contracts.PerformanceRatio{
			Scope:          t.Scope,
			StringID:       t.StringID,
			InverterID:     t.InverterID,
			Window:         t.Window,
			RealizedKWh:    t.RealizedKWh,
			TheoreticalKWh: t.TheoreticalKWh,
		}
		if t.TheoreticalKWh > e.cfg.Ratio.MinTheoreticalKWh {
			r.Ratio = t.RealizedKWh / t.TheoreticalKWh
			r.Defined = true
		}
		ratios = append(ratios, r)
	}
	return ratios
}

// Compare builds the paired real-vs-theoretical reductions per string: mean
// power over in-window samples and total energy over the same window.
func (e *Engine) Compare(samples []contracts.PowerSample, window contracts.Window) []contracts.ComparisonRow {
	order, byString := groupByString(samples)

	rows := make([]contracts.ComparisonRow, 0, len(order))
	for _, id := range order {
		series := byString[id]

		var sumReal, sumTheo float64
		n := 0
		for _, s := range series {
			if !window.Contains(s.Timestamp) {
				continue
			}
			sumReal += s.RealizedW
			sumTheo += s.TheoreticalW
			n++
		}
		if n == 0 {
			continue
		}

		row := contracts.ComparisonRow{
			StringID:         id,
			InverterID:       series[0].InverterID,
			AvgRealizedKW:    sumReal / float64(n) / 1000,
			AvgTheoreticalKW: sumTheo / float64(n) / 1000,
			RealizedKWh:      model.IntegrateKWh(series, window, func(s contracts.PowerSample) float64 { return s.RealizedW }),
			TheoreticalKWh:   model.IntegrateKWh(series, window, func(s contracts.PowerSample) float64 { return s.TheoreticalW }),
		}
		rows = append(rows, row)
	}
	return rows
}

// groupByString splits samples into per-string series, preserving the
// dataset's deterministic (string, timestamp) ordering.
func groupByString(samples []contracts.PowerSample) ([]string, map[string][]contracts.PowerSample) {
	byString := make(map[string][]contracts.PowerSample)
	var order []string
	for _, s := range samples {
		if _, seen := byString[s.StringID]; !seen {
			order = append(order, s.StringID)
		}
		byString[s.StringID] = append(byString[s.StringID], s)
	}
	contracts.SortStringIDs(order)
	return order, byString
}
