// Package aggregate produces the ranked, monthly and cross-inverter views
// consumed by the report and dashboard layers.
package aggregate

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/nea-energy/stringsight/backend/internal/analysisconfig"
	"github.com/nea-energy/stringsight/backend/internal/contracts"
	"github.com/nea-energy/stringsight/backend/internal/metrics"
)

// Aggregator re-derives ratios at month granularity and assembles the
// comparison tables. It performs no presentation formatting.
type Aggregator struct {
	cfg     *analysisconfig.Config
	metrics *metrics.Engine
	log     zerolog.Logger
}

// New creates an aggregator sharing the session's metrics engine.
func New(cfg *analysisconfig.Config, engine *metrics.Engine, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		cfg:     cfg,
		metrics: engine,
		log:     log.With().Str("component", "aggregate").Logger(),
	}
}

// MonthlyTrend re-runs energy integration over calendar-month windows and
// derives one ratio per (string, month) and per (inverter, month). Ratios
// are re-derived from month-window energy, not averaged from daily ratios,
// so they stay energy weighted.
func (a *Aggregator) MonthlyTrend(samples []contracts.PowerSample) []contracts.MonthlyRatio {
	loc := a.cfg.Location()
	months := distinctMonths(samples, loc)

	var trend []contracts.MonthlyRatio
	for _, month := range months {
		window := contracts.MonthOf(month)
		stringTotals, inverterTotals := a.metrics.ComputeEnergyTotals(samples, window)

		for _, r := range a.metrics.ComputePerformanceRatios(stringTotals) {
			trend = append(trend, monthlyRow(month, r))
		}
		for _, r := range a.metrics.ComputePerformanceRatios(inverterTotals) {
			trend = append(trend, monthlyRow(month, r))
		}
	}

	a.log.Debug().Int("months", len(months)).Int("rows", len(trend)).Msg("monthly trend derived")
	return trend
}

func monthlyRow(month time.Time, r contracts.PerformanceRatio) contracts.MonthlyRatio {
	return contracts.MonthlyRatio{
		Month:          month.Format("2006-01"),
		Scope:          r.Scope,
		StringID:       r.StringID,
		InverterID:     r.InverterID,
		RealizedKWh:    r.RealizedKWh,
		TheoreticalKWh: r.TheoreticalKWh,
		Ratio:          r.Ratio,
		Defined:        r.Defined,
	}
}

// CrossInverterComparison flattens inverter-level ratios into the
// side-by-side comparison table, one row per (string, inverter) cell.
func (a *Aggregator) CrossInverterComparison(stringRatios []contracts.PerformanceRatio) []contracts.InverterRatioRow {
	rows := make([]contracts.InverterRatioRow, 0, len(stringRatios))
	for _, r := range stringRatios {
		if r.Scope != contracts.ScopeString {
			continue
		}
		rows = append(rows, contracts.InverterRatioRow{
			StringID:   r.StringID,
			InverterID: r.InverterID,
			Ratio:      r.Ratio,
			Defined:    r.Defined,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].StringID != rows[j].StringID {
			return contracts.LessStringID(rows[i].StringID, rows[j].StringID)
		}
		return contracts.LessStringID(rows[i].InverterID, rows[j].InverterID)
	})
	return rows
}

// TopBottom slices the ranking into the best and worst tables. The bottom
// table is ordered worst first.
func (a *Aggregator) TopBottom(ranked []contracts.RankedString) (top, bottom []contracts.RankedString) {
	n := a.cfg.Ranking.TopCount
	if n > len(ranked) {
		n = len(ranked)
	}
	top = append(top, ranked[:n]...)

	m := a.cfg.Ranking.BottomCount
	if m > len(ranked) {
		m = len(ranked)
	}
	for i := len(ranked) - 1; i >= len(ranked)-m; i-- {
		bottom = append(bottom, ranked[i])
	}
	return top, bottom
}

// distinctMonths returns the first instant of every calendar month that has
// at least one sample, ascending.
func distinctMonths(samples []contracts.PowerSample, loc *time.Location) []time.Time {
	seen := make(map[time.Time]struct{})
	var months []time.Time
	for _, s := range samples {
		t := s.Timestamp.In(loc)
		key := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		months = append(months, key)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	return months
}
