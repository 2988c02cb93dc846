// Package anomaly classifies suspect strings from the distribution of
// performance ratios and produces the deterministic best-to-worst ranking.
package anomaly

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/nea-energy/stringsight/backend/internal/analysisconfig"
	"github.com/nea-energy/stringsight/backend/internal/contracts"
)

// Scope selects the peer group a string is compared against.
type Scope string

const (
	// ScopePerInverter compares each string against the other strings of
	// its own inverter.
	ScopePerInverter Scope = "per-inverter"
	// ScopeSite compares each string against the whole site.
	ScopeSite Scope = "site"
)

// Detector flags strings whose ratio falls below the configured deviation
// band or the absolute floor. Thresholds are configuration, not constants:
// site characteristics vary.
type Detector struct {
	cfg analysisconfig.Anomaly
	log zerolog.Logger
}

// New creates a detector.
func New(cfg analysisconfig.Anomaly, log zerolog.Logger) *Detector {
	return &Detector{
		cfg: cfg,
		log: log.With().Str("component", "anomaly.detector").Logger(),
	}
}

type groupKey struct {
	window contracts.Window
	group  string
}

// Detect evaluates string-scope ratios. Undefined ratios never enter the
// distribution and are never flagged. Groups with fewer defined ratios than
// the minimum sample count are skipped and reported, not flagged.
func (d *Detector) Detect(ratios []contracts.PerformanceRatio, scope Scope) ([]contracts.AnomalyFlag, []contracts.InsufficientDataError) {
	groups := make(map[groupKey][]contracts.PerformanceRatio)
	var order []groupKey
	for _, r := range ratios {
		if r.Scope != contracts.ScopeString || !r.Defined {
			continue
		}
		key := groupKey{window: r.Window, group: "site"}
		if scope == ScopePerInverter {
			key.group = r.InverterID
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}
	sort.Slice(order, func(i, j int) bool {
		if !order[i].window.Start.Equal(order[j].window.Start) {
			return order[i].window.Start.Before(order[j].window.Start)
		}
		return contracts.LessStringID(order[i].group, order[j].group)
	})

	var (
		flags   []contracts.AnomalyFlag
		skipped []contracts.InsufficientDataError
	)
	for _, key := range order {
		group := groups[key]
		if len(group) < d.cfg.MinSampleCount {
			skipped = append(skipped, contracts.InsufficientDataError{
				Window:   key.window,
				GroupID:  key.group,
				Defined:  len(group),
				Required: d.cfg.MinSampleCount,
			})
			d.log.Debug().
				Str("group", key.group).
				Str("window", key.window.String()).
				Int("defined", len(group)).
				Msg("anomaly detection skipped: insufficient defined ratios")
			continue
		}
		flags = append(flags, d.detectGroup(key, group)...)
	}

	d.log.Info().
		Int("flags", len(flags)).
		Int("skipped_groups", len(skipped)).
		Str("scope", string(scope)).
		Msg("anomaly detection completed")

	return flags, skipped
}

func (d *Detector) detectGroup(key groupKey, group []contracts.PerformanceRatio) []contracts.AnomalyFlag {
	mean, stdDev := distribution(group)
	band := mean - d.cfg.SigmaMultiplier*stdDev

	var flags []contracts.AnomalyFlag
	for _, r := range group {
		belowBand := stdDev > 0 && r.Ratio < band
		belowFloor := r.Ratio < d.cfg.AbsoluteFloor
		if !belowBand && !belowFloor {
			continue
		}

		var devSigma float64
		if stdDev > 0 {
			devSigma = (mean - r.Ratio) / stdDev
		}
		var devPct float64
		if mean > 0 {
			devPct = math.Abs(mean-r.Ratio) / mean * 100
		}

		reason := contracts.ReasonBelowFleetBand
		severity := contracts.SeverityWarning
		if devSigma >= d.cfg.CriticalSigma {
			severity = contracts.SeverityCritical
		}
		if belowFloor {
			// Far below any plausible value regardless of fleet spread.
			reason = contracts.ReasonBelowAbsoluteFloor
			severity = contracts.SeverityCritical
		}

		flags = append(flags, contracts.AnomalyFlag{
			StringID:       r.StringID,
			InverterID:     r.InverterID,
			Window:         key.window,
			Severity:       severity,
			Reason:         reason,
			Ratio:          r.Ratio,
			GroupMean:      mean,
			GroupStdDev:    stdDev,
			DeviationSigma: devSigma,
			DeviationPct:   devPct,
		})
	}

	sort.Slice(flags, func(i, j int) bool {
		return contracts.LessStringID(flags[i].StringID, flags[j].StringID)
	})
	return flags
}

// distribution returns the mean and population standard deviation of the
// group's ratios.
func distribution(group []contracts.PerformanceRatio) (mean, stdDev float64) {
	var sum float64
	for _, r := range group {
		sum += r.Ratio
	}
	mean = sum / float64(len(group))

	var variance float64
	for _, r := range group {
		diff := r.Ratio - mean
		variance += diff * diff
	}
	variance /= float64(len(group))
	return mean, math.Sqrt(variance)
}

// RankStrings orders defined string ratios best to worst. The ordering is
// total and deterministic: ratio descending, then string_id ascending.
// Undefined ratios are excluded, not treated as worst-performing.
func RankStrings(ratios []contracts.PerformanceRatio) []contracts.RankedString {
	var ranked []contracts.RankedString
	for _, r := range ratios {
		if r.Scope != contracts.ScopeString || !r.Defined {
			continue
		}
		ranked = append(ranked, contracts.RankedString{
			StringID:   r.StringID,
			InverterID: r.InverterID,
			Ratio:      r.Ratio,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Ratio != ranked[j].Ratio {
			return ranked[i].Ratio > ranked[j].Ratio
		}
		return contracts.LessStringID(ranked[i].StringID, ranked[j].StringID)
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}
