package contracts

import (
	"sort"
	"time"
)

// ValidatedDataset is the immutable, strongly typed snapshot every engine
// component trusts without re-checking. Built once by the schema validator
// and passed by pointer into every engine call; never mutated afterwards.
type ValidatedDataset struct {
	// Measurements sorted by string_id, then timestamp ascending.
	Measurements []Measurement `json:"measurements"`

	// Params holds exactly one characterization record per string_id.
	Params map[string]CharacterizationParams `json:"params"`

	// Environment sorted by timestamp ascending, shared across inverters.
	Environment []EnvironmentSample `json:"environment"`

	// Inverters sorted ascending; StringsByInverter values sorted ascending.
	Inverters         []string            `json:"inverters"`
	StringsByInverter map[string][]string `json:"strings_by_inverter"`
}

// StringIDs returns all string identifiers in deterministic order.
func (d *ValidatedDataset) StringIDs() []string {
	ids := make([]string, 0, len(d.Params))
	for id := range d.Params {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// InverterOf returns the inverter a string is wired to.
func (d *ValidatedDataset) InverterOf(stringID string) string {
	return d.Params[stringID].InverterID
}

// EnvironmentAt returns the environment sample nearest to t, matching the
// nearest-timestamp join used to align irradiance onto production rows.
// ok is false when no environment data exists at all.
func (d *ValidatedDataset) EnvironmentAt(t time.Time) (EnvironmentSample, bool) {
	n := len(d.Environment)
	if n == 0 {
		return EnvironmentSample{}, false
	}
	i := sort.Search(n, func(i int) bool {
		return !d.Environment[i].Timestamp.Before(t)
	})
	if i == 0 {
		return d.Environment[0], true
	}
	if i == n {
		return d.Environment[n-1], true
	}
	before, after := d.Environment[i-1], d.Environment[i]
	if t.Sub(before.Timestamp) <= after.Timestamp.Sub(t) {
		return before, true
	}
	return after, true
}

// TimeRange returns the first and last measurement timestamps.
func (d *ValidatedDataset) TimeRange() Window {
	var w Window
	for _, m := range d.Measurements {
		if w.Start.IsZero() || m.Timestamp.Before(w.Start) {
			w.Start = m.Timestamp
		}
		if m.Timestamp.After(w.End) {
			w.End = m.Timestamp
		}
	}
	return w
}

// AnalysisResult is the full set of derived tables for one engine run. All
// sequences are ordered deterministically so the report and UI layers can
// render them without engine-specific knowledge.
type AnalysisResult struct {
	GeneratedAt time.Time `json:"generated_at"`
	Filter      Filter    `json:"filter"`
	ConfigHash  string    `json:"config_hash"`

	PowerSamples   []PowerSample `json:"power_samples"`
	StringEnergy   []EnergyTotal `json:"string_energy"`
	InverterEnergy []EnergyTotal `json:"inverter_energy"`

	StringRatios   []PerformanceRatio `json:"string_ratios"`
	InverterRatios []PerformanceRatio `json:"inverter_ratios"`

	Comparison []ComparisonRow `json:"comparison"`

	Ranking       []RankedString `json:"ranking"`
	TopStrings    []RankedString `json:"top_strings"`
	BottomStrings []RankedString `json:"bottom_strings"`

	Anomalies      []AnomalyFlag           `json:"anomalies"`
	SkippedWindows []InsufficientDataError `json:"skipped_windows,omitempty"`

	MonthlyTrend       []MonthlyRatio     `json:"monthly_trend"`
	InverterComparison []InverterRatioRow `json:"inverter_comparison"`
}
