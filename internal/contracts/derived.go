package contracts

import "time"

// Scope distinguishes per-string from per-inverter derived records.
type Scope string

const (
	ScopeString   Scope = "string"
	ScopeInverter Scope = "inverter"
	ScopeSite     Scope = "site"
)

// PowerSample is the paired realized/theoretical power for one string at one
// timestamp. Computed once per analysis run, never mutated.
type PowerSample struct {
	Timestamp    time.Time `json:"timestamp"`
	InverterID   string    `json:"inverter_id"`
	StringID     string    `json:"string_id"`
	RealizedW    float64   `json:"realized_w"`
	TheoreticalW float64   `json:"theoretical_w"`
}

// EnergyTotal is the integral of a power series over a window, for both the
// realized and theoretical series, in kWh.
type EnergyTotal struct {
	Scope          Scope   `json:"scope"`
	StringID       string  `json:"string_id,omitempty"`
	InverterID     string  `json:"inverter_id"`
	Window         Window  `json:"window"`
	RealizedKWh    float64 `json:"realized_kwh"`
	TheoreticalKWh float64 `json:"theoretical_kwh"`
}

// PerformanceRatio is realized over theoretical energy for one string or
// inverter over a window. Defined is false when the theoretical energy falls
// at or below the configured near-zero threshold; Ratio is meaningless then
// and downstream layers must render it as missing, never as zero.
type PerformanceRatio struct {
	Scope          Scope   `json:"scope"`
	StringID       string  `json:"string_id,omitempty"`
	InverterID     string  `json:"inverter_id"`
	Window         Window  `json:"window"`
	RealizedKWh    float64 `json:"realized_kwh"`
	TheoreticalKWh float64 `json:"theoretical_kwh"`
	Ratio          float64 `json:"ratio"`
	Defined        bool    `json:"defined"`
}

// Severity grades an anomaly flag.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Anomaly flag reasons.
const (
	ReasonBelowFleetBand     = "ratio below fleet deviation band"
	ReasonBelowAbsoluteFloor = "ratio below absolute floor"
)

// AnomalyFlag marks a string whose performance ratio fell out of the fleet
// distribution for a window.
type AnomalyFlag struct {
	StringID       string   `json:"string_id"`
	InverterID     string   `json:"inverter_id"`
	Window         Window   `json:"window"`
	Severity       Severity `json:"severity"`
	Reason         string   `json:"reason"`
	Ratio          float64  `json:"ratio"`
	GroupMean      float64  `json:"group_mean"`
	GroupStdDev    float64  `json:"group_std_dev"`
	DeviationSigma float64  `json:"deviation_sigma"`
	DeviationPct   float64  `json:"deviation_pct"`
}

// RankedString is one row of the best-to-worst ordering.
type RankedString struct {
	Rank       int     `json:"rank"`
	StringID   string  `json:"string_id"`
	InverterID string  `json:"inverter_id"`
	Ratio      float64 `json:"ratio"`
}

// ComparisonRow pairs realized and theoretical reductions over one identical
// window for one string: mean power and total energy.
type ComparisonRow struct {
	StringID         string  `json:"string_id"`
	InverterID       string  `json:"inverter_id"`
	AvgRealizedKW    float64 `json:"avg_realized_kw"`
	AvgTheoreticalKW float64 `json:"avg_theoretical_kw"`
	RealizedKWh      float64 `json:"realized_kwh"`
	TheoreticalKWh   float64 `json:"theoretical_kwh"`
}

// MonthlyRatio is one point of the monthly performance trend. The ratio is
// re-derived from month-window energy integration, not averaged from daily
// ratios, so it stays energy weighted.
type MonthlyRatio struct {
	Month          string  `json:"month"` // YYYY-MM
	Scope          Scope   `json:"scope"`
	StringID       string  `json:"string_id,omitempty"`
	InverterID     string  `json:"inverter_id,omitempty"`
	RealizedKWh    float64 `json:"realized_kwh"`
	TheoreticalKWh float64 `json:"theoretical_kwh"`
	Ratio          float64 `json:"ratio"`
	Defined        bool    `json:"defined"`
}

// InverterRatioRow is one cell of the cross-inverter comparison table.
type InverterRatioRow struct {
	StringID   string  `json:"string_id"`
	InverterID string  `json:"inverter_id"`
	Ratio      float64 `json:"ratio"`
	Defined    bool    `json:"defined"`
}
