// Package report assembles the finalized tables handed to the external
// document generator. Section selection mirrors the dashboard checkboxes;
// no presentation formatting happens here.
package report

import (
	"encoding/json"
	"io"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/nea-energy/stringsight/backend/internal/contracts"
)

// Sections selects which report blocks to include.
type Sections struct {
	RatioTable      bool `json:"ratio_table"`
	Ranking         bool `json:"ranking"`
	SuspectAnalysis bool `json:"suspect_analysis"`
	MonthlyTrend    bool `json:"monthly_trend"`
}

// AllSections enables everything.
func AllSections() Sections {
	return Sections{RatioTable: true, Ranking: true, SuspectAnalysis: true, MonthlyTrend: true}
}

// Suspect status messages.
const (
	StatusAnomalous  = "anomalous"
	StatusAcceptable = "acceptable"
	StatusNoPeers    = "no comparison available"
)

// SuspectRow is one line of the suspect-string analysis: every string whose
// ratio sits below the site mean, graded by whether the detector flagged it.
type SuspectRow struct {
	StringID     string  `json:"string_id"`
	InverterID   string  `json:"inverter_id"`
	Ratio        float64 `json:"ratio"`
	DeviationPct float64 `json:"deviation_pct"`
	Status       string  `json:"status"`
}

// Report is the full document payload.
type Report struct {
	Site        string    `json:"site"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	GeneratedAt time.Time `json:"generated_at"`
	ConfigHash  string    `json:"config_hash"`
	Sections    Sections  `json:"sections"`

	RatioTable    []contracts.PerformanceRatio `json:"ratio_table,omitempty"`
	TopStrings    []contracts.RankedString     `json:"top_strings,omitempty"`
	BottomStrings []contracts.RankedString     `json:"bottom_strings,omitempty"`
	Suspects      []SuspectRow                 `json:"suspects,omitempty"`
	Anomalies     []contracts.AnomalyFlag      `json:"anomalies,omitempty"`
	MonthlyTrend  []contracts.MonthlyRatio     `json:"monthly_trend,omitempty"`
}

// Builder turns analysis results into report payloads.
type Builder struct {
	log zerolog.Logger
}

// NewBuilder creates a builder.
func NewBuilder(log zerolog.Logger) *Builder {
	return &Builder{log: log.With().Str("component", "report.builder").Logger()}
}

// Build assembles the selected sections from one analysis result.
func (b *Builder) Build(site string, result *contracts.AnalysisResult, sections Sections) *Report {
	window := result.Filter.Window
	rep := &Report{
		Site:        site,
		PeriodStart: window.Start,
		PeriodEnd:   window.End,
		GeneratedAt: result.GeneratedAt,
		ConfigHash:  result.ConfigHash,
		Sections:    sections,
	}

	if sections.RatioTable {
		rep.RatioTable = result.StringRatios
	}
	if sections.Ranking {
		rep.TopStrings = result.TopStrings
		rep.BottomStrings = result.BottomStrings
	}
	if sections.SuspectAnalysis {
		rep.Suspects = buildSuspects(result)
		rep.Anomalies = result.Anomalies
	}
	if sections.MonthlyTrend {
		rep.MonthlyTrend = result.MonthlyTrend
	}

	b.log.Debug().
		Str("site", site).
		Int("suspects", len(rep.Suspects)).
		Msg("report assembled")

	return rep
}

// WriteJSON serializes the report for the document-generation collaborator.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// buildSuspects lists every defined string ratio below the site mean and
// grades it: flagged by the detector means anomalous, otherwise acceptable.
func buildSuspects(result *contracts.AnalysisResult) []SuspectRow {
	var sum float64
	n := 0
	for _, r := range result.StringRatios {
		if r.Defined {
			sum += r.Ratio
			n++
		}
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)

	flagged := make(map[string]struct{}, len(result.Anomalies))
	for _, f := range result.Anomalies {
		flagged[f.StringID] = struct{}{}
	}

	var rows []SuspectRow
	for _, r := range result.StringRatios {
		if !r.Defined || r.Ratio >= mean {
			continue
		}

		status := StatusAcceptable
		if _, ok := flagged[r.StringID]; ok {
			status = StatusAnomalous
		}

		var devPct float64
		if mean > 0 {
			devPct = math.Abs(mean-r.Ratio) / mean * 100
		}

		rows = append(rows, SuspectRow{
			StringID:     r.StringID,
			InverterID:   r.InverterID,
			Ratio:        r.Ratio,
			DeviationPct: devPct,
			Status:       status,
		})
	}
	return rows
}
