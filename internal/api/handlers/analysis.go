package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/nea-energy/stringsight/backend/internal/contracts"
	"github.com/nea-energy/stringsight/backend/internal/engine"
	"github.com/nea-energy/stringsight/backend/pkg/logger"
)

// AnalysisHandler serves analysis runs and views over the latest result.
type AnalysisHandler struct {
	runner *engine.Runner
	logger *logger.Logger
}

// NewAnalysisHandler creates an analysis handler.
func NewAnalysisHandler(runner *engine.Runner, log *logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{runner: runner, logger: log}
}

// AnalyzeRequest selects what to analyze. Empty selections mean everything,
// an omitted window means the full time range of the dataset.
type AnalyzeRequest struct {
	Inverters []string `json:"inverters,omitempty"`
	Strings   []string `json:"strings,omitempty"`
	From      string   `json:"from,omitempty"` // RFC3339
	To        string   `json:"to,omitempty"`   // RFC3339
}

// AnalyzeResponse wraps a completed run.
type AnalyzeResponse struct {
	RunID  int64                     `json:"run_id,omitempty"`
	Result *contracts.AnalysisResult `json:"result"`
}

// Analyze runs the pipeline for the requested filter.
// POST /api/analyze
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req AnalyzeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	filter, err := req.toFilter()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, runID, err := h.runner.Analyze(ctx, filter)
	if err != nil {
		var empty contracts.TimeRangeEmptyError
		if errors.As(err, &empty) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.WithError(err).Error("Analysis failed")
		respondError(w, http.StatusInternalServerError, "Analysis failed")
		return
	}

	respondJSON(w, http.StatusOK, AnalyzeResponse{RunID: runID, Result: result})
}

// Reload rescans the data directory and rebuilds the dataset.
// POST /api/reload
func (h *AnalysisHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.Reload(r.Context()); err != nil {
		h.logger.WithError(err).Error("Dataset reload failed")
		respondError(w, http.StatusInternalServerError, "Dataset reload failed")
		return
	}

	ds := h.runner.Dataset()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"inverters":    ds.Inverters,
		"measurements": len(ds.Measurements),
	})
}

// Latest returns the most recent full analysis result.
// GET /api/results/latest
func (h *AnalysisHandler) Latest(w http.ResponseWriter, r *http.Request) {
	result, runID := h.runner.LastResult()
	if result == nil {
		respondError(w, http.StatusNotFound, "No analysis has run yet")
		return
	}
	respondJSON(w, http.StatusOK, AnalyzeResponse{RunID: runID, Result: result})
}

// Ratios returns the per-string performance ratio table of the latest run.
// GET /api/results/latest/ratios
func (h *AnalysisHandler) Ratios(w http.ResponseWriter, r *http.Request) {
	h.latestView(w, func(res *contracts.AnalysisResult) interface{} { return res.StringRatios })
}

// Ranking returns the string ranking of the latest run.
// GET /api/results/latest/ranking
func (h *AnalysisHandler) Ranking(w http.ResponseWriter, r *http.Request) {
	h.latestView(w, func(res *contracts.AnalysisResult) interface{} {
		return map[string]interface{}{
			"ranking": res.Ranking,
			"top":     res.TopStrings,
			"bottom":  res.BottomStrings,
		}
	})
}

// Anomalies returns the anomaly flags of the latest run.
// GET /api/results/latest/anomalies
func (h *AnalysisHandler) Anomalies(w http.ResponseWriter, r *http.Request) {
	h.latestView(w, func(res *contracts.AnalysisResult) interface{} {
		return map[string]interface{}{
			"anomalies":       res.Anomalies,
			"skipped_windows": res.SkippedWindows,
		}
	})
}

// Monthly returns the month-by-month ratio trend of the latest run.
// GET /api/results/latest/monthly
func (h *AnalysisHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	h.latestView(w, func(res *contracts.AnalysisResult) interface{} { return res.MonthlyTrend })
}

// Comparison returns the cross-inverter comparison of the latest run.
// GET /api/results/latest/comparison
func (h *AnalysisHandler) Comparison(w http.ResponseWriter, r *http.Request) {
	h.latestView(w, func(res *contracts.AnalysisResult) interface{} { return res.InverterComparison })
}

func (h *AnalysisHandler) latestView(w http.ResponseWriter, view func(*contracts.AnalysisResult) interface{}) {
	result, _ := h.runner.LastResult()
	if result == nil {
		respondError(w, http.StatusNotFound, "No analysis has run yet")
		return
	}
	respondJSON(w, http.StatusOK, view(result))
}

func (r AnalyzeRequest) toFilter() (contracts.Filter, error) {
	var filter contracts.Filter
	filter.Inverters = contracts.Selection(r.Inverters)
	filter.Strings = contracts.Selection(r.Strings)

	var from, to time.Time
	var err error
	if r.From != "" {
		from, err = time.Parse(time.RFC3339, r.From)
		if err != nil {
			return filter, &badTimeError{field: "from"}
		}
	}
	if r.To != "" {
		to, err = time.Parse(time.RFC3339, r.To)
		if err != nil {
			return filter, &badTimeError{field: "to"}
		}
	}
	if !from.IsZero() || !to.IsZero() {
		filter.Window = contracts.NewWindow(from, to)
	}
	return filter, nil
}

type badTimeError struct{ field string }

func (e *badTimeError) Error() string {
	return "Invalid '" + e.field + "' timestamp (expected RFC3339)"
}
