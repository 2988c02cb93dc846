package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/nea-energy/stringsight/backend/internal/report"
	"github.com/nea-energy/stringsight/backend/internal/store"
	"github.com/nea-energy/stringsight/backend/pkg/logger"
)

// RunsHandler serves persisted analysis runs and report payloads.
type RunsHandler struct {
	repo    *store.Repository
	builder *report.Builder
	siteID  string
	logger  *logger.Logger
}

// NewRunsHandler creates a runs handler. repo may be nil when the database
// is disabled; run endpoints then answer 503.
func NewRunsHandler(repo *store.Repository, builder *report.Builder, siteID string, log *logger.Logger) *RunsHandler {
	return &RunsHandler{repo: repo, builder: builder, siteID: siteID, logger: log}
}

// List returns recent run headers for the site.
// GET /api/runs?limit=20
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		respondError(w, http.StatusServiceUnavailable, "Run persistence is disabled")
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = n
	}

	runs, err := h.repo.ListRuns(r.Context(), h.siteID, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}
	respondJSON(w, http.StatusOK, runs)
}

// Get returns one run with its full result payload.
// GET /api/runs/{id}
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// Report assembles a report from a stored run. Sections are selected with
// ?sections=ratios,ranking,suspects,monthly; omitted means all.
// GET /api/runs/{id}/report
func (h *RunsHandler) Report(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.loadRun(w, r)
	if !ok {
		return
	}

	sections := parseSections(r.URL.Query().Get("sections"))
	rep := h.builder.Build(rec.SiteID, rec.Result, sections)

	w.Header().Set("Content-Type", "application/json")
	if err := rep.WriteJSON(w); err != nil {
		h.logger.WithError(err).Error("Failed to write report")
	}
}

func (h *RunsHandler) loadRun(w http.ResponseWriter, r *http.Request) (*store.RunRecord, bool) {
	if h.repo == nil {
		respondError(w, http.StatusServiceUnavailable, "Run persistence is disabled")
		return nil, false
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid run ID")
		return nil, false
	}

	rec, err := h.repo.GetRun(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Run not found")
		return nil, false
	}
	return rec, true
}

func parseSections(raw string) report.Sections {
	if raw == "" {
		return report.AllSections()
	}

	var sections report.Sections
	for _, name := range strings.Split(raw, ",") {
		switch strings.TrimSpace(name) {
		case "ratios":
			sections.RatioTable = true
		case "ranking":
			sections.Ranking = true
		case "suspects":
			sections.SuspectAnalysis = true
		case "monthly":
			sections.MonthlyTrend = true
		}
	}
	return sections
}
