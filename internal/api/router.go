package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/nea-energy/stringsight/backend/internal/api/handlers"
	"github.com/nea-energy/stringsight/backend/pkg/logger"
)

// NewRouter configures all HTTP routes.
func NewRouter(
	analysis *handlers.AnalysisHandler,
	runs *handlers.RunsHandler,
	wsHandler http.Handler,
	log *logger.Logger,
) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// WebSocket push channel
	if wsHandler != nil {
		r.Handle("/ws", wsHandler)
	}

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	// Analysis endpoints
	api.HandleFunc("/analyze", analysis.Analyze).Methods("POST")
	api.HandleFunc("/reload", analysis.Reload).Methods("POST")
	api.HandleFunc("/results/latest", analysis.Latest).Methods("GET")
	api.HandleFunc("/results/latest/ratios", analysis.Ratios).Methods("GET")
	api.HandleFunc("/results/latest/ranking", analysis.Ranking).Methods("GET")
	api.HandleFunc("/results/latest/anomalies", analysis.Anomalies).Methods("GET")
	api.HandleFunc("/results/latest/monthly", analysis.Monthly).Methods("GET")
	api.HandleFunc("/results/latest/comparison", analysis.Comparison).Methods("GET")

	// Persisted runs
	api.HandleFunc("/runs", runs.List).Methods("GET")
	api.HandleFunc("/runs/{id}", runs.Get).Methods("GET")
	api.HandleFunc("/runs/{id}/report", runs.Report).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status.
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "stringsight-api",
	})
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics.
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
