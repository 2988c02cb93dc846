package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nea-energy/stringsight/backend/internal/api"
	"github.com/nea-energy/stringsight/backend/internal/api/handlers"
	"github.com/nea-energy/stringsight/backend/internal/engine"
	"github.com/nea-energy/stringsight/backend/internal/report"
	"github.com/nea-energy/stringsight/backend/internal/scheduler"
	"github.com/nea-energy/stringsight/backend/internal/scheduler/jobs"
	"github.com/nea-energy/stringsight/backend/internal/store"
	"github.com/nea-energy/stringsight/backend/internal/ws"
	"github.com/nea-energy/stringsight/backend/pkg/config"
	"github.com/nea-energy/stringsight/backend/pkg/database"
	"github.com/nea-energy/stringsight/backend/pkg/redis"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the HTTP API server.

Endpoints:
  GET  /health                          - Health check
  POST /api/analyze                     - Run the pipeline for a filter
  POST /api/reload                      - Rescan the data directory
  GET  /api/results/latest              - Latest full result
  GET  /api/results/latest/ratios       - Performance ratio table
  GET  /api/results/latest/ranking      - String ranking, top and bottom
  GET  /api/results/latest/anomalies    - Anomaly flags
  GET  /api/results/latest/monthly      - Monthly ratio trend
  GET  /api/results/latest/comparison   - Cross-inverter comparison
  GET  /api/runs                        - Persisted run headers
  GET  /api/runs/{id}                   - One persisted run
  GET  /api/runs/{id}/report            - Report payload from a run
  GET  /ws                              - Run-completed push channel

Example:
  go run ./cmd/stringsight api
  go run ./cmd/stringsight api --port 8080`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	// 2. Initialize logger
	log := newLogger(cfg)
	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	// 3. Analysis configuration
	acfg, ayaml, err := loadAnalysisConfig(cfg)
	if err != nil {
		return err
	}

	// 4. Optional run persistence
	var repo *store.Repository
	if cfg.Database.Enabled() {
		db, err := database.New(cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()
		repo = store.NewRepository(db, log.Zerolog())
		log.Info("Connected to database")
	} else {
		log.Warn("DATABASE_URL not set, run persistence disabled")
	}

	// 5. Optional result cache
	redisClient, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	cache := redis.NewCache(redisClient, "stringsight")

	// 6. WebSocket hub
	hub := ws.NewHub(acfg.Meta.SiteID, log.Zerolog())

	// 7. Pipeline runner
	opts := []engine.RunnerOption{
		engine.WithDataDir(cfg.DataDir),
		engine.WithCache(cache, cfg.CacheTTL),
		engine.WithNotifier(hub),
	}
	if repo != nil {
		opts = append(opts, engine.WithStore(repo))
	}
	runner, err := newRunner(acfg, ayaml, log, opts...)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	// Initial dataset load; the server still starts without one so /reload
	// can fix a bad data directory later.
	if err := runner.Reload(context.Background()); err != nil {
		log.WithError(err).Warn("Initial dataset load failed")
	}

	// 8. Handlers and router
	analysisHandler := handlers.NewAnalysisHandler(runner, log)
	runsHandler := handlers.NewRunsHandler(repo, report.NewBuilder(log.Zerolog()), acfg.Meta.SiteID, log)
	wsHandler := ws.NewHandler(hub, runner, log.Zerolog())
	router := api.NewRouter(analysisHandler, runsHandler, wsHandler, log)

	// 9. Server
	server := api.New(cfg, log, router)
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	// 10. Optional scheduled reanalysis
	var sched *scheduler.Scheduler
	if cfg.ScheduleSpec != "" {
		sched = scheduler.New(log)
		if err := sched.AddJob(jobs.NewReanalysisJob(runner, cfg.ScheduleSpec, log)); err != nil {
			return fmt.Errorf("schedule reanalysis: %w", err)
		}
		sched.Start()
	}

	log.Info("API server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	if sched != nil {
		sched.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
