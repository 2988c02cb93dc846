package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nea-energy/stringsight/backend/internal/analysisconfig"
	"github.com/nea-energy/stringsight/backend/internal/contracts"
	"github.com/nea-energy/stringsight/backend/internal/ingest"
	"github.com/nea-energy/stringsight/backend/internal/schema"
	"github.com/nea-energy/stringsight/backend/pkg/redis"
)

// RunStore persists completed analysis runs.
type RunStore interface {
	SaveRun(ctx context.Context, snap *analysisconfig.RunSnapshot, result *contracts.AnalysisResult) (int64, error)
}

// Notifier is told when a run completes. The WebSocket hub implements it.
type Notifier interface {
	RunCompleted(runID int64, result *contracts.AnalysisResult)
}

// Runner orchestrates the full pipeline: ingest the data directory, validate
// it into a dataset, analyze on demand, persist and announce the result. It
// is the shared entry point for the API, the scheduler and the CLI.
type Runner struct {
	cfg        *analysisconfig.Config
	configYAML []byte
	reader     *ingest.Reader
	validator  *schema.Validator
	analyzer   *Analyzer
	log        zerolog.Logger

	store    RunStore
	cache    *redis.Cache
	cacheTTL time.Duration
	notifier Notifier
	fetcher  *ingest.Fetcher
	dataDir  string

	mu          sync.RWMutex
	dataset     *contracts.ValidatedDataset
	datasetHash string
	lastResult  *contracts.AnalysisResult
	lastRunID   int64
}

// RunnerOption configures optional runner collaborators.
type RunnerOption func(*Runner)

// WithStore enables run persistence.
func WithStore(store RunStore) RunnerOption {
	return func(r *Runner) { r.store = store }
}

// WithCache enables result caching.
func WithCache(cache *redis.Cache, ttl time.Duration) RunnerOption {
	return func(r *Runner) {
		r.cache = cache
		r.cacheTTL = ttl
	}
}

// WithNotifier enables run-completed notifications.
func WithNotifier(n Notifier) RunnerOption {
	return func(r *Runner) { r.notifier = n }
}

// WithDataDir sets the directory Reload scans for input files.
func WithDataDir(dir string) RunnerOption {
	return func(r *Runner) { r.dataDir = dir }
}

// WithFetcher enables loading exports from remote portal URLs.
func WithFetcher(f *ingest.Fetcher) RunnerOption {
	return func(r *Runner) { r.fetcher = f }
}

// NewRunner wires the pipeline around an analyzer.
func NewRunner(cfg *analysisconfig.Config, configYAML []byte, log zerolog.Logger, opts ...RunnerOption) (*Runner, error) {
	analyzer, err := New(cfg, log)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:        cfg,
		configYAML: configYAML,
		reader:     ingest.NewReader(log),
		validator:  schema.New(cfg, log),
		analyzer:   analyzer,
		log:        log.With().Str("component", "engine.runner").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// SetDataset installs an already-validated dataset, bypassing Reload. The
// CLI uses this after loading explicit file paths.
func (r *Runner) SetDataset(ds *contracts.ValidatedDataset) {
	hash := fingerprintDataset(ds)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.dataset = ds
	r.datasetHash = hash
}

// SetDataDir changes the directory Reload scans.
func (r *Runner) SetDataDir(dir string) { r.dataDir = dir }

// LoadFiles ingests explicit file paths and installs the validated dataset.
func (r *Runner) LoadFiles(production, characterization []string, environment string) error {
	raw, err := r.reader.LoadFiles(production, characterization, environment)
	if err != nil {
		return fmt.Errorf("failed to load input files: %w", err)
	}

	ds, err := r.validator.Validate(raw)
	if err != nil {
		return fmt.Errorf("dataset validation failed: %w", err)
	}

	r.SetDataset(ds)
	return nil
}

// LoadRemote fetches portal exports from URLs and installs the validated
// dataset. Requires a fetcher, see WithFetcher.
func (r *Runner) LoadRemote(ctx context.Context, production, characterization []string, environment string) error {
	if r.fetcher == nil {
		return fmt.Errorf("no fetcher configured for remote loading")
	}

	raw, err := r.fetcher.LoadURLs(ctx, production, characterization, environment)
	if err != nil {
		return fmt.Errorf("failed to fetch remote exports: %w", err)
	}

	ds, err := r.validator.Validate(raw)
	if err != nil {
		return fmt.Errorf("dataset validation failed: %w", err)
	}

	r.SetDataset(ds)
	return nil
}

// Dataset returns the current dataset, or nil before the first load.
func (r *Runner) Dataset() *contracts.ValidatedDataset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dataset
}

// LastResult returns the most recent analysis result and its run ID, or nil
// before the first run.
func (r *Runner) LastResult() (*contracts.AnalysisResult, int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastResult, r.lastRunID
}

// ConfigHash exposes the hash of the active configuration.
func (r *Runner) ConfigHash() string { return r.analyzer.ConfigHash() }

// Config exposes the active configuration.
func (r *Runner) Config() *analysisconfig.Config { return r.cfg }

// Reload rescans the data directory and rebuilds the validated dataset.
// Production and characterization files pair up by sorted filename order,
// one pair per inverter.
func (r *Runner) Reload(ctx context.Context) error {
	if r.dataDir == "" {
		return fmt.Errorf("no data directory configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	production, err := globSorted(r.dataDir, "production*.csv")
	if err != nil {
		return err
	}
	characterization, err := globSorted(r.dataDir, "characterization*.csv")
	if err != nil {
		return err
	}
	environment, err := globSorted(r.dataDir, "environment*.csv")
	if err != nil {
		return err
	}

	if len(production) == 0 {
		return fmt.Errorf("no production files in %s", r.dataDir)
	}
	if len(environment) == 0 {
		return fmt.Errorf("no environment file found in %s", r.dataDir)
	}

	raw, err := r.reader.LoadFiles(production, characterization, environment[0])
	if err != nil {
		return fmt.Errorf("failed to load data directory: %w", err)
	}

	ds, err := r.validator.Validate(raw)
	if err != nil {
		return fmt.Errorf("dataset validation failed: %w", err)
	}

	r.SetDataset(ds)

	r.log.Info().
		Str("dir", r.dataDir).
		Int("inverters", len(ds.Inverters)).
		Int("measurements", len(ds.Measurements)).
		Msg("dataset reloaded")

	return nil
}

// Analyze runs the pipeline for one filter. Results are cached per
// (config, dataset, filter) triple; a cache hit skips computation,
// persistence and notification alike since nothing new happened.
func (r *Runner) Analyze(ctx context.Context, filter contracts.Filter) (*contracts.AnalysisResult, int64, error) {
	ds := r.Dataset()
	if ds == nil {
		return nil, 0, fmt.Errorf("no dataset loaded")
	}

	key, err := r.cacheKey(filter)
	if err != nil {
		return nil, 0, err
	}

	if r.cache != nil {
		var cached contracts.AnalysisResult
		hit, err := r.cache.Get(ctx, key, &cached)
		if err != nil {
			r.log.Warn().Err(err).Msg("cache lookup failed")
		} else if hit {
			r.log.Debug().Str("key", key).Msg("analysis cache hit")
			return &cached, 0, nil
		}
	}

	result, err := r.analyzer.Run(ds, filter)
	if err != nil {
		return nil, 0, err
	}

	var runID int64
	if r.store != nil {
		snap, err := analysisconfig.NewRunSnapshot(r.cfg, r.configYAML)
		if err != nil {
			return nil, 0, err
		}
		runID, err = r.store.SaveRun(ctx, snap, result)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to persist run: %w", err)
		}
	}

	r.mu.Lock()
	r.lastResult = result
	r.lastRunID = runID
	r.mu.Unlock()

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, result, r.cacheTTL); err != nil {
			r.log.Warn().Err(err).Msg("cache store failed")
		}
	}

	if r.notifier != nil {
		r.notifier.RunCompleted(runID, result)
	}

	return result, runID, nil
}

// cacheKey derives a stable key from the config hash, the dataset content
// and the filter, so a reload of new exports never serves results computed
// from the previous data.
func (r *Runner) cacheKey(filter contracts.Filter) (string, error) {
	data, err := json.Marshal(filter)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)

	r.mu.RLock()
	datasetHash := r.datasetHash
	r.mu.RUnlock()

	return fmt.Sprintf("analysis:%s:%s:%s",
		r.analyzer.ConfigHash()[:12], datasetHash, hex.EncodeToString(sum[:12])), nil
}

// fingerprintDataset hashes the canonical JSON form of a dataset. Map keys
// marshal in sorted order and all slices are deterministically sorted by
// validation, so identical data always produces the same fingerprint.
func fingerprintDataset(ds *contracts.ValidatedDataset) string {
	data, err := json.Marshal(ds)
	if err != nil {
		return "unhashed"
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:12])
}

func globSorted(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
