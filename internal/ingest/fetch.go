package ingest

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/nea-energy/stringsight/backend/internal/contracts"
	"github.com/nea-energy/stringsight/backend/pkg/httputil"
)

// Fetcher pulls table exports from a monitoring portal over HTTP. Requests
// are rate limited: portals throttle aggressive polling.
type Fetcher struct {
	client  *httputil.Client
	reader  *Reader
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewFetcher creates a fetcher. The default limit of 2 requests per second
// suits the portals seen in the field.
func NewFetcher(client *httputil.Client, reader *Reader, log zerolog.Logger) *Fetcher {
	return &Fetcher{
		client:  client,
		reader:  reader,
		limiter: rate.NewLimiter(rate.Limit(2), 1),
		log:     log.With().Str("component", "ingest.fetcher").Logger(),
	}
}

// WithLimit overrides the request rate limit.
func (f *Fetcher) WithLimit(rps float64, burst int) *Fetcher {
	f.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return f
}

// FetchProduction downloads and parses a production export. HTML and CSV
// bodies are both accepted, dispatched on the response content type.
func (f *Fetcher) FetchProduction(ctx context.Context, url, inverterID string) ([]contracts.RawProductionRow, []string, error) {
	resp, err := f.get(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if isHTML(resp) {
		return f.reader.ReadProductionHTML(resp.Body, inverterID)
	}
	return f.reader.ReadProduction(resp.Body, inverterID)
}

// FetchCharacterization downloads and parses a characterization export.
func (f *Fetcher) FetchCharacterization(ctx context.Context, url, inverterID string) ([]contracts.RawCharacterizationRow, []string, error) {
	resp, err := f.get(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if isHTML(resp) {
		return f.reader.ReadCharacterizationHTML(resp.Body, inverterID)
	}
	return f.reader.ReadCharacterization(resp.Body, inverterID)
}

// FetchEnvironment downloads and parses an irradiance export.
func (f *Fetcher) FetchEnvironment(ctx context.Context, url string) ([]contracts.RawEnvironmentRow, []string, error) {
	resp, err := f.get(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if isHTML(resp) {
		return f.reader.ReadEnvironmentHTML(resp.Body)
	}
	return f.reader.ReadEnvironment(resp.Body)
}

// LoadURLs assembles a raw dataset from portal export URLs, the remote
// counterpart of Reader.LoadFiles: one production and one characterization
// URL per inverter, paired by position, plus a single environment URL.
func (f *Fetcher) LoadURLs(ctx context.Context, productionURLs, characterizationURLs []string, environmentURL string) (*contracts.RawDataset, error) {
	if len(productionURLs) != len(characterizationURLs) {
		return nil, fmt.Errorf("got %d production URLs but %d characterization URLs",
			len(productionURLs), len(characterizationURLs))
	}

	raw := &contracts.RawDataset{}
	for i := range productionURLs {
		inverterID := fmt.Sprintf("inverter %d", i+1)

		rows, cols, err := f.FetchProduction(ctx, productionURLs[i], inverterID)
		if err != nil {
			return nil, err
		}
		raw.Production = append(raw.Production, rows...)
		raw.ProductionColumns = mergeColumns(raw.ProductionColumns, cols)

		charRows, charCols, err := f.FetchCharacterization(ctx, characterizationURLs[i], inverterID)
		if err != nil {
			return nil, err
		}
		raw.Characterization = append(raw.Characterization, charRows...)
		raw.CharacterizationColumns = mergeColumns(raw.CharacterizationColumns, charCols)
	}

	envRows, envCols, err := f.FetchEnvironment(ctx, environmentURL)
	if err != nil {
		return nil, err
	}
	raw.Environment = envRows
	raw.EnvironmentColumns = envCols

	f.log.Info().
		Int("inverters", len(productionURLs)).
		Int("production_rows", len(raw.Production)).
		Msg("remote exports fetched")

	return raw, nil
}

func (f *Fetcher) get(ctx context.Context, url string) (*http.Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}
	return resp, nil
}

func isHTML(resp *http.Response) bool {
	return strings.Contains(resp.Header.Get("Content-Type"), "html")
}
