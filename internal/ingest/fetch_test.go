package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nea-energy/stringsight/backend/pkg/config"
	"github.com/nea-energy/stringsight/backend/pkg/httputil"
	"github.com/nea-energy/stringsight/backend/pkg/logger"
)

func newFetcher() *Fetcher {
	log := logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})
	client := httputil.New(log).DisableRetry()
	return NewFetcher(client, NewReader(zerolog.Nop()), zerolog.Nop())
}

func TestFetchProductionCSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("time,string 1,total\n2025-06-01 10:00,3500,3500\n"))
	}))
	defer srv.Close()

	rows, _, err := newFetcher().FetchProduction(context.Background(), srv.URL, "inverter 1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "string 1", rows[0].StringID)
	assert.Equal(t, 3500.0, rows[0].PowerW)
}

func TestFetchProductionHTMLByContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(wideProductionHTML))
	}))
	defer srv.Close()

	rows, _, err := newFetcher().FetchProduction(context.Background(), srv.URL, "inverter 1")
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestFetchEnvironment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("time,irradiance\n2025-06-01 10:00,0.9\n"))
	}))
	defer srv.Close()

	rows, _, err := newFetcher().FetchEnvironment(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 900.0, rows[0].IrradianceWM2, 1e-9)
}

func TestLoadURLs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/production1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("time,string 1,total\n2025-06-01 10:00,3500,3500\n"))
	})
	mux.HandleFunc("/production2", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<table>
  <tr><th>time</th><th>string 1</th></tr>
  <tr><td>2025-06-01 10:00</td><td>3400</td></tr>
</table>`))
	})
	mux.HandleFunc("/characterization1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("string,puissance unitaire,nombre pv\n1,0.5,10\n"))
	})
	mux.HandleFunc("/characterization2", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<table>
  <tr><th>string</th><th>puissance unitaire</th><th>nombre pv</th></tr>
  <tr><td>1</td><td>0,5</td><td>12</td></tr>
</table>`))
	})
	mux.HandleFunc("/environment", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("time,irradiance\n2025-06-01 10:00,0.9\n"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	raw, err := newFetcher().WithLimit(100, 1).LoadURLs(context.Background(),
		[]string{srv.URL + "/production1", srv.URL + "/production2"},
		[]string{srv.URL + "/characterization1", srv.URL + "/characterization2"},
		srv.URL+"/environment")
	require.NoError(t, err)

	// URLs pair by position and label inverter 1, inverter 2; CSV and HTML
	// bodies mix freely.
	require.Len(t, raw.Production, 2)
	assert.Equal(t, "inverter 1", raw.Production[0].InverterID)
	assert.Equal(t, "inverter 2", raw.Production[1].InverterID)
	assert.Equal(t, 3400.0, raw.Production[1].PowerW)

	require.Len(t, raw.Characterization, 2)
	assert.Equal(t, 5000.0, raw.Characterization[0].NominalPowerW)
	assert.Equal(t, 12, raw.Characterization[1].ModuleCount)

	require.Len(t, raw.Environment, 1)
	assert.InDelta(t, 900.0, raw.Environment[0].IrradianceWM2, 1e-9)
}

func TestLoadURLsMismatchedCounts(t *testing.T) {
	_, err := newFetcher().LoadURLs(context.Background(),
		[]string{"http://example.invalid/p1"}, nil, "http://example.invalid/env")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "characterization URLs")
}

func TestFetchRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, _, err := newFetcher().FetchProduction(context.Background(), srv.URL, "inverter 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
}
