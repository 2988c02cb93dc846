package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nea-energy/stringsight/backend/internal/analysisconfig"
	"github.com/nea-energy/stringsight/backend/internal/anomaly"
	"github.com/nea-energy/stringsight/backend/internal/contracts"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// siteDataset builds two inverters with three strings each, sampled hourly
// over one day. "string 6" on inverter 2 underperforms badly.
func siteDataset() *contracts.ValidatedDataset {
	params := make(map[string]contracts.CharacterizationParams)
	byInverter := map[string][]string{
		"inverter 1": {"string 1", "string 2", "string 3"},
		"inverter 2": {"string 4", "string 5", "string 6"},
	}
	for inv, ids := range byInverter {
		for _, id := range ids {
			params[id] = contracts.CharacterizationParams{
				StringID: id, InverterID: inv,
				NominalPowerW: 5000, ModuleCount: 10,
				TempCoeffPctPerC: -0.4, RefIrradianceWM2: 1000, RefTempC: 25,
			}
		}
	}

	realized := map[string]float64{
		"string 1": 4000, "string 2": 3950, "string 3": 4050,
		"string 4": 3980, "string 5": 4020, "string 6": 1500,
	}

	var measurements []contracts.Measurement
	var env []contracts.EnvironmentSample
	for hour := 8; hour <= 16; hour++ {
		at := ts("2025-06-15T00:00:00Z").Add(time.Duration(hour) * time.Hour)
		env = append(env, contracts.EnvironmentSample{Timestamp: at, IrradianceWM2: 1000, TemperatureC: 25})
		for id, w := range realized {
			measurements = append(measurements, contracts.Measurement{
				Timestamp:  at,
				InverterID: params[id].InverterID,
				StringID:   id,
				PowerW:     w,
			})
		}
	}

	return &contracts.ValidatedDataset{
		Measurements:      measurements,
		Params:            params,
		Environment:       env,
		Inverters:         []string{"inverter 1", "inverter 2"},
		StringsByInverter: byInverter,
	}
}

func TestRun(t *testing.T) {
	analyzer, err := New(analysisconfig.Default(), zerolog.Nop(), WithAnomalyScope(anomaly.ScopeSite))
	require.NoError(t, err)

	result, err := analyzer.Run(siteDataset(), contracts.Filter{})
	require.NoError(t, err)

	assert.Equal(t, analyzer.ConfigHash(), result.ConfigHash)
	assert.False(t, result.GeneratedAt.IsZero())

	// All derived tables are populated.
	assert.Len(t, result.StringRatios, 6)
	assert.Len(t, result.InverterRatios, 2)
	assert.Len(t, result.Comparison, 6)
	assert.Len(t, result.Ranking, 6)
	assert.Len(t, result.TopStrings, 3)
	assert.Len(t, result.BottomStrings, 3)
	assert.NotEmpty(t, result.MonthlyTrend)
	assert.Len(t, result.InverterComparison, 6)

	// Inverter energy equals the sum of its strings' energy.
	sums := make(map[string]float64)
	for _, s := range result.StringEnergy {
		sums[s.InverterID] += s.RealizedKWh
	}
	for _, inv := range result.InverterEnergy {
		assert.InDelta(t, sums[inv.InverterID], inv.RealizedKWh, 1e-9)
	}

	// The degraded string is flagged and ranked last.
	require.Len(t, result.Anomalies, 1)
	assert.Equal(t, "string 6", result.Anomalies[0].StringID)
	assert.Equal(t, "string 6", result.Ranking[len(result.Ranking)-1].StringID)
	assert.Equal(t, "string 6", result.BottomStrings[0].StringID)
}

func TestRunDeterministic(t *testing.T) {
	analyzer, err := New(analysisconfig.Default(), zerolog.Nop())
	require.NoError(t, err)

	ds := siteDataset()
	a, err := analyzer.Run(ds, contracts.Filter{})
	require.NoError(t, err)
	b, err := analyzer.Run(ds, contracts.Filter{})
	require.NoError(t, err)

	require.Equal(t, len(a.Ranking), len(b.Ranking))
	for i := range a.Ranking {
		assert.Equal(t, a.Ranking[i], b.Ranking[i])
	}
	assert.Equal(t, a.StringRatios, b.StringRatios)
}

func TestRunEmptyWindow(t *testing.T) {
	analyzer, err := New(analysisconfig.Default(), zerolog.Nop())
	require.NoError(t, err)

	filter := contracts.Filter{Window: contracts.NewWindow(ts("2030-01-01T00:00:00Z"), ts("2030-01-02T00:00:00Z"))}
	_, err = analyzer.Run(siteDataset(), filter)

	var empty contracts.TimeRangeEmptyError
	require.True(t, errors.As(err, &empty))
}

func TestRunInverterFilter(t *testing.T) {
	analyzer, err := New(analysisconfig.Default(), zerolog.Nop())
	require.NoError(t, err)

	result, err := analyzer.Run(siteDataset(), contracts.Filter{Inverters: contracts.Selection{"inverter 1"}})
	require.NoError(t, err)

	assert.Len(t, result.StringRatios, 3)
	assert.Len(t, result.InverterRatios, 1)
	for _, r := range result.StringRatios {
		assert.Equal(t, "inverter 1", r.InverterID)
	}
}

func TestRunnerAnalyze(t *testing.T) {
	runner, err := NewRunner(analysisconfig.Default(), []byte("defaults"), zerolog.Nop())
	require.NoError(t, err)

	_, _, err = runner.Analyze(context.Background(), contracts.Filter{})
	require.Error(t, err, "no dataset loaded yet")

	runner.SetDataset(siteDataset())
	result, runID, err := runner.Analyze(context.Background(), contracts.Filter{})
	require.NoError(t, err)
	assert.Zero(t, runID, "no store configured")
	assert.Len(t, result.StringRatios, 6)

	last, _ := runner.LastResult()
	require.NotNil(t, last)
	assert.Equal(t, result.ConfigHash, last.ConfigHash)
}

type captureNotifier struct {
	runID  int64
	result *contracts.AnalysisResult
	calls  int
}

func (c *captureNotifier) RunCompleted(runID int64, result *contracts.AnalysisResult) {
	c.runID = runID
	c.result = result
	c.calls++
}

func TestRunnerNotifies(t *testing.T) {
	notifier := &captureNotifier{}
	runner, err := NewRunner(analysisconfig.Default(), []byte("defaults"), zerolog.Nop(), WithNotifier(notifier))
	require.NoError(t, err)
	runner.SetDataset(siteDataset())

	_, _, err = runner.Analyze(context.Background(), contracts.Filter{})
	require.NoError(t, err)

	assert.Equal(t, 1, notifier.calls)
	require.NotNil(t, notifier.result)
	assert.Len(t, notifier.result.StringRatios, 6)
}
