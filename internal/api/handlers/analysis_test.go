package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestToFilterFromOnly(t *testing.T) {
	req := AnalyzeRequest{From: "2025-06-01T00:00:00Z"}
	filter, err := req.toFilter()
	require.NoError(t, err)

	// A start-only window selects everything after the start.
	assert.True(t, filter.Window.Contains(ts("2025-07-15T00:00:00Z")))
	assert.False(t, filter.Window.Contains(ts("2020-01-01T00:00:00Z")))
}

func TestToFilterToOnly(t *testing.T) {
	req := AnalyzeRequest{To: "2025-06-01T00:00:00Z"}
	filter, err := req.toFilter()
	require.NoError(t, err)

	assert.True(t, filter.Window.Contains(ts("2020-01-01T00:00:00Z")))
	assert.False(t, filter.Window.Contains(ts("2025-07-15T00:00:00Z")))
}

func TestToFilterOmittedWindow(t *testing.T) {
	req := AnalyzeRequest{Inverters: []string{"inverter 1"}}
	filter, err := req.toFilter()
	require.NoError(t, err)

	assert.True(t, filter.Window.IsZero())
	assert.Equal(t, []string{"inverter 1"}, []string(filter.Inverters))
}

func TestToFilterRejectsBadTimestamp(t *testing.T) {
	req := AnalyzeRequest{From: "yesterday"}
	_, err := req.toFilter()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from")
}
