package commands

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

func TestBuildFilterFromOnly(t *testing.T) {
	filter, err := buildFilter(nil, nil, "2025-06-01", "")
	require.NoError(t, err)

	// A start-only window is open ended, not inverted around the zero time.
	assert.True(t, filter.Window.Contains(ts("2025-07-15T00:00:00Z")))
	assert.True(t, filter.Window.Contains(ts("2025-06-01T00:00:00Z")))
	assert.False(t, filter.Window.Contains(ts("2020-01-01T00:00:00Z")))
}

func TestBuildFilterToOnly(t *testing.T) {
	filter, err := buildFilter(nil, nil, "", "2025-06-01")
	require.NoError(t, err)

	assert.True(t, filter.Window.Contains(ts("2020-01-01T00:00:00Z")))
	assert.False(t, filter.Window.Contains(ts("2025-07-15T00:00:00Z")))
}

func TestBuildFilterBothBounds(t *testing.T) {
	filter, err := buildFilter([]string{"inverter 1"}, []string{"string 2"}, "2025-06-01", "2025-06-30T23:59:59Z")
	require.NoError(t, err)

	assert.Equal(t, []string{"inverter 1"}, []string(filter.Inverters))
	assert.Equal(t, []string{"string 2"}, []string(filter.Strings))
	assert.True(t, filter.Window.Contains(ts("2025-06-15T12:00:00Z")))
	assert.False(t, filter.Window.Contains(ts("2025-07-01T00:00:00Z")))
}

func TestBuildFilterRejectsBadTimestamp(t *testing.T) {
	_, err := buildFilter(nil, nil, "June 1st", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--from")
}
