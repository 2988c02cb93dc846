package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wideProductionHTML = `<html><body>
<h1>Daily export</h1>
<table>
  <tr><th>time</th><th>string 1</th><th>string 2</th><th>total</th></tr>
  <tr><td>2025-06-01 10:00</td><td>3500</td><td>3600</td><td>7100</td></tr>
  <tr><td>2025-06-01 10:10</td><td>3400</td><td>3450</td><td>6850</td></tr>
</table>
</body></html>`

func TestReadProductionHTML(t *testing.T) {
	rows, _, err := newReader().ReadProductionHTML(strings.NewReader(wideProductionHTML), "inverter 1")
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "inverter 1", rows[0].InverterID)
	assert.Equal(t, "string 1", rows[0].StringID)
	assert.Equal(t, 3500.0, rows[0].PowerW)
	for _, row := range rows {
		assert.NotEqual(t, "total", row.StringID)
	}
}

func TestReadProductionHTMLHeaderFromFirstRow(t *testing.T) {
	// No <th> cells: the first <tr> doubles as the header.
	page := `<table>
  <tr><td>time</td><td>string 1</td></tr>
  <tr><td>2025-06-01 10:00</td><td>3500</td></tr>
</table>`

	rows, _, err := newReader().ReadProductionHTML(strings.NewReader(page), "inverter 1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 3500.0, rows[0].PowerW)
}

func TestReadCharacterizationHTML(t *testing.T) {
	page := `<table>
  <tr><th>string</th><th>puissance unitaire</th><th>nombre pv</th></tr>
  <tr><td>1</td><td>0,5</td><td>10</td></tr>
</table>`

	rows, _, err := newReader().ReadCharacterizationHTML(strings.NewReader(page), "inverter 1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "string 1", rows[0].StringID)
	assert.Equal(t, 5000.0, rows[0].NominalPowerW)
	assert.Equal(t, "inverter 1", rows[0].InverterID)
}

func TestReadEnvironmentHTML(t *testing.T) {
	page := `<table>
  <tr><th>time</th><th>irradiance</th></tr>
  <tr><td>2025-06-01 10:00</td><td>0,85</td></tr>
</table>`

	rows, _, err := newReader().ReadEnvironmentHTML(strings.NewReader(page))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 850.0, rows[0].IrradianceWM2, 1e-9)
}

func TestReadHTMLNoTable(t *testing.T) {
	_, _, err := newReader().ReadProductionHTML(strings.NewReader("<html><body><p>empty</p></body></html>"), "inverter 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no table")
}

func TestReadHTMLOnlyFirstTable(t *testing.T) {
	page := wideProductionHTML + `<table>
  <tr><th>time</th><th>string 9</th></tr>
  <tr><td>2025-06-01 10:00</td><td>1</td></tr>
</table>`

	rows, _, err := newReader().ReadProductionHTML(strings.NewReader(page), "inverter 1")
	require.NoError(t, err)
	for _, row := range rows {
		assert.NotEqual(t, "string 9", row.StringID)
	}
}
