package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nea-energy/stringsight/backend/internal/contracts"
)

func newReader() *Reader {
	return NewReader(zerolog.Nop())
}

func TestReadProductionWide(t *testing.T) {
	src := strings.NewReader(
		"time,string 1,string 2,total\n" +
			"2025-06-01 10:00,3500,3600,7100\n" +
			"2025-06-01 10:10,3400,3450,6850\n")

	rows, cols, err := newReader().ReadProduction(src, "inverter 1")
	require.NoError(t, err)
	require.Len(t, rows, 4)

	// Wide rows are remapped onto the long-format columns.
	assert.Equal(t, []string{
		contracts.ColTimestamp, contracts.ColInverterID, contracts.ColStringID, contracts.ColPower,
	}, cols)

	first := rows[0]
	assert.Equal(t, "inverter 1", first.InverterID)
	assert.Equal(t, "string 1", first.StringID)
	assert.Equal(t, 3500.0, first.PowerW)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), first.Timestamp)

	for _, row := range rows {
		assert.NotEqual(t, "total", row.StringID, "total column must be dropped")
	}
}

func TestReadProductionLong(t *testing.T) {
	src := strings.NewReader(
		"timestamp,inverter_id,string_id,current,voltage\n" +
			"2025-06-01T10:00:00Z,inverter 1,string 1,8,500\n" +
			"2025-06-01T10:00:00Z,inverter 1,string 2,7.5,500\n")

	rows, cols, err := newReader().ReadProduction(src, "ignored")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Contains(t, cols, contracts.ColCurrent)
	assert.Equal(t, "inverter 1", rows[0].InverterID, "inverter comes from the column, not the label")
	assert.Equal(t, 8.0, rows[0].CurrentA)
	assert.Equal(t, 500.0, rows[0].VoltageV)
}

func TestReadProductionSkipsBadCells(t *testing.T) {
	src := strings.NewReader(
		"time,string 1,string 2\n" +
			"not-a-time,3500,3600\n" +
			"2025-06-01 10:00,n/a,3600\n")

	rows, _, err := newReader().ReadProduction(src, "inverter 1")
	require.NoError(t, err)

	// The bad timestamp drops the whole row; the bad power drops one cell.
	require.Len(t, rows, 1)
	assert.Equal(t, "string 2", rows[0].StringID)
	assert.Equal(t, 3600.0, rows[0].PowerW)
}

func TestReadProductionUnrecognizedLayout(t *testing.T) {
	src := strings.NewReader("foo,bar\n1,2\n")

	_, _, err := newReader().ReadProduction(src, "inverter 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized layout")
}

func TestReadCharacterizationLegacy(t *testing.T) {
	src := strings.NewReader(
		"string,puissance unitaire,nombre pv\n" +
			"1,\"0,5\",10\n" +
			"2,0.5,12\n")

	rows, cols, err := newReader().ReadCharacterization(src, "inverter 1")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, []string{
		contracts.ColStringID, contracts.ColNominalPower, contracts.ColModuleCount,
	}, cols)

	// Unit panel power in kWc times module count gives nominal watts.
	assert.Equal(t, "string 1", rows[0].StringID)
	assert.Equal(t, 5000.0, rows[0].NominalPowerW)
	assert.Equal(t, 10, rows[0].ModuleCount)

	assert.Equal(t, "string 2", rows[1].StringID)
	assert.Equal(t, 6000.0, rows[1].NominalPowerW)
	assert.Equal(t, "inverter 1", rows[1].InverterID)
}

func TestReadCharacterizationContract(t *testing.T) {
	src := strings.NewReader(
		"string_id,nominal_power_w,module_count,temp_coeff_pct_per_c,reference_irradiance_w_m2,reference_temp_c\n" +
			"string 1,5500,11,-0.35,1000,25\n")

	rows, _, err := newReader().ReadCharacterization(src, "inverter 2")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "string 1", row.StringID)
	assert.Equal(t, "inverter 2", row.InverterID)
	assert.Equal(t, 5500.0, row.NominalPowerW)
	assert.Equal(t, 11, row.ModuleCount)
	assert.Equal(t, -0.35, row.TempCoeffPctPerC)
	assert.Equal(t, 1000.0, row.RefIrradianceWM2)
	assert.Equal(t, 25.0, row.RefTempC)
}

func TestReadEnvironmentLegacy(t *testing.T) {
	src := strings.NewReader(
		"time,irradiance\n" +
			"2025-06-01 10:00,\"0,85\"\n" +
			"2025-06-01 10:10,0.9\n")

	rows, cols, err := newReader().ReadEnvironment(src)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// kW/m² scaled up to W/m².
	assert.InDelta(t, 850.0, rows[0].IrradianceWM2, 1e-9)
	assert.InDelta(t, 900.0, rows[1].IrradianceWM2, 1e-9)
	assert.Equal(t, []string{contracts.ColTimestamp, contracts.ColIrradiance}, cols)
}

func TestReadEnvironmentContract(t *testing.T) {
	src := strings.NewReader(
		"timestamp,irradiance_w_m2,temperature_c\n" +
			"2025-06-01T10:00:00Z,850,31.5\n")

	rows, cols, err := newReader().ReadEnvironment(src)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, 850.0, rows[0].IrradianceWM2)
	assert.Equal(t, 31.5, rows[0].TemperatureC)
	assert.Equal(t, []string{contracts.ColTimestamp, contracts.ColIrradiance, contracts.ColTemperature}, cols)
}

func TestReadEnvironmentUnrecognizedLayout(t *testing.T) {
	src := strings.NewReader("date,lumens\n2025-06-01,12\n")

	_, _, err := newReader().ReadEnvironment(src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized layout")
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	prod1 := writeFile(t, dir, "production1.csv",
		"time,string 1,total\n2025-06-01 10:00,3500,3500\n")
	prod2 := writeFile(t, dir, "production2.csv",
		"time,string 1,total\n2025-06-01 10:00,3400,3400\n")
	char1 := writeFile(t, dir, "characterization1.csv",
		"string,puissance unitaire,nombre pv\n1,0.5,10\n")
	char2 := writeFile(t, dir, "characterization2.csv",
		"string,puissance unitaire,nombre pv\n1,0.5,10\n")
	env := writeFile(t, dir, "environment.csv",
		"time,irradiance\n2025-06-01 10:00,0.9\n")

	raw, err := newReader().LoadFiles([]string{prod1, prod2}, []string{char1, char2}, env)
	require.NoError(t, err)

	// Files are paired by position and labeled inverter 1, inverter 2.
	require.Len(t, raw.Production, 2)
	assert.Equal(t, "inverter 1", raw.Production[0].InverterID)
	assert.Equal(t, "inverter 2", raw.Production[1].InverterID)

	require.Len(t, raw.Characterization, 2)
	assert.Equal(t, "inverter 2", raw.Characterization[1].InverterID)

	require.Len(t, raw.Environment, 1)
	assert.InDelta(t, 900.0, raw.Environment[0].IrradianceWM2, 1e-9)
}

func TestLoadFilesMismatchedCounts(t *testing.T) {
	dir := t.TempDir()
	prod := writeFile(t, dir, "production1.csv", "time,string 1\n2025-06-01 10:00,3500\n")

	_, err := newReader().LoadFiles([]string{prod}, nil, "unused")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "characterization files")
}
