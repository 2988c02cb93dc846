package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nea-energy/stringsight/backend/internal/contracts"
)

// Reader parses input tables. Rows whose cells fail numeric or timestamp
// coercion are skipped with a warning, mirroring coerce-to-missing
// semantics: a malformed row is a data-quality gap, not a fatal error.
type Reader struct {
	log zerolog.Logger
}

// NewReader creates a reader.
func NewReader(log zerolog.Logger) *Reader {
	return &Reader{log: log.With().Str("component", "ingest").Logger()}
}

func readCSVGrid(r io.Reader) (grid, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return grid{}, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return grid{}, fmt.Errorf("empty table")
	}

	return grid{header: normalizeHeader(records[0]), rows: records[1:]}, nil
}

// ReadProduction parses a production table. Two layouts are accepted:
//
//   - long: timestamp,inverter_id,string_id,(current,voltage|power)
//   - wide (legacy portal export): time,string 1,...,string N,total.
//     One file per inverter, power in W; the total column is dropped and
//     re-derived downstream.
//
// inverterID labels wide-format rows, which carry no inverter column.
func (r *Reader) ReadProduction(src io.Reader, inverterID string) ([]contracts.RawProductionRow, []string, error) {
	g, err := readCSVGrid(src)
	if err != nil {
		return nil, nil, fmt.Errorf("production: %w", err)
	}
	if g.hasColumn(contracts.ColInverterID) {
		return r.productionLong(g)
	}
	return r.productionWide(g, inverterID)
}

func (r *Reader) productionLong(g grid) ([]contracts.RawProductionRow, []string, error) {
	tsIdx := g.columnIndex(contracts.ColTimestamp)
	invIdx := g.columnIndex(contracts.ColInverterID)
	strIdx := g.columnIndex(contracts.ColStringID)
	curIdx := g.columnIndex(contracts.ColCurrent)
	volIdx := g.columnIndex(contracts.ColVoltage)
	powIdx := g.columnIndex(contracts.ColPower)

	columns := append([]string{}, g.header...)
	rows := make([]contracts.RawProductionRow, 0, len(g.rows))
	skipped := 0
	for _, rec := range g.rows {
		ts, err := parseTimestamp(cell(rec, tsIdx))
		if err != nil {
			skipped++
			continue
		}
		row := contracts.RawProductionRow{
			Timestamp:  ts,
			InverterID: strings.TrimSpace(cell(rec, invIdx)),
			StringID:   strings.TrimSpace(cell(rec, strIdx)),
		}
		ok := true
		if powIdx >= 0 {
			row.PowerW, err = parseFloat(cell(rec, powIdx))
			ok = err == nil
		}
		if ok && curIdx >= 0 {
			row.CurrentA, err = parseFloat(cell(rec, curIdx))
			ok = err == nil
		}
		if ok && volIdx >= 0 {
			row.VoltageV, err = parseFloat(cell(rec, volIdx))
			ok = err == nil
		}
		if !ok {
			skipped++
			continue
		}
		rows = append(rows, row)
	}
	r.logSkipped(contracts.TableProduction, skipped)
	return rows, columns, nil
}

func (r *Reader) productionWide(g grid, inverterID string) ([]contracts.RawProductionRow, []string, error) {
	if len(g.header) < 2 || g.header[0] != "time" {
		return nil, nil, fmt.Errorf("production: unrecognized layout (want %q or %q first column)", contracts.ColTimestamp, "time")
	}

	// Everything between "time" and a trailing "total" is a string column.
	type col struct {
		idx int
		id  string
	}
	var stringCols []col
	for i, h := range g.header[1:] {
		if h == "total" {
			continue
		}
		stringCols = append(stringCols, col{idx: i + 1, id: h})
	}

	columns := []string{contracts.ColTimestamp, contracts.ColInverterID, contracts.ColStringID, contracts.ColPower}
	var rows []contracts.RawProductionRow
	skipped := 0
	for _, rec := range g.rows {
		ts, err := parseTimestamp(cell(rec, 0))
		if err != nil {
			skipped++
			continue
		}
		for _, c := range stringCols {
			power, err := parseFloat(cell(rec, c.idx))
			if err != nil {
				skipped++
				continue
			}
			rows = append(rows, contracts.RawProductionRow{
				Timestamp:  ts,
				InverterID: inverterID,
				StringID:   c.id,
				PowerW:     power,
			})
		}
	}
	r.logSkipped(contracts.TableProduction, skipped)
	return rows, columns, nil
}

// ReadCharacterization parses a characterization table. Two layouts are
// accepted:
//
//   - contract: string_id,nominal_power_w,module_count[,temp_coeff_pct_per_c,
//     reference_irradiance_w_m2,reference_temp_c]
//   - legacy: string,puissance unitaire,nombre pv. String number, unit panel
//     power in kWc and module count; nominal power is derived.
//
// inverterID labels rows for sources that carry no inverter column.
func (r *Reader) ReadCharacterization(src io.Reader, inverterID string) ([]contracts.RawCharacterizationRow, []string, error) {
	g, err := readCSVGrid(src)
	if err != nil {
		return nil, nil, fmt.Errorf("characterization: %w", err)
	}
	if g.hasColumn(contracts.ColNominalPower) {
		return r.characterizationContract(g, inverterID)
	}
	return r.characterizationLegacy(g, inverterID)
}

func (r *Reader) characterizationContract(g grid, inverterID string) ([]contracts.RawCharacterizationRow, []string, error) {
	strIdx := g.columnIndex(contracts.ColStringID)
	nomIdx := g.columnIndex(contracts.ColNominalPower)
	cntIdx := g.columnIndex(contracts.ColModuleCount)
	coeffIdx := g.columnIndex(contracts.ColTempCoeff)
	refGIdx := g.columnIndex(contracts.ColRefIrradiance)
	refTIdx := g.columnIndex(contracts.ColRefTemp)

	columns := append([]string{}, g.header...)
	rows := make([]contracts.RawCharacterizationRow, 0, len(g.rows))
	skipped := 0
	for _, rec := range g.rows {
		row := contracts.RawCharacterizationRow{
			StringID:   strings.TrimSpace(cell(rec, strIdx)),
			InverterID: inverterID,
		}
		var err error
		if row.NominalPowerW, err = parseFloat(cell(rec, nomIdx)); err != nil {
			skipped++
			continue
		}
		if row.ModuleCount, err = parseInt(cell(rec, cntIdx)); err != nil {
			skipped++
			continue
		}
		if coeffIdx >= 0 {
			if row.TempCoeffPctPerC, err = parseFloat(cell(rec, coeffIdx)); err != nil {
				skipped++
				continue
			}
		}
		if refGIdx >= 0 {
			if row.RefIrradianceWM2, err = parseFloat(cell(rec, refGIdx)); err != nil {
				skipped++
				continue
			}
		}
		if refTIdx >= 0 {
			if row.RefTempC, err = parseFloat(cell(rec, refTIdx)); err != nil {
				skipped++
				continue
			}
		}
		rows = append(rows, row)
	}
	r.logSkipped(contracts.TableCharacterization, skipped)
	return rows, columns, nil
}

func (r *Reader) characterizationLegacy(g grid, inverterID string) ([]contracts.RawCharacterizationRow, []string, error) {
	if len(g.header) < 3 {
		return nil, nil, fmt.Errorf("characterization: unrecognized layout (want 3 columns, got %d)", len(g.header))
	}

	columns := []string{contracts.ColStringID, contracts.ColNominalPower, contracts.ColModuleCount}
	rows := make([]contracts.RawCharacterizationRow, 0, len(g.rows))
	skipped := 0
	for _, rec := range g.rows {
		num, err := parseInt(cell(rec, 0))
		if err != nil {
			skipped++
			continue
		}
		unitKWp, err := parseFloat(cell(rec, 1))
		if err != nil {
			skipped++
			continue
		}
		count, err := parseInt(cell(rec, 2))
		if err != nil {
			skipped++
			continue
		}
		rows = append(rows, contracts.RawCharacterizationRow{
			StringID:      fmt.Sprintf("string %d", num),
			InverterID:    inverterID,
			NominalPowerW: unitKWp * 1000 * float64(count),
			ModuleCount:   count,
		})
	}
	r.logSkipped(contracts.TableCharacterization, skipped)
	return rows, columns, nil
}

// ReadEnvironment parses the irradiance table. Two layouts are accepted:
//
//   - contract: timestamp,irradiance_w_m2[,temperature_c]
//   - legacy: time,irradiance with irradiance in kW/m², converted to W/m².
func (r *Reader) ReadEnvironment(src io.Reader) ([]contracts.RawEnvironmentRow, []string, error) {
	g, err := readCSVGrid(src)
	if err != nil {
		return nil, nil, fmt.Errorf("environment: %w", err)
	}
	return r.environmentFromGrid(g)
}

func (r *Reader) environmentFromGrid(g grid) ([]contracts.RawEnvironmentRow, []string, error) {
	tsIdx := g.columnIndex(contracts.ColTimestamp)
	irrIdx := g.columnIndex(contracts.ColIrradiance)
	tempIdx := g.columnIndex(contracts.ColTemperature)
	scale := 1.0
	columns := []string{contracts.ColTimestamp, contracts.ColIrradiance}
	if tempIdx >= 0 {
		columns = append(columns, contracts.ColTemperature)
	}

	if irrIdx < 0 {
		// Legacy layout: time,irradiance in kW/m².
		if tsIdx < 0 {
			tsIdx = g.columnIndex("time")
		}
		irrIdx = g.columnIndex("irradiance")
		scale = 1000
	}
	if tsIdx < 0 || irrIdx < 0 {
		return nil, nil, fmt.Errorf("environment: unrecognized layout")
	}

	rows := make([]contracts.RawEnvironmentRow, 0, len(g.rows))
	skipped := 0
	for _, rec := range g.rows {
		ts, err := parseTimestamp(cell(rec, tsIdx))
		if err != nil {
			skipped++
			continue
		}
		irr, err := parseFloat(cell(rec, irrIdx))
		if err != nil {
			skipped++
			continue
		}
		row := contracts.RawEnvironmentRow{Timestamp: ts, IrradianceWM2: irr * scale}
		if tempIdx >= 0 {
			if row.TemperatureC, err = parseFloat(cell(rec, tempIdx)); err != nil {
				skipped++
				continue
			}
		}
		rows = append(rows, row)
	}
	r.logSkipped(contracts.TableEnvironment, skipped)
	return rows, columns, nil
}

// LoadFiles assembles a raw dataset from CSV files on disk: one production
// and one characterization file per inverter (paired by position, named
// "inverter 1", "inverter 2", ...) plus a single environment file.
func (r *Reader) LoadFiles(productionPaths, characterizationPaths []string, environmentPath string) (*contracts.RawDataset, error) {
	if len(productionPaths) != len(characterizationPaths) {
		return nil, fmt.Errorf("got %d production files but %d characterization files",
			len(productionPaths), len(characterizationPaths))
	}

	raw := &contracts.RawDataset{}
	for i := range productionPaths {
		inverterID := fmt.Sprintf("inverter %d", i+1)

		err := withFile(productionPaths[i], func(f io.Reader) error {
			rows, cols, err := r.ReadProduction(f, inverterID)
			if err != nil {
				return err
			}
			raw.Production = append(raw.Production, rows...)
			raw.ProductionColumns = mergeColumns(raw.ProductionColumns, cols)
			return nil
		})
		if err != nil {
			return nil, err
		}

		err = withFile(characterizationPaths[i], func(f io.Reader) error {
			rows, cols, err := r.ReadCharacterization(f, inverterID)
			if err != nil {
				return err
			}
			raw.Characterization = append(raw.Characterization, rows...)
			raw.CharacterizationColumns = mergeColumns(raw.CharacterizationColumns, cols)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	err := withFile(environmentPath, func(f io.Reader) error {
		rows, cols, err := r.ReadEnvironment(f)
		if err != nil {
			return err
		}
		raw.Environment = rows
		raw.EnvironmentColumns = cols
		return nil
	})
	if err != nil {
		return nil, err
	}

	return raw, nil
}

func withFile(path string, read func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if err := read(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func (r *Reader) logSkipped(table string, skipped int) {
	if skipped > 0 {
		r.log.Warn().Str("table", table).Int("rows", skipped).Msg("skipped unparseable rows")
	}
}

func mergeColumns(existing, incoming []string) []string {
	for _, col := range incoming {
		found := false
		for _, have := range existing {
			if have == col {
				found = true
				break
			}
		}
		if !found {
			existing = append(existing, col)
		}
	}
	return existing
}
