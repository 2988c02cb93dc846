// Package schema normalizes and validates raw input tables into the typed
// dataset every downstream component trusts without re-checking.
package schema

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/nea-energy/stringsight/backend/internal/analysisconfig"
	"github.com/nea-energy/stringsight/backend/internal/contracts"
)

// Validator checks raw tables against the input contract and produces an
// immutable ValidatedDataset. Pure: no I/O, deterministic for a given input.
type Validator struct {
	cfg *analysisconfig.Config
	log zerolog.Logger
}

// New creates a validator.
func New(cfg *analysisconfig.Config, log zerolog.Logger) *Validator {
	return &Validator{
		cfg: cfg,
		log: log.With().Str("component", "schema.validator").Logger(),
	}
}

// Validate normalizes units, derives power from U*I where the source table
// carried no power column, drops physically impossible rows, and verifies
// that every production string has exactly one characterization record.
func (v *Validator) Validate(raw *contracts.RawDataset) (*contracts.ValidatedDataset, error) {
	hasPower, err := v.checkColumns(raw)
	if err != nil {
		return nil, err
	}

	params, err := v.buildParams(raw)
	if err != nil {
		return nil, err
	}

	measurements, err := v.buildMeasurements(raw, params, hasPower)
	if err != nil {
		return nil, err
	}

	env := make([]contracts.EnvironmentSample, 0, len(raw.Environment))
	hasTemp := raw.HasEnvironmentColumn(contracts.ColTemperature)
	for _, row := range raw.Environment {
		if row.IrradianceWM2 < 0 {
			v.log.Warn().Time("timestamp", row.Timestamp).Float64("irradiance", row.IrradianceWM2).
				Msg("dropping environment row with negative irradiance")
			continue
		}
		temp := row.TemperatureC
		if !hasTemp {
			// No derating possible without a temperature series.
			temp = v.cfg.Theoretical.DefaultRefTempC
		}
		env = append(env, contracts.EnvironmentSample{
			Timestamp:     row.Timestamp,
			IrradianceWM2: row.IrradianceWM2,
			TemperatureC:  temp,
		})
	}
	sort.Slice(env, func(i, j int) bool { return env[i].Timestamp.Before(env[j].Timestamp) })

	inverters, byInverter := groupStrings(params)

	ds := &contracts.ValidatedDataset{
		Measurements:      measurements,
		Params:            params,
		Environment:       env,
		Inverters:         inverters,
		StringsByInverter: byInverter,
	}

	v.log.Info().
		Int("measurements", len(measurements)).
		Int("strings", len(params)).
		Int("inverters", len(inverters)).
		Int("environment_samples", len(env)).
		Msg("dataset validated")

	return ds, nil
}

// checkColumns verifies the required column sets and reports whether the
// production table carries power directly.
func (v *Validator) checkColumns(raw *contracts.RawDataset) (hasPower bool, err error) {
	for _, col := range []string{contracts.ColTimestamp, contracts.ColInverterID, contracts.ColStringID} {
		if !raw.HasProductionColumn(col) {
			return false, contracts.MissingColumnError{Table: contracts.TableProduction, Column: col}
		}
	}

	hasPower = raw.HasProductionColumn(contracts.ColPower)
	if !hasPower {
		// Without power we need both current and voltage.
		for _, col := range []string{contracts.ColCurrent, contracts.ColVoltage} {
			if !raw.HasProductionColumn(col) {
				return false, contracts.MissingColumnError{Table: contracts.TableProduction, Column: col}
			}
		}
	}

	for _, col := range []string{contracts.ColStringID, contracts.ColNominalPower, contracts.ColModuleCount} {
		if !raw.HasCharacterizationColumn(col) {
			return false, contracts.MissingColumnError{Table: contracts.TableCharacterization, Column: col}
		}
	}

	for _, col := range []string{contracts.ColTimestamp, contracts.ColIrradiance} {
		if !raw.HasEnvironmentColumn(col) {
			return false, contracts.MissingColumnError{Table: contracts.TableEnvironment, Column: col}
		}
	}

	return hasPower, nil
}

// buildParams enforces exactly one characterization record per string and
// fills reference defaults for sources that omit the reference columns.
func (v *Validator) buildParams(raw *contracts.RawDataset) (map[string]contracts.CharacterizationParams, error) {
	hasCoeff := raw.HasCharacterizationColumn(contracts.ColTempCoeff)
	hasRefG := raw.HasCharacterizationColumn(contracts.ColRefIrradiance)
	hasRefT := raw.HasCharacterizationColumn(contracts.ColRefTemp)

	params := make(map[string]contracts.CharacterizationParams, len(raw.Characterization))
	for _, row := range raw.Characterization {
		if _, dup := params[row.StringID]; dup {
			return nil, fmt.Errorf("table %q: duplicate record for string %q", contracts.TableCharacterization, row.StringID)
		}
		if row.NominalPowerW <= 0 {
			return nil, fmt.Errorf("table %q: string %q: nominal power must be > 0, got %v",
				contracts.TableCharacterization, row.StringID, row.NominalPowerW)
		}
		if row.ModuleCount <= 0 {
			return nil, fmt.Errorf("table %q: string %q: module count must be > 0, got %d",
				contracts.TableCharacterization, row.StringID, row.ModuleCount)
		}

		p := contracts.CharacterizationParams{
			StringID:         row.StringID,
			InverterID:       row.InverterID,
			NominalPowerW:    row.NominalPowerW,
			ModuleCount:      row.ModuleCount,
			TempCoeffPctPerC: row.TempCoeffPctPerC,
			RefIrradianceWM2: row.RefIrradianceWM2,
			RefTempC:         row.RefTempC,
		}
		if !hasCoeff {
			p.TempCoeffPctPerC = v.cfg.Theoretical.DefaultTempCoeffPctPerC
		}
		if !hasRefG || p.RefIrradianceWM2 <= 0 {
			p.RefIrradianceWM2 = v.cfg.Theoretical.DefaultRefIrradianceWM2
		}
		if !hasRefT {
			p.RefTempC = v.cfg.Theoretical.DefaultRefTempC
		}
		params[row.StringID] = p
	}

	return params, nil
}

func (v *Validator) buildMeasurements(raw *contracts.RawDataset, params map[string]contracts.CharacterizationParams, hasPower bool) ([]contracts.Measurement, error) {
	if len(raw.Production) == 0 {
		return nil, contracts.TimeRangeEmptyError{}
	}

	measurements := make([]contracts.Measurement, 0, len(raw.Production))
	dropped := 0
	for _, row := range raw.Production {
		p, known := params[row.StringID]
		if !known {
			return nil, contracts.UnknownStringError{StringID: row.StringID, InverterID: row.InverterID}
		}
		// Characterization rows may omit the inverter; production wins.
		if p.InverterID == "" {
			p.InverterID = row.InverterID
			params[row.StringID] = p
		}

		if row.CurrentA < 0 || row.VoltageV < 0 || row.PowerW < 0 {
			dropped++
			continue
		}

		m := contracts.Measurement{
			Timestamp:  row.Timestamp,
			InverterID: row.InverterID,
			StringID:   row.StringID,
			CurrentA:   row.CurrentA,
			VoltageV:   row.VoltageV,
			PowerW:     row.PowerW,
		}
		if !hasPower {
			m.PowerW = row.VoltageV * row.CurrentA
		}
		measurements = append(measurements, m)
	}

	if dropped > 0 {
		v.log.Warn().Int("dropped", dropped).Msg("dropped production rows with negative readings")
	}
	if len(measurements) == 0 {
		return nil, contracts.TimeRangeEmptyError{}
	}

	sort.Slice(measurements, func(i, j int) bool {
		if measurements[i].StringID != measurements[j].StringID {
			return contracts.LessStringID(measurements[i].StringID, measurements[j].StringID)
		}
		return measurements[i].Timestamp.Before(measurements[j].Timestamp)
	})

	return measurements, nil
}

func groupStrings(params map[string]contracts.CharacterizationParams) ([]string, map[string][]string) {
	byInverter := make(map[string][]string)
	for id, p := range params {
		byInverter[p.InverterID] = append(byInverter[p.InverterID], id)
	}

	inverters := make([]string, 0, len(byInverter))
	for inv, ids := range byInverter {
		contracts.SortStringIDs(ids)
		inverters = append(inverters, inv)
	}
	contracts.SortStringIDs(inverters)

	return inverters, byInverter
}
