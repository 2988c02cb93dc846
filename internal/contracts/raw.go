package contracts

import "time"

// Raw table column names as produced by the ingestion layer. The schema
// validator reports these in MissingColumnError.
const (
	ColTimestamp     = "timestamp"
	ColInverterID    = "inverter_id"
	ColStringID      = "string_id"
	ColCurrent       = "current"
	ColVoltage       = "voltage"
	ColPower         = "power"
	ColNominalPower  = "nominal_power_w"
	ColModuleCount   = "module_count"
	ColTempCoeff     = "temp_coeff_pct_per_c"
	ColRefIrradiance = "reference_irradiance_w_m2"
	ColRefTemp       = "reference_temp_c"
	ColIrradiance    = "irradiance_w_m2"
	ColTemperature   = "temperature_c"
)

// Table names used in validation errors.
const (
	TableProduction       = "production"
	TableCharacterization = "characterization"
	TableEnvironment      = "environment"
)

// RawProductionRow is one untrusted production reading. Current/Voltage or
// Power must be populated depending on which columns the source carried.
type RawProductionRow struct {
	Timestamp  time.Time
	InverterID string
	StringID   string
	CurrentA   float64
	VoltageV   float64
	PowerW     float64
}

// RawCharacterizationRow is one untrusted nameplate record.
type RawCharacterizationRow struct {
	StringID         string
	InverterID       string
	NominalPowerW    float64
	ModuleCount      int
	TempCoeffPctPerC float64
	RefIrradianceWM2 float64
	RefTempC         float64
}

// RawEnvironmentRow is one untrusted irradiance/temperature reading.
type RawEnvironmentRow struct {
	Timestamp     time.Time
	IrradianceWM2 float64
	TemperatureC  float64
}

// RawDataset is the untyped-but-parsed output of the file-ingestion layer,
// not yet trusted by any computation. Column lists record which columns the
// source files actually carried so the validator can report absences.
type RawDataset struct {
	ProductionColumns       []string
	CharacterizationColumns []string
	EnvironmentColumns      []string

	Production       []RawProductionRow
	Characterization []RawCharacterizationRow
	Environment      []RawEnvironmentRow
}

// HasProductionColumn reports whether the production table carried a column.
func (r *RawDataset) HasProductionColumn(name string) bool {
	return containsColumn(r.ProductionColumns, name)
}

// HasCharacterizationColumn reports whether the characterization table
// carried a column.
func (r *RawDataset) HasCharacterizationColumn(name string) bool {
	return containsColumn(r.CharacterizationColumns, name)
}

// HasEnvironmentColumn reports whether the environment table carried a column.
func (r *RawDataset) HasEnvironmentColumn(name string) bool {
	return containsColumn(r.EnvironmentColumns, name)
}

func containsColumn(cols []string, name string) bool {
	for _, c := range cols {
		if c == name {
			return true
		}
	}
	return false
}
