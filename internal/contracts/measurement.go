package contracts

import "time"

// Measurement is one realized electrical reading for a string at sampling
// resolution. Power is always populated after validation: either passed
// through from the source table or derived as U*I.
type Measurement struct {
	Timestamp  time.Time `json:"timestamp"`
	InverterID string    `json:"inverter_id"`
	StringID   string    `json:"string_id"`
	CurrentA   float64   `json:"current_a"`
	VoltageV   float64   `json:"voltage_v"`
	PowerW     float64   `json:"power_w"`
}

// CharacterizationParams holds the static nameplate data for one string.
// Exactly one record per string_id; immutable for the analysis session.
type CharacterizationParams struct {
	StringID         string  `json:"string_id"`
	InverterID       string  `json:"inverter_id"`
	NominalPowerW    float64 `json:"nominal_power_w"`
	ModuleCount      int     `json:"module_count"`
	TempCoeffPctPerC float64 `json:"temp_coeff_pct_per_c"`
	RefIrradianceWM2 float64 `json:"ref_irradiance_w_m2"`
	RefTempC         float64 `json:"ref_temp_c"`
}

// InstalledKWp returns the installed peak power in kWc, the denominator
// unit of the kWh/kWc ratio tables.
func (p CharacterizationParams) InstalledKWp() float64 {
	return p.NominalPowerW / 1000
}

// EnvironmentSample is a site-wide irradiance/temperature reading.
type EnvironmentSample struct {
	Timestamp     time.Time `json:"timestamp"`
	IrradianceWM2 float64   `json:"irradiance_w_m2"`
	TemperatureC  float64   `json:"temperature_c"`
}
