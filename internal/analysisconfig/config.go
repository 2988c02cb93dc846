package analysisconfig

// Config is the full tuning configuration for one analysis session. All
// empirically tuned site constants live here rather than in code: anomaly
// thresholds vary per site and are supplied, not guessed.
type Config struct {
	Meta        Meta        `yaml:"meta" json:"meta"`
	Theoretical Theoretical `yaml:"theoretical" json:"theoretical"`
	Ratio       Ratio       `yaml:"ratio" json:"ratio"`
	Anomaly     Anomaly     `yaml:"anomaly" json:"anomaly"`
	Ranking     Ranking     `yaml:"ranking" json:"ranking"`
}

// Meta identifies the site the configuration was tuned for.
type Meta struct {
	SiteID   string `yaml:"site_id" json:"site_id"`
	Version  string `yaml:"version" json:"version"`
	Timezone string `yaml:"timezone" json:"timezone"`
}

// Theoretical parameterizes the expected-power model.
type Theoretical struct {
	// NightIrradianceWM2 is the irradiance below which expected power is
	// exactly zero. Keeps night hours out of PR denominators.
	NightIrradianceWM2 float64 `yaml:"night_irradiance_w_m2" json:"night_irradiance_w_m2"`

	// DerateFactor covers fixed system losses (soiling, wiring, inverter).
	DerateFactor float64 `yaml:"derate_factor" json:"derate_factor"`

	// Defaults applied when a characterization source omits the reference
	// columns (the legacy file format carries only unit power and count).
	DefaultTempCoeffPctPerC float64 `yaml:"default_temp_coeff_pct_per_c" json:"default_temp_coeff_pct_per_c"`
	DefaultRefIrradianceWM2 float64 `yaml:"default_ref_irradiance_w_m2" json:"default_ref_irradiance_w_m2"`
	DefaultRefTempC         float64 `yaml:"default_ref_temp_c" json:"default_ref_temp_c"`
}

// Ratio parameterizes the performance-ratio computation.
type Ratio struct {
	// MinTheoreticalKWh is the near-zero denominator threshold. A ratio with
	// theoretical energy at or below it is undefined, never zero.
	MinTheoreticalKWh float64 `yaml:"min_theoretical_kwh" json:"min_theoretical_kwh"`
}

// Anomaly parameterizes suspect-string detection.
type Anomaly struct {
	SigmaMultiplier float64 `yaml:"sigma_multiplier" json:"sigma_multiplier"`
	AbsoluteFloor   float64 `yaml:"absolute_floor" json:"absolute_floor"`
	MinSampleCount  int     `yaml:"min_sample_count" json:"min_sample_count"`

	// CriticalSigma grades severity: deviations at or beyond it are
	// critical, anything flagged below it is a warning.
	CriticalSigma float64 `yaml:"critical_sigma" json:"critical_sigma"`
}

// Ranking parameterizes the best/worst tables.
type Ranking struct {
	TopCount    int `yaml:"top_count" json:"top_count"`
	BottomCount int `yaml:"bottom_count" json:"bottom_count"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Meta: Meta{
			SiteID:   "default",
			Version:  "1",
			Timezone: "UTC",
		},
		Theoretical: Theoretical{
			NightIrradianceWM2:      20,
			DerateFactor:            0.8,
			DefaultTempCoeffPctPerC: -0.4,
			DefaultRefIrradianceWM2: 1000,
			DefaultRefTempC:         25,
		},
		Ratio: Ratio{
			MinTheoreticalKWh: 0.001,
		},
		Anomaly: Anomaly{
			SigmaMultiplier: 2.0,
			AbsoluteFloor:   0.3,
			MinSampleCount:  4,
			CriticalSigma:   3.0,
		},
		Ranking: Ranking{
			TopCount:    3,
			BottomCount: 3,
		},
	}
}
