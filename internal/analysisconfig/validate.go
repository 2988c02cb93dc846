package analysisconfig

import (
	"fmt"
	"time"
)

// ValidationError is a config constraint violation. Fatal: the analysis
// session does not start on a broken configuration.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints.
func Validate(cfg *Config) error {
	if cfg.Meta.SiteID == "" {
		return ValidationError{"meta.site_id", "required"}
	}
	if cfg.Meta.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Meta.Timezone); err != nil {
			return ValidationError{"meta.timezone", err.Error()}
		}
	}

	if cfg.Theoretical.NightIrradianceWM2 < 0 {
		return ValidationError{"theoretical.night_irradiance_w_m2", "must be >= 0"}
	}
	if cfg.Theoretical.DerateFactor <= 0 || cfg.Theoretical.DerateFactor > 1 {
		return ValidationError{"theoretical.derate_factor", "must be in (0, 1]"}
	}
	if cfg.Theoretical.DefaultRefIrradianceWM2 <= 0 {
		return ValidationError{"theoretical.default_ref_irradiance_w_m2", "must be > 0"}
	}

	if cfg.Ratio.MinTheoreticalKWh < 0 {
		return ValidationError{"ratio.min_theoretical_kwh", "must be >= 0"}
	}

	if cfg.Anomaly.SigmaMultiplier <= 0 {
		return ValidationError{"anomaly.sigma_multiplier", "must be > 0"}
	}
	if cfg.Anomaly.AbsoluteFloor < 0 || cfg.Anomaly.AbsoluteFloor >= 1 {
		return ValidationError{"anomaly.absolute_floor", "must be in [0, 1)"}
	}
	if cfg.Anomaly.MinSampleCount < 2 {
		return ValidationError{"anomaly.min_sample_count", "must be >= 2"}
	}
	if cfg.Anomaly.CriticalSigma < cfg.Anomaly.SigmaMultiplier {
		return ValidationError{"anomaly.critical_sigma", "must be >= sigma_multiplier"}
	}

	if cfg.Ranking.TopCount < 1 {
		return ValidationError{"ranking.top_count", "must be >= 1"}
	}
	if cfg.Ranking.BottomCount < 1 {
		return ValidationError{"ranking.bottom_count", "must be >= 1"}
	}

	return nil
}

// Location resolves the configured timezone, defaulting to UTC.
func (c *Config) Location() *time.Location {
	if c.Meta.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Meta.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
