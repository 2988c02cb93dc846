// Package model computes expected string power and energy from nameplate
// characterization and environment conditions.
package model

import (
	"github.com/nea-energy/stringsight/backend/internal/analysisconfig"
	"github.com/nea-energy/stringsight/backend/internal/contracts"
)

// Theoretical predicts per-string power absent losses and faults, scaled by
// irradiance and linearly derated by module temperature.
type Theoretical struct {
	night  float64 // irradiance below this is night: expected power is exactly 0
	derate float64
}

// New creates the model from the session configuration.
func New(cfg *analysisconfig.Config) *Theoretical {
	return &Theoretical{
		night:  cfg.Theoretical.NightIrradianceWM2,
		derate: cfg.Theoretical.DerateFactor,
	}
}

// ExpectedPower returns the expected power in W for one string under the
// given conditions:
//
//	P = P_nom * (G / G_ref) * derate * (1 + coeff * (T - T_ref))
//
// Below the night threshold the result is exactly 0, with no derating
// applied, so night hours stay out of PR denominators.
func (m *Theoretical) ExpectedPower(p contracts.CharacterizationParams, env contracts.EnvironmentSample) float64 {
	if env.IrradianceWM2 < m.night {
		return 0
	}

	power := p.NominalPowerW * (env.IrradianceWM2 / p.RefIrradianceWM2) * m.derate
	power *= 1 + (p.TempCoeffPctPerC/100)*(env.TemperatureC-p.RefTempC)
	if power < 0 {
		// Extreme temperature can push the linear derating negative.
		return 0
	}
	return power
}

// ExpectedEnergyKWh integrates expected power over the sample timestamps of
// a paired power series within the window. Returns 0 for an empty window.
func (m *Theoretical) ExpectedEnergyKWh(samples []contracts.PowerSample, window contracts.Window) float64 {
	return IntegrateKWh(samples, window, func(s contracts.PowerSample) float64 { return s.TheoreticalW })
}

// IntegrateKWh computes the trapezoidal integral of one side of a power
// series (in W) over the samples that fall inside the window, returning kWh.
// Windows with fewer than two in-window samples integrate to 0: no
// extrapolation beyond observed timestamps.
func IntegrateKWh(samples []contracts.PowerSample, window contracts.Window, value func(contracts.PowerSample) float64) float64 {
	var (
		total float64
		prev  contracts.PowerSample
		have  bool
	)
	for _, s := range samples {
		if !window.Contains(s.Timestamp) {
			continue
		}
		if have {
			dtHours := s.Timestamp.Sub(prev.Timestamp).Hours()
			if dtHours > 0 {
				total += (value(prev) + value(s)) / 2 * dtHours
			}
		}
		prev = s
		have = true
	}
	return total / 1000
}
