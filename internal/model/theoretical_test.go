package model

import (
	"math"
	"testing"
	"time"

	"github.com/nea-energy/stringsight/backend/internal/analysisconfig"
	"github.com/nea-energy/stringsight/backend/internal/contracts"
)

func params() contracts.CharacterizationParams {
	return contracts.CharacterizationParams{
		StringID:         "string 1",
		InverterID:       "inverter 1",
		NominalPowerW:    5000,
		ModuleCount:      10,
		TempCoeffPctPerC: -0.4,
		RefIrradianceWM2: 1000,
		RefTempC:         25,
	}
}

func TestExpectedPower(t *testing.T) {
	m := New(analysisconfig.Default())

	tests := []struct {
		name string
		env  contracts.EnvironmentSample
		want float64
	}{
		{
			// 5000 * (1000/1000) * 0.8 at reference temperature
			name: "reference conditions",
			env:  contracts.EnvironmentSample{IrradianceWM2: 1000, TemperatureC: 25},
			want: 4000,
		},
		{
			// Half irradiance halves the output
			name: "half irradiance",
			env:  contracts.EnvironmentSample{IrradianceWM2: 500, TemperatureC: 25},
			want: 2000,
		},
		{
			// 10 degrees above reference: 1 + (-0.4/100)*10 = 0.96
			name: "hot module derates",
			env:  contracts.EnvironmentSample{IrradianceWM2: 1000, TemperatureC: 35},
			want: 3840,
		},
		{
			// 10 degrees below reference boosts output
			name: "cold module boosts",
			env:  contracts.EnvironmentSample{IrradianceWM2: 1000, TemperatureC: 15},
			want: 4160,
		},
		{
			name: "below night threshold is exactly zero",
			env:  contracts.EnvironmentSample{IrradianceWM2: 19.9, TemperatureC: 25},
			want: 0,
		},
		{
			name: "zero irradiance is exactly zero",
			env:  contracts.EnvironmentSample{IrradianceWM2: 0, TemperatureC: 25},
			want: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := m.ExpectedPower(params(), tc.env)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("ExpectedPower = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestExpectedPowerAtThreshold(t *testing.T) {
	m := New(analysisconfig.Default())
	// At the threshold exactly, the model applies: only below is night.
	got := m.ExpectedPower(params(), contracts.EnvironmentSample{IrradianceWM2: 20, TemperatureC: 25})
	if got <= 0 {
		t.Errorf("irradiance at the threshold should produce power, got %v", got)
	}
}

func TestExpectedPowerClampsNegative(t *testing.T) {
	m := New(analysisconfig.Default())
	p := params()
	p.TempCoeffPctPerC = -2.0

	// 1 + (-2/100)*(100-25) = -0.5: clamp to zero rather than predicting
	// negative production.
	got := m.ExpectedPower(p, contracts.EnvironmentSample{IrradianceWM2: 1000, TemperatureC: 100})
	if got != 0 {
		t.Errorf("expected clamp to 0, got %v", got)
	}
}

func sampleAt(ts string, w float64) contracts.PowerSample {
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		panic(err)
	}
	return contracts.PowerSample{Timestamp: parsed, StringID: "string 1", RealizedW: w, TheoreticalW: w}
}

func TestIntegrateKWh(t *testing.T) {
	samples := []contracts.PowerSample{
		sampleAt("2025-06-01T10:00:00Z", 1000),
		sampleAt("2025-06-01T11:00:00Z", 2000),
		sampleAt("2025-06-01T12:00:00Z", 1000),
	}
	var window contracts.Window

	// Trapezoid: (1000+2000)/2 + (2000+1000)/2 = 3000 Wh = 3 kWh
	got := IntegrateKWh(samples, window, func(s contracts.PowerSample) float64 { return s.RealizedW })
	if math.Abs(got-3.0) > 1e-9 {
		t.Errorf("IntegrateKWh = %v, want 3.0", got)
	}
}

func TestIntegrateKWhConstantPower(t *testing.T) {
	// 10-minute sampling at constant 3000 W for one hour = 3 kWh.
	var samples []contracts.PowerSample
	base, _ := time.Parse(time.RFC3339, "2025-06-01T10:00:00Z")
	for i := 0; i <= 6; i++ {
		samples = append(samples, contracts.PowerSample{
			Timestamp: base.Add(time.Duration(i) * 10 * time.Minute),
			RealizedW: 3000,
		})
	}

	got := IntegrateKWh(samples, contracts.Window{}, func(s contracts.PowerSample) float64 { return s.RealizedW })
	if math.Abs(got-3.0) > 1e-9 {
		t.Errorf("IntegrateKWh = %v, want 3.0", got)
	}
}

func TestIntegrateKWhWindowed(t *testing.T) {
	samples := []contracts.PowerSample{
		sampleAt("2025-06-01T10:00:00Z", 1000),
		sampleAt("2025-06-01T11:00:00Z", 1000),
		sampleAt("2025-06-01T12:00:00Z", 1000),
	}
	window := contracts.NewWindow(
		mustTime("2025-06-01T10:30:00Z"),
		mustTime("2025-06-01T12:30:00Z"),
	)

	// Only the 11:00 and 12:00 samples are inside: one trapezoid of 1 kWh.
	got := IntegrateKWh(samples, window, func(s contracts.PowerSample) float64 { return s.RealizedW })
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("IntegrateKWh = %v, want 1.0", got)
	}
}

func TestIntegrateKWhTooFewSamples(t *testing.T) {
	single := []contracts.PowerSample{sampleAt("2025-06-01T10:00:00Z", 5000)}
	got := IntegrateKWh(single, contracts.Window{}, func(s contracts.PowerSample) float64 { return s.RealizedW })
	if got != 0 {
		t.Errorf("single sample should integrate to 0, got %v", got)
	}

	got = IntegrateKWh(nil, contracts.Window{}, func(s contracts.PowerSample) float64 { return s.RealizedW })
	if got != 0 {
		t.Errorf("no samples should integrate to 0, got %v", got)
	}
}

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}
