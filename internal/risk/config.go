package risk

import (
	"fmt"
	"math"
)

// weightTolerance is the slack allowed when checking that a weight group sums
// to 1, to absorb float parsing noise from env-sourced overrides.
const weightTolerance = 1e-6

// FloodBaselineWeights blends the structural flood-vulnerability factors.
type FloodBaselineWeights struct {
	HistoricalFrequency    float64
	ElevationVulnerability float64
	DrainageWeakness       float64
}

// FloodEventWeights blends the live flood-risk factors.
type FloodEventWeights struct {
	RainfallIntensity     float64
	CumulativeRain48h     float64
	BaselineVulnerability float64
}

// HeatBaselineWeights blends the structural heat-vulnerability factors.
type HeatBaselineWeights struct {
	HistoricalHeatwaves float64
	ElderlyRatio        float64
	PopulationDensity   float64
}

// HeatEventWeights blends the live heat-risk factors. The urban-heat-island
// term differentiates zones that share the same temperature anomaly.
type HeatEventWeights struct {
	TemperatureAnomaly    float64
	BaselineVulnerability float64
	UrbanHeatIsland       float64
}

// FusionWeights combines Layer-1 composite risk with the Layer-2 ML
// probability. When no prediction is available for a cycle the ML weight is
// effectively zero and the composite risk passes through unscaled.
type FusionWeights struct {
	Composite float64
	ML        float64
}

// ConfidenceWeights is the fixed convex combination behind the confidence
// score.
type ConfidenceWeights struct {
	DataCompleteness float64
	MLConfidence     float64
	WeatherPresence  float64
}

// SpilloverConfig controls neighbor risk amplification.
type SpilloverConfig struct {
	// RiskThreshold is the prior-cycle combined risk a neighbor must have
	// reached to trigger spillover.
	RiskThreshold float64
	// BoostPct is the percentage amplification applied once, however many
	// neighbors triggered (5 means x1.05).
	BoostPct float64
}

// CategoryBands holds the lower bounds of the moderate, high, and critical
// risk categories. Anything below Moderate is low.
type CategoryBands struct {
	Moderate float64
	High     float64
	Critical float64
}

// DeltaThresholds are the percentage-delta trigger points for the surge and
// critical alerts.
type DeltaThresholds struct {
	SurgePct    float64
	CriticalPct float64
}

// ElevationScale anchors the inverse elevation normalization: vulnerability
// is (MaxM - elevation) normalized over SpanM.
type ElevationScale struct {
	MaxM  float64
	SpanM float64
}

// DensityScale caps the population-density normalization.
type DensityScale struct {
	CapPerKM2 float64
}

// Curves holds the piecewise-linear calibration curves. The breakpoints are
// operator-tunable domain calibration, not implementation constants.
type Curves struct {
	RainfallIntensity Curve // mm/h -> [0,1]
	CumulativeRain    Curve // 48h mm -> [0,1]
	TempAnomaly       Curve // °C above baseline -> [0,1]
}

// Config is the full, immutable risk-model configuration. Build one with
// DefaultConfig, adjust, Validate, and pass it by value into the calculators;
// retuning weights means swapping in a new Config, never mutating a shared
// one.
type Config struct {
	FloodBaseline FloodBaselineWeights
	FloodEvent    FloodEventWeights
	HeatBaseline  HeatBaselineWeights
	HeatEvent     HeatEventWeights
	Fusion        FusionWeights
	Confidence    ConfidenceWeights
	Spillover     SpilloverConfig
	Bands         CategoryBands
	Delta         DeltaThresholds
	Elevation     ElevationScale
	Density       DensityScale
	Curves        Curves
}

// DefaultConfig returns the calibrated defaults.
func DefaultConfig() Config {
	return Config{
		FloodBaseline: FloodBaselineWeights{
			HistoricalFrequency:    0.50,
			ElevationVulnerability: 0.30,
			DrainageWeakness:       0.20,
		},
		FloodEvent: FloodEventWeights{
			RainfallIntensity:     0.60,
			CumulativeRain48h:     0.20,
			BaselineVulnerability: 0.20,
		},
		HeatBaseline: HeatBaselineWeights{
			HistoricalHeatwaves: 0.50,
			ElderlyRatio:        0.30,
			PopulationDensity:   0.20,
		},
		HeatEvent: HeatEventWeights{
			TemperatureAnomaly:    0.55,
			BaselineVulnerability: 0.20,
			UrbanHeatIsland:       0.25,
		},
		Fusion:     FusionWeights{Composite: 0.60, ML: 0.40},
		Confidence: ConfidenceWeights{DataCompleteness: 0.40, MLConfidence: 0.30, WeatherPresence: 0.30},
		Spillover:  SpilloverConfig{RiskThreshold: 80, BoostPct: 5},
		Bands:      CategoryBands{Moderate: 30, High: 60, Critical: 80},
		Delta:      DeltaThresholds{SurgePct: 20, CriticalPct: 40},
		Elevation:  ElevationScale{MaxM: 680, SpanM: 150},
		Density:    DensityScale{CapPerKM2: 35000},
		Curves: Curves{
			RainfallIntensity: Curve{
				{X: 2, Y: 0},
				{X: 20, Y: 0.30},
				{X: 50, Y: 0.60},
				{X: 100, Y: 0.80},
				{X: 200, Y: 1.00},
			},
			CumulativeRain: Curve{
				{X: 10, Y: 0},
				{X: 50, Y: 0.30},
				{X: 150, Y: 0.70},
				{X: 300, Y: 0.90},
				{X: 500, Y: 1.00},
			},
			TempAnomaly: Curve{
				{X: 0, Y: 0},
				{X: 3, Y: 0.10},
				{X: 5, Y: 0.35},
				{X: 8, Y: 0.70},
				{X: 12, Y: 1.00},
			},
		},
	}
}

// Validate fails fast on configurations that would silently corrupt scores.
// It is called at config-load time, before any zone is processed.
func (c Config) Validate() error {
	sums := []struct {
		name string
		got  float64
	}{
		{"flood baseline weights", c.FloodBaseline.HistoricalFrequency + c.FloodBaseline.ElevationVulnerability + c.FloodBaseline.DrainageWeakness},
		{"flood event weights", c.FloodEvent.RainfallIntensity + c.FloodEvent.CumulativeRain48h + c.FloodEvent.BaselineVulnerability},
		{"heat baseline weights", c.HeatBaseline.HistoricalHeatwaves + c.HeatBaseline.ElderlyRatio + c.HeatBaseline.PopulationDensity},
		{"heat event weights", c.HeatEvent.TemperatureAnomaly + c.HeatEvent.BaselineVulnerability + c.HeatEvent.UrbanHeatIsland},
		{"fusion weights", c.Fusion.Composite + c.Fusion.ML},
		{"confidence weights", c.Confidence.DataCompleteness + c.Confidence.MLConfidence + c.Confidence.WeatherPresence},
	}
	for _, s := range sums {
		if math.Abs(s.got-1) > weightTolerance {
			return fmt.Errorf("%s must sum to 1, got %g", s.name, s.got)
		}
	}

	if c.Spillover.RiskThreshold < 0 || c.Spillover.RiskThreshold > 100 {
		return fmt.Errorf("spillover risk threshold must be in [0,100], got %g", c.Spillover.RiskThreshold)
	}
	if c.Spillover.BoostPct < 0 {
		return fmt.Errorf("spillover boost pct must be >= 0, got %g", c.Spillover.BoostPct)
	}
	if !(c.Bands.Moderate < c.Bands.High && c.Bands.High < c.Bands.Critical) {
		return fmt.Errorf("category bands must be strictly increasing, got %g/%g/%g",
			c.Bands.Moderate, c.Bands.High, c.Bands.Critical)
	}
	if c.Delta.SurgePct <= 0 || c.Delta.CriticalPct <= c.Delta.SurgePct {
		return fmt.Errorf("delta thresholds must satisfy 0 < surge < critical, got %g/%g",
			c.Delta.SurgePct, c.Delta.CriticalPct)
	}
	if c.Elevation.SpanM <= 0 {
		return fmt.Errorf("elevation span must be > 0, got %g", c.Elevation.SpanM)
	}
	if c.Density.CapPerKM2 <= 0 {
		return fmt.Errorf("density cap must be > 0, got %g", c.Density.CapPerKM2)
	}

	for _, cv := range []struct {
		name  string
		curve Curve
	}{
		{"rainfall intensity curve", c.Curves.RainfallIntensity},
		{"cumulative rain curve", c.Curves.CumulativeRain},
		{"temp anomaly curve", c.Curves.TempAnomaly},
	} {
		if err := cv.curve.validate(); err != nil {
			return fmt.Errorf("%s: %w", cv.name, err)
		}
	}

	return nil
}
