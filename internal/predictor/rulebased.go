// Package predictor provides the embedded rule-based Layer-2 predictor used
// when no remote inference service is configured. It mirrors the calibration
// model's feature set closely enough that the fusion layer cannot tell the
// difference, at lower confidence.
package predictor

import (
	"context"

	"github.com/zonewatch/riskcore/internal/domain"
)

// fallbackConfidence is the fixed confidence reported for rule-based
// predictions: deliberately middling so downstream uncertainty reflects that
// no trained model was consulted.
const fallbackConfidence = 0.5

// RuleBased implements domain.Predictor with hand-calibrated rules.
type RuleBased struct{}

// NewRuleBased creates the embedded fallback predictor.
func NewRuleBased() *RuleBased {
	return &RuleBased{}
}

// Predict produces flood and heat probabilities for one zone. It never fails
// and ignores ctx; the signature exists to satisfy the predictor contract.
func (p *RuleBased) Predict(_ context.Context, zone domain.Zone, obs *domain.HazardObservation) (domain.PredictionSet, error) {
	return domain.PredictionSet{
		Flood: p.floodPrediction(zone, obs),
		Heat:  p.heatPrediction(zone, obs),
	}, nil
}

func (p *RuleBased) floodPrediction(zone domain.Zone, obs *domain.HazardObservation) *domain.MLPrediction {
	var rainfall, cumulative float64
	if obs != nil {
		rainfall = obs.RainfallMM
		cumulative = obs.RainfallForecast48hMM
	}
	elevation := valueOr(zone.ElevationM, 560)
	drainage := valueOr(zone.DrainageIndex, 0.5)
	lowLying := valueOr(zone.LowLyingIndex, 0.5)

	prob := 0.0
	attr := map[string]float64{}

	// Rainfall dominates.
	switch {
	case rainfall > 50:
		prob += 0.40
		attr["rainfall_intensity"] = 0.40
	case rainfall > 20:
		prob += 0.20
		attr["rainfall_intensity"] = 0.20
	case rainfall > 5:
		prob += 0.05
		attr["rainfall_intensity"] = 0.05
	}

	switch {
	case cumulative > 150:
		prob += 0.25
		attr["cumulative_rainfall_48h"] = 0.25
	case cumulative > 75:
		prob += 0.12
		attr["cumulative_rainfall_48h"] = 0.12
	case cumulative > 25:
		prob += 0.05
		attr["cumulative_rainfall_48h"] = 0.05
	}

	if elev := (600 - elevation) / 100 * 0.10; elev > 0 {
		elev = min(elev, 0.10)
		prob += elev
		attr["elevation_m"] = elev
	}

	drainageTerm := (1 - drainage) * 0.10
	prob += drainageTerm
	attr["drainage_index"] = drainageTerm

	lowLyingTerm := lowLying * 0.10
	prob += lowLyingTerm
	attr["low_lying_index"] = lowLyingTerm

	return &domain.MLPrediction{
		Probability:  clampUnit(prob),
		Confidence:   fallbackConfidence,
		Attributions: attr,
	}
}

func (p *RuleBased) heatPrediction(zone domain.Zone, obs *domain.HazardObservation) *domain.MLPrediction {
	elderly := valueOr(zone.ElderlyRatio, 0.10)
	density := valueOr(zone.PopulationDensity, 10000)

	// Structural vulnerability only: demographics and density.
	prob := 0.15
	elderlyTerm := min(0.30, elderly/0.20*0.15)
	densityTerm := min(0.20, density/30000*0.10)
	prob += elderlyTerm + densityTerm

	// The structural probability says nothing about whether a heat event is
	// underway, so it is attenuated by the current temperature anomaly band.
	// These bands are calibrated separately from the composite layer's
	// anomaly curve.
	prob *= heatAttenuation(zone, obs)

	return &domain.MLPrediction{
		Probability: clampUnit(prob),
		Confidence:  fallbackConfidence,
		Attributions: map[string]float64{
			"elderly_ratio":      elderlyTerm,
			"population_density": densityTerm,
		},
	}
}

// heatAttenuation damps the structural heat probability when temperatures are
// unremarkable. No weather data assumes normal, non-extreme temperatures.
func heatAttenuation(zone domain.Zone, obs *domain.HazardObservation) float64 {
	const normalTemps = 0.25

	if obs == nil {
		return normalTemps
	}
	temp := obs.TemperatureC
	if temp == nil {
		temp = obs.AvgForecastTempC
	}
	if temp == nil {
		return normalTemps
	}

	anomaly := *temp - valueOr(zone.BaselineAvgTempC, 28.0)
	switch {
	case anomaly >= 8:
		return 1.00 // extreme heatwave
	case anomaly >= 6:
		return 0.75 // strong heat event
	case anomaly >= 4:
		return 0.45 // warm afternoon
	case anomaly >= 2:
		return 0.25 // mildly above average
	case anomaly >= 0:
		return 0.12 // near baseline
	default:
		return 0.05 // below baseline
	}
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
