package risk

import (
	"github.com/zonewatch/riskcore/internal/domain"
)

// Documented defaults for unsurveyed zone attributes. See the domain package
// doc for the full table.
const (
	defaultDrainageIndex = 0.5
	defaultImperviousPct = 50.0
	defaultDensityPerKM2 = 10000.0
	defaultElderlyRatio  = 0.10
	defaultBaselineTempC = 28.0

	// elderlyRatioCap is the ratio at which elderly vulnerability saturates.
	elderlyRatioCap = 0.25
	// uhiElderlyCap saturates earlier inside the urban-heat-island composite.
	uhiElderlyCap = 0.20
)

// Factor names as they appear in CompositeRiskResult.Factors and downstream
// explainability output.
const (
	FactorHistoricalFrequency    = "historical_frequency"
	FactorElevationVulnerability = "elevation_vulnerability"
	FactorDrainageWeakness       = "drainage_weakness"
	FactorRainfallIntensity      = "rainfall_intensity"
	FactorCumulativeRain48h      = "cumulative_48h"
	FactorBaselineVulnerability  = "baseline_vulnerability"
	FactorHistoricalHeatwaves    = "historical_heatwaves"
	FactorElderlyRatio           = "elderly_ratio"
	FactorPopulationDensity      = "population_density"
	FactorTemperatureAnomaly     = "temperature_anomaly"
	FactorUrbanHeatIsland        = "urban_heat_island"
)

// PopulationStats holds the cross-zone ranges needed to normalize historical
// hazard frequencies. Compute it once per cycle from the full zone set and
// share it across the per-zone calculations.
type PopulationStats struct {
	MinFloodFrequency float64
	MaxFloodFrequency float64
	MinHeatwaveDays   float64
	MaxHeatwaveDays   float64
}

// NewPopulationStats scans the full zone set for the historical ranges.
func NewPopulationStats(zones []domain.Zone) PopulationStats {
	var s PopulationStats
	for i, z := range zones {
		ff := floatOr(z.HistoricalFloodFrequency, 0)
		hd := floatOr(z.HistoricalHeatwaveDays, 0)
		if i == 0 {
			s.MinFloodFrequency, s.MaxFloodFrequency = ff, ff
			s.MinHeatwaveDays, s.MaxHeatwaveDays = hd, hd
			continue
		}
		if ff < s.MinFloodFrequency {
			s.MinFloodFrequency = ff
		}
		if ff > s.MaxFloodFrequency {
			s.MaxFloodFrequency = ff
		}
		if hd < s.MinHeatwaveDays {
			s.MinHeatwaveDays = hd
		}
		if hd > s.MaxHeatwaveDays {
			s.MaxHeatwaveDays = hd
		}
	}
	return s
}

// Calculator produces the Layer-1 explainable, ML-independent risk estimates.
// It is stateless beyond its immutable Config and safe for concurrent use.
type Calculator struct {
	cfg Config
}

// NewCalculator creates a Calculator. The config must already be validated.
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// FloodBaseline scores a zone's structural flood vulnerability from
// historical frequency, elevation, and drainage. Returns baseline risk in
// [0,100] with the named factor contributions.
func (c *Calculator) FloodBaseline(zone domain.Zone, stats PopulationStats) domain.CompositeRiskResult {
	historical := Normalize(floatOr(zone.HistoricalFloodFrequency, 0), stats.MinFloodFrequency, stats.MaxFloodFrequency)
	elevation := c.elevationVulnerability(zone)
	drainage := drainageWeakness(zone)

	w := c.cfg.FloodBaseline
	raw := w.HistoricalFrequency*historical + w.ElevationVulnerability*elevation + w.DrainageWeakness*drainage

	return domain.CompositeRiskResult{
		Hazard:       domain.HazardFlood,
		BaselineRisk: clamp100(raw * 100),
		Factors: map[string]float64{
			FactorHistoricalFrequency:    historical,
			FactorElevationVulnerability: elevation,
			FactorDrainageWeakness:       drainage,
		},
	}
}

// HeatBaseline scores structural heat vulnerability from the historical
// heatwave climate and demographics.
func (c *Calculator) HeatBaseline(zone domain.Zone, stats PopulationStats) domain.CompositeRiskResult {
	historical := Normalize(floatOr(zone.HistoricalHeatwaveDays, 0), stats.MinHeatwaveDays, stats.MaxHeatwaveDays)
	elderly := clamp01(floatOr(zone.ElderlyRatio, defaultElderlyRatio) / elderlyRatioCap)
	density := clamp01(floatOr(zone.PopulationDensity, defaultDensityPerKM2) / c.cfg.Density.CapPerKM2)

	w := c.cfg.HeatBaseline
	raw := w.HistoricalHeatwaves*historical + w.ElderlyRatio*elderly + w.PopulationDensity*density

	return domain.CompositeRiskResult{
		Hazard:       domain.HazardHeat,
		BaselineRisk: clamp100(raw * 100),
		Factors: map[string]float64{
			FactorHistoricalHeatwaves: historical,
			FactorElderlyRatio:        elderly,
			FactorPopulationDensity:   density,
		},
	}
}

// FloodEvent scores the live flood risk given the current observation.
// baselineVuln is the zone's flood baseline as a [0,1] fraction; it feeds
// forward so structurally weak zones start higher under identical rain. A nil
// observation zeroes every weather-derived factor and only the baseline term
// contributes.
func (c *Calculator) FloodEvent(obs *domain.HazardObservation, baselineVuln float64) domain.CompositeRiskResult {
	var rainfallScore, cumulativeScore float64
	if obs != nil {
		effective := obs.RainfallMM
		if obs.MaxRainIntensityMMH > effective {
			effective = obs.MaxRainIntensityMMH
		}
		rainfallScore = c.cfg.Curves.RainfallIntensity.Eval(effective)
		cumulativeScore = c.cfg.Curves.CumulativeRain.Eval(obs.RainfallForecast48hMM)
	}

	w := c.cfg.FloodEvent
	raw := w.RainfallIntensity*rainfallScore + w.CumulativeRain48h*cumulativeScore + w.BaselineVulnerability*baselineVuln

	return domain.CompositeRiskResult{
		Hazard:    domain.HazardFlood,
		EventRisk: clamp100(raw * 100),
		Factors: map[string]float64{
			FactorRainfallIntensity:     rainfallScore,
			FactorCumulativeRain48h:     cumulativeScore,
			FactorBaselineVulnerability: baselineVuln,
		},
	}
}

// HeatEvent scores the live heat risk. The urban-heat-island composite keeps
// two zones with identical temperature anomaly apart when their built
// environment and demographics differ.
func (c *Calculator) HeatEvent(zone domain.Zone, obs *domain.HazardObservation, baselineVuln float64) domain.CompositeRiskResult {
	baselineTemp := floatOr(zone.BaselineAvgTempC, defaultBaselineTempC)

	var anomalyScore float64
	if obs != nil {
		if t := effectiveTemp(obs); t != nil {
			anomalyScore = c.cfg.Curves.TempAnomaly.Eval(*t - baselineTemp)
		}
	}

	uhi := c.urbanHeatIsland(zone)

	w := c.cfg.HeatEvent
	raw := w.TemperatureAnomaly*anomalyScore + w.BaselineVulnerability*baselineVuln + w.UrbanHeatIsland*uhi

	return domain.CompositeRiskResult{
		Hazard:    domain.HazardHeat,
		EventRisk: clamp100(raw * 100),
		Factors: map[string]float64{
			FactorTemperatureAnomaly:    anomalyScore,
			FactorBaselineVulnerability: baselineVuln,
			FactorUrbanHeatIsland:       uhi,
		},
	}
}

// elevationVulnerability inverts elevation: lower ground scores higher.
// Unknown or non-positive elevation defaults to moderate.
func (c *Calculator) elevationVulnerability(zone domain.Zone) float64 {
	if zone.ElevationM == nil || *zone.ElevationM <= 0 {
		return 0.5
	}
	return Normalize(c.cfg.Elevation.MaxM-*zone.ElevationM, 0, c.cfg.Elevation.SpanM)
}

// drainageWeakness is 1 - drainage_index; with no drainage survey it is
// estimated from impervious surface coverage.
func drainageWeakness(zone domain.Zone) float64 {
	if zone.DrainageIndex != nil {
		return clamp01(1 - *zone.DrainageIndex)
	}
	if zone.ImperviousPct != nil {
		return clamp01(*zone.ImperviousPct / 100)
	}
	return defaultDrainageIndex
}

// urbanHeatIsland composes impervious surface, density, elderly ratio, and
// inverse drainage into a single [0,1] heat-absorption/vulnerability factor.
func (c *Calculator) urbanHeatIsland(zone domain.Zone) float64 {
	impervious := floatOr(zone.ImperviousPct, defaultImperviousPct) / 100
	density := clamp01(floatOr(zone.PopulationDensity, defaultDensityPerKM2) / c.cfg.Density.CapPerKM2)
	elderly := clamp01(floatOr(zone.ElderlyRatio, defaultElderlyRatio) / uhiElderlyCap)
	drainage := floatOr(zone.DrainageIndex, defaultDrainageIndex)

	return clamp01(0.35*impervious + 0.25*density + 0.20*elderly + 0.20*(1-drainage))
}

// effectiveTemp picks the best available temperature reading: current, then
// forecast average. Nil when the observation carries neither.
func effectiveTemp(obs *domain.HazardObservation) *float64 {
	if obs.TemperatureC != nil {
		return obs.TemperatureC
	}
	return obs.AvgForecastTempC
}

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
