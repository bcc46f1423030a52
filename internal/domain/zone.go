package domain

// Hazard identifies a hazard type the core scores.
type Hazard string

const (
	HazardFlood Hazard = "flood"
	HazardHeat  Hazard = "heat"
	// HazardNone is used for a zone's top hazard when no final risk clears
	// the reporting floor.
	HazardNone Hazard = "none"
)

// Zone is a geographic unit (e.g. a municipal ward) with static or
// slowly-changing attributes. Zones are owned by the ingestion subsystem and
// read-only here. Optional attributes are pointers; nil means the value was
// never surveyed and a documented default applies (see package doc).
type Zone struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	Population int    `json:"population"`

	// Terrain.
	ElevationM    *float64 `json:"elevation_m,omitempty"`
	MeanSlope     *float64 `json:"mean_slope,omitempty"`
	DrainageIndex *float64 `json:"drainage_index,omitempty"` // 0 (none) .. 1 (excellent)
	ImperviousPct *float64 `json:"impervious_surface_pct,omitempty"`
	LowLyingIndex *float64 `json:"low_lying_index,omitempty"`

	// Demographics and infrastructure.
	PopulationDensity     *float64 `json:"population_density,omitempty"` // persons per km²
	ElderlyRatio          *float64 `json:"elderly_ratio,omitempty"`
	InfrastructureDensity *float64 `json:"infrastructure_density,omitempty"`

	// Historical hazard climate.
	HistoricalFloodFrequency *float64 `json:"historical_flood_frequency,omitempty"` // events per decade
	HistoricalHeatwaveDays   *float64 `json:"historical_heatwave_days,omitempty"`   // days per year
	BaselineAvgTempC         *float64 `json:"baseline_avg_temp_c,omitempty"`

	// Adjacent holds the IDs of zones sharing a boundary or within the
	// proximity radius. Supplied precomputed by the adjacency provider.
	Adjacent []string `json:"adjacent,omitempty"`
}

// DataCompleteness returns the fraction of optional attributes that were
// actually surveyed, in [0,1]. It feeds the confidence score so consumers can
// tell "low risk" apart from "unknown risk".
func (z Zone) DataCompleteness() float64 {
	attrs := []*float64{
		z.ElevationM,
		z.MeanSlope,
		z.DrainageIndex,
		z.ImperviousPct,
		z.LowLyingIndex,
		z.PopulationDensity,
		z.ElderlyRatio,
		z.InfrastructureDensity,
		z.HistoricalFloodFrequency,
		z.HistoricalHeatwaveDays,
		z.BaselineAvgTempC,
	}
	present := 0
	for _, a := range attrs {
		if a != nil {
			present++
		}
	}
	return float64(present) / float64(len(attrs))
}

// HazardObservation is a per-zone weather snapshot supplied fresh each
// computation cycle. Absence (no observation for a zone) is a valid state and
// triggers the documented fallback paths, not an error.
type HazardObservation struct {
	RainfallMM            float64  `json:"rainfall_mm"`              // current hour
	MaxRainIntensityMMH   float64  `json:"max_rain_intensity_mm_h"`  // forecast peak
	RainfallForecast48hMM float64  `json:"rainfall_forecast_48h_mm"` // cumulative
	RainfallForecast7dMM  float64  `json:"rainfall_forecast_7d_mm"`
	TemperatureC          *float64 `json:"temperature_c,omitempty"`
	AvgForecastTempC      *float64 `json:"avg_forecast_temp_c,omitempty"`
	HumidityPct           float64  `json:"humidity_pct,omitempty"`
	WindSpeedKMH          float64  `json:"wind_speed_kmh,omitempty"`
	Condition             string   `json:"condition,omitempty"`
}

// Float returns a pointer to v, for building zone fixtures in tests.
func Float(v float64) *float64 { return &v }
