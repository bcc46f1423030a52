package domain

import (
	"context"
	"time"
)

// RiskCategory is the four-band classification of a 0-100 risk score.
type RiskCategory string

const (
	RiskLow      RiskCategory = "low"
	RiskModerate RiskCategory = "moderate"
	RiskHigh     RiskCategory = "high"
	RiskCritical RiskCategory = "critical"
)

// SurgeLevel describes how a hazard's event risk is moving relative to its
// structural baseline.
type SurgeLevel string

const (
	SurgeStable     SurgeLevel = "stable"
	SurgeElevated   SurgeLevel = "elevated"
	SurgeSurge      SurgeLevel = "surge"
	SurgeCritical   SurgeLevel = "critical"
	SurgeDecreasing SurgeLevel = "decreasing"
)

// CompositeRiskResult is the Layer-1 explainable risk estimate for one zone
// and one hazard. Factor values are the named normalized contributions in
// [0,1] before weighting. Immutable once produced.
type CompositeRiskResult struct {
	Hazard       Hazard             `json:"hazard"`
	BaselineRisk float64            `json:"baseline_risk"` // 0-100
	EventRisk    float64            `json:"event_risk"`    // 0-100
	Factors      map[string]float64 `json:"factors"`
}

// MLPrediction is the Layer-2 calibration output for one zone and one hazard.
// It is an external contract: the core consumes it but never computes it.
// Attribution values sum (in absolute value) to the explained deviation.
type MLPrediction struct {
	Probability  float64            `json:"probability"` // 0-1
	Confidence   float64            `json:"confidence"`  // 0-1
	Attributions map[string]float64 `json:"attributions,omitempty"`
}

// PredictionSet bundles the per-hazard predictions for a single zone. A nil
// hazard entry means the predictor produced nothing for that hazard and the
// fusion step degrades to composite-only risk.
type PredictionSet struct {
	Flood *MLPrediction `json:"flood,omitempty"`
	Heat  *MLPrediction `json:"heat,omitempty"`
}

// Predictor is the pluggable Layer-2 capability. Implementations may be a
// remote inference service, an embedded model, or a rule-based stub.
type Predictor interface {
	Predict(ctx context.Context, zone Zone, obs *HazardObservation) (PredictionSet, error)
}

// Driver is one entry of a record's ranked explainability list.
type Driver struct {
	Factor string  `json:"factor"`
	Name   string  `json:"name"`
	Impact float64 `json:"impact"`
}

// FusedRiskRecord is the final per-zone risk assessment for one computation
// cycle. Records are append-only: a new cycle produces a new record and
// nothing mutates one after creation.
type FusedRiskRecord struct {
	ZoneID  string `json:"zone_id"`
	CycleID string `json:"cycle_id"`

	// Layer 1.
	FloodBaselineRisk float64 `json:"flood_baseline_risk"`
	HeatBaselineRisk  float64 `json:"heat_baseline_risk"`
	FloodEventRisk    float64 `json:"flood_event_risk"`
	HeatEventRisk     float64 `json:"heat_event_risk"`

	// Layer 2.
	MLFloodProbability float64 `json:"ml_flood_probability"`
	MLHeatProbability  float64 `json:"ml_heat_probability"`
	MLConfidence       float64 `json:"ml_confidence"`
	MLUsed             bool    `json:"ml_used"`

	// Fused, spillover-adjusted finals, all 0-100.
	FinalFloodRisk    float64 `json:"final_flood_risk"`
	FinalHeatRisk     float64 `json:"final_heat_risk"`
	FinalCombinedRisk float64 `json:"final_combined_risk"`

	// Deltas between event and baseline risk, per hazard.
	FloodDelta    float64 `json:"flood_delta"`
	FloodDeltaPct float64 `json:"flood_delta_pct"`
	HeatDelta     float64 `json:"heat_delta"`
	HeatDeltaPct  float64 `json:"heat_delta_pct"`

	ConfidenceScore  float64 `json:"confidence_score"`  // 0-1
	UncertaintyScore float64 `json:"uncertainty_score"` // 1 - confidence

	SpilloverApplied bool     `json:"spillover_applied"`
	SpilloverSources []string `json:"spillover_sources,omitempty"`

	RiskCategory  RiskCategory `json:"risk_category"`
	SurgeLevel    SurgeLevel   `json:"surge_level"`
	SurgeAlert    bool         `json:"surge_alert"`
	CriticalAlert bool         `json:"critical_alert"`
	TopHazard     Hazard       `json:"top_hazard"`

	// Explainability.
	Factors    map[Hazard]map[string]float64 `json:"factors,omitempty"`
	TopDrivers []Driver                      `json:"top_drivers,omitempty"`

	ComputedAt time.Time `json:"computed_at"`
}
