package allocate

import (
	"fmt"
	"math"

	"github.com/zonewatch/riskcore/internal/domain"
)

// SurgeTier maps a minimum positive risk-delta percentage to a need
// multiplier. Tiers are matched most-severe first.
type SurgeTier struct {
	MinDeltaPct float64
	Multiplier  float64
}

// NeedConfig tunes the zone need score. Need is unit-less; only relative
// magnitude matters.
type NeedConfig struct {
	// RiskWeight and PopulationWeight blend the two drivers and must sum
	// to 1. The risk fraction is squared before weighting to widen the gap
	// between moderate and severe zones.
	RiskWeight       float64
	PopulationWeight float64
	// PopulationCap is the population at which the population factor
	// saturates.
	PopulationCap float64
	// SurgeGateRisk gates the surge boost: a rising delta only boosts need
	// when absolute combined risk has already cleared this level, so a zone
	// climbing from negligible to low is not rewarded.
	SurgeGateRisk float64
	// SurgeTiers grade the boost by delta magnitude, most severe first.
	SurgeTiers []SurgeTier
}

// DefaultNeedConfig returns the calibrated defaults: 70% risk / 30%
// population, population capped at one million, boost gated at risk 40.
func DefaultNeedConfig() NeedConfig {
	return NeedConfig{
		RiskWeight:       0.70,
		PopulationWeight: 0.30,
		PopulationCap:    1_000_000,
		SurgeGateRisk:    40,
		SurgeTiers: []SurgeTier{
			{MinDeltaPct: 40, Multiplier: 1.5},
			{MinDeltaPct: 20, Multiplier: 1.2},
			{MinDeltaPct: 10, Multiplier: 1.1},
		},
	}
}

// Validate fails fast on configurations that would skew scores silently.
func (c NeedConfig) Validate() error {
	if math.Abs(c.RiskWeight+c.PopulationWeight-1) > 1e-6 {
		return fmt.Errorf("need weights must sum to 1, got %g", c.RiskWeight+c.PopulationWeight)
	}
	if c.PopulationCap <= 0 {
		return fmt.Errorf("population cap must be > 0, got %g", c.PopulationCap)
	}
	if c.SurgeGateRisk < 0 || c.SurgeGateRisk > 100 {
		return fmt.Errorf("surge gate risk must be in [0,100], got %g", c.SurgeGateRisk)
	}
	prev := math.Inf(1)
	for i, t := range c.SurgeTiers {
		if t.MinDeltaPct <= 0 || t.Multiplier < 1 {
			return fmt.Errorf("surge tier %d: delta pct must be > 0 and multiplier >= 1", i)
		}
		if t.MinDeltaPct >= prev {
			return fmt.Errorf("surge tiers must be ordered most severe first")
		}
		prev = t.MinDeltaPct
	}
	return nil
}

// NeedScorer converts fused risk records into zone need scores.
type NeedScorer struct {
	cfg NeedConfig
}

// NewNeedScorer creates a scorer. The config must already be validated.
func NewNeedScorer(cfg NeedConfig) *NeedScorer {
	return &NeedScorer{cfg: cfg}
}

// Score computes a zone's need from its fused record and population. Risk is
// the primary driver: the combined-risk fraction is squared so a zone at 80
// pulls four times the risk weight of a zone at 40. A surge boost applies
// only when risk is rising (positive delta) and already above the gate.
func (s *NeedScorer) Score(rec domain.FusedRiskRecord, population int) float64 {
	riskFrac := clampUnit(rec.FinalCombinedRisk / 100)
	popFrac := clampUnit(float64(population) / s.cfg.PopulationCap)

	need := s.cfg.RiskWeight*riskFrac*riskFrac + s.cfg.PopulationWeight*popFrac

	maxDelta := math.Max(rec.FloodDeltaPct, rec.HeatDeltaPct)
	if maxDelta > 0 && rec.FinalCombinedRisk >= s.cfg.SurgeGateRisk {
		for _, tier := range s.cfg.SurgeTiers {
			if maxDelta >= tier.MinDeltaPct {
				need *= tier.Multiplier
				break
			}
		}
	}
	return need
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
