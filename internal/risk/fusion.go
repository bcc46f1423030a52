package risk

import (
	"math"
	"sort"
	"strings"

	"github.com/zonewatch/riskcore/internal/domain"
)

// topHazardFloor is the combined risk below which a zone reports no top
// hazard.
const topHazardFloor = 30

// maxTopDrivers caps the explainability driver list.
const maxTopDrivers = 5

// PriorCycle exposes the previous cycle's committed records for spillover.
// Implementations must present one consistent snapshot: every zone in a cycle
// sees the same prior-cycle view, never another zone's in-flight result.
type PriorCycle interface {
	PreviousRecord(zoneID string) (domain.FusedRiskRecord, bool)
}

// DeltaResult captures how event risk moved against baseline for one hazard.
type DeltaResult struct {
	Delta         float64
	DeltaPct      float64
	SurgeLevel    domain.SurgeLevel
	SurgeAlert    bool
	CriticalAlert bool
}

// Engine fuses Layer-1 composite results with Layer-2 ML predictions and
// derives the final per-zone record: spillover, confidence, category, and
// alert flags. Stateless beyond its immutable Config; safe for concurrent
// per-zone use.
type Engine struct {
	cfg  Config
	calc *Calculator
}

// NewEngine creates a fusion engine. The config must already be validated.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg, calc: NewCalculator(cfg)}
}

// Calculator returns the underlying Layer-1 calculator.
func (e *Engine) Calculator() *Calculator { return e.calc }

// Fuse combines a composite event risk with an ML probability into a raw
// final risk in [0,100]. A nil prediction degrades to composite-only risk for
// the cycle: the event risk passes through unscaled rather than being damped
// by a zero ML term.
func (e *Engine) Fuse(eventRisk float64, ml *domain.MLPrediction) float64 {
	if ml == nil {
		return clamp100(eventRisk)
	}
	return clamp100(e.cfg.Fusion.Composite*eventRisk + e.cfg.Fusion.ML*ml.Probability*100)
}

// ApplySpillover amplifies both hazard finals once if any neighbor's
// previous-cycle combined risk met the threshold. It reads only committed
// prior-cycle state, so results are order-independent within a cycle. The
// returned sources list the triggering neighbors in zone-ID order; a zone
// whose neighbors have no history is returned unchanged.
func (e *Engine) ApplySpillover(finalFlood, finalHeat float64, neighbors []string, prior PriorCycle) (flood, heat float64, sources []string) {
	if prior != nil {
		for _, id := range neighbors {
			rec, ok := prior.PreviousRecord(id)
			if ok && rec.FinalCombinedRisk >= e.cfg.Spillover.RiskThreshold {
				sources = append(sources, id)
			}
		}
	}
	if len(sources) == 0 {
		return finalFlood, finalHeat, nil
	}
	sort.Strings(sources)
	boost := 1 + e.cfg.Spillover.BoostPct/100
	return clamp100(finalFlood * boost), clamp100(finalHeat * boost), sources
}

// Confidence computes the record's confidence score as a fixed convex
// combination of data completeness, ML confidence, and weather presence.
func (e *Engine) Confidence(dataCompleteness, mlConfidence, weatherPresence float64) float64 {
	w := e.cfg.Confidence
	return clamp01(w.DataCompleteness*dataCompleteness + w.MLConfidence*mlConfidence + w.WeatherPresence*weatherPresence)
}

// Classify maps a combined risk score onto its category band.
func (e *Engine) Classify(score float64) domain.RiskCategory {
	switch {
	case score >= e.cfg.Bands.Critical:
		return domain.RiskCritical
	case score >= e.cfg.Bands.High:
		return domain.RiskHigh
	case score >= e.cfg.Bands.Moderate:
		return domain.RiskModerate
	default:
		return domain.RiskLow
	}
}

// Deltas compares event risk against baseline for one hazard. A zero baseline
// yields a zero percentage delta rather than an error; alerts fire only on
// increases.
func (e *Engine) Deltas(eventRisk, baselineRisk float64) DeltaResult {
	delta := eventRisk - baselineRisk
	var deltaPct float64
	if baselineRisk > 0 {
		deltaPct = delta / baselineRisk * 100
	}

	r := DeltaResult{
		Delta:         delta,
		DeltaPct:      deltaPct,
		SurgeAlert:    deltaPct >= e.cfg.Delta.SurgePct,
		CriticalAlert: deltaPct >= e.cfg.Delta.CriticalPct,
	}
	switch {
	case deltaPct >= e.cfg.Delta.CriticalPct:
		r.SurgeLevel = domain.SurgeCritical
	case deltaPct >= e.cfg.Delta.SurgePct:
		r.SurgeLevel = domain.SurgeSurge
	case deltaPct >= 10:
		r.SurgeLevel = domain.SurgeElevated
	case deltaPct <= -10:
		r.SurgeLevel = domain.SurgeDecreasing
	default:
		r.SurgeLevel = domain.SurgeStable
	}
	return r
}

// Assess runs the full per-zone transformation for one cycle: composite
// baselines and event risks, fusion with the ML predictions, spillover from
// the prior-cycle snapshot, confidence, classification, and alerts. It
// depends only on the zone's own current data plus committed prior-cycle
// neighbor records, so zones may be assessed concurrently.
func (e *Engine) Assess(zone domain.Zone, stats PopulationStats, obs *domain.HazardObservation, preds domain.PredictionSet, prior PriorCycle) domain.FusedRiskRecord {
	floodBase := e.calc.FloodBaseline(zone, stats)
	heatBase := e.calc.HeatBaseline(zone, stats)
	floodEvent := e.calc.FloodEvent(obs, floodBase.BaselineRisk/100)
	heatEvent := e.calc.HeatEvent(zone, obs, heatBase.BaselineRisk/100)

	finalFlood := e.Fuse(floodEvent.EventRisk, preds.Flood)
	finalHeat := e.Fuse(heatEvent.EventRisk, preds.Heat)
	finalFlood, finalHeat, sources := e.ApplySpillover(finalFlood, finalHeat, zone.Adjacent, prior)
	finalCombined := math.Max(finalFlood, finalHeat)

	floodDelta := e.Deltas(floodEvent.EventRisk, floodBase.BaselineRisk)
	heatDelta := e.Deltas(heatEvent.EventRisk, heatBase.BaselineRisk)

	mlConfidence, mlUsed := predictionConfidence(preds)
	weatherPresence := 0.0
	if obs != nil {
		weatherPresence = 1.0
	}
	confidence := e.Confidence(zone.DataCompleteness(), mlConfidence, weatherPresence)

	rec := domain.FusedRiskRecord{
		ZoneID: zone.ID,

		FloodBaselineRisk: floodBase.BaselineRisk,
		HeatBaselineRisk:  heatBase.BaselineRisk,
		FloodEventRisk:    floodEvent.EventRisk,
		HeatEventRisk:     heatEvent.EventRisk,

		MLConfidence: mlConfidence,
		MLUsed:       mlUsed,

		FinalFloodRisk:    finalFlood,
		FinalHeatRisk:     finalHeat,
		FinalCombinedRisk: finalCombined,

		FloodDelta:    floodDelta.Delta,
		FloodDeltaPct: floodDelta.DeltaPct,
		HeatDelta:     heatDelta.Delta,
		HeatDeltaPct:  heatDelta.DeltaPct,

		ConfidenceScore:  confidence,
		UncertaintyScore: 1 - confidence,

		SpilloverApplied: len(sources) > 0,
		SpilloverSources: sources,

		RiskCategory:  e.Classify(finalCombined),
		SurgeAlert:    floodDelta.SurgeAlert || heatDelta.SurgeAlert,
		CriticalAlert: floodDelta.CriticalAlert || heatDelta.CriticalAlert,
		TopHazard:     topHazard(finalFlood, finalHeat),

		Factors: map[domain.Hazard]map[string]float64{
			domain.HazardFlood: floodEvent.Factors,
			domain.HazardHeat:  heatEvent.Factors,
		},

		ComputedAt: domain.Now(),
	}
	if preds.Flood != nil {
		rec.MLFloodProbability = preds.Flood.Probability
	}
	if preds.Heat != nil {
		rec.MLHeatProbability = preds.Heat.Probability
	}
	rec.SurgeLevel = dominantSurgeLevel(floodDelta, heatDelta)
	rec.TopDrivers = topDrivers(floodEvent, heatEvent, preds)
	return rec
}

// predictionConfidence averages the confidences of whichever hazard
// predictions are present. Zero with no predictions at all.
func predictionConfidence(preds domain.PredictionSet) (float64, bool) {
	var sum float64
	var n int
	if preds.Flood != nil {
		sum += preds.Flood.Confidence
		n++
	}
	if preds.Heat != nil {
		sum += preds.Heat.Confidence
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// dominantSurgeLevel picks the more severe of the two per-hazard levels.
func dominantSurgeLevel(flood, heat DeltaResult) domain.SurgeLevel {
	rank := map[domain.SurgeLevel]int{
		domain.SurgeDecreasing: 0,
		domain.SurgeStable:     1,
		domain.SurgeElevated:   2,
		domain.SurgeSurge:      3,
		domain.SurgeCritical:   4,
	}
	if rank[heat.SurgeLevel] > rank[flood.SurgeLevel] {
		return heat.SurgeLevel
	}
	return flood.SurgeLevel
}

func topHazard(finalFlood, finalHeat float64) domain.Hazard {
	switch {
	case finalFlood > finalHeat && finalFlood > topHazardFloor:
		return domain.HazardFlood
	case finalHeat > finalFlood && finalHeat > topHazardFloor:
		return domain.HazardHeat
	default:
		return domain.HazardNone
	}
}

// topDrivers merges the composite factor contributions with any ML feature
// attributions and returns the strongest five, largest impact first. Ties
// break on factor name so the list is reproducible.
func topDrivers(floodEvent, heatEvent domain.CompositeRiskResult, preds domain.PredictionSet) []domain.Driver {
	impacts := map[string]float64{}
	for name, v := range floodEvent.Factors {
		if v > impacts[name] {
			impacts[name] = v
		}
	}
	for name, v := range heatEvent.Factors {
		if v > impacts[name] {
			impacts[name] = v
		}
	}
	for _, ml := range []*domain.MLPrediction{preds.Flood, preds.Heat} {
		if ml == nil {
			continue
		}
		for name, v := range ml.Attributions {
			if av := math.Abs(v); av > 0.01 && av > impacts[name] {
				impacts[name] = av
			}
		}
	}

	drivers := make([]domain.Driver, 0, len(impacts))
	for name, impact := range impacts {
		drivers = append(drivers, domain.Driver{
			Factor: name,
			Name:   humanizeFactor(name),
			Impact: impact,
		})
	}
	sort.Slice(drivers, func(i, j int) bool {
		if drivers[i].Impact != drivers[j].Impact {
			return drivers[i].Impact > drivers[j].Impact
		}
		return drivers[i].Factor < drivers[j].Factor
	})
	if len(drivers) > maxTopDrivers {
		drivers = drivers[:maxTopDrivers]
	}
	return drivers
}

func humanizeFactor(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
