// Command validate performs end-to-end integrity checks over a zone fixture
// set: it loads zones, resources, and observations, runs two full assessment
// cycles in memory, and verifies risk bounds, fusion consistency, spillover
// behavior, and allocation conservation.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -zones data/zones.json \
//	  -resources data/resources.json \
//	  -observations data/observations.json
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/zonewatch/riskcore/internal/allocate"
	"github.com/zonewatch/riskcore/internal/domain"
	"github.com/zonewatch/riskcore/internal/engine"
	"github.com/zonewatch/riskcore/internal/provider"
	"github.com/zonewatch/riskcore/internal/risk"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	zonesPath := flag.String("zones", "", "path to zones JSON fixture")
	resourcesPath := flag.String("resources", "", "path to resources JSON fixture")
	obsPath := flag.String("observations", "", "path to observations JSON fixture (optional)")
	flag.Parse()

	if *zonesPath == "" || *resourcesPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*zonesPath, *resourcesPath, *obsPath); code != 0 {
		os.Exit(code)
	}
}

func run(zonesPath, resourcesPath, obsPath string) int {
	// Fix the clock so repeated runs produce identical timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2026, time.June, 1, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	fmt.Println("=== Zone Risk Integrity Validation ===")
	fmt.Println()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	in, err := provider.NewFile(zonesPath, resourcesPath, obsPath, logger).Inputs(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load inputs: %v\n", err)
		return 1
	}

	cfg := risk.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: risk config: %v\n", err)
		return 1
	}
	needCfg := allocate.DefaultNeedConfig()
	if err := needCfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: need config: %v\n", err)
		return 1
	}

	first := runCycle(cfg, in, nil)
	second := runCycle(cfg, in, first)
	plans := runAllocation(cfg, needCfg, second, in)
	plansAgain := runAllocation(cfg, needCfg, second, in)

	phases := []*phase{
		validateInputs(in),
		validateRiskBounds(cfg, second),
		validateFusionConsistency(first, second),
		validateAllocation(plans, plansAgain, second, in.Resources),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-46s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Assessed: %d zones, %d observations, %d resource pools\n",
		len(in.Zones), len(in.Observations), len(in.Resources))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// runCycle assesses every zone against an optional prior-cycle snapshot.
func runCycle(cfg risk.Config, in engine.Inputs, prior map[string]domain.FusedRiskRecord) map[string]domain.FusedRiskRecord {
	eng := risk.NewEngine(cfg)
	stats := risk.NewPopulationStats(in.Zones)
	snap := engine.NewSnapshot(prior)

	out := make(map[string]domain.FusedRiskRecord, len(in.Zones))
	for _, zone := range in.Zones {
		rec := eng.Assess(zone, stats, in.Observations[zone.ID], domain.PredictionSet{}, snap)
		out[zone.ID] = rec
	}
	return out
}

func runAllocation(cfg risk.Config, needCfg allocate.NeedConfig, records map[string]domain.FusedRiskRecord, in engine.Inputs) []domain.AllocationPlan {
	scorer := allocate.NewNeedScorer(needCfg)
	population := make(map[string]int, len(in.Zones))
	for _, z := range in.Zones {
		population[z.ID] = z.Population
	}

	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	needs := make([]allocate.ZoneNeed, 0, len(ids))
	for _, id := range ids {
		rec := records[id]
		needs = append(needs, allocate.ZoneNeed{
			ZoneID:    id,
			Need:      scorer.Score(rec, population[id]),
			Category:  rec.RiskCategory,
			TopHazard: rec.TopHazard,
		})
	}
	return allocate.NewAllocator().AllocateAll(needs, in.Resources)
}

// ── Phase 1: Input Integrity ──

func validateInputs(in engine.Inputs) *phase {
	p := &phase{name: "Phase 1: Input Integrity"}

	byID := make(map[string]domain.Zone, len(in.Zones))
	for _, z := range in.Zones {
		byID[z.ID] = z
	}

	for _, z := range in.Zones {
		for _, adj := range z.Adjacent {
			if adj == z.ID {
				p.errorf("zone %s lists itself as adjacent", z.ID)
			}
		}
		if z.DrainageIndex != nil && (*z.DrainageIndex < 0 || *z.DrainageIndex > 1) {
			p.errorf("zone %s: drainage index %.2f out of [0,1]", z.ID, *z.DrainageIndex)
		}
		if z.ElderlyRatio != nil && (*z.ElderlyRatio < 0 || *z.ElderlyRatio > 1) {
			p.errorf("zone %s: elderly ratio %.2f out of [0,1]", z.ID, *z.ElderlyRatio)
		}
	}

	for id := range in.Observations {
		if _, ok := byID[id]; !ok {
			p.errorf("observation for unknown zone %q", id)
		}
	}
	return p
}

// ── Phase 2: Risk Bounds ──

func validateRiskBounds(cfg risk.Config, records map[string]domain.FusedRiskRecord) *phase {
	p := &phase{name: "Phase 2: Risk Bounds and Classification"}

	for id, rec := range records {
		checkRange := func(name string, v float64) {
			if v < 0 || v > 100 {
				p.errorf("zone %s: %s %.2f out of [0,100]", id, name, v)
			}
		}
		checkRange("flood baseline", rec.FloodBaselineRisk)
		checkRange("heat baseline", rec.HeatBaselineRisk)
		checkRange("flood event", rec.FloodEventRisk)
		checkRange("heat event", rec.HeatEventRisk)
		checkRange("final flood", rec.FinalFloodRisk)
		checkRange("final heat", rec.FinalHeatRisk)
		checkRange("final combined", rec.FinalCombinedRisk)

		if rec.ConfidenceScore < 0 || rec.ConfidenceScore > 1 {
			p.errorf("zone %s: confidence %.3f out of [0,1]", id, rec.ConfidenceScore)
		}
		if math.Abs(rec.ConfidenceScore+rec.UncertaintyScore-1) > 1e-9 {
			p.errorf("zone %s: confidence %.3f + uncertainty %.3f != 1", id, rec.ConfidenceScore, rec.UncertaintyScore)
		}

		want := classify(cfg, rec.FinalCombinedRisk)
		if rec.RiskCategory != want {
			p.errorf("zone %s: category %s but score %.2f implies %s", id, rec.RiskCategory, rec.FinalCombinedRisk, want)
		}
		if math.Abs(rec.FinalCombinedRisk-math.Max(rec.FinalFloodRisk, rec.FinalHeatRisk)) > 1e-9 {
			p.errorf("zone %s: combined %.2f != max(flood %.2f, heat %.2f)", id, rec.FinalCombinedRisk, rec.FinalFloodRisk, rec.FinalHeatRisk)
		}
		if len(rec.TopDrivers) > 5 {
			p.errorf("zone %s: %d top drivers (max 5)", id, len(rec.TopDrivers))
		}
	}
	return p
}

func classify(cfg risk.Config, score float64) domain.RiskCategory {
	switch {
	case score >= cfg.Bands.Critical:
		return domain.RiskCritical
	case score >= cfg.Bands.High:
		return domain.RiskHigh
	case score >= cfg.Bands.Moderate:
		return domain.RiskModerate
	default:
		return domain.RiskLow
	}
}

// ── Phase 3: Fusion Consistency ──
// First cycle has no history: nothing may spill over. Second cycle may, but
// only from zones whose first-cycle combined risk cleared the threshold.

func validateFusionConsistency(first, second map[string]domain.FusedRiskRecord) *phase {
	p := &phase{name: "Phase 3: Fusion and Spillover Consistency"}

	for id, rec := range first {
		if rec.SpilloverApplied {
			p.errorf("zone %s: spillover applied in first cycle (no history)", id)
		}
		if rec.MLUsed {
			p.errorf("zone %s: ML marked used but no predictor ran", id)
		}
	}

	for id, rec := range second {
		for _, src := range rec.SpilloverSources {
			prior, ok := first[src]
			if !ok {
				p.errorf("zone %s: spillover source %q has no prior record", id, src)
				continue
			}
			if prior.FinalCombinedRisk < 80 {
				p.errorf("zone %s: spillover from %s whose prior risk %.2f is below threshold", id, src, prior.FinalCombinedRisk)
			}
		}
		if rec.SpilloverApplied && len(rec.SpilloverSources) == 0 {
			p.errorf("zone %s: spillover applied with no sources", id)
		}
	}
	return p
}

// ── Phase 4: Allocation Conservation ──

func validateAllocation(plans, plansAgain []domain.AllocationPlan, records map[string]domain.FusedRiskRecord, resources []domain.ResourceTypeConfig) *phase {
	p := &phase{name: "Phase 4: Allocation Conservation"}

	byKey := make(map[string]domain.ResourceTypeConfig, len(resources))
	for _, r := range resources {
		byKey[r.Key] = r
	}

	for _, plan := range plans {
		res, ok := byKey[plan.ResourceKey]
		if !ok {
			p.errorf("plan for unknown resource %q", plan.ResourceKey)
			continue
		}

		sum := 0
		anyPositive := false
		for _, za := range plan.Zones {
			sum += za.Allocated
			if za.Allocated < 0 {
				p.errorf("%s/%s: negative allocation %d", plan.ResourceKey, za.ZoneID, za.Allocated)
			}
			if za.AdjustedNeed > 0 {
				anyPositive = true
			}
		}
		if sum != plan.TotalAllocated {
			p.errorf("%s: zone sum %d != total allocated %d", plan.ResourceKey, sum, plan.TotalAllocated)
		}
		if anyPositive && plan.TotalAllocated != res.TotalUnits {
			p.errorf("%s: allocated %d of %d units despite positive need", plan.ResourceKey, plan.TotalAllocated, res.TotalUnits)
		}

		for _, za := range plan.Zones {
			rec := records[za.ZoneID]
			if za.Guaranteed && rec.RiskCategory != domain.RiskCritical && rec.RiskCategory != domain.RiskHigh {
				p.errorf("%s/%s: guarantee flag on %s zone", plan.ResourceKey, za.ZoneID, rec.RiskCategory)
			}
		}
	}

	// Same inputs must produce the identical plan.
	if len(plans) != len(plansAgain) {
		p.errorf("determinism: %d plans vs %d on re-run", len(plans), len(plansAgain))
		return p
	}
	for i := range plans {
		for j := range plans[i].Zones {
			a, b := plans[i].Zones[j], plansAgain[i].Zones[j]
			if a.ZoneID != b.ZoneID || a.Allocated != b.Allocated {
				p.errorf("determinism: %s zone %s got %d then %d", plans[i].ResourceKey, a.ZoneID, a.Allocated, b.Allocated)
			}
		}
	}
	return p
}
