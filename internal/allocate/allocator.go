package allocate

import (
	"fmt"
	"math"
	"sort"

	"github.com/zonewatch/riskcore/internal/domain"
)

// ZoneNeed is one zone's input to the allocator: its need score plus the
// record fields allocation depends on.
type ZoneNeed struct {
	ZoneID    string
	Need      float64
	Category  domain.RiskCategory
	TopHazard domain.Hazard
}

// Allocator distributes fixed resource pools across zones in proportion to
// adjusted need, with critical-zone minimum guarantees and exact integer
// conservation via largest-remainder rounding. It is a single-pass,
// synchronous computation: every per-zone decision needs the global need sum
// first, so there is nothing to parallelize.
type Allocator struct{}

// NewAllocator creates an Allocator.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// AllocateAll produces one plan per resource type. Input order of zones does
// not affect the result; plans are deterministic for identical inputs.
func (a *Allocator) AllocateAll(needs []ZoneNeed, resources []domain.ResourceTypeConfig) []domain.AllocationPlan {
	plans := make([]domain.AllocationPlan, 0, len(resources))
	for _, res := range resources {
		plans = append(plans, a.Allocate(needs, res))
	}
	return plans
}

// Allocate distributes one resource type. Guarantees, whenever total adjusted
// need is positive: awards sum to TotalUnits exactly, and every critical/high
// zone with positive adjusted need receives at least MinForCritical units if
// the pool is large enough to cover all guarantees.
//
// A negative need score is a logic bug upstream, not a domain state, and
// panics rather than being clamped into a silently wrong plan.
func (a *Allocator) Allocate(needs []ZoneNeed, res domain.ResourceTypeConfig) domain.AllocationPlan {
	plan := domain.AllocationPlan{
		ResourceKey:  res.Key,
		ResourceName: res.Name,
		Unit:         res.Unit,
		TotalUnits:   res.TotalUnits,
	}
	if len(needs) == 0 || res.TotalUnits <= 0 {
		return plan
	}

	type slot struct {
		ZoneNeed
		adjusted   float64
		guaranteed int
		floor      int
		remainder  float64
	}

	slots := make([]slot, len(needs))
	var totalAdjusted float64
	for i, n := range needs {
		if n.Need < 0 {
			panic(fmt.Sprintf("allocate: negative need score %g for zone %s", n.Need, n.ZoneID))
		}
		adj := n.Need * hazardEffectiveness(res, n.TopHazard)
		slots[i] = slot{ZoneNeed: n, adjusted: adj}
		totalAdjusted += adj
	}

	// A resource that is effective nowhere is not spent: zeros everywhere,
	// not an equal split.
	if totalAdjusted == 0 {
		plan.Zones = make([]domain.ZoneAllocation, len(slots))
		for i, s := range slots {
			plan.Zones[i] = domain.ZoneAllocation{
				ZoneID:       s.ZoneID,
				NeedScore:    s.Need,
				RiskCategory: s.Category,
			}
		}
		sortAllocations(plan.Zones)
		return plan
	}

	// Reserve the critical-zone minimums. Zones the resource cannot help
	// (zero adjusted need) earn no guarantee. If the pool cannot cover all
	// guarantees, none are reserved and the whole pool is shared
	// proportionally.
	minUnits := res.MinForCritical
	guaranteedTotal := 0
	if minUnits > 0 {
		for _, s := range slots {
			if isPriority(s.Category) && s.adjusted > 0 {
				guaranteedTotal += minUnits
			}
		}
		if guaranteedTotal > res.TotalUnits {
			minUnits = 0
			guaranteedTotal = 0
		}
	}
	remaining := res.TotalUnits - guaranteedTotal

	floorSum := 0
	for i := range slots {
		s := &slots[i]
		if minUnits > 0 && isPriority(s.Category) && s.adjusted > 0 {
			s.guaranteed = minUnits
		}
		ideal := float64(remaining) * s.adjusted / totalAdjusted
		frac := math.Floor(ideal)
		s.floor = int(frac) + s.guaranteed
		s.remainder = ideal - frac
		floorSum += s.floor
	}

	// Largest-remainder rounding: hand the leftover units to the zones with
	// the largest fractional remainders. Equal remainders break on zone ID
	// so reruns of identical inputs allocate identically.
	leftover := res.TotalUnits - floorSum
	order := make([]int, len(slots))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool {
		sx, sy := slots[order[x]], slots[order[y]]
		if sx.remainder != sy.remainder {
			return sx.remainder > sy.remainder
		}
		return sx.ZoneID < sy.ZoneID
	})
	for i := 0; i < leftover && i < len(order); i++ {
		slots[order[i]].floor++
	}

	allocated := 0
	plan.Zones = make([]domain.ZoneAllocation, len(slots))
	for i, s := range slots {
		plan.Zones[i] = domain.ZoneAllocation{
			ZoneID:       s.ZoneID,
			Allocated:    s.floor,
			NeedScore:    s.Need,
			AdjustedNeed: s.adjusted,
			RiskCategory: s.Category,
			Guaranteed:   s.guaranteed > 0,
		}
		allocated += s.floor
	}
	if allocated != res.TotalUnits {
		panic(fmt.Sprintf("allocate: %s awards sum to %d, want %d", res.Key, allocated, res.TotalUnits))
	}
	plan.TotalAllocated = allocated

	sortAllocations(plan.Zones)
	plan.Explanations = explain(plan, minUnits)
	return plan
}

// explain produces the short human-readable notes decision-makers see next
// to a plan.
func explain(plan domain.AllocationPlan, minUnits int) []string {
	var notes []string

	guaranteed := 0
	for _, z := range plan.Zones {
		if z.Guaranteed {
			guaranteed++
		}
	}
	if guaranteed > 0 {
		notes = append(notes, fmt.Sprintf(
			"%d high/critical risk zones guaranteed at least %d %s each",
			guaranteed, minUnits, plan.Unit))
	}
	if len(plan.Zones) > 0 && plan.Zones[0].Allocated > 0 {
		top := plan.Zones[0]
		notes = append(notes, fmt.Sprintf(
			"most %s allocated to zone %s (%d of %d, need score %.2f)",
			plan.ResourceName, top.ZoneID, top.Allocated, plan.TotalUnits, top.NeedScore))
	}
	return notes
}

// hazardEffectiveness resolves the multiplier for a zone's dominant hazard.
// Zero effectiveness means the resource is useless there and the zone's share
// must be exactly zero. A zone with no dominant hazard uses the resource's
// best effectiveness, since any deployment there would target whichever
// hazard emerges.
func hazardEffectiveness(res domain.ResourceTypeConfig, hazard domain.Hazard) float64 {
	if hazard != domain.HazardNone {
		return res.Effectiveness[hazard]
	}
	best := 0.0
	for _, e := range res.Effectiveness {
		if e > best {
			best = e
		}
	}
	return best
}

func isPriority(c domain.RiskCategory) bool {
	return c == domain.RiskCritical || c == domain.RiskHigh
}

func sortAllocations(zones []domain.ZoneAllocation) {
	sort.SliceStable(zones, func(i, j int) bool {
		if zones[i].Allocated != zones[j].Allocated {
			return zones[i].Allocated > zones[j].Allocated
		}
		return zones[i].ZoneID < zones[j].ZoneID
	})
}
