package allocate

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zonewatch/riskcore/internal/domain"
)

func pumps(total, minCritical int) domain.ResourceTypeConfig {
	return domain.ResourceTypeConfig{
		Key:        "water_pumps",
		Name:       "Water Pumps",
		Unit:       "units",
		TotalUnits: total,
		Effectiveness: map[domain.Hazard]float64{
			domain.HazardFlood: 0.9,
			domain.HazardHeat:  0.0,
		},
		MinForCritical: minCritical,
	}
}

func allocatedByZone(plan domain.AllocationPlan) map[string]int {
	m := make(map[string]int, len(plan.Zones))
	for _, z := range plan.Zones {
		m[z.ZoneID] = z.Allocated
	}
	return m
}

func TestAllocate(t *testing.T) {
	a := NewAllocator()

	t.Run("critical flood zone gets its minimum, total conserved", func(t *testing.T) {
		// The reference scenario: zone A critical with high need, zone B
		// moderate; a 10-pump pool with a 2-unit critical minimum.
		needs := []ZoneNeed{
			{ZoneID: "A", Need: 0.55, Category: domain.RiskCritical, TopHazard: domain.HazardFlood},
			{ZoneID: "B", Need: 0.25, Category: domain.RiskModerate, TopHazard: domain.HazardFlood},
		}
		plan := a.Allocate(needs, pumps(10, 2))

		got := allocatedByZone(plan)
		assert.Equal(t, 10, plan.TotalAllocated)
		assert.GreaterOrEqual(t, got["A"], 2)
		assert.Greater(t, got["B"], 0)
		assert.Equal(t, 10, got["A"]+got["B"])
		// A's share of the remaining 8 is 0.55/0.80 = 5.5 -> at least 7 with
		// the guarantee.
		assert.GreaterOrEqual(t, got["A"], 7)
	})

	t.Run("zero effectiveness means zero units, not a small share", func(t *testing.T) {
		needs := []ZoneNeed{
			{ZoneID: "flood", Need: 0.5, Category: domain.RiskHigh, TopHazard: domain.HazardFlood},
			{ZoneID: "heat", Need: 0.9, Category: domain.RiskCritical, TopHazard: domain.HazardHeat},
		}
		plan := a.Allocate(needs, pumps(10, 2))

		got := allocatedByZone(plan)
		assert.Equal(t, 0, got["heat"]) // pumps are useless against heat
		assert.Equal(t, 10, got["flood"])
		assert.Equal(t, 10, plan.TotalAllocated)
	})

	t.Run("resource ineffective everywhere is not spent", func(t *testing.T) {
		needs := []ZoneNeed{
			{ZoneID: "a", Need: 0.5, Category: domain.RiskCritical, TopHazard: domain.HazardHeat},
			{ZoneID: "b", Need: 0.3, Category: domain.RiskHigh, TopHazard: domain.HazardHeat},
		}
		plan := a.Allocate(needs, pumps(10, 2))

		assert.Equal(t, 0, plan.TotalAllocated)
		for _, z := range plan.Zones {
			assert.Equal(t, 0, z.Allocated)
		}
	})

	t.Run("zero need scores allocate nothing", func(t *testing.T) {
		needs := []ZoneNeed{
			{ZoneID: "a", Need: 0, Category: domain.RiskLow, TopHazard: domain.HazardFlood},
			{ZoneID: "b", Need: 0, Category: domain.RiskLow, TopHazard: domain.HazardFlood},
		}
		plan := a.Allocate(needs, pumps(10, 0))
		assert.Equal(t, 0, plan.TotalAllocated)
	})

	t.Run("empty pool yields an empty plan", func(t *testing.T) {
		needs := []ZoneNeed{{ZoneID: "a", Need: 1, Category: domain.RiskHigh, TopHazard: domain.HazardFlood}}
		plan := a.Allocate(needs, pumps(0, 2))
		assert.Empty(t, plan.Zones)
		assert.Equal(t, 0, plan.TotalAllocated)
	})

	t.Run("guarantees degrade gracefully when the pool is too small", func(t *testing.T) {
		needs := []ZoneNeed{
			{ZoneID: "a", Need: 0.6, Category: domain.RiskCritical, TopHazard: domain.HazardFlood},
			{ZoneID: "b", Need: 0.4, Category: domain.RiskCritical, TopHazard: domain.HazardFlood},
			{ZoneID: "c", Need: 0.2, Category: domain.RiskCritical, TopHazard: domain.HazardFlood},
		}
		// 3 critical zones x 2 minimum = 6 > 4 available: guarantees are
		// waived and the pool is shared proportionally, still conserved.
		plan := a.Allocate(needs, pumps(4, 2))
		assert.Equal(t, 4, plan.TotalAllocated)
	})

	t.Run("negative need panics", func(t *testing.T) {
		needs := []ZoneNeed{{ZoneID: "a", Need: -0.1, Category: domain.RiskLow, TopHazard: domain.HazardFlood}}
		assert.Panics(t, func() { a.Allocate(needs, pumps(10, 0)) })
	})

	t.Run("rounding ties break deterministically by zone ID", func(t *testing.T) {
		// Four zones with identical need share 2 units: equal remainders,
		// so the two lowest zone IDs win the extras.
		needs := []ZoneNeed{
			{ZoneID: "d", Need: 0.5, Category: domain.RiskLow, TopHazard: domain.HazardFlood},
			{ZoneID: "b", Need: 0.5, Category: domain.RiskLow, TopHazard: domain.HazardFlood},
			{ZoneID: "c", Need: 0.5, Category: domain.RiskLow, TopHazard: domain.HazardFlood},
			{ZoneID: "a", Need: 0.5, Category: domain.RiskLow, TopHazard: domain.HazardFlood},
		}
		plan := a.Allocate(needs, pumps(2, 0))
		got := allocatedByZone(plan)
		assert.Equal(t, 1, got["a"])
		assert.Equal(t, 1, got["b"])
		assert.Equal(t, 0, got["c"])
		assert.Equal(t, 0, got["d"])
	})

	t.Run("idempotent under re-running with identical inputs", func(t *testing.T) {
		rng := rand.New(rand.NewSource(7))
		needs := make([]ZoneNeed, 25)
		for i := range needs {
			needs[i] = ZoneNeed{
				ZoneID:    fmt.Sprintf("z%02d", i),
				Need:      rng.Float64(),
				Category:  domain.RiskModerate,
				TopHazard: domain.HazardFlood,
			}
		}
		first := a.Allocate(needs, pumps(17, 0))
		second := a.Allocate(needs, pumps(17, 0))
		assert.Empty(t, cmp.Diff(first, second))
	})

	t.Run("conservation holds across random pools", func(t *testing.T) {
		rng := rand.New(rand.NewSource(42))
		for trial := 0; trial < 50; trial++ {
			n := 1 + rng.Intn(12)
			needs := make([]ZoneNeed, n)
			anyPositive := false
			for i := range needs {
				need := rng.Float64()
				if need > 0 {
					anyPositive = true
				}
				cat := domain.RiskLow
				if rng.Intn(3) == 0 {
					cat = domain.RiskCritical
				}
				needs[i] = ZoneNeed{
					ZoneID:    fmt.Sprintf("z%02d", i),
					Need:      need,
					Category:  cat,
					TopHazard: domain.HazardFlood,
				}
			}
			total := 1 + rng.Intn(100)
			plan := a.Allocate(needs, pumps(total, 1))
			if anyPositive {
				require.Equal(t, total, plan.TotalAllocated, "trial %d", trial)
			}
		}
	})
}

func TestAllocateGuarantees(t *testing.T) {
	a := NewAllocator()

	needs := []ZoneNeed{
		{ZoneID: "crit1", Need: 0.9, Category: domain.RiskCritical, TopHazard: domain.HazardFlood},
		{ZoneID: "crit2", Need: 0.05, Category: domain.RiskHigh, TopHazard: domain.HazardFlood},
		{ZoneID: "mod1", Need: 0.8, Category: domain.RiskModerate, TopHazard: domain.HazardFlood},
		{ZoneID: "mod2", Need: 0.7, Category: domain.RiskModerate, TopHazard: domain.HazardFlood},
	}
	plan := a.Allocate(needs, pumps(20, 3))
	got := allocatedByZone(plan)

	// Even the low-need high-risk zone keeps its floor.
	assert.GreaterOrEqual(t, got["crit1"], 3)
	assert.GreaterOrEqual(t, got["crit2"], 3)
	assert.Equal(t, 20, plan.TotalAllocated)

	for _, z := range plan.Zones {
		if z.ZoneID == "crit1" || z.ZoneID == "crit2" {
			assert.True(t, z.Guaranteed)
		} else {
			assert.False(t, z.Guaranteed)
		}
	}
}

func TestAllocateAll(t *testing.T) {
	a := NewAllocator()
	needs := []ZoneNeed{
		{ZoneID: "a", Need: 0.6, Category: domain.RiskCritical, TopHazard: domain.HazardFlood},
		{ZoneID: "b", Need: 0.4, Category: domain.RiskModerate, TopHazard: domain.HazardHeat},
	}
	resources := []domain.ResourceTypeConfig{
		pumps(10, 2),
		{
			Key: "cooling_centers", Name: "Cooling Centers", Unit: "centers", TotalUnits: 5,
			Effectiveness:  map[domain.Hazard]float64{domain.HazardFlood: 0.0, domain.HazardHeat: 0.9},
			MinForCritical: 1,
		},
	}

	plans := a.AllocateAll(needs, resources)
	require.Len(t, plans, 2)
	assert.Equal(t, "water_pumps", plans[0].ResourceKey)
	assert.Equal(t, 10, plans[0].TotalAllocated)
	// Cooling centers only help the heat zone.
	cooling := allocatedByZone(plans[1])
	assert.Equal(t, 0, cooling["a"])
	assert.Equal(t, 5, cooling["b"])
}
