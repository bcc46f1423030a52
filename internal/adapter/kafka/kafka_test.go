package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zonewatch/riskcore/internal/domain"
	"github.com/zonewatch/riskcore/internal/engine"
)

func TestBuildMessages(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	result := engine.CycleResult{
		CycleID:    "cycle-1",
		ComputedAt: now,
		Records: []domain.FusedRiskRecord{{
			ZoneID:            "zone-a",
			CycleID:           "cycle-1",
			FinalCombinedRisk: 82.5,
			RiskCategory:      domain.RiskCritical,
			TopHazard:         domain.HazardFlood,
			ComputedAt:        now,
		}},
		Plans: []domain.AllocationPlan{{
			ResourceKey:    "water_pumps",
			TotalUnits:     10,
			TotalAllocated: 10,
			Zones:          []domain.ZoneAllocation{{ZoneID: "zone-a", Allocated: 10}},
		}},
	}

	msgs, err := buildMessages(result)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	rec := msgs[0]
	assert.Equal(t, []byte("zone-a"), rec.Key)
	assert.Contains(t, string(rec.Value), `"risk_category":"critical"`)
	require.Len(t, rec.Headers, 3)
	assert.Equal(t, "kind", rec.Headers[0].Key)
	assert.Equal(t, []byte("risk_record"), rec.Headers[0].Value)
	assert.Equal(t, []byte("cycle-1"), rec.Headers[1].Value)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), rec.Headers[2].Value)

	plan := msgs[1]
	assert.Equal(t, []byte("water_pumps"), plan.Key)
	assert.Contains(t, string(plan.Value), `"total_allocated":10`)
	assert.Equal(t, []byte("allocation_plan"), plan.Headers[0].Value)
}

func TestBuildMessages_EmptyCycle(t *testing.T) {
	msgs, err := buildMessages(engine.CycleResult{CycleID: "cycle-1"})
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
