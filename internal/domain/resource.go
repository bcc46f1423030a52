package domain

// ResourceTypeConfig describes one category of emergency-response resource
// and how it is constrained during allocation.
type ResourceTypeConfig struct {
	Key            string             `json:"key"`  // e.g. "water_pumps"
	Name           string             `json:"name"` // e.g. "Water Pumps"
	Unit           string             `json:"unit"` // e.g. "units", "buses"
	TotalUnits     int                `json:"total_units"`
	Effectiveness  map[Hazard]float64 `json:"effectiveness"` // hazard -> 0..1
	MinForCritical int                `json:"min_for_critical"`
}

// ZoneAllocation is the integer award for one zone within a resource plan.
type ZoneAllocation struct {
	ZoneID       string       `json:"zone_id"`
	Allocated    int          `json:"allocated"`
	NeedScore    float64      `json:"need_score"`
	AdjustedNeed float64      `json:"adjusted_need"`
	RiskCategory RiskCategory `json:"risk_category"`
	Guaranteed   bool         `json:"guaranteed"` // received the critical-zone minimum
}

// AllocationPlan is the result of allocating a single resource type across
// all zones. Whenever total adjusted need is positive, TotalAllocated equals
// the resource's TotalUnits exactly.
type AllocationPlan struct {
	ResourceKey    string           `json:"resource_key"`
	ResourceName   string           `json:"resource_name"`
	Unit           string           `json:"unit"`
	TotalUnits     int              `json:"total_units"`
	TotalAllocated int              `json:"total_allocated"`
	Zones          []ZoneAllocation `json:"zones"` // sorted by allocated desc, then zone ID
	Explanations   []string         `json:"explanations,omitempty"`
}
