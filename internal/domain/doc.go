// Package domain models zone hazard-risk data: zones, weather observations,
// composite and fused risk records, and resource allocation plans.
//
// # Zones
//
// A Zone is a geographic unit (municipal ward scale) whose attributes change
// slowly: terrain, demographics, infrastructure, and historical hazard
// climate. Zones arrive from the ingestion subsystem each computation cycle
// and are read-only here. Adjacency (the Adjacent field) is supplied
// precomputed; this module never derives it.
//
// # Optional attributes and fallbacks
//
// Survey coverage is uneven, so most zone attributes are optional pointers.
// A nil attribute is never an error; the risk calculators substitute a
// documented default instead:
//
//	elevation_m              nil or <=0  ->  moderate vulnerability (0.5)
//	drainage_index           nil         ->  derived from impervious %, else 0.5
//	impervious_surface_pct   nil         ->  50
//	population_density       nil         ->  10000 /km²
//	elderly_ratio            nil         ->  0.10
//	baseline_avg_temp_c      nil         ->  28.0
//	historical frequencies   nil         ->  0
//
// Zone.DataCompleteness reports how much was actually surveyed; it feeds the
// record's confidence score so a defaulted assessment is never presented as a
// fully observed one.
//
// # Risk values
//
// All normalized factor contributions live in [0,1]; all risk scores live in
// [0,100]. The four-band category split defaults to low < 30 <= moderate <
// 60 <= high < 80 <= critical.
//
// # Records
//
// A FusedRiskRecord is produced once per zone per cycle and never mutated:
// history is append-only, and the next cycle's spillover reads only the
// previous cycle's committed records. AllocationPlan totals are exactly
// conserved: the integer awards for a resource sum to its TotalUnits
// whenever any zone has positive adjusted need.
package domain
