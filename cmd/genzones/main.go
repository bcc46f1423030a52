// Command genzones generates synthetic zone fixtures for development and for
// the validate command: a zone file with realistic attribute spreads, a
// resource pool file, and an observation file for a chosen weather scenario.
// Generation is seeded, so the same seed always produces the same fixtures.
//
// Usage:
//
//	go run ./cmd/genzones \
//	  -zones 24 -seed 42 -scenario storm -out data
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/zonewatch/riskcore/internal/domain"
)

// archetype biases a generated zone toward one terrain and demographic profile.
type archetype struct {
	name          string
	elevation     [2]float64 // [min, max] meters
	drainage      [2]float64
	impervious    [2]float64 // percent
	density       [2]float64 // persons per km²
	elderly       [2]float64
	floodsPerDec  [2]float64
	heatwaveDays  [2]float64
	lowLying      [2]float64
}

var archetypes = []archetype{
	{
		name:      "riverside",
		elevation: [2]float64{2, 20}, drainage: [2]float64{0.2, 0.5},
		impervious: [2]float64{40, 70}, density: [2]float64{4000, 15000},
		elderly: [2]float64{0.08, 0.18}, floodsPerDec: [2]float64{3, 9},
		heatwaveDays: [2]float64{5, 15}, lowLying: [2]float64{0.6, 0.95},
	},
	{
		name:      "dense-urban",
		elevation: [2]float64{15, 80}, drainage: [2]float64{0.4, 0.7},
		impervious: [2]float64{70, 95}, density: [2]float64{15000, 35000},
		elderly: [2]float64{0.10, 0.25}, floodsPerDec: [2]float64{1, 4},
		heatwaveDays: [2]float64{10, 25}, lowLying: [2]float64{0.1, 0.4},
	},
	{
		name:      "suburban",
		elevation: [2]float64{30, 150}, drainage: [2]float64{0.5, 0.85},
		impervious: [2]float64{25, 55}, density: [2]float64{1500, 8000},
		elderly: [2]float64{0.12, 0.22}, floodsPerDec: [2]float64{0, 2},
		heatwaveDays: [2]float64{5, 12}, lowLying: [2]float64{0.05, 0.3},
	},
	{
		name:      "hillside",
		elevation: [2]float64{120, 500}, drainage: [2]float64{0.6, 0.9},
		impervious: [2]float64{10, 35}, density: [2]float64{500, 4000},
		elderly: [2]float64{0.10, 0.30}, floodsPerDec: [2]float64{0, 1},
		heatwaveDays: [2]float64{2, 8}, lowLying: [2]float64{0, 0.1},
	},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	zoneCount := flag.Int("zones", 24, "number of zones to generate")
	seed := flag.Int64("seed", 42, "random seed")
	scenario := flag.String("scenario", "calm", "weather scenario: calm, storm, heatwave")
	outDir := flag.String("out", "data", "output directory")
	flag.Parse()

	if *zoneCount < 2 {
		return fmt.Errorf("need at least 2 zones, got %d", *zoneCount)
	}

	rng := rand.New(rand.NewSource(*seed))

	zones := generateZones(rng, *zoneCount)
	resources := defaultResources(*zoneCount)
	obs, err := generateObservations(rng, zones, *scenario)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	if err := writeJSON(filepath.Join(*outDir, "zones.json"), zones); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(*outDir, "resources.json"), resources); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(*outDir, "observations.json"), obs); err != nil {
		return err
	}

	log.Printf("wrote %d zones, %d resources, %d observations to %s (scenario=%s, seed=%d)",
		len(zones), len(resources), len(obs), *outDir, *scenario, *seed)
	return nil
}

func generateZones(rng *rand.Rand, count int) []domain.Zone {
	zones := make([]domain.Zone, count)
	for i := range zones {
		arch := archetypes[i%len(archetypes)]
		id := fmt.Sprintf("zone-%03d", i+1)

		z := domain.Zone{
			ID:         id,
			Name:       fmt.Sprintf("%s %d", arch.name, i/len(archetypes)+1),
			Population: 20000 + rng.Intn(780000),

			ElevationM:    domain.Float(between(rng, arch.elevation)),
			DrainageIndex: domain.Float(between(rng, arch.drainage)),
			ImperviousPct: domain.Float(between(rng, arch.impervious)),
			LowLyingIndex: domain.Float(between(rng, arch.lowLying)),

			PopulationDensity: domain.Float(between(rng, arch.density)),
			ElderlyRatio:      domain.Float(between(rng, arch.elderly)),

			HistoricalFloodFrequency: domain.Float(between(rng, arch.floodsPerDec)),
			HistoricalHeatwaveDays:   domain.Float(between(rng, arch.heatwaveDays)),
			BaselineAvgTempC:         domain.Float(24 + rng.Float64()*8),
		}

		// Roughly a tenth of zones have survey gaps.
		if rng.Float64() < 0.1 {
			z.DrainageIndex = nil
			z.ImperviousPct = nil
		}
		zones[i] = z
	}

	// Ring adjacency plus a few random cross-links for spillover paths.
	for i := range zones {
		prev := (i - 1 + count) % count
		next := (i + 1) % count
		zones[i].Adjacent = []string{zones[prev].ID, zones[next].ID}
	}
	for k := 0; k < count/4; k++ {
		a, b := rng.Intn(count), rng.Intn(count)
		if a == b || contains(zones[a].Adjacent, zones[b].ID) {
			continue
		}
		zones[a].Adjacent = append(zones[a].Adjacent, zones[b].ID)
		zones[b].Adjacent = append(zones[b].Adjacent, zones[a].ID)
	}
	return zones
}

func defaultResources(zoneCount int) []domain.ResourceTypeConfig {
	scale := zoneCount / 4
	if scale < 1 {
		scale = 1
	}
	return []domain.ResourceTypeConfig{
		{
			Key: "water_pumps", Name: "Water Pumps", Unit: "units",
			TotalUnits:     10 * scale,
			Effectiveness:  map[domain.Hazard]float64{domain.HazardFlood: 0.9, domain.HazardHeat: 0.05},
			MinForCritical: 2,
		},
		{
			Key: "cooling_centers", Name: "Cooling Centers", Unit: "sites",
			TotalUnits:     4 * scale,
			Effectiveness:  map[domain.Hazard]float64{domain.HazardFlood: 0.0, domain.HazardHeat: 0.95},
			MinForCritical: 1,
		},
		{
			Key: "rescue_teams", Name: "Rescue Teams", Unit: "teams",
			TotalUnits:     3 * scale,
			Effectiveness:  map[domain.Hazard]float64{domain.HazardFlood: 0.8, domain.HazardHeat: 0.5},
			MinForCritical: 1,
		},
	}
}

func generateObservations(rng *rand.Rand, zones []domain.Zone, scenario string) (map[string]*domain.HazardObservation, error) {
	obs := make(map[string]*domain.HazardObservation, len(zones))
	for _, z := range zones {
		o := &domain.HazardObservation{}
		switch scenario {
		case "calm":
			o.RainfallMM = rng.Float64() * 3
			o.TemperatureC = domain.Float(22 + rng.Float64()*6)
		case "storm":
			o.RainfallMM = 30 + rng.Float64()*120
			o.MaxRainIntensityMMH = o.RainfallMM * (1 + rng.Float64())
			o.RainfallForecast48hMM = o.RainfallMM * (2 + rng.Float64()*2)
			o.TemperatureC = domain.Float(18 + rng.Float64()*6)
		case "heatwave":
			o.RainfallMM = 0
			base := 28.0
			if z.BaselineAvgTempC != nil {
				base = *z.BaselineAvgTempC
			}
			o.TemperatureC = domain.Float(base + 5 + rng.Float64()*7)
			o.AvgForecastTempC = domain.Float(base + 4 + rng.Float64()*6)
		default:
			return nil, fmt.Errorf("unknown scenario %q (want calm, storm, or heatwave)", scenario)
		}
		obs[z.ID] = o
	}
	return obs, nil
}

func between(rng *rand.Rand, bounds [2]float64) float64 {
	return bounds[0] + rng.Float64()*(bounds[1]-bounds[0])
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
