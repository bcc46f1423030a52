// Package provider loads cycle inputs from JSON files. Zones and resource
// pools change rarely and are re-read each cycle so edits apply without a
// restart; observations are refreshed by an external feed writing the file.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/zonewatch/riskcore/internal/domain"
	"github.com/zonewatch/riskcore/internal/engine"
)

// File implements engine.InputProvider from three JSON files.
type File struct {
	zonesPath     string
	resourcesPath string
	obsPath       string
	logger        *slog.Logger
}

// NewFile creates a file provider. obsPath may name a file that does not
// exist yet; cycles then run without observations.
func NewFile(zonesPath, resourcesPath, obsPath string, logger *slog.Logger) *File {
	return &File{
		zonesPath:     zonesPath,
		resourcesPath: resourcesPath,
		obsPath:       obsPath,
		logger:        logger,
	}
}

// Inputs reads and validates all three files. Zones and resources are
// required; a missing observations file yields an empty observation map.
func (f *File) Inputs(_ context.Context) (engine.Inputs, error) {
	var zones []domain.Zone
	if err := readJSON(f.zonesPath, &zones); err != nil {
		return engine.Inputs{}, fmt.Errorf("reading zones: %w", err)
	}
	if err := validateZones(zones); err != nil {
		return engine.Inputs{}, err
	}

	var resources []domain.ResourceTypeConfig
	if err := readJSON(f.resourcesPath, &resources); err != nil {
		return engine.Inputs{}, fmt.Errorf("reading resources: %w", err)
	}
	if err := validateResources(resources); err != nil {
		return engine.Inputs{}, err
	}

	obs := make(map[string]*domain.HazardObservation)
	if f.obsPath != "" {
		if err := readJSON(f.obsPath, &obs); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return engine.Inputs{}, fmt.Errorf("reading observations: %w", err)
			}
			f.logger.Warn("observations file missing, assessing without weather data",
				"path", f.obsPath)
		}
	}

	return engine.Inputs{Zones: zones, Observations: obs, Resources: resources}, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func validateZones(zones []domain.Zone) error {
	if len(zones) == 0 {
		return errors.New("zones file contains no zones")
	}
	seen := make(map[string]bool, len(zones))
	for _, z := range zones {
		if z.ID == "" {
			return errors.New("zone with empty ID")
		}
		if seen[z.ID] {
			return fmt.Errorf("duplicate zone ID %q", z.ID)
		}
		seen[z.ID] = true
		if z.Population < 0 {
			return fmt.Errorf("zone %s: negative population", z.ID)
		}
	}
	for _, z := range zones {
		for _, adj := range z.Adjacent {
			if !seen[adj] {
				return fmt.Errorf("zone %s: unknown adjacent zone %q", z.ID, adj)
			}
		}
	}
	return nil
}

func validateResources(resources []domain.ResourceTypeConfig) error {
	seen := make(map[string]bool, len(resources))
	for _, r := range resources {
		if r.Key == "" {
			return errors.New("resource with empty key")
		}
		if seen[r.Key] {
			return fmt.Errorf("duplicate resource key %q", r.Key)
		}
		seen[r.Key] = true
		if r.TotalUnits < 0 {
			return fmt.Errorf("resource %s: negative total units", r.Key)
		}
		if r.MinForCritical < 0 {
			return fmt.Errorf("resource %s: negative critical minimum", r.Key)
		}
		for hazard, eff := range r.Effectiveness {
			if eff < 0 || eff > 1 {
				return fmt.Errorf("resource %s: effectiveness for %s out of range", r.Key, hazard)
			}
		}
	}
	return nil
}
