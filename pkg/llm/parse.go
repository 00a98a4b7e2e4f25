/*
Copyright 2025 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package llm

import (
	"encoding/json"
	"fmt"

	"github.com/emergency-ai/decision-core/pkg/domain"
)

// rawParsedDisaster is the loosely-typed shape the LLM is expected to
// return; fields are validated and clamped into domain.ParsedDisaster by
// decodeParsedDisaster, since an LLM cannot be trusted to emit a strict
// enum without prompting drift.
type rawParsedDisaster struct {
	DisasterType        string   `json:"disaster_type"`
	Severity             string   `json:"severity"`
	Magnitude            *float64 `json:"magnitude"`
	DepthKM              *float64 `json:"depth_km"`
	AffectedAreaKM2      *float64 `json:"affected_area_km2"`
	DisasterLevel        string   `json:"disaster_level"`
	HasBuildingCollapse  bool     `json:"has_building_collapse"`
	HasTrappedPersons    bool     `json:"has_trapped_persons"`
	HasSecondaryFire     bool     `json:"has_secondary_fire"`
	HasHazmatLeak        bool     `json:"has_hazmat_leak"`
	HasRoadDamage        bool     `json:"has_road_damage"`
	EstimatedTrapped     int      `json:"estimated_trapped"`
	AffectedPopulation   int      `json:"affected_population"`
}

var validDisasterTypes = map[string]domain.DisasterType{
	"earthquake": domain.DisasterEarthquake,
	"flood":      domain.DisasterFlood,
	"hazmat":     domain.DisasterHazmat,
	"fire":       domain.DisasterFire,
	"landslide":  domain.DisasterLandslide,
}

var validSeverities = map[string]domain.Severity{
	"critical": domain.SeverityCritical,
	"high":     domain.SeverityHigh,
	"medium":   domain.SeverityMedium,
	"low":      domain.SeverityLow,
}

var validLevels = map[string]bool{"I": true, "II": true, "III": true, "IV": true}

// decodeParsedDisaster parses the LLM's raw JSON text into a
// domain.ParsedDisaster, clamping unrecognized enum values to
// unknown/medium per §4.2 of spec.md. It returns an error (ParseError
// kind) only when the JSON itself is malformed or the mandatory
// disaster_type key is entirely absent from the payload.
func decodeParsedDisaster(text string) (*domain.ParsedDisaster, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("malformed LLM output: %w", err)
	}
	if _, ok := raw["disaster_type"]; !ok {
		return nil, fmt.Errorf("LLM output missing mandatory disaster_type key")
	}

	var rp rawParsedDisaster
	reencoded, _ := json.Marshal(raw)
	_ = json.Unmarshal(reencoded, &rp)

	dType, ok := validDisasterTypes[rp.DisasterType]
	if !ok {
		dType = domain.DisasterUnknown
	}
	severity, ok := validSeverities[rp.Severity]
	if !ok {
		severity = domain.SeverityMedium
	}
	level := rp.DisasterLevel
	if !validLevels[level] {
		level = ""
	}

	return &domain.ParsedDisaster{
		DisasterType:        dType,
		Severity:             severity,
		Magnitude:            rp.Magnitude,
		DepthKM:              rp.DepthKM,
		AffectedAreaKM2:       rp.AffectedAreaKM2,
		DisasterLevel:         level,
		HasBuildingCollapse:   rp.HasBuildingCollapse,
		HasTrappedPersons:     rp.HasTrappedPersons,
		HasSecondaryFire:      rp.HasSecondaryFire,
		HasHazmatLeak:         rp.HasHazmatLeak,
		HasRoadDamage:         rp.HasRoadDamage,
		EstimatedTrapped:      rp.EstimatedTrapped,
		AffectedPopulation:    rp.AffectedPopulation,
		AdditionalInfo:        map[string]interface{}{},
	}, nil
}
