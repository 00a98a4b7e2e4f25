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

package reasoning

import "github.com/emergency-ai/decision-core/pkg/domain"

// builtinRules is the deterministic fallback consulted when the
// knowledge graph returns no rules for a disaster_type (§4.3, KGUnavailable
// recovery policy in §7). Scene codes are chosen to line up with the
// meta-task library's scene→chain mapping in pkg/htn.
var builtinRules = map[domain.DisasterType][]Rule{
	domain.DisasterEarthquake: {
		{
			RuleID:     "builtin-eq-collapse",
			RuleName:   "Earthquake building collapse",
			SceneCode:  "EQ-BASIC",
			Priority:   domain.PriorityCritical,
			Weight:     1.0,
			Sequence:   1,
			TriggeredTaskCodes:      []string{"SEARCH_RESCUE", "MEDICAL_EMERGENCY"},
			RequiredCapabilityCodes: []string{"LIFE_DETECTION", "STRUCTURAL_RESCUE", "MEDICAL_TRIAGE"},
			Conditions: []Condition{
				{Field: "has_building_collapse", Op: "=", Literal: true},
			},
			Combinator: CombinatorAND,
		},
		{
			RuleID:     "builtin-eq-fire",
			RuleName:   "Earthquake secondary fire",
			SceneCode:  "EQ-FIRE",
			Priority:   domain.PriorityHigh,
			Weight:     0.8,
			Sequence:   2,
			TriggeredTaskCodes:      []string{"FIRE_SUPPRESSION"},
			RequiredCapabilityCodes: []string{"FIRE_SUPPRESSION"},
			Conditions: []Condition{
				{Field: "has_secondary_fire", Op: "=", Literal: true},
			},
			Combinator: CombinatorAND,
		},
	},
	domain.DisasterFlood: {
		{
			RuleID:     "builtin-flood-basic",
			RuleName:   "Flood water rescue",
			SceneCode:  "FLOOD-BASIC",
			Priority:   domain.PriorityHigh,
			Weight:     1.0,
			Sequence:   1,
			TriggeredTaskCodes:      []string{"WATER_RESCUE", "EVACUATION"},
			RequiredCapabilityCodes: []string{"WATER_RESCUE", "EVACUATION_TRANSPORT"},
			Conditions: nil,
			Combinator: CombinatorAND,
		},
	},
	domain.DisasterHazmat: {
		{
			RuleID:     "builtin-hazmat-leak",
			RuleName:   "Hazmat leak containment",
			SceneCode:  "HAZMAT-BASIC",
			Priority:   domain.PriorityCritical,
			Weight:     1.0,
			Sequence:   1,
			TriggeredTaskCodes:      []string{"HAZMAT_CONTAINMENT", "EVACUATION"},
			RequiredCapabilityCodes: []string{"HAZMAT_CONTAINMENT", "EVACUATION_TRANSPORT"},
			Conditions: []Condition{
				{Field: "has_hazmat_leak", Op: "=", Literal: true},
			},
			Combinator: CombinatorAND,
		},
	},
	domain.DisasterFire: {
		{
			RuleID:     "builtin-fire-basic",
			RuleName:   "Structure fire suppression",
			SceneCode:  "FIRE-BASIC",
			Priority:   domain.PriorityHigh,
			Weight:     1.0,
			Sequence:   1,
			TriggeredTaskCodes:      []string{"FIRE_SUPPRESSION"},
			RequiredCapabilityCodes: []string{"FIRE_SUPPRESSION"},
			Conditions: nil,
			Combinator: CombinatorAND,
		},
	},
	domain.DisasterLandslide: {
		{
			RuleID:     "builtin-landslide-basic",
			RuleName:   "Landslide debris rescue",
			SceneCode:  "LANDSLIDE-BASIC",
			Priority:   domain.PriorityHigh,
			Weight:     1.0,
			Sequence:   1,
			TriggeredTaskCodes:      []string{"SEARCH_RESCUE"},
			RequiredCapabilityCodes: []string{"LIFE_DETECTION", "STRUCTURAL_RESCUE"},
			Conditions: nil,
			Combinator: CombinatorAND,
		},
	},
}

// capabilityDisplayNames backs the fallback path only; KG-sourced
// requirements use whatever display name the graph itself returns.
var capabilityDisplayNames = map[string]string{
	"LIFE_DETECTION":       "Life detection",
	"STRUCTURAL_RESCUE":    "Structural rescue",
	"MEDICAL_TRIAGE":       "Medical triage",
	"FIRE_SUPPRESSION":     "Fire suppression",
	"WATER_RESCUE":         "Water rescue",
	"EVACUATION_TRANSPORT": "Evacuation transport",
	"HAZMAT_CONTAINMENT":   "Hazmat containment",
}

func capabilityDisplayName(code string) string {
	if name, ok := capabilityDisplayNames[code]; ok {
		return name
	}
	return code
}
