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

package matching

import (
	"context"
	"sort"

	"github.com/emergency-ai/decision-core/internal/config"
	"github.com/emergency-ai/decision-core/pkg/domain"
)

// Result is the matcher's output: scored candidates plus whatever
// capability codes remained uncovered after radius expansion exhausted.
type Result struct {
	Candidates            []domain.ResourceCandidate
	InitialRadiusKM       float64
	FinalRadiusKM         float64
	ExpansionCount        int
	UncoveredCapabilities []string
}

// Match implements §4.5's query + radius-expansion + scoring contract.
func Match(
	ctx context.Context,
	registry Registry,
	cfg config.MatchingConfig,
	constraints domain.Constraints,
	parsed domain.ParsedDisaster,
	event domain.Location,
	requiredCaps []domain.CapabilityRequirement,
) (Result, error) {
	allTeams, err := registry.StandbyTeams(ctx)
	if err != nil {
		return Result{}, err
	}

	required := make(map[string]bool, len(requiredCaps))
	for _, c := range requiredCaps {
		required[c.CapabilityCode] = true
	}

	limit := TeamCap(parsed, constraints)
	radius := constraints.MaxResponseTimeHours * cfg.AverageSpeedKMH
	if radius <= 0 {
		radius = cfg.AverageSpeedKMH
	}
	initialRadius := radius

	var teams []nearbyTeam
	expansions := 0
	for {
		teams = withinRadius(allTeams, event, radius, limit)
		covered := coveredCapabilities(teams, required)
		if len(covered) >= len(required) || radius >= cfg.MaxRadiusKM {
			break
		}
		radius += cfg.RadiusStepKM
		expansions++
	}

	covered := coveredCapabilities(teams, required)
	uncovered := make([]string, 0)
	for code := range required {
		if !covered[code] {
			uncovered = append(uncovered, code)
		}
	}
	sort.Strings(uncovered)

	candidates := scoreCandidates(teams, required, constraints.MaxResponseTimeHours, cfg.AverageSpeedKMH)

	return Result{
		Candidates:            candidates,
		InitialRadiusKM:       initialRadius,
		FinalRadiusKM:         radius,
		ExpansionCount:        expansions,
		UncoveredCapabilities: uncovered,
	}, nil
}

func coveredCapabilities(teams []nearbyTeam, required map[string]bool) map[string]bool {
	covered := map[string]bool{}
	for _, nt := range teams {
		for _, c := range nt.team.Capabilities {
			if required[c] {
				covered[c] = true
			}
		}
	}
	return covered
}

// scoreCandidates computes match_score per §4.5's weighted formula,
// discards teams with no capability overlap, and sorts by match_score
// descending.
func scoreCandidates(teams []nearbyTeam, required map[string]bool, maxResponseHours, averageSpeedKMH float64) []domain.ResourceCandidate {
	if maxResponseHours <= 0 {
		maxResponseHours = 1
	}
	maxRangeKM := maxResponseHours * averageSpeedKMH

	out := make([]domain.ResourceCandidate, 0, len(teams))
	for _, nt := range teams {
		t := nt.team
		overlap := intersect(t.Capabilities, required)
		if len(overlap) == 0 {
			continue
		}

		capabilityScore := float64(len(overlap)) / float64(len(required))
		distanceScore := 0.0
		if maxRangeKM > 0 {
			distanceScore = 1 - nt.distance/maxRangeKM
			if distanceScore < 0 {
				distanceScore = 0
			}
		}
		levelScore := float64(t.CapabilityLevel) / 5.0
		matchScore := 0.50*capabilityScore + 0.30*distanceScore + 0.20*levelScore

		out = append(out, domain.ResourceCandidate{
			ResourceID:      t.ID,
			ResourceName:    t.Name,
			ResourceType:    t.ResourceType,
			Capabilities:    []string(t.Capabilities),
			DistanceKM:      nt.distance,
			ETAMinutes:      nt.distance / averageSpeedKMH * 60,
			CapabilityLevel: t.CapabilityLevel,
			Personnel:       t.Personnel,
			MatchScore:      matchScore,
			RescueCapacity:  rescueCapacity(t.Personnel),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MatchScore > out[j].MatchScore
	})
	return out
}

func intersect(capabilities []string, required map[string]bool) []string {
	out := make([]string, 0, len(capabilities))
	for _, c := range capabilities {
		if required[c] {
			out = append(out, c)
		}
	}
	return out
}

// rescueCapacity supplements domain.ResourceCandidate.RescueCapacity per
// original_source/state.py: personnel*2, floor 5.
func rescueCapacity(personnel int) int {
	capacity := personnel * 2
	if capacity < 5 {
		return 5
	}
	return capacity
}
