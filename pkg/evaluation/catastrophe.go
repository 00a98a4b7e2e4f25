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

package evaluation

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/emergency-ai/decision-core/pkg/domain"
)

// combineSolutions builds the catastrophe-mode "emergency" solution:
// the union of allocations across the candidate solutions, deduplicated
// by resource_id, per §6's "Selection" paragraph.
func combineSolutions(solutions []domain.AllocationSolution, required []string) domain.AllocationSolution {
	seen := map[string]bool{}
	var allocations []domain.Allocation

	ordered := append([]domain.AllocationSolution{}, solutions...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].CoverageRate > ordered[j].CoverageRate })

	for _, s := range ordered {
		for _, a := range s.Allocations {
			if seen[a.ResourceID] {
				continue
			}
			seen[a.ResourceID] = true
			allocations = append(allocations, a)
		}
	}

	return assembleCombinedSolution(allocations, required)
}

func assembleCombinedSolution(allocations []domain.Allocation, required []string) domain.AllocationSolution {
	coveredSet := map[string]bool{}
	maxETA := 0.0
	totalScore := 0.0
	for _, a := range allocations {
		for _, capCode := range a.AssignedCapabilities {
			coveredSet[capCode] = true
		}
		if a.ETAMinutes > maxETA {
			maxETA = a.ETAMinutes
		}
		totalScore += a.MatchScore
	}

	coverageRate := 1.0
	if len(required) > 0 {
		coverageRate = float64(len(coveredSet)) / float64(len(required))
	}
	avgScore := 0.0
	if len(allocations) > 0 {
		avgScore = totalScore / float64(len(allocations))
	}

	var uncovered []string
	for _, r := range required {
		if !coveredSet[r] {
			uncovered = append(uncovered, r)
		}
	}
	sort.Strings(uncovered)

	return domain.AllocationSolution{
		SolutionID:            fmt.Sprintf("sol-combined-%s", uuid.NewString()),
		Allocations:           allocations,
		ResponseTimeMin:       maxETA,
		CoverageRate:          coverageRate,
		TotalScore:            avgScore,
		RiskLevel:             1 - coverageRate,
		UncoveredCapabilities: uncovered,
		TeamsCount:            len(allocations),
	}
}

// capacityGap computes the rescue-capacity shortfall (estimated_trapped
// minus the sum of each allocated candidate's RescueCapacity) against the
// matched-candidate pool, per §4 of SPEC_FULL.md's TotalRescueCapacity.
func capacityGap(estimatedTrapped int, candidates []domain.ResourceCandidate, solution domain.AllocationSolution) (totalCapacity int, gap int) {
	byID := make(map[string]domain.ResourceCandidate, len(candidates))
	for _, c := range candidates {
		byID[c.ResourceID] = c
	}
	for _, a := range solution.Allocations {
		if c, ok := byID[a.ResourceID]; ok {
			totalCapacity += c.RescueCapacity
		}
	}
	gap = estimatedTrapped - totalCapacity
	if gap < 0 {
		gap = 0
	}
	return totalCapacity, gap
}

// reinforcementLevel chooses national/provincial/municipal based on
// coverage, per §6: <30% → national, <50% → provincial, else → municipal.
func reinforcementLevel(coverageRate float64) string {
	switch {
	case coverageRate < 0.30:
		return "national"
	case coverageRate < 0.50:
		return "provincial"
	default:
		return "municipal"
	}
}
