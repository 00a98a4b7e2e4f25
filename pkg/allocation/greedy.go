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

// Package allocation is the Resource Matcher & Allocator's allocator half
// (§4.5 of spec.md): it turns scored ResourceCandidates into up to
// n_alternatives Pareto-tracing AllocationSolutions, via NSGA-II when
// |candidates| > 10 and a three-order greedy fallback otherwise.
package allocation

import (
	"fmt"
	"sort"

	"github.com/emergency-ai/decision-core/pkg/domain"
	"github.com/google/uuid"
)

// greedyOrder names the three selection orders §4.5 requires.
type greedyOrder int

const (
	orderByMatchScore greedyOrder = iota
	orderByDistance
	orderByAvailability
)

// Greedy produces up to three solutions, one per selection order,
// iterating candidates and selecting any that contribute at least one
// not-yet-covered required capability.
func Greedy(candidates []domain.ResourceCandidate, required []string) []domain.AllocationSolution {
	orders := []greedyOrder{orderByMatchScore, orderByDistance, orderByAvailability}
	solutions := make([]domain.AllocationSolution, 0, len(orders))

	for _, order := range orders {
		ordered := orderCandidates(candidates, order)
		solution := buildGreedySolution(ordered, required)
		solutions = append(solutions, solution)
	}

	return dedupeSolutions(solutions)
}

func orderCandidates(candidates []domain.ResourceCandidate, order greedyOrder) []domain.ResourceCandidate {
	out := append([]domain.ResourceCandidate(nil), candidates...)
	switch order {
	case orderByMatchScore:
		sort.SliceStable(out, func(i, j int) bool { return out[i].MatchScore > out[j].MatchScore })
	case orderByDistance:
		sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKM < out[j].DistanceKM })
	case orderByAvailability:
		// Availability is 1.0 for every post-status-filter candidate, so
		// this degenerates to original (match_score-sorted) order per §4.5.
		sort.SliceStable(out, func(i, j int) bool { return out[i].MatchScore > out[j].MatchScore })
	}
	return out
}

func buildGreedySolution(ordered []domain.ResourceCandidate, required []string) domain.AllocationSolution {
	covered := map[string]bool{}
	var allocations []domain.Allocation

	for _, c := range ordered {
		if len(covered) >= len(required) {
			break
		}
		newCaps := newlyCovered(c.Capabilities, required, covered)
		if len(newCaps) == 0 {
			continue
		}
		for _, capCode := range newCaps {
			covered[capCode] = true
		}
		assigned := newCaps
		if len(assigned) == 0 {
			assigned = intersectRequired(c.Capabilities, required)
		}
		allocations = append(allocations, domain.Allocation{
			ResourceID:           c.ResourceID,
			ResourceName:         c.ResourceName,
			AssignedCapabilities: assigned,
			DistanceKM:           c.DistanceKM,
			ETAMinutes:           c.ETAMinutes,
			MatchScore:           c.MatchScore,
		})
	}

	return assembleSolution(allocations, required)
}

// newlyCovered returns, in insertion order, the capabilities from c that
// are in required but not yet in covered.
func newlyCovered(capabilities []string, required []string, covered map[string]bool) []string {
	requiredSet := toSet(required)
	out := make([]string, 0, len(capabilities))
	for _, capCode := range capabilities {
		if requiredSet[capCode] && !covered[capCode] {
			out = append(out, capCode)
		}
	}
	return out
}

func intersectRequired(capabilities []string, required []string) []string {
	requiredSet := toSet(required)
	out := make([]string, 0, len(capabilities))
	for _, capCode := range capabilities {
		if requiredSet[capCode] {
			out = append(out, capCode)
		}
	}
	return out
}

func toSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, i := range items {
		out[i] = true
	}
	return out
}

// assembleSolution computes the derived AllocationSolution fields per
// §8's invariants: response_time_min = max eta (0 if empty),
// risk_level = 1 − coverage_rate, coverage_rate over the union of
// assigned capabilities.
func assembleSolution(allocations []domain.Allocation, required []string) domain.AllocationSolution {
	if len(required) == 0 {
		return domain.AllocationSolution{
			SolutionID:   newSolutionID(),
			CoverageRate: 1.0,
		}
	}

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

	coverageRate := float64(len(coveredSet)) / float64(len(required))
	avgScore := 0.0
	if len(allocations) > 0 {
		avgScore = totalScore / float64(len(allocations))
	}

	uncovered := make([]string, 0)
	for _, r := range required {
		if !coveredSet[r] {
			uncovered = append(uncovered, r)
		}
	}
	sort.Strings(uncovered)

	return domain.AllocationSolution{
		SolutionID:            newSolutionID(),
		Allocations:           allocations,
		ResponseTimeMin:       maxETA,
		CoverageRate:          coverageRate,
		TotalScore:            avgScore,
		RiskLevel:             1 - coverageRate,
		UncoveredCapabilities: uncovered,
		TeamsCount:            len(allocations),
	}
}

func newSolutionID() string {
	return fmt.Sprintf("sol-%s", uuid.NewString())
}

// dedupeSolutions removes solutions that select the exact same set of
// resource_ids, keeping the first occurrence.
func dedupeSolutions(solutions []domain.AllocationSolution) []domain.AllocationSolution {
	seen := map[string]bool{}
	out := make([]domain.AllocationSolution, 0, len(solutions))
	for _, s := range solutions {
		key := resourceSetKey(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func resourceSetKey(s domain.AllocationSolution) string {
	ids := make([]string, 0, len(s.Allocations))
	for _, a := range s.Allocations {
		ids = append(ids, a.ResourceID)
	}
	sort.Strings(ids)
	key := ""
	for _, id := range ids {
		key += id + "|"
	}
	return key
}
