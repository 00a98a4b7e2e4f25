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

import "github.com/emergency-ai/decision-core/pkg/domain"

// ScoreSolution computes the five normalized ∈[0,1] dimension scores for
// solution, per §6's table; WeightedScore combines them.
func ScoreSolution(solution domain.AllocationSolution, weights domain.EvaluationWeights, similarityBoost float64) domain.SoftScores {
	scores := domain.SoftScores{
		SuccessRate:  successRate(solution, similarityBoost),
		ResponseTime: responseTimeScore(solution.ResponseTimeMin),
		CoverageRate: clamp01(solution.CoverageRate),
		Risk:         clamp01(1 - solution.RiskLevel),
		Redundancy:   redundancyScore(solution),
	}
	return scores
}

// WeightedScore combines the five dimension scores using weights as
// given. Neither this function nor its callers check that the weights
// sum to 1.0.
func WeightedScore(scores domain.SoftScores, weights domain.EvaluationWeights) float64 {
	return scores.SuccessRate*weights.SuccessRate +
		scores.ResponseTime*weights.ResponseTime +
		scores.CoverageRate*weights.CoverageRate +
		scores.Risk*weights.Risk +
		scores.Redundancy*weights.Redundancy
}

// successRate is the mean match_score across allocations, boosted by the
// RAG similarity signal and clamped to [0,1].
func successRate(solution domain.AllocationSolution, similarityBoost float64) float64 {
	if len(solution.Allocations) == 0 {
		return clamp01(similarityBoost)
	}
	total := 0.0
	for _, a := range solution.Allocations {
		total += a.MatchScore
	}
	mean := total / float64(len(solution.Allocations))
	return clamp01(mean + similarityBoost*0.1)
}

// responseTimeScore is max(0, 1 − response_time_min/120).
func responseTimeScore(responseTimeMin float64) float64 {
	score := 1 - responseTimeMin/120
	if score < 0 {
		return 0
	}
	return score
}

// redundancyScore averages, over each required capability covered, the
// count of additional (beyond the first) candidates covering it, clamped
// to [0,1]. Only capabilities actually assigned in the solution count.
func redundancyScore(solution domain.AllocationSolution) float64 {
	counts := map[string]int{}
	for _, a := range solution.Allocations {
		for _, capCode := range a.AssignedCapabilities {
			counts[capCode]++
		}
	}
	if len(counts) == 0 {
		return 0
	}
	total := 0.0
	for _, c := range counts {
		extra := c - 1
		if extra < 0 {
			extra = 0
		}
		total += float64(extra)
	}
	return clamp01(total / float64(len(counts)))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
