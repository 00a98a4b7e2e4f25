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
	"context"
	"strconv"

	"github.com/emergency-ai/decision-core/pkg/domain"
	"github.com/emergency-ai/decision-core/pkg/llm"
)

// Result is the Evaluator's output: the scored/ranked solutions, the
// recommendation (nil only when solutions is empty), and its rendered
// explanation.
type Result struct {
	Scores           []domain.SchemeScore
	Recommended      *domain.AllocationSolution
	RecommendedScore *domain.SchemeScore
	Explanation      string
}

// Evaluate runs the full hard-filter / soft-score / rank / catastrophe /
// explain pipeline over solutions, per §6 of spec.md.
func Evaluate(ctx context.Context, hardRules *HardRuleEvaluator, client llm.Client, solutions []domain.AllocationSolution, candidates []domain.ResourceCandidate, disaster domain.ParsedDisaster, taskSequence []domain.TaskSequenceItem, weights domain.EvaluationWeights, hardCfg HardRuleConfig, similarityBoost float64) Result {
	if len(solutions) == 0 {
		return Result{}
	}

	solutionByID := make(map[string]domain.AllocationSolution, len(solutions))
	for _, s := range solutions {
		solutionByID[s.SolutionID] = s
	}

	scores := make([]*domain.SchemeScore, 0, len(solutions))
	for _, s := range solutions {
		violations, _ := hardRules.Evaluate(ctx, s, hardCfg)
		soft := ScoreSolution(s, weights, similarityBoost)
		scores = append(scores, &domain.SchemeScore{
			SchemeID:           s.SolutionID,
			HardRulePassed:     len(violations) == 0,
			HardRuleViolations: violations,
			SoftRuleScores:     soft,
			WeightedScore:      WeightedScore(soft, weights),
		})
	}

	rankPassing(scores, solutionByID)

	best := bestPassing(scores)
	if best != nil {
		recommended := solutionByID[best.SchemeID]
		explanation := Explain(ctx, client, recommended, disaster, alternativesExcept(solutions, best.SchemeID), taskSequence)
		return Result{
			Scores:           derefScores(scores),
			Recommended:      &recommended,
			RecommendedScore: best,
			Explanation:      explanation,
		}
	}

	return catastropheResult(ctx, client, scores, solutions, candidates, disaster, taskSequence, weights, similarityBoost)
}

func bestPassing(scores []*domain.SchemeScore) *domain.SchemeScore {
	for _, s := range scores {
		if s.HardRulePassed && s.Rank == 1 {
			return s
		}
	}
	return nil
}

func catastropheResult(ctx context.Context, client llm.Client, scores []*domain.SchemeScore, solutions []domain.AllocationSolution, candidates []domain.ResourceCandidate, disaster domain.ParsedDisaster, taskSequence []domain.TaskSequenceItem, weights domain.EvaluationWeights, similarityBoost float64) Result {
	required := unionRequired(solutions)
	combined := combineSolutions(solutions, required)

	totalCapacity, gap := capacityGap(disaster.EstimatedTrapped, candidates, combined)
	combined.TotalRescueCapacity = totalCapacity
	if disaster.EstimatedTrapped > 0 {
		combined.CapacityCoverageRate = clamp01(float64(totalCapacity) / float64(disaster.EstimatedTrapped))
	} else {
		combined.CapacityCoverageRate = 1.0
	}

	soft := ScoreSolution(combined, weights, similarityBoost)
	weighted := WeightedScore(soft, weights)

	level := reinforcementLevel(combined.CoverageRate)
	requiresReinforcement := gap > 0 || combined.CoverageRate < 0.70

	combinedScore := &domain.SchemeScore{
		SchemeID:              combined.SolutionID,
		HardRulePassed:        false,
		HardRuleViolations:    []string{"no candidate solution satisfied the hard-rule set"},
		SoftRuleScores:        soft,
		WeightedScore:         weighted,
		Rank:                  1,
		CatastropheMode:       true,
		RequiresReinforcement: requiresReinforcement,
		ReinforcementLevel:    level,
	}
	if requiresReinforcement {
		combinedScore.ReinforcementMessage = reinforcementMessage(level, gap)
		combinedScore.CapacityWarning = capacityWarning(gap)
		combined.CapacityWarning = combinedScore.CapacityWarning
	}
	combined.ExecutionPath = "catastrophe"

	allScores := append(derefScores(scores), *combinedScore)

	explanation := Explain(ctx, client, combined, disaster, solutions, taskSequence)

	return Result{
		Scores:           allScores,
		Recommended:      &combined,
		RecommendedScore: combinedScore,
		Explanation:      explanation,
	}
}

func unionRequired(solutions []domain.AllocationSolution) []string {
	set := map[string]bool{}
	for _, s := range solutions {
		for _, a := range s.Allocations {
			for _, c := range a.AssignedCapabilities {
				set[c] = true
			}
		}
		for _, c := range s.UncoveredCapabilities {
			set[c] = true
		}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

func reinforcementMessage(level string, gap int) string {
	switch level {
	case "national":
		return "Capacity gap is severe; request national-level reinforcement."
	case "provincial":
		return "Capacity gap is significant; request provincial-level reinforcement."
	default:
		return "Capacity gap noted; request municipal-level reinforcement."
	}
}

func capacityWarning(gap int) string {
	if gap <= 0 {
		return ""
	}
	return "estimated rescue-capacity gap of " + strconv.Itoa(gap)
}

func alternativesExcept(solutions []domain.AllocationSolution, exceptID string) []domain.AllocationSolution {
	out := make([]domain.AllocationSolution, 0, len(solutions))
	for _, s := range solutions {
		if s.SolutionID == exceptID {
			continue
		}
		out = append(out, s)
	}
	return out
}

func derefScores(scores []*domain.SchemeScore) []domain.SchemeScore {
	out := make([]domain.SchemeScore, 0, len(scores))
	for _, s := range scores {
		out = append(out, *s)
	}
	return out
}
