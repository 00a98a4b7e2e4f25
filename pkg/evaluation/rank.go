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
	"sort"

	"github.com/emergency-ai/decision-core/pkg/domain"
)

// rankPassing assigns ascending rank (1-based) among hard-rule-passing
// scores by weighted_score descending, ties broken by coverage_rate then
// solution_id, per §6.
func rankPassing(scores []*domain.SchemeScore, solutionByID map[string]domain.AllocationSolution) {
	passing := make([]*domain.SchemeScore, 0, len(scores))
	for _, s := range scores {
		if s.HardRulePassed {
			passing = append(passing, s)
		}
	}

	sort.SliceStable(passing, func(i, j int) bool {
		if passing[i].WeightedScore != passing[j].WeightedScore {
			return passing[i].WeightedScore > passing[j].WeightedScore
		}
		ci := solutionByID[passing[i].SchemeID].CoverageRate
		cj := solutionByID[passing[j].SchemeID].CoverageRate
		if ci != cj {
			return ci > cj
		}
		return passing[i].SchemeID < passing[j].SchemeID
	})

	for i, s := range passing {
		s.Rank = i + 1
	}
}
