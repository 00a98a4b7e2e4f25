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

package allocation

import "github.com/emergency-ai/decision-core/pkg/domain"

// nsga2Threshold is the candidate-pool size above which NSGA-II is
// attempted in place of the greedy fallback, per §4.5.
const nsga2Threshold = 10

// Allocate selects up to nAlternatives AllocationSolutions from candidates,
// using NSGA-II when the candidate pool is large enough to make the
// evolutionary search worthwhile and falling back to the three-order
// greedy heuristic otherwise, or if NSGA-II yields nothing usable.
func Allocate(candidates []domain.ResourceCandidate, required []string, nAlternatives int) []domain.AllocationSolution {
	if nAlternatives <= 0 {
		nAlternatives = 3
	}

	if len(candidates) > nsga2Threshold {
		if solutions := NSGA2(candidates, required, nAlternatives); len(solutions) > 0 {
			return solutions
		}
	}

	solutions := Greedy(candidates, required)
	if len(solutions) > nAlternatives {
		solutions = solutions[:nAlternatives]
	}
	return solutions
}
