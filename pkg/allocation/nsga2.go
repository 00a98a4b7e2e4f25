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

import (
	"math/rand"
	"sort"

	"github.com/emergency-ai/decision-core/pkg/domain"
)

// No multi-objective evolutionary algorithm library appears anywhere in
// the corpus (not in the teacher, not in the rest of the retrieved pack),
// so NSGA-II is hand-rolled here against the standard library per
// DESIGN.md's grounding ledger, the one deliberate stdlib-only exception.

const (
	nsga2Population  = 50
	nsga2Generations = 50
	nsga2Seed        = 42
	coverageFloor    = 0.70
)

// individual is a binary-encoded selection over the candidate pool: gene[i]
// true means candidate i is selected.
type individual struct {
	genes      []bool
	objectives [3]float64 // (max eta, -coverage_rate, teams_count)
	rank       int
	crowding   float64
}

// NSGA2 runs the algorithm described in §4.5 over candidates, returning up
// to nAlternatives distinct AllocationSolutions ordered by coverage_rate
// descending.
func NSGA2(candidates []domain.ResourceCandidate, required []string, nAlternatives int) []domain.AllocationSolution {
	if len(candidates) == 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(nsga2Seed))

	population := initPopulation(rng, len(candidates))
	evaluatePopulation(population, candidates, required)

	for gen := 0; gen < nsga2Generations; gen++ {
		offspring := reproduce(rng, population, len(candidates))
		evaluatePopulation(offspring, candidates, required)

		combined := append(append([]*individual{}, population...), offspring...)
		combined = dedupeIndividuals(combined)
		fronts := fastNonDominatedSort(combined)
		population = selectNextGeneration(fronts, nsga2Population)
	}

	fronts := fastNonDominatedSort(population)
	if len(fronts) == 0 {
		return nil
	}
	paretoFront := fronts[0]

	solutions := make([]domain.AllocationSolution, 0, len(paretoFront))
	for _, ind := range paretoFront {
		solutions = append(solutions, decodeIndividual(ind, candidates, required))
	}
	solutions = dedupeSolutions(solutions)

	sort.SliceStable(solutions, func(i, j int) bool {
		return solutions[i].CoverageRate > solutions[j].CoverageRate
	})

	if len(solutions) > nAlternatives {
		solutions = solutions[:nAlternatives]
	}
	return solutions
}

func initPopulation(rng *rand.Rand, n int) []*individual {
	pop := make([]*individual, 0, nsga2Population)
	for i := 0; i < nsga2Population; i++ {
		genes := make([]bool, n)
		for j := range genes {
			genes[j] = rng.Float64() < 0.3
		}
		pop = append(pop, &individual{genes: genes})
	}
	return pop
}

func evaluatePopulation(pop []*individual, candidates []domain.ResourceCandidate, required []string) {
	for _, ind := range pop {
		ind.objectives = evaluateIndividual(ind, candidates, required)
	}
}

func evaluateIndividual(ind *individual, candidates []domain.ResourceCandidate, required []string) [3]float64 {
	coveredSet := map[string]bool{}
	maxETA := 0.0
	teamsCount := 0
	for i, selected := range ind.genes {
		if !selected {
			continue
		}
		c := candidates[i]
		teamsCount++
		if c.ETAMinutes > maxETA {
			maxETA = c.ETAMinutes
		}
		for _, capCode := range c.Capabilities {
			coveredSet[capCode] = true
		}
	}

	coverage := 1.0
	if len(required) > 0 {
		covered := 0
		for _, r := range required {
			if coveredSet[r] {
				covered++
			}
		}
		coverage = float64(covered) / float64(len(required))
	}

	if coverageFloor-coverage > 0 {
		return [3]float64{1000, 0, 1000}
	}
	return [3]float64{maxETA, -coverage, float64(teamsCount)}
}

// reproduce applies SBX-like crossover and polynomial-mutation-like bit
// flips over the binary encoding to produce an offspring population the
// same size as parents.
func reproduce(rng *rand.Rand, parents []*individual, n int) []*individual {
	offspring := make([]*individual, 0, len(parents))
	for len(offspring) < len(parents) {
		p1 := parents[rng.Intn(len(parents))]
		p2 := parents[rng.Intn(len(parents))]
		child := sbxCrossover(rng, p1, p2)
		polynomialMutate(rng, child)
		offspring = append(offspring, child)
	}
	return offspring
}

func sbxCrossover(rng *rand.Rand, p1, p2 *individual) *individual {
	genes := make([]bool, len(p1.genes))
	for i := range genes {
		if rng.Float64() < 0.5 {
			genes[i] = p1.genes[i]
		} else {
			genes[i] = p2.genes[i]
		}
	}
	return &individual{genes: genes}
}

func polynomialMutate(rng *rand.Rand, ind *individual) {
	mutationRate := 1.0 / float64(len(ind.genes))
	for i := range ind.genes {
		if rng.Float64() < mutationRate {
			ind.genes[i] = !ind.genes[i]
		}
	}
}

func dedupeIndividuals(pop []*individual) []*individual {
	seen := map[string]bool{}
	out := make([]*individual, 0, len(pop))
	for _, ind := range pop {
		key := geneKey(ind.genes)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ind)
	}
	return out
}

func geneKey(genes []bool) string {
	buf := make([]byte, len(genes))
	for i, g := range genes {
		if g {
			buf[i] = '1'
		} else {
			buf[i] = '0'
		}
	}
	return string(buf)
}

// dominates reports whether a dominates b: no worse in every objective
// and strictly better in at least one (all objectives are minimized).
func dominates(a, b *individual) bool {
	betterInAny := false
	for i := 0; i < 3; i++ {
		if a.objectives[i] > b.objectives[i] {
			return false
		}
		if a.objectives[i] < b.objectives[i] {
			betterInAny = true
		}
	}
	return betterInAny
}

func fastNonDominatedSort(pop []*individual) [][]*individual {
	dominatedBy := make(map[*individual][]*individual, len(pop))
	dominationCount := make(map[*individual]int, len(pop))
	var fronts [][]*individual
	front0 := []*individual{}

	for _, p := range pop {
		for _, q := range pop {
			if p == q {
				continue
			}
			if dominates(p, q) {
				dominatedBy[p] = append(dominatedBy[p], q)
			} else if dominates(q, p) {
				dominationCount[p]++
			}
		}
		if dominationCount[p] == 0 {
			p.rank = 0
			front0 = append(front0, p)
		}
	}
	fronts = append(fronts, front0)

	i := 0
	for len(fronts[i]) > 0 {
		var next []*individual
		for _, p := range fronts[i] {
			for _, q := range dominatedBy[p] {
				dominationCount[q]--
				if dominationCount[q] == 0 {
					q.rank = i + 1
					next = append(next, q)
				}
			}
		}
		i++
		if len(next) == 0 {
			break
		}
		fronts = append(fronts, next)
	}
	return fronts
}

func crowdingDistance(front []*individual) {
	n := len(front)
	if n == 0 {
		return
	}
	for _, ind := range front {
		ind.crowding = 0
	}
	for obj := 0; obj < 3; obj++ {
		sort.Slice(front, func(i, j int) bool { return front[i].objectives[obj] < front[j].objectives[obj] })
		front[0].crowding = mathInf()
		front[n-1].crowding = mathInf()
		min := front[0].objectives[obj]
		max := front[n-1].objectives[obj]
		if max == min {
			continue
		}
		for i := 1; i < n-1; i++ {
			front[i].crowding += (front[i+1].objectives[obj] - front[i-1].objectives[obj]) / (max - min)
		}
	}
}

func mathInf() float64 {
	return 1e18
}

func selectNextGeneration(fronts [][]*individual, capacity int) []*individual {
	next := make([]*individual, 0, capacity)
	for _, front := range fronts {
		if len(next)+len(front) <= capacity {
			next = append(next, front...)
			continue
		}
		crowdingDistance(front)
		remaining := capacity - len(next)
		sorted := append([]*individual{}, front...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].crowding > sorted[j].crowding })
		next = append(next, sorted[:remaining]...)
		break
	}
	return next
}

func decodeIndividual(ind *individual, candidates []domain.ResourceCandidate, required []string) domain.AllocationSolution {
	covered := map[string]bool{}
	var allocations []domain.Allocation
	for i, selected := range ind.genes {
		if !selected {
			continue
		}
		c := candidates[i]
		assigned := make([]string, 0, len(c.Capabilities))
		for _, capCode := range c.Capabilities {
			if contains(required, capCode) && !covered[capCode] {
				assigned = append(assigned, capCode)
				covered[capCode] = true
			}
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

func contains(items []string, item string) bool {
	for _, i := range items {
		if i == item {
			return true
		}
	}
	return false
}
