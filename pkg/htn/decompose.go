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

package htn

import (
	"fmt"
	"sort"

	"github.com/emergency-ai/decision-core/pkg/domain"
)

// Result is the Decomposer's output per §4.4.
type Result struct {
	SceneCodes    []string
	TaskSequence  []domain.TaskSequenceItem
	ParallelTasks []domain.ParallelGroup
}

type mergedNode struct {
	mtID       string
	dependsOn  map[string]bool
	sceneCodes map[string]bool
	order      int
}

// Decompose maps the given scene codes to chains, merges them by
// meta-task id (union of depends_on on collision), then topologically
// sorts the merged graph with Kahn's algorithm. Ties among ready nodes
// break by meta-task priority (critical first) then insertion order.
func Decompose(sceneCodes []string, lib *Library) (Result, error) {
	dedupedScenes := dedupeStrings(sceneCodes)

	nodes := map[string]*mergedNode{}
	var insertionOrder []string

	for _, scene := range dedupedScenes {
		chainID, ok := lib.SceneChainMap[scene]
		if !ok {
			continue
		}
		chain, ok := lib.Chains[chainID]
		if !ok {
			continue
		}
		for _, step := range chain.Steps {
			node, exists := nodes[step.MTID]
			if !exists {
				node = &mergedNode{
					mtID:       step.MTID,
					dependsOn:  map[string]bool{},
					sceneCodes: map[string]bool{},
					order:      len(insertionOrder),
				}
				nodes[step.MTID] = node
				insertionOrder = append(insertionOrder, step.MTID)
			}
			for _, dep := range step.DependsOn {
				node.dependsOn[dep] = true
			}
			node.sceneCodes[scene] = true
		}
	}

	sequence, levels, err := topoSort(nodes, insertionOrder, lib)
	if err != nil {
		return Result{}, err
	}

	taskSequence := make([]domain.TaskSequenceItem, 0, len(sequence))
	for i, mtID := range sequence {
		node := nodes[mtID]
		mt := lib.MetaTasks[mtID]
		taskSequence = append(taskSequence, domain.TaskSequenceItem{
			SequenceIndex: i + 1,
			TaskID:        mtID,
			TaskName:      mt.Name,
			DependsOn:     sortedKeys(node.dependsOn),
			SceneCodes:    sortedKeys(node.sceneCodes),
		})
	}

	maxLevel := 0
	for _, lv := range levels {
		if lv > maxLevel {
			maxLevel = lv
		}
	}
	groups := make([]domain.ParallelGroup, maxLevel+1)
	for _, mtID := range sequence {
		lv := levels[mtID]
		groups[lv].TaskIDs = append(groups[lv].TaskIDs, mtID)
	}

	return Result{
		SceneCodes:    dedupedScenes,
		TaskSequence:  taskSequence,
		ParallelTasks: groups,
	}, nil
}

// topoSort runs Kahn's algorithm over the merged node set. It returns the
// linear order plus each node's topological level (the parallel-group
// index). Ties among currently-ready nodes break by meta-task priority
// (critical < high < medium < low) then original insertion order.
func topoSort(nodes map[string]*mergedNode, insertionOrder []string, lib *Library) ([]string, map[string]int, error) {
	indegree := map[string]int{}
	dependents := map[string][]string{}

	for id, node := range nodes {
		count := 0
		for dep := range node.dependsOn {
			if _, ok := nodes[dep]; ok {
				count++
				dependents[dep] = append(dependents[dep], id)
			}
		}
		indegree[id] = count
	}

	ready := make([]string, 0)
	for _, id := range insertionOrder {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	var order []string
	levels := map[string]int{}

	for len(ready) > 0 {
		sort.SliceStable(ready, func(i, j int) bool {
			pi := domain.PriorityRank(lib.MetaTasks[ready[i]].Priority)
			pj := domain.PriorityRank(lib.MetaTasks[ready[j]].Priority)
			if pi != pj {
				return pi < pj
			}
			return nodes[ready[i]].order < nodes[ready[j]].order
		})

		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		level := 0
		for dep := range nodes[next].dependsOn {
			if _, ok := nodes[dep]; !ok {
				continue
			}
			if levels[dep]+1 > level {
				level = levels[dep] + 1
			}
		}
		levels[next] = level

		for _, dependent := range dependents[next] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(nodes) {
		return nil, nil, fmt.Errorf("htn: dependency cycle detected among meta-tasks")
	}
	return order, levels, nil
}

func dedupeStrings(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
