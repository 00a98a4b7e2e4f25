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

import (
	"context"
	"sort"

	"github.com/emergency-ai/decision-core/pkg/domain"
)

// Result is the Reasoning stage's output: matched rules plus the derived
// capability requirements, both deduplicated and ordered per §4.3.
type Result struct {
	MatchedRules           []domain.MatchedRule
	CapabilityRequirements []domain.CapabilityRequirement
	OrderedTaskCodes       []string
	UsedFallback           bool
}

// Match queries the knowledge graph for trigger rules keyed by
// disaster_type, evaluates each rule's trigger conditions, and derives
// the deduplicated, ordered matched-rule and capability-requirement
// lists. A KG failure or an empty rule set falls back to builtinRules.
func Match(ctx context.Context, kg KnowledgeGraph, parsed domain.ParsedDisaster) (Result, error) {
	rules, err := kg.GetTriggerRules(ctx, parsed.DisasterType)
	usedFallback := false
	if err != nil || len(rules) == 0 {
		rules = builtinRules[parsed.DisasterType]
		usedFallback = true
	}

	type triggeredTask struct {
		taskCode string
		sequence int
		priority domain.Priority
		ruleID   string
		ruleName string
		weight   float64
		scene    string
		reason   string
	}

	taskByCode := map[string]*triggeredTask{}
	var taskOrder []string

	requiredCaps := map[string]bool{}
	capPriority := map[string]domain.Priority{}
	var ruleResults []domain.MatchedRule
	sceneSeen := map[string]bool{}

	for _, r := range rules {
		matched, evalErr := Evaluate(r.Conditions, r.Combinator, parsed)
		if evalErr != nil {
			return Result{}, evalErr
		}
		if !matched {
			continue
		}

		for _, taskCode := range r.TriggeredTaskCodes {
			existing, ok := taskByCode[taskCode]
			if !ok {
				t := &triggeredTask{
					taskCode: taskCode,
					sequence: r.Sequence,
					priority: r.Priority,
					ruleID:   r.RuleID,
					ruleName: r.RuleName,
					weight:   r.Weight,
					scene:    r.SceneCode,
					reason:   "trigger condition matched",
				}
				taskByCode[taskCode] = t
				taskOrder = append(taskOrder, taskCode)
				continue
			}
			if r.Sequence < existing.sequence {
				existing.sequence = r.Sequence
			}
			if domain.PriorityRank(r.Priority) < domain.PriorityRank(existing.priority) {
				existing.priority = r.Priority
			}
		}

		for _, capCode := range r.RequiredCapabilityCodes {
			requiredCaps[capCode] = true
			if existing, ok := capPriority[capCode]; !ok || domain.PriorityRank(r.Priority) < domain.PriorityRank(existing) {
				capPriority[capCode] = r.Priority
			}
		}

		if !sceneSeen[r.SceneCode] {
			sceneSeen[r.SceneCode] = true
			ruleResults = append(ruleResults, domain.MatchedRule{
				RuleID:                  r.RuleID,
				RuleName:                r.RuleName,
				Priority:                r.Priority,
				Weight:                  r.Weight,
				SceneCode:               r.SceneCode,
				TriggeredTaskCodes:      append([]string(nil), r.TriggeredTaskCodes...),
				RequiredCapabilityCodes: append([]string(nil), r.RequiredCapabilityCodes...),
				MatchReason:             "trigger condition matched",
			})
		}
	}

	sort.SliceStable(taskOrder, func(i, j int) bool {
		a, b := taskByCode[taskOrder[i]], taskByCode[taskOrder[j]]
		if a.sequence != b.sequence {
			return a.sequence < b.sequence
		}
		return domain.PriorityRank(a.priority) < domain.PriorityRank(b.priority)
	})

	capCodes := make([]string, 0, len(requiredCaps))
	for code := range requiredCaps {
		capCodes = append(capCodes, code)
	}
	sort.Strings(capCodes)

	providers := map[string][]string{}
	if !usedFallback && kg != nil && len(capCodes) > 0 {
		if p, err := kg.GetCapabilityProviders(ctx, capCodes); err == nil {
			providers = p
		}
	}

	capReqs := make([]domain.CapabilityRequirement, 0, len(capCodes))
	for _, code := range capCodes {
		capReqs = append(capReqs, domain.CapabilityRequirement{
			CapabilityCode: code,
			CapabilityName: capabilityDisplayName(code),
			Priority:       capPriority[code],
			ProvidedBy:     providers[code],
		})
	}

	return Result{
		MatchedRules:           ruleResults,
		CapabilityRequirements: capReqs,
		OrderedTaskCodes:       taskOrder,
		UsedFallback:           usedFallback,
	}, nil
}
