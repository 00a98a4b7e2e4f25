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

// Package reasoning is the Rule Reasoning stage (§4.3 of spec.md): query
// a knowledge graph for trigger-response rules, evaluate their trigger
// conditions against a parsed disaster via google/cel-go, and derive a
// deduplicated, ordered set of matched rules plus capability requirements.
package reasoning

import (
	"context"

	"github.com/emergency-ai/decision-core/pkg/domain"
)

// Rule is one trigger-response-rule entry as returned by the knowledge
// graph, keyed by disaster_type.
type Rule struct {
	RuleID                  string
	RuleName                string
	SceneCode                string
	Priority                 domain.Priority
	Weight                   float64
	Sequence                 int
	TriggeredTaskCodes       []string
	RequiredCapabilityCodes  []string
	Conditions               []Condition
	Combinator               Combinator
}

// KnowledgeGraph is the adapter contract consumed by the Reasoning stage.
type KnowledgeGraph interface {
	// GetTriggerRules returns every TRR entry keyed by disaster_type.
	GetTriggerRules(ctx context.Context, disasterType domain.DisasterType) ([]Rule, error)
	// GetCapabilityProviders maps capability codes to the resource-type
	// codes known to provide them.
	GetCapabilityProviders(ctx context.Context, capabilityCodes []string) (map[string][]string, error)
}

// NoopKnowledgeGraph always reports no rules and no providers, forcing
// Match onto the builtinRules fallback. It is wired in cmd/decision-service
// when no external knowledge-graph endpoint is configured.
type NoopKnowledgeGraph struct{}

func (NoopKnowledgeGraph) GetTriggerRules(ctx context.Context, disasterType domain.DisasterType) ([]Rule, error) {
	return nil, nil
}

func (NoopKnowledgeGraph) GetCapabilityProviders(ctx context.Context, capabilityCodes []string) (map[string][]string, error) {
	return nil, nil
}
