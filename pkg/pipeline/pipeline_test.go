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

package pipeline

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/emergency-ai/decision-core/internal/config"
	"github.com/emergency-ai/decision-core/pkg/domain"
	"github.com/emergency-ai/decision-core/pkg/evaluation"
	"github.com/emergency-ai/decision-core/pkg/htn"
	"github.com/emergency-ai/decision-core/pkg/llm"
	"github.com/emergency-ai/decision-core/pkg/matching"
	"github.com/emergency-ai/decision-core/pkg/rag"
	"github.com/emergency-ai/decision-core/pkg/reasoning"
)

func earthquakeLibrary() *htn.Library {
	return &htn.Library{
		MetaTasks: map[string]htn.MetaTask{
			"MT_SCENE_SURVEY":    {ID: "MT_SCENE_SURVEY", Name: "Scene Survey", Priority: domain.PriorityCritical},
			"MT_LIFE_DETECTION":  {ID: "MT_LIFE_DETECTION", Name: "Life Detection", Priority: domain.PriorityCritical},
			"MT_STRUCTURAL_SHORE": {ID: "MT_STRUCTURAL_SHORE", Name: "Structural Shoring", Priority: domain.PriorityHigh},
			"MT_MEDICAL_TRIAGE":  {ID: "MT_MEDICAL_TRIAGE", Name: "Medical Triage", Priority: domain.PriorityHigh},
		},
		Chains: map[string]htn.Chain{
			"EQ-BASIC": {
				ChainID: "EQ-BASIC",
				Steps: []htn.ChainStep{
					{MTID: "MT_SCENE_SURVEY"},
					{MTID: "MT_LIFE_DETECTION", DependsOn: []string{"MT_SCENE_SURVEY"}},
					{MTID: "MT_STRUCTURAL_SHORE", DependsOn: []string{"MT_LIFE_DETECTION"}},
					{MTID: "MT_MEDICAL_TRIAGE", DependsOn: []string{"MT_LIFE_DETECTION"}},
				},
			},
		},
		SceneChainMap: map[string]string{"EQ_COLLAPSE": "EQ-BASIC"},
	}
}

func earthquakeRules() map[domain.DisasterType][]reasoning.Rule {
	return map[domain.DisasterType][]reasoning.Rule{
		domain.DisasterEarthquake: {
			{
				RuleID: "R1", RuleName: "Collapse Response", SceneCode: "EQ_COLLAPSE",
				Priority: domain.PriorityCritical, Weight: 1.0, Sequence: 1,
				TriggeredTaskCodes:      []string{"MT_SCENE_SURVEY", "MT_LIFE_DETECTION"},
				RequiredCapabilityCodes: []string{"LIFE_DETECTION", "STRUCTURAL_RESCUE"},
				Conditions:              []reasoning.Condition{{Field: "has_building_collapse", Op: "==", Literal: true}},
				Combinator:              reasoning.CombinatorAND,
			},
			{
				RuleID: "R2", RuleName: "Medical Response", SceneCode: "EQ_COLLAPSE",
				Priority: domain.PriorityHigh, Weight: 0.8, Sequence: 2,
				TriggeredTaskCodes:      []string{"MT_MEDICAL_TRIAGE"},
				RequiredCapabilityCodes: []string{"MEDICAL_TRIAGE"},
				Conditions:              []reasoning.Condition{{Field: "has_trapped_persons", Op: "==", Literal: true}},
				Combinator:              reasoning.CombinatorAND,
			},
		},
	}
}

func standbyTeams() []matching.Team {
	teams := make([]matching.Team, 0, 6)
	caps := [][]string{
		{"LIFE_DETECTION", "STRUCTURAL_RESCUE"},
		{"MEDICAL_TRIAGE"},
		{"LIFE_DETECTION"},
		{"STRUCTURAL_RESCUE", "MEDICAL_TRIAGE"},
		{"LIFE_DETECTION", "STRUCTURAL_RESCUE", "MEDICAL_TRIAGE"},
		{"MEDICAL_TRIAGE"},
	}
	for i, c := range caps {
		teams = append(teams, matching.Team{
			ID: "team-" + string(rune('1'+i)), Name: "Team", ResourceType: "fire_rescue",
			Capabilities: c, Latitude: 31.68 + float64(i)*0.05, Longitude: 103.85 + float64(i)*0.05,
			Personnel: 10, CapabilityLevel: 3, Status: "standby",
		})
	}
	return teams
}

func newOrchestrator(parseResult *domain.ParsedDisaster, explainErr error) *Orchestrator {
	return &Orchestrator{
		LLMClient: &llm.FakeClient{
			ParseResult: parseResult,
			Explanation: &llm.Explanation{Summary: "deploy life-detection and structural teams"},
			ExplainErr:  explainErr,
		},
		RAGStore:       &rag.FakeStore{Cases: []domain.SimilarCase{{CaseID: "c1", SimilarityScore: 0.8}}},
		KG:             &reasoning.FakeKG{Rules: earthquakeRules()},
		HTNLibrary:     earthquakeLibrary(),
		Registry:       &matching.FakeRegistry{Teams: standbyTeams()},
		MatchingConfig: config.DefaultMatchingConfig(),
		HardRules:      evaluation.NewHardRuleEvaluator(context.Background(), "", nil),
		HardRuleConfig: evaluation.DefaultHardRuleConfig(),
	}
}

func earthquakeRequest() domain.Request {
	return domain.Request{
		EventID:             "evt-1",
		ScenarioID:          "scn-1",
		DisasterDescription: "M6.5 earthquake, building collapse, ~200 trapped, 15000 affected",
		StructuredInput: map[string]interface{}{
			"location": map[string]interface{}{"latitude": 31.68, "longitude": 103.85},
		},
		Constraints: domain.DefaultConstraints(),
	}
}

var _ = Describe("Orchestrator.Analyze", func() {
	It("runs the nominal earthquake scenario end to end with the expected trace", func() {
		parsed := &domain.ParsedDisaster{
			DisasterType: domain.DisasterEarthquake, Severity: domain.SeverityCritical,
			Magnitude: ptr(6.5), DepthKM: ptr(10), HasBuildingCollapse: true,
			HasTrappedPersons: true, EstimatedTrapped: 200,
		}
		o := newOrchestrator(parsed, nil)

		output := o.Analyze(context.Background(), earthquakeRequest())

		Expect(output.Success).To(BeTrue())
		Expect(output.RecommendedScheme).ToNot(BeNil())
		Expect(output.RecommendedScheme.ResponseTimeMin).To(BeNumerically("<=", 120))
		Expect(output.RecommendedScheme.CoverageRate).To(Equal(1.0))
		Expect(output.HTNDecomposition.TaskSequence).To(HaveLen(4))
		Expect(output.Trace.PhasesExecuted).To(Equal([]string{
			"understand_disaster", "enhance_with_cases",
			"query_rules", "apply_rules",
			"htn_decompose",
			"match_resources", "optimize_allocation",
			"filter_hard_rules", "score_soft_rules", "explain_scheme",
			"generate_output",
		}))
		Expect(output.Trace.InitialDistanceKM).To(BeNumerically(">", 0))
		Expect(output.Trace.FinalDistanceKM).To(BeNumerically(">=", output.Trace.InitialDistanceKM))
	})

	It("short-circuits to output assembly when disaster parsing fails", func() {
		o := newOrchestrator(nil, nil)
		o.LLMClient = &llm.FakeClient{ParseErr: fakeErr("llm down")}

		output := o.Analyze(context.Background(), earthquakeRequest())

		Expect(output.Success).To(BeFalse())
		Expect(output.Errors).ToNot(BeEmpty())
		Expect(output.Trace.PhasesExecuted).To(Equal([]string{"understand_disaster", "enhance_with_cases", "generate_output"}))
	})

	It("succeeds with an empty similar-case list when the RAG search fails", func() {
		parsed := &domain.ParsedDisaster{
			DisasterType: domain.DisasterEarthquake, Severity: domain.SeverityCritical,
			Magnitude: ptr(6.5), DepthKM: ptr(10), HasBuildingCollapse: true,
			HasTrappedPersons: true, EstimatedTrapped: 200,
		}
		o := newOrchestrator(parsed, nil)
		o.RAGStore = &rag.FakeStore{Err: fakeErr("vector store down")}

		output := o.Analyze(context.Background(), earthquakeRequest())

		Expect(output.Success).To(BeTrue())
		Expect(output.Understanding.SimilarCases).To(BeEmpty())
		Expect(output.Understanding.Summary).ToNot(BeEmpty())
	})

	It("still recommends a scored scheme for an overwhelming trapped count", func() {
		parsed := &domain.ParsedDisaster{
			DisasterType: domain.DisasterEarthquake, Severity: domain.SeverityCritical,
			Magnitude: ptr(8.0), DepthKM: ptr(10), HasBuildingCollapse: true,
			HasTrappedPersons: true, EstimatedTrapped: 500, AffectedPopulation: 50000,
		}
		o := newOrchestrator(parsed, nil)

		output := o.Analyze(context.Background(), earthquakeRequest())

		Expect(output.Success).To(BeTrue())
		Expect(output.RecommendedScheme).ToNot(BeNil())
		Expect(output.Optimization.SchemeScores).ToNot(BeEmpty())
	})

	It("falls back to a minimal explanation when the LLM explain call fails", func() {
		parsed := &domain.ParsedDisaster{
			DisasterType: domain.DisasterEarthquake, Severity: domain.SeverityCritical,
			Magnitude: ptr(6.5), DepthKM: ptr(10), HasBuildingCollapse: true,
			HasTrappedPersons: true, EstimatedTrapped: 200,
		}
		o := newOrchestrator(parsed, fakeErr("llm down"))

		output := o.Analyze(context.Background(), earthquakeRequest())

		Expect(output.Success).To(BeTrue())
		Expect(output.SchemeExplanation).To(ContainSubstring("teams allocated"))
	})
})

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

func ptr(v float64) *float64 { return &v }
