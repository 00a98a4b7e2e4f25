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

// Package pipeline is the Pipeline Orchestrator (§3 of spec.md): a
// straight chain of named stages with conditional short-circuits to
// output assembly, mirroring the teacher's workflow-graph construction
// in shape (a fixed node/edge list with named continuation predicates)
// though expressed as a direct Go call chain rather than a graph
// library, since nothing in the retrieved pack depends on one.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/emergency-ai/decision-core/internal/config"
	"github.com/emergency-ai/decision-core/pkg/allocation"
	"github.com/emergency-ai/decision-core/pkg/domain"
	"github.com/emergency-ai/decision-core/pkg/evaluation"
	"github.com/emergency-ai/decision-core/pkg/htn"
	"github.com/emergency-ai/decision-core/pkg/llm"
	"github.com/emergency-ai/decision-core/pkg/matching"
	"github.com/emergency-ai/decision-core/pkg/rag"
	"github.com/emergency-ai/decision-core/pkg/reasoning"
	"github.com/emergency-ai/decision-core/pkg/telemetry"
	"github.com/emergency-ai/decision-core/pkg/understanding"
)

// Orchestrator wires every stage adapter and runs Analyze end to end.
type Orchestrator struct {
	LLMClient      llm.Client
	RAGStore       rag.Store
	KG             reasoning.KnowledgeGraph
	HTNLibrary     *htn.Library
	Registry       matching.Registry
	MatchingConfig config.MatchingConfig
	HardRules      *evaluation.HardRuleEvaluator
	HardRuleConfig evaluation.HardRuleConfig
	Logger         *logrus.Logger
	Metrics        *telemetry.Metrics
}

// withStage runs fn inside a trace span named for the pipeline stage and
// records its duration and outcome in o.Metrics. o.Metrics may be nil (tests
// construct an Orchestrator without a metrics registry); telemetry.Metrics
// already treats a nil receiver as a no-op.
func (o *Orchestrator) withStage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := telemetry.StartSpan(ctx, name)
	defer span.End()
	start := time.Now()
	err := fn(ctx)
	o.Metrics.ObserveStage(name, time.Since(start), err)
	return err
}

// Analyze runs the full decision pipeline for req and always returns an
// Output -- even on an aborted run, success is false and errors explain
// why, per the propagation policy of §7 of spec.md.
func (o *Orchestrator) Analyze(ctx context.Context, req domain.Request) domain.Output {
	start := time.Now()
	if !req.Deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, req.Deadline)
		defer cancel()
	}

	state := domain.NewState(req)
	o.run(ctx, state)
	out := assemble(state, start)
	o.Metrics.ObserveRun(out.Success)
	return out
}

func (o *Orchestrator) run(ctx context.Context, state *domain.State) {
	var result understanding.Result
	err := o.withStage(ctx, "understand_disaster", func(ctx context.Context) error {
		var uErr error
		result, uErr = understanding.Understand(ctx, o.LLMClient, o.RAGStore, state.Request.DisasterDescription, state.Request.StructuredInput, o.Logger)
		return uErr
	})
	state.Trace.Append("understand_disaster")
	state.Trace.Append("enhance_with_cases")
	state.Trace.RAGCalls++
	state.Trace.LLMCalls++
	if result.RAGDegraded {
		state.Trace.Notes["rag_degraded"] = true
	}
	if err != nil {
		state.AddError(fmt.Sprintf("disaster understanding failed: %s", err))
		return
	}
	state.ParsedDisaster = result.ParsedDisaster
	state.SimilarCases = result.SimilarCases
	state.UnderstandingSummary = result.Summary

	if !shouldContinueAfterUnderstanding(state) {
		return
	}

	var reasoningResult reasoning.Result
	err = o.withStage(ctx, "apply_rules", func(ctx context.Context) error {
		var rErr error
		reasoningResult, rErr = reasoning.Match(ctx, o.KG, *state.ParsedDisaster)
		return rErr
	})
	state.Trace.Append("query_rules")
	state.Trace.Append("apply_rules")
	state.Trace.KGCalls++
	if reasoningResult.UsedFallback {
		state.Trace.Notes["kg_fallback"] = true
	}
	if err != nil {
		state.AddError(fmt.Sprintf("rule reasoning failed: %s", err))
		return
	}
	state.MatchedRules = reasoningResult.MatchedRules
	state.CapabilityRequirements = reasoningResult.CapabilityRequirements

	if !shouldContinueAfterRules(state) {
		return
	}

	sceneCodes := sceneCodesFromRules(state.MatchedRules)
	var htnResult htn.Result
	err = o.withStage(ctx, "htn_decompose", func(ctx context.Context) error {
		var hErr error
		htnResult, hErr = htn.Decompose(sceneCodes, o.HTNLibrary)
		return hErr
	})
	state.Trace.Append("htn_decompose")
	if err != nil {
		state.AddError(fmt.Sprintf("task decomposition failed: %s", err))
		return
	}
	state.SceneCodes = htnResult.SceneCodes
	state.TaskSequence = htnResult.TaskSequence
	state.ParallelTasks = htnResult.ParallelTasks

	if !shouldContinueAfterHTNDecompose(state) {
		return
	}

	eventLocation := resolveLocation(state.Request, state.ParsedDisaster)
	var matchResult matching.Result
	err = o.withStage(ctx, "match_resources", func(ctx context.Context) error {
		var mErr error
		matchResult, mErr = matching.Match(ctx, o.Registry, o.MatchingConfig, state.Request.Constraints, *state.ParsedDisaster, eventLocation, state.CapabilityRequirements)
		return mErr
	})
	state.Trace.Append("match_resources")
	if err != nil {
		state.AddError(fmt.Sprintf("resource matching failed: %s", err))
		return
	}
	state.Candidates = matchResult.Candidates
	state.Trace.InitialDistanceKM = matchResult.InitialRadiusKM
	state.Trace.FinalDistanceKM = matchResult.FinalRadiusKM
	if matchResult.ExpansionCount > 0 {
		state.Trace.SearchExpanded = true
	}

	nAlternatives := state.Request.Constraints.NAlternatives
	if nAlternatives <= 0 {
		nAlternatives = domain.DefaultConstraints().NAlternatives
	}
	var solutions []domain.AllocationSolution
	_ = o.withStage(ctx, "optimize_allocation", func(ctx context.Context) error {
		solutions = allocation.Allocate(state.Candidates, requiredCapabilityCodes(state.CapabilityRequirements), nAlternatives)
		return nil
	})
	state.Trace.Append("optimize_allocation")
	state.Solutions = solutions

	if !shouldContinueAfterMatching(state) {
		return
	}

	weights := domain.DefaultEvaluationWeights()
	if state.Request.OptimizationWeights != nil {
		weights = *state.Request.OptimizationWeights
	}
	similarityBoost := bestSimilarity(state.SimilarCases)

	var evalResult evaluation.Result
	_ = o.withStage(ctx, "score_soft_rules", func(ctx context.Context) error {
		evalResult = evaluation.Evaluate(ctx, o.HardRules, o.LLMClient, state.Solutions, state.Candidates, *state.ParsedDisaster, state.TaskSequence, weights, o.HardRuleConfig, similarityBoost)
		return nil
	})
	state.Trace.Append("filter_hard_rules")
	state.Trace.Append("score_soft_rules")

	state.SchemeScores = evalResult.Scores
	state.RecommendedScheme = evalResult.Recommended
	state.RecommendedScore = evalResult.RecommendedScore

	if !shouldExplainScheme(state) {
		return
	}
	state.Trace.Append("explain_scheme")
	state.Trace.LLMCalls++
	state.SchemeExplanation = evalResult.Explanation
}

func shouldContinueAfterUnderstanding(state *domain.State) bool {
	return state.ParsedDisaster != nil
}

func shouldContinueAfterRules(state *domain.State) bool {
	return len(state.MatchedRules) > 0
}

func shouldContinueAfterHTNDecompose(state *domain.State) bool {
	return len(state.TaskSequence) > 0
}

func shouldContinueAfterMatching(state *domain.State) bool {
	return len(state.Solutions) > 0
}

func shouldExplainScheme(state *domain.State) bool {
	return state.RecommendedScheme != nil
}

func sceneCodesFromRules(rules []domain.MatchedRule) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		if r.SceneCode == "" || seen[r.SceneCode] {
			continue
		}
		seen[r.SceneCode] = true
		out = append(out, r.SceneCode)
	}
	return out
}

func requiredCapabilityCodes(reqs []domain.CapabilityRequirement) []string {
	out := make([]string, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.CapabilityCode)
	}
	return out
}

func bestSimilarity(cases []domain.SimilarCase) float64 {
	best := 0.0
	for _, c := range cases {
		if c.SimilarityScore > best {
			best = c.SimilarityScore
		}
	}
	return best
}

func assemble(state *domain.State, start time.Time) domain.Output {
	state.Trace.Append("generate_output")

	status := "completed"
	success := len(state.Errors) == 0 && state.RecommendedScheme != nil
	if !success {
		status = "failed"
	}

	out := domain.Output{
		Success:           success,
		EventID:           state.Request.EventID,
		ScenarioID:        state.Request.ScenarioID,
		Status:            status,
		RecommendedScheme: state.RecommendedScheme,
		SchemeExplanation: state.SchemeExplanation,
		Trace:             state.Trace,
		Errors:            state.Errors,
		ExecutionTimeMS:   time.Since(start).Milliseconds(),
		CompletedAt:       time.Now().UTC().Format(time.RFC3339),
	}

	if state.ParsedDisaster != nil {
		out.Understanding = &domain.UnderstandingOutput{
			ParsedDisaster: state.ParsedDisaster,
			SimilarCases:   state.SimilarCases,
			Summary:        state.UnderstandingSummary,
		}
	}
	if len(state.MatchedRules) > 0 || len(state.CapabilityRequirements) > 0 {
		out.Reasoning = &domain.ReasoningOutput{
			MatchedRules:           state.MatchedRules,
			CapabilityRequirements: state.CapabilityRequirements,
		}
	}
	if len(state.TaskSequence) > 0 {
		out.HTNDecomposition = &domain.HTNOutput{
			SceneCodes:    state.SceneCodes,
			TaskSequence:  state.TaskSequence,
			ParallelTasks: state.ParallelTasks,
		}
	}
	if len(state.Candidates) > 0 {
		out.Matching = &domain.MatchingOutput{Candidates: state.Candidates}
	}
	if len(state.Solutions) > 0 {
		out.Optimization = &domain.OptimizationOutput{
			Solutions:    state.Solutions,
			SchemeScores: state.SchemeScores,
		}
	}

	return out
}
