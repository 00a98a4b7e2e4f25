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

package main

import (
	"context"

	"github.com/emergency-ai/decision-core/pkg/domain"
	"github.com/emergency-ai/decision-core/pkg/llm"
	"github.com/emergency-ai/decision-core/pkg/matching"
	"github.com/emergency-ai/decision-core/pkg/rag"
	"github.com/emergency-ai/decision-core/pkg/reasoning"
	"github.com/emergency-ai/decision-core/pkg/resilience"
)

// breakerLLMClient wraps an llm.Client so every call goes through a named
// circuit breaker, per BR-REL-009's "guard every external dependency"
// pattern (see pkg/resilience's package doc).
type breakerLLMClient struct {
	inner   llm.Client
	breaker *resilience.Breaker
}

func (c *breakerLLMClient) ParseDisaster(ctx context.Context, description string, structuredInput map[string]interface{}) (*domain.ParsedDisaster, error) {
	var result *domain.ParsedDisaster
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		var callErr error
		result, callErr = c.inner.ParseDisaster(ctx, description, structuredInput)
		return callErr
	})
	return result, err
}

func (c *breakerLLMClient) ExplainScheme(ctx context.Context, req llm.ExplainRequest) (*llm.Explanation, error) {
	var result *llm.Explanation
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		var callErr error
		result, callErr = c.inner.ExplainScheme(ctx, req)
		return callErr
	})
	return result, err
}

// breakerRAGStore wraps a rag.Store with a circuit breaker. The pipeline
// already treats a failed search as non-fatal, so an open breaker simply
// degrades the understanding stage to an empty case list faster than
// waiting out a live timeout.
type breakerRAGStore struct {
	inner   rag.Store
	breaker *resilience.Breaker
}

func (s *breakerRAGStore) SearchSimilarCases(ctx context.Context, queryText, disasterTypeHint string, topK int) ([]domain.SimilarCase, error) {
	var result []domain.SimilarCase
	err := s.breaker.Call(ctx, func(ctx context.Context) error {
		var callErr error
		result, callErr = s.inner.SearchSimilarCases(ctx, queryText, disasterTypeHint, topK)
		return callErr
	})
	return result, err
}

// breakerKnowledgeGraph wraps a reasoning.KnowledgeGraph. An open breaker
// on GetTriggerRules surfaces as an error to reasoning.Match, which falls
// back to its builtin rule set exactly as it would on any other KG failure.
type breakerKnowledgeGraph struct {
	inner   reasoning.KnowledgeGraph
	breaker *resilience.Breaker
}

func (g *breakerKnowledgeGraph) GetTriggerRules(ctx context.Context, disasterType domain.DisasterType) ([]reasoning.Rule, error) {
	var result []reasoning.Rule
	err := g.breaker.Call(ctx, func(ctx context.Context) error {
		var callErr error
		result, callErr = g.inner.GetTriggerRules(ctx, disasterType)
		return callErr
	})
	return result, err
}

func (g *breakerKnowledgeGraph) GetCapabilityProviders(ctx context.Context, capabilityCodes []string) (map[string][]string, error) {
	var result map[string][]string
	err := g.breaker.Call(ctx, func(ctx context.Context) error {
		var callErr error
		result, callErr = g.inner.GetCapabilityProviders(ctx, capabilityCodes)
		return callErr
	})
	return result, err
}

// breakerRegistry wraps a matching.Registry.
type breakerRegistry struct {
	inner   matching.Registry
	breaker *resilience.Breaker
}

func (r *breakerRegistry) StandbyTeams(ctx context.Context) ([]matching.Team, error) {
	var result []matching.Team
	err := r.breaker.Call(ctx, func(ctx context.Context) error {
		var callErr error
		result, callErr = r.inner.StandbyTeams(ctx)
		return callErr
	})
	return result, err
}
