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

// Package llm is the decision core's LLM adapter (§6 of spec.md): a
// narrow, cancellable ParseDisaster/ExplainScheme contract backed by the
// Anthropic Messages API, with langchaingo used for prompt/message
// construction the way the teacher's pkg/ai/llm client builds prompts
// from templates.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/prompts"

	"github.com/emergency-ai/decision-core/internal/config"
	"github.com/emergency-ai/decision-core/pkg/domain"
	sharederrors "github.com/emergency-ai/decision-core/pkg/shared/errors"
	"github.com/emergency-ai/decision-core/pkg/shared/logging"
)

// Client is the LLM adapter contract consumed by the Understanding and
// Evaluation stages. Both calls must be cancellable via ctx.
type Client interface {
	ParseDisaster(ctx context.Context, description string, structuredInput map[string]interface{}) (*domain.ParsedDisaster, error)
	ExplainScheme(ctx context.Context, req ExplainRequest) (*Explanation, error)
}

// ExplainRequest bundles the inputs the explanation call needs.
type ExplainRequest struct {
	Recommended  domain.AllocationSolution
	Disaster     domain.ParsedDisaster
	Alternatives []domain.AllocationSolution
	TaskSequence []domain.TaskSequenceItem
}

// Explanation is the structured object the explain call must return (§4.6).
type Explanation struct {
	Summary              string   `json:"summary"`
	SituationAssessment  string   `json:"situation_assessment"`
	SelectionReason      string   `json:"selection_reason"`
	KeyAdvantages        []string `json:"key_advantages"`
	ResourceDeployment   []string `json:"resource_deployment"`
	Timeline             []string `json:"timeline"`
	CoordinationPoints   []string `json:"coordination_points"`
	PotentialRisks       []string `json:"potential_risks"`
	MitigationMeasures   []string `json:"mitigation_measures"`
	ExecutionSuggestions []string `json:"execution_suggestions"`
	CommanderNotes       string   `json:"commander_notes"`
}

type client struct {
	cfg    config.LLMConfig
	logger *logrus.Logger
	anthro anthropic.Client
}

// NewClient constructs a Client for the configured provider. Only
// "anthropic" is wired to a live transport; "localai" and "bedrock" are
// accepted as configuration variants (per SPEC_FULL.md §3) that reuse the
// same Anthropic-compatible message shape through a custom base URL.
func NewClient(cfg config.LLMConfig, logger *logrus.Logger) (Client, error) {
	switch cfg.Provider {
	case "anthropic", "localai", "bedrock":
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}

	opts := []option.RequestOption{}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}

	return &client{
		cfg:    cfg,
		logger: logger,
		anthro: anthropic.NewClient(opts...),
	}, nil
}

// parseDisasterTemplate mirrors the teacher's promptTemplate convention:
// a single format string assembled once with langchaingo's PromptTemplate.
const parseDisasterTemplate = `<|system|>
You are an emergency-response disaster triage assistant. Read the free-text
description and structured hints, and return ONLY a JSON object with keys:
disaster_type, severity, magnitude, depth_km, affected_area_km2,
disaster_level, has_building_collapse, has_trapped_persons,
has_secondary_fire, has_hazmat_leak, has_road_damage, estimated_trapped,
affected_population. Unknown values should be your best estimate.
<|user|>
Description: {{.description}}
Structured hints: {{.hints}}
<|assistant|>
`

func (c *client) generateParsePrompt(description string, structuredInput map[string]interface{}) (string, error) {
	tmpl := prompts.NewPromptTemplate(parseDisasterTemplate, []string{"description", "hints"})
	hints, _ := json.Marshal(structuredInput)
	rendered, err := tmpl.Format(map[string]any{
		"description": description,
		"hints":       string(hints),
	})
	if err != nil {
		return "", err
	}
	return rendered, nil
}

func (c *client) ParseDisaster(ctx context.Context, description string, structuredInput map[string]interface{}) (*domain.ParsedDisaster, error) {
	start := time.Now()
	prompt, err := c.generateParsePrompt(description, structuredInput)
	if err != nil {
		return nil, sharederrors.FailedTo("build parse-disaster prompt", err)
	}

	msg, err := c.anthro.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: int64(maxInt(c.cfg.MaxTokens, 1024)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if c.logger != nil {
		c.logger.WithFields(logging.AIFields("parse_disaster", c.cfg.Model).Duration(time.Since(start)).ToLogrus()).Debug("llm parse call completed")
	}
	if err != nil {
		return nil, sharederrors.NetworkError("parse disaster via LLM", c.cfg.Endpoint, err)
	}

	text := extractText(msg)
	parsed, err := decodeParsedDisaster(text)
	if err != nil {
		return nil, sharederrors.FailedToWithDetails("decode LLM disaster parse", "llm", "", err)
	}
	return parsed, nil
}

const explainTemplate = `<|system|>
You are an emergency-response operations briefing assistant. Given a
recommended resource-allocation solution, the parsed disaster, up to three
alternative solutions and the task sequence, produce a JSON object with keys:
summary, situation_assessment, selection_reason, key_advantages,
resource_deployment, timeline, coordination_points, potential_risks,
mitigation_measures, execution_suggestions, commander_notes.
<|user|>
Recommended: {{.recommended}}
Disaster: {{.disaster}}
Alternatives: {{.alternatives}}
TaskSequence: {{.tasks}}
<|assistant|>
`

func (c *client) ExplainScheme(ctx context.Context, req ExplainRequest) (*Explanation, error) {
	tmpl := prompts.NewPromptTemplate(explainTemplate, []string{"recommended", "disaster", "alternatives", "tasks"})
	rec, _ := json.Marshal(req.Recommended)
	dis, _ := json.Marshal(req.Disaster)
	alt, _ := json.Marshal(req.Alternatives)
	tasks, _ := json.Marshal(req.TaskSequence)

	prompt, err := tmpl.Format(map[string]any{
		"recommended":  string(rec),
		"disaster":     string(dis),
		"alternatives": string(alt),
		"tasks":        string(tasks),
	})
	if err != nil {
		return nil, sharederrors.FailedTo("build explain-scheme prompt", err)
	}

	msg, err := c.anthro.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: int64(maxInt(c.cfg.MaxTokens, 2048)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, sharederrors.NetworkError("explain scheme via LLM", c.cfg.Endpoint, err)
	}

	text := extractText(msg)
	var explanation Explanation
	if err := json.Unmarshal([]byte(text), &explanation); err != nil {
		return nil, sharederrors.FailedToWithDetails("decode LLM explanation", "llm", "", err)
	}
	return &explanation, nil
}

func extractText(msg *anthropic.Message) string {
	if msg == nil {
		return ""
	}
	var out string
	for _, block := range msg.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
