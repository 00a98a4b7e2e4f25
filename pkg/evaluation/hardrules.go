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

// Package evaluation is the Hard/Soft Rule Evaluator (§6 of spec.md): it
// vetoes AllocationSolutions against a tagged hard-rule set, scores
// survivors on five weighted dimensions, ranks and selects a
// recommendation, engages catastrophe mode when nothing survives, and
// assembles the LLM explanation. The hard-rule veto is Rego, evaluated
// in-process with open-policy-agent/opa, the way the teacher's
// pkg/aianalysis/rego.Evaluator wraps policy evaluation behind a narrow
// Evaluate(ctx, input) contract with a Degraded fallback path.
package evaluation

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/open-policy-agent/opa/rego"
	"github.com/sirupsen/logrus"

	"github.com/emergency-ai/decision-core/pkg/domain"
	sharederrors "github.com/emergency-ai/decision-core/pkg/shared/errors"
)

// defaultHardRulesRego is used when no policy source is supplied. It
// encodes the three rules §6 names as typical: a minimum team count, a
// response-time cap and a coverage floor.
const defaultHardRulesRego = `package decisioncore.hardrules

import rego.v1

violations contains msg if {
	input.solution.teams_count < 1
	msg := "teams_count below minimum of 1"
}

violations contains msg if {
	input.solution.response_time_min > input.max_response_time_min
	msg := sprintf("response_time_min %v exceeds cap %v", [input.solution.response_time_min, input.max_response_time_min])
}

violations contains msg if {
	input.solution.coverage_rate < input.coverage_floor
	msg := sprintf("coverage_rate %v below floor %v", [input.solution.coverage_rate, input.coverage_floor])
}
`

const hardRulesQuery = "data.decisioncore.hardrules.violations"

// HardRuleConfig holds the evaluator's tunable veto thresholds; the
// service entry point uses DefaultHardRuleConfig.
type HardRuleConfig struct {
	MaxResponseTimeMin float64
	CoverageFloor      float64
}

// DefaultHardRuleConfig mirrors the constraints already enforced upstream
// (2h response cap, 0.70 matcher coverage floor) so the veto is a safety
// net, not a stricter gate than the stages that ran before it.
func DefaultHardRuleConfig() HardRuleConfig {
	return HardRuleConfig{MaxResponseTimeMin: 120, CoverageFloor: 0.70}
}

// HardRuleEvaluator vets AllocationSolutions through a compiled Rego
// policy, falling back to a native tagged-predicate evaluation of the
// same three rules if the policy has never successfully compiled.
type HardRuleEvaluator struct {
	logger *logrus.Logger

	mu       sync.RWMutex
	prepared *rego.PreparedEvalQuery
	degraded bool

	policyPath string
	watcher    *fsnotify.Watcher
}

// NewHardRuleEvaluator compiles policySource (or the embedded default
// when empty) once at construction. If compilation fails, the evaluator
// starts in degraded mode and Evaluate uses nativeHardRules instead.
func NewHardRuleEvaluator(ctx context.Context, policySource string, logger *logrus.Logger) *HardRuleEvaluator {
	if policySource == "" {
		policySource = defaultHardRulesRego
	}
	e := &HardRuleEvaluator{logger: logger}
	e.compile(ctx, policySource)
	return e
}

func (e *HardRuleEvaluator) compile(ctx context.Context, policySource string) {
	r := rego.New(
		rego.Query(hardRulesQuery),
		rego.Module("hardrules.rego", policySource),
	)
	pq, err := r.PrepareForEval(ctx)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		if e.prepared != nil {
			if e.logger != nil {
				e.logger.WithError(err).Warn("hard-rule policy failed to compile, keeping previous policy")
			}
			return
		}
		e.degraded = true
		if e.logger != nil {
			e.logger.WithError(err).Warn("hard-rule policy failed to compile, falling back to native predicates")
		}
		return
	}
	e.prepared = &pq
	e.degraded = false
}

// StartHotReload watches policyPath for changes and recompiles on write,
// swapping the prepared query under lock. Recompile failures leave the
// previously-compiled policy in place and log a warning rather than
// degrading a previously-healthy evaluator.
func (e *HardRuleEvaluator) StartHotReload(ctx context.Context, policyPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return sharederrors.FailedTo("create hard-rule policy watcher", err)
	}
	if err := watcher.Add(policyPath); err != nil {
		watcher.Close()
		return sharederrors.FailedToWithDetails("watch hard-rule policy file", "config", policyPath, err)
	}
	e.policyPath = policyPath
	e.watcher = watcher

	go func() {
		for {
			select {
			case <-ctx.Done():
				watcher.Close()
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				e.reloadFromFile(ctx, policyPath)
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if e.logger != nil {
					e.logger.WithError(werr).Warn("hard-rule policy watcher error")
				}
			}
		}
	}()
	return nil
}

func (e *HardRuleEvaluator) reloadFromFile(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if e.logger != nil {
			e.logger.WithError(err).Warn("hard-rule policy reload failed, keeping previous policy")
		}
		return
	}
	e.compile(ctx, string(data))
}

// Stop releases the file watcher, if one was started.
func (e *HardRuleEvaluator) Stop() {
	if e.watcher != nil {
		e.watcher.Close()
	}
}

// Degraded reports whether the evaluator is currently running the native
// fallback instead of the compiled Rego policy.
func (e *HardRuleEvaluator) Degraded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.degraded
}

// Evaluate returns the hard-rule violations for solution, or an empty
// slice when it passes.
func (e *HardRuleEvaluator) Evaluate(ctx context.Context, solution domain.AllocationSolution, cfg HardRuleConfig) ([]string, error) {
	e.mu.RLock()
	prepared := e.prepared
	degraded := e.degraded
	e.mu.RUnlock()

	if degraded || prepared == nil {
		return nativeHardRules(solution, cfg), nil
	}

	input := map[string]interface{}{
		"solution": map[string]interface{}{
			"teams_count":       solution.TeamsCount,
			"response_time_min": solution.ResponseTimeMin,
			"coverage_rate":     solution.CoverageRate,
		},
		"max_response_time_min": cfg.MaxResponseTimeMin,
		"coverage_floor":        cfg.CoverageFloor,
	}

	rs, err := prepared.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, sharederrors.FailedTo("evaluate hard-rule policy", err)
	}
	return decodeViolations(rs), nil
}

func decodeViolations(rs rego.ResultSet) []string {
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return nil
	}
	raw, ok := rs[0].Expressions[0].Value.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// nativeHardRules re-implements the three default policy rules directly
// in Go, used only when the Rego policy has never successfully compiled.
func nativeHardRules(solution domain.AllocationSolution, cfg HardRuleConfig) []string {
	var violations []string
	if solution.TeamsCount < 1 {
		violations = append(violations, "teams_count below minimum of 1")
	}
	if solution.ResponseTimeMin > cfg.MaxResponseTimeMin {
		violations = append(violations, fmt.Sprintf("response_time_min %v exceeds cap %v", solution.ResponseTimeMin, cfg.MaxResponseTimeMin))
	}
	if solution.CoverageRate < cfg.CoverageFloor {
		violations = append(violations, fmt.Sprintf("coverage_rate %v below floor %v", solution.CoverageRate, cfg.CoverageFloor))
	}
	return violations
}
