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

// Package htn is the HTN Decomposer (§4.4 of spec.md): it maps matched
// rules' scene codes to a library of meta-task chains, merges chains by
// meta-task id, and produces a dependency-respecting execution sequence
// plus parallel groups via Kahn's algorithm.
package htn

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/emergency-ai/decision-core/pkg/domain"
	sharederrors "github.com/emergency-ai/decision-core/pkg/shared/errors"
)

// MetaTask is one stable, globally-unique unit in the library.
type MetaTask struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Priority domain.Priority `json:"priority"`
}

// ChainStep is one ordered entry of a chain: a meta-task id plus the
// per-step dependency references within the same chain.
type ChainStep struct {
	MTID      string   `json:"mt_id"`
	DependsOn []string `json:"depends_on"`
}

// Chain is an ordered list of meta-task steps.
type Chain struct {
	ChainID string      `json:"chain_id"`
	Steps   []ChainStep `json:"steps"`
}

// Library is the JSON-backed meta-task library plus the fixed
// scene_code → chain_id mapping loaded at startup.
type Library struct {
	MetaTasks      map[string]MetaTask `json:"meta_tasks"`
	Chains         map[string]Chain    `json:"chains"`
	SceneChainMap  map[string]string   `json:"scene_chain_map"`
}

// LoadLibrary reads and validates a meta-task library from a JSON file.
func LoadLibrary(path string) (*Library, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, sharederrors.FailedToWithDetails("read meta-task library", "htn", path, err)
	}

	var lib Library
	if err := json.Unmarshal(raw, &lib); err != nil {
		return nil, sharederrors.ParseError(path, "JSON", err)
	}

	if err := lib.validate(); err != nil {
		return nil, err
	}
	return &lib, nil
}

func (l *Library) validate() error {
	for chainID, chain := range l.Chains {
		for _, step := range chain.Steps {
			if _, ok := l.MetaTasks[step.MTID]; !ok {
				return fmt.Errorf("htn: chain %s references unknown meta-task %s", chainID, step.MTID)
			}
			for _, dep := range step.DependsOn {
				if _, ok := l.MetaTasks[dep]; !ok {
					return fmt.Errorf("htn: chain %s step %s depends on unknown meta-task %s", chainID, step.MTID, dep)
				}
			}
		}
	}
	return nil
}
