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

	"github.com/emergency-ai/decision-core/pkg/domain"
)

// FakeKG is a deterministic KnowledgeGraph double for pipeline/stage
// tests, including a KGUnavailable simulation via RulesErr.
type FakeKG struct {
	Rules     map[domain.DisasterType][]Rule
	RulesErr  error
	Providers map[string][]string
}

func (f *FakeKG) GetTriggerRules(ctx context.Context, disasterType domain.DisasterType) ([]Rule, error) {
	if f.RulesErr != nil {
		return nil, f.RulesErr
	}
	return f.Rules[disasterType], nil
}

func (f *FakeKG) GetCapabilityProviders(ctx context.Context, capabilityCodes []string) (map[string][]string, error) {
	out := map[string][]string{}
	for _, c := range capabilityCodes {
		if v, ok := f.Providers[c]; ok {
			out[c] = v
		}
	}
	return out, nil
}
