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

package llm

import (
	"context"

	"github.com/emergency-ai/decision-core/pkg/domain"
)

// FakeClient is a deterministic, in-process Client used by pipeline and
// stage tests in place of a live Anthropic transport.
type FakeClient struct {
	ParseResult *domain.ParsedDisaster
	ParseErr    error
	Explanation *Explanation
	ExplainErr  error

	ParseCalls   int
	ExplainCalls int
}

func (f *FakeClient) ParseDisaster(ctx context.Context, description string, structuredInput map[string]interface{}) (*domain.ParsedDisaster, error) {
	f.ParseCalls++
	if f.ParseErr != nil {
		return nil, f.ParseErr
	}
	return f.ParseResult, nil
}

func (f *FakeClient) ExplainScheme(ctx context.Context, req ExplainRequest) (*Explanation, error) {
	f.ExplainCalls++
	if f.ExplainErr != nil {
		return nil, f.ExplainErr
	}
	return f.Explanation, nil
}
