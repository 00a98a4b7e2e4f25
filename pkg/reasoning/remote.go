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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/emergency-ai/decision-core/internal/config"
	"github.com/emergency-ai/decision-core/pkg/domain"
	sharederrors "github.com/emergency-ai/decision-core/pkg/shared/errors"
)

// RemoteKnowledgeGraph talks to an external trigger-response-rule graph
// service over a small JSON/HTTP contract. It is the KnowledgeGraph
// implementation wired when config.KGConfig.Endpoint is set; the caller
// falls back to builtinRules (via reasoning.Match) whenever it errors or
// returns no rules.
type RemoteKnowledgeGraph struct {
	endpoint   string
	httpClient *http.Client
}

func NewRemoteKnowledgeGraph(cfg config.KGConfig) *RemoteKnowledgeGraph {
	return &RemoteKnowledgeGraph{
		endpoint:   cfg.Endpoint,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type triggerRulesResponse struct {
	Rules []Rule `json:"rules"`
}

func (g *RemoteKnowledgeGraph) GetTriggerRules(ctx context.Context, disasterType domain.DisasterType) ([]Rule, error) {
	url := fmt.Sprintf("%s/trigger-rules?disaster_type=%s", g.endpoint, disasterType)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, sharederrors.FailedTo("build trigger-rules request", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, sharederrors.NetworkError("get trigger rules", g.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, sharederrors.NetworkError("get trigger rules", g.endpoint, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var parsed triggerRulesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, sharederrors.ParseError("trigger-rules response", "JSON", err)
	}
	return parsed.Rules, nil
}

type capabilityProvidersRequest struct {
	CapabilityCodes []string `json:"capability_codes"`
}

type capabilityProvidersResponse struct {
	Providers map[string][]string `json:"providers"`
}

func (g *RemoteKnowledgeGraph) GetCapabilityProviders(ctx context.Context, capabilityCodes []string) (map[string][]string, error) {
	body, err := json.Marshal(capabilityProvidersRequest{CapabilityCodes: capabilityCodes})
	if err != nil {
		return nil, sharederrors.FailedTo("encode capability-providers request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"/capability-providers", bytes.NewReader(body))
	if err != nil {
		return nil, sharederrors.FailedTo("build capability-providers request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, sharederrors.NetworkError("get capability providers", g.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, sharederrors.NetworkError("get capability providers", g.endpoint, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var parsed capabilityProvidersResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, sharederrors.ParseError("capability-providers response", "JSON", err)
	}
	return parsed.Providers, nil
}
