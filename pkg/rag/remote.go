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

package rag

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

// RemoteStore talks to an external vector-search service (a pgvector- or
// Milvus-backed index in production) over a small JSON/HTTP contract.
// It is the Store implementation wired when config.RAGConfig.Endpoint is
// set; InMemoryStore remains the zero-configuration default.
type RemoteStore struct {
	endpoint   string
	httpClient *http.Client
}

func NewRemoteStore(cfg config.RAGConfig) *RemoteStore {
	return &RemoteStore{
		endpoint:   cfg.Endpoint,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type searchRequest struct {
	QueryText        string `json:"query_text"`
	DisasterTypeHint string `json:"disaster_type_hint,omitempty"`
	TopK             int    `json:"top_k"`
}

type searchResponse struct {
	Cases []domain.SimilarCase `json:"cases"`
}

func (s *RemoteStore) SearchSimilarCases(ctx context.Context, queryText string, disasterTypeHint string, topK int) ([]domain.SimilarCase, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	body, err := json.Marshal(searchRequest{
		QueryText:        queryText,
		DisasterTypeHint: disasterTypeHint,
		TopK:             topK,
	})
	if err != nil {
		return nil, sharederrors.FailedTo("encode similar-cases request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, sharederrors.FailedTo("build similar-cases request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, sharederrors.NetworkError("search similar cases", s.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, sharederrors.NetworkError("search similar cases", s.endpoint, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, sharederrors.ParseError("similar-cases response", "JSON", err)
	}
	return parsed.Cases, nil
}
