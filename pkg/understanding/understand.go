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

// Package understanding is the Disaster Understanding stage (§4 of
// spec.md): it turns a free-text disaster description into a
// domain.ParsedDisaster, fans the LLM parse call out against a
// historical-case RAG search, and overrides the LLM's area/population/
// level/casualty estimates with a closed-form physics calibration when
// one is available for the parsed disaster type.
package understanding

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/emergency-ai/decision-core/pkg/domain"
	"github.com/emergency-ai/decision-core/pkg/llm"
	"github.com/emergency-ai/decision-core/pkg/rag"
)

// Result is the stage's output: the parsed disaster, the retrieved
// similar cases (empty, never nil, on RAG failure) and a short summary
// string suitable for the pipeline trace and final output.
type Result struct {
	ParsedDisaster *domain.ParsedDisaster
	SimilarCases   []domain.SimilarCase
	Summary        string
	RAGDegraded    bool
}

// Understand dispatches the LLM parse call and the RAG similar-case
// search concurrently in a structured concurrency scope sharing ctx's
// deadline, waits for both, and -- if the parse succeeded -- runs the
// physics calibration synchronously. A RAG failure is logged and
// degrades to an empty case list; it never fails the stage or cancels
// the sibling call. An LLM failure is fatal to the stage, since every
// downstream stage depends on ParsedDisaster, and cancels the RAG call
// in flight.
func Understand(ctx context.Context, client llm.Client, store rag.Store, description string, structuredInput map[string]interface{}, logger *logrus.Logger) (Result, error) {
	eg, egCtx := errgroup.WithContext(ctx)

	var (
		parsed       *domain.ParsedDisaster
		similarCases []domain.SimilarCase
		ragErr       error
	)

	eg.Go(func() error {
		var err error
		parsed, err = client.ParseDisaster(egCtx, description, structuredInput)
		return err
	})
	eg.Go(func() error {
		hint, _ := structuredInput["disaster_type"].(string)
		similarCases, ragErr = store.SearchSimilarCases(egCtx, description, hint, rag.DefaultTopK)
		return nil
	})

	if err := eg.Wait(); err != nil {
		return Result{}, fmt.Errorf("understand disaster: %w", err)
	}

	ragDegraded := false
	if ragErr != nil {
		ragDegraded = true
		similarCases = []domain.SimilarCase{}
		if logger != nil {
			logger.WithError(ragErr).Warn("similar-case search failed, proceeding without historical cases")
		}
	}

	Calibrate(parsed, structuredInput)

	return Result{
		ParsedDisaster: parsed,
		SimilarCases:   similarCases,
		Summary:        summarize(parsed, similarCases),
		RAGDegraded:    ragDegraded,
	}, nil
}

func summarize(parsed *domain.ParsedDisaster, similarCases []domain.SimilarCase) string {
	if parsed == nil {
		return ""
	}
	s := fmt.Sprintf("%s, severity %s, level %s, %d trapped, %d affected",
		parsed.DisasterType, parsed.Severity, orDash(parsed.DisasterLevel), parsed.EstimatedTrapped, parsed.AffectedPopulation)
	if len(similarCases) > 0 {
		s += fmt.Sprintf(", %d similar historical case(s) found", len(similarCases))
	}
	return s
}

func orDash(level string) string {
	if level == "" {
		return "-"
	}
	return level
}
