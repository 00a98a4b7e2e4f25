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

// Package rag is the decision core's historical-case retrieval adapter
// (§6 of spec.md): SearchSimilarCases(query, hint, top_k). A failure here
// is non-fatal to the pipeline — it degrades to an empty result set.
package rag

import (
	"context"
	"sort"
	"time"

	"github.com/emergency-ai/decision-core/pkg/domain"
	sharedmath "github.com/emergency-ai/decision-core/pkg/shared/math"
)

const DefaultTopK = 5

// Store is the adapter contract consumed by the Understanding stage.
type Store interface {
	SearchSimilarCases(ctx context.Context, queryText string, disasterTypeHint string, topK int) ([]domain.SimilarCase, error)
}

// CaseRecord is the on-disk/in-memory shape a case library entry takes,
// grounded on the teacher's vector.ActionPattern — the embedding +
// metadata envelope around a domain record, independent of where the
// embedding was computed.
type CaseRecord struct {
	CaseID       string
	DisasterType string
	Summary      string
	Lessons      []string
	BestPractices []string
	Embedding    []float64
	CreatedAt    time.Time
}

// InMemoryStore is a dependency-free fallback store: cosine-similarity
// search over a fixed in-process case library, the same shape as the
// teacher's in-memory vector fallback but without any network calls to
// degrade. It is always available and is wired as the default when no
// external vector endpoint is configured.
type InMemoryStore struct {
	cases    []CaseRecord
	embedder func(text string) []float64
}

// NewInMemoryStore builds a store over a fixed set of case records. embed
// converts free text into the same embedding space as the stored
// records; tests typically supply a deterministic bag-of-words embedder.
func NewInMemoryStore(cases []CaseRecord, embed func(text string) []float64) *InMemoryStore {
	return &InMemoryStore{cases: cases, embedder: embed}
}

func (s *InMemoryStore) SearchSimilarCases(ctx context.Context, queryText string, disasterTypeHint string, topK int) ([]domain.SimilarCase, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	queryVec := s.embedder(queryText)

	type scored struct {
		c     CaseRecord
		score float64
	}
	candidates := make([]scored, 0, len(s.cases))
	for _, c := range s.cases {
		if disasterTypeHint != "" && c.DisasterType != "" && c.DisasterType != disasterTypeHint {
			continue
		}
		sim := sharedmath.CosineSimilarity(queryVec, c.Embedding)
		candidates = append(candidates, scored{c: c, score: sim})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	out := make([]domain.SimilarCase, 0, len(candidates))
	for _, cand := range candidates {
		out = append(out, domain.SimilarCase{
			CaseID:          cand.c.CaseID,
			DisasterType:    cand.c.DisasterType,
			Summary:         cand.c.Summary,
			SimilarityScore: cand.score,
			Lessons:         cand.c.Lessons,
			BestPractices:   cand.c.BestPractices,
		})
	}
	return out, nil
}

// BagOfWordsEmbed is a small deterministic text embedder used by
// InMemoryStore when no external embedding model is configured: it
// hashes each word into one of N buckets and counts occurrences. It is
// not semantically rich, but it is stable, dependency-free and
// sufficient to rank a small curated case library by lexical overlap.
func BagOfWordsEmbed(dims int) func(text string) []float64 {
	return func(text string) []float64 {
		vec := make([]float64, dims)
		word := make([]byte, 0, 16)
		flush := func() {
			if len(word) == 0 {
				return
			}
			h := fnv32(word)
			vec[int(h)%dims]++
			word = word[:0]
		}
		for i := 0; i < len(text); i++ {
			c := text[i]
			if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
				word = append(word, c)
			} else {
				flush()
			}
		}
		flush()
		return vec
	}
}

func fnv32(data []byte) uint32 {
	const offset32 = 2166136261
	const prime32 = 16777619
	h := uint32(offset32)
	for _, b := range data {
		h ^= uint32(b)
		h *= prime32
	}
	return h
}
