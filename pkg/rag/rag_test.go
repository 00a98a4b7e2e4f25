package rag_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/emergency-ai/decision-core/pkg/rag"
)

func TestRAG(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "RAG Suite")
}

var _ = Describe("InMemoryStore", func() {
	var store *rag.InMemoryStore
	embed := rag.BagOfWordsEmbed(64)

	BeforeEach(func() {
		cases := []rag.CaseRecord{
			{
				CaseID:       "case-eq-1",
				DisasterType: "earthquake",
				Summary:      "M6.8 earthquake building collapse trapped rescue",
				Embedding:    embed("M6.8 earthquake building collapse trapped rescue"),
				Lessons:      []string{"stage triage near collapse perimeter"},
				CreatedAt:    time.Now().Add(-24 * time.Hour),
			},
			{
				CaseID:       "case-flood-1",
				DisasterType: "flood",
				Summary:      "river flood evacuation water rescue boats",
				Embedding:    embed("river flood evacuation water rescue boats"),
				CreatedAt:    time.Now().Add(-48 * time.Hour),
			},
		}
		store = rag.NewInMemoryStore(cases, embed)
	})

	It("ranks the earthquake case highest for an earthquake query", func() {
		results, err := store.SearchSimilarCases(context.Background(), "earthquake building collapse trapped", "earthquake", 5)
		Expect(err).ToNot(HaveOccurred())
		Expect(results).ToNot(BeEmpty())
		Expect(results[0].CaseID).To(Equal("case-eq-1"))
		Expect(results[0].SimilarityScore).To(BeNumerically(">", 0))
	})

	It("filters by disaster type hint", func() {
		results, err := store.SearchSimilarCases(context.Background(), "water rescue", "flood", 5)
		Expect(err).ToNot(HaveOccurred())
		for _, r := range results {
			Expect(r.DisasterType).To(Equal("flood"))
		}
	})

	It("returns an empty, non-error result for an unmatched hint", func() {
		results, err := store.SearchSimilarCases(context.Background(), "water rescue", "hazmat", 5)
		Expect(err).ToNot(HaveOccurred())
		Expect(results).To(BeEmpty())
	})

	It("defaults top_k when non-positive", func() {
		results, err := store.SearchSimilarCases(context.Background(), "earthquake", "", 0)
		Expect(err).ToNot(HaveOccurred())
		Expect(len(results)).To(BeNumerically("<=", rag.DefaultTopK))
	})

	It("respects context cancellation", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := store.SearchSimilarCases(ctx, "earthquake", "", 5)
		Expect(err).To(HaveOccurred())
	})
})
