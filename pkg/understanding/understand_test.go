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

package understanding

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/emergency-ai/decision-core/pkg/domain"
	"github.com/emergency-ai/decision-core/pkg/llm"
	"github.com/emergency-ai/decision-core/pkg/rag"
)

func magnitude(m float64) *float64 { return &m }
func depth(d float64) *float64     { return &d }

var _ = Describe("Understand", func() {
	var client *llm.FakeClient
	var store *rag.FakeStore

	BeforeEach(func() {
		client = &llm.FakeClient{ParseResult: &domain.ParsedDisaster{
			DisasterType:     domain.DisasterEarthquake,
			Severity:         domain.SeverityHigh,
			Magnitude:        magnitude(6.5),
			DepthKM:          depth(10),
			EstimatedTrapped: 50,
		}}
		store = &rag.FakeStore{Cases: []domain.SimilarCase{{CaseID: "c1", Summary: "similar quake"}}}
	})

	It("runs the LLM parse and RAG search concurrently and merges both results", func() {
		result, err := Understand(context.Background(), client, store, "a strong quake hit the city", nil, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(result.ParsedDisaster).ToNot(BeNil())
		Expect(result.SimilarCases).To(HaveLen(1))
		Expect(result.RAGDegraded).To(BeFalse())
		Expect(client.ParseCalls).To(Equal(1))
		Expect(store.Calls).To(Equal(1))
	})

	It("overrides the LLM's area, population and level estimates with the physics calibration", func() {
		result, err := Understand(context.Background(), client, store, "a strong quake hit the city", nil, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(result.ParsedDisaster.AffectedAreaKM2).ToNot(BeNil())
		Expect(result.ParsedDisaster.AdditionalInfo["physics_model_calibrated"]).To(Equal(true))
	})

	It("degrades to an empty case list and still succeeds when the RAG search fails", func() {
		store.Err = errors.New("vector store unreachable")
		result, err := Understand(context.Background(), client, store, "a strong quake hit the city", nil, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(result.SimilarCases).To(BeEmpty())
		Expect(result.RAGDegraded).To(BeTrue())
		Expect(result.ParsedDisaster).ToNot(BeNil())
		Expect(result.Summary).ToNot(BeEmpty())
	})

	It("fails the stage when the LLM parse call fails", func() {
		client.ParseErr = errors.New("llm unavailable")
		_, err := Understand(context.Background(), client, store, "a strong quake hit the city", nil, nil)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Calibrate", func() {
	It("leaves a disaster untouched when its type has no closed-form assessor", func() {
		parsed := &domain.ParsedDisaster{DisasterType: domain.DisasterType("wildfire")}
		Calibrate(parsed, nil)
		Expect(parsed.AffectedAreaKM2).To(BeNil())
	})

	It("skips earthquake calibration when magnitude is unknown", func() {
		parsed := &domain.ParsedDisaster{DisasterType: domain.DisasterEarthquake}
		Calibrate(parsed, nil)
		Expect(parsed.AffectedAreaKM2).To(BeNil())
	})

	It("calibrates a flood from rainfall and terrain hints", func() {
		parsed := &domain.ParsedDisaster{DisasterType: domain.DisasterFlood}
		Calibrate(parsed, map[string]interface{}{
			"rainfall_mm": 200.0, "duration_hours": 24.0, "terrain_slope": 2.0, "population_density": 3000.0,
		})
		Expect(parsed.AffectedAreaKM2).ToNot(BeNil())
		Expect(parsed.DisasterLevel).ToNot(BeEmpty())
	})

	It("calibrates a hazmat leak from a chemical type hint", func() {
		parsed := &domain.ParsedDisaster{DisasterType: domain.DisasterHazmat}
		Calibrate(parsed, map[string]interface{}{
			"chemical_type": "chlorine", "leak_rate_kg_s": 5.0, "wind_speed": 3.0, "atmospheric_stability": "D",
		})
		Expect(parsed.AffectedAreaKM2).ToNot(BeNil())
		Expect(parsed.DisasterLevel).ToNot(BeEmpty())
	})
})
