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

package reasoning_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"github.com/emergency-ai/decision-core/internal/config"
	"github.com/emergency-ai/decision-core/pkg/cache"
	"github.com/emergency-ai/decision-core/pkg/domain"
	"github.com/emergency-ai/decision-core/pkg/reasoning"
)

var _ = Describe("NoopKnowledgeGraph", func() {
	It("always reports no rules and no providers", func() {
		kg := reasoning.NoopKnowledgeGraph{}

		rules, err := kg.GetTriggerRules(context.Background(), domain.DisasterEarthquake)
		Expect(err).ToNot(HaveOccurred())
		Expect(rules).To(BeEmpty())

		providers, err := kg.GetCapabilityProviders(context.Background(), []string{"LIFE_DETECTION"})
		Expect(err).ToNot(HaveOccurred())
		Expect(providers).To(BeEmpty())
	})
})

var _ = Describe("RemoteKnowledgeGraph", func() {
	It("decodes trigger rules from the configured endpoint", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/trigger-rules"))
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"rules": []reasoning.Rule{{RuleID: "r1", SceneCode: "EQ-BASIC"}},
			})
		}))
		defer server.Close()

		kg := reasoning.NewRemoteKnowledgeGraph(config.KGConfig{Endpoint: server.URL, Timeout: time.Second})
		rules, err := kg.GetTriggerRules(context.Background(), domain.DisasterEarthquake)
		Expect(err).ToNot(HaveOccurred())
		Expect(rules).To(HaveLen(1))
		Expect(rules[0].RuleID).To(Equal("r1"))
	})

	It("returns an error on a non-200 response", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		kg := reasoning.NewRemoteKnowledgeGraph(config.KGConfig{Endpoint: server.URL, Timeout: time.Second})
		_, err := kg.GetTriggerRules(context.Background(), domain.DisasterEarthquake)
		Expect(err).To(HaveOccurred())
	})

	It("posts capability codes and decodes the provider map", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/capability-providers"))
			Expect(r.Method).To(Equal(http.MethodPost))
			var body map[string][]string
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"providers": map[string][]string{"LIFE_DETECTION": {"K9_UNIT"}},
			})
		}))
		defer server.Close()

		kg := reasoning.NewRemoteKnowledgeGraph(config.KGConfig{Endpoint: server.URL, Timeout: time.Second})
		providers, err := kg.GetCapabilityProviders(context.Background(), []string{"LIFE_DETECTION"})
		Expect(err).ToNot(HaveOccurred())
		Expect(providers).To(HaveKeyWithValue("LIFE_DETECTION", []string{"K9_UNIT"}))
	})
})

var _ = Describe("CachingKnowledgeGraph", func() {
	var (
		mr          *miniredis.Miniredis
		backingCall int
		inner       *reasoning.FakeKG
		kg          *reasoning.CachingKnowledgeGraph
	)

	BeforeEach(func() {
		var err error
		mr, err = miniredis.Run()
		Expect(err).ToNot(HaveOccurred())
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

		backingCall = 0
		inner = &reasoning.FakeKG{
			Rules: map[domain.DisasterType][]reasoning.Rule{
				domain.DisasterEarthquake: {{RuleID: "r1", SceneCode: "EQ-BASIC"}},
			},
		}
		kg = &reasoning.CachingKnowledgeGraph{
			Inner: &countingKG{FakeKG: inner, calls: &backingCall},
			Cache: cache.NewRedisCacheFromClient(client),
			TTL:   time.Minute,
		}
	})

	AfterEach(func() {
		mr.Close()
	})

	It("only calls the wrapped graph once per disaster type", func() {
		ctx := context.Background()

		rules, err := kg.GetTriggerRules(ctx, domain.DisasterEarthquake)
		Expect(err).ToNot(HaveOccurred())
		Expect(rules).To(HaveLen(1))
		Expect(backingCall).To(Equal(1))

		rules, err = kg.GetTriggerRules(ctx, domain.DisasterEarthquake)
		Expect(err).ToNot(HaveOccurred())
		Expect(rules).To(HaveLen(1))
		Expect(backingCall).To(Equal(1), "second lookup should be served from cache")
	})

	It("does not cache an error response", func() {
		failing := &reasoning.FakeKG{RulesErr: errors.New("kg down")}
		kg := &reasoning.CachingKnowledgeGraph{
			Inner: &countingKG{FakeKG: failing, calls: &backingCall},
			Cache: kg.Cache,
			TTL:   time.Minute,
		}

		_, err := kg.GetTriggerRules(context.Background(), domain.DisasterFlood)
		Expect(err).To(HaveOccurred())

		_, err = kg.GetTriggerRules(context.Background(), domain.DisasterFlood)
		Expect(err).To(HaveOccurred())
		Expect(backingCall).To(Equal(2), "an error response must not be served from cache")
	})
})

// countingKG tracks how many times GetTriggerRules reaches the wrapped
// FakeKG, to prove CachingKnowledgeGraph actually short-circuits on a hit.
type countingKG struct {
	*reasoning.FakeKG
	calls *int
}

func (c *countingKG) GetTriggerRules(ctx context.Context, disasterType domain.DisasterType) ([]reasoning.Rule, error) {
	*c.calls++
	return c.FakeKG.GetTriggerRules(ctx, disasterType)
}
