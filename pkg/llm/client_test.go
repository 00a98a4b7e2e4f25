package llm

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/emergency-ai/decision-core/internal/config"
)

var _ = Describe("LLM Client", func() {
	var logger *logrus.Logger

	BeforeEach(func() {
		logger = logrus.New()
		logger.SetLevel(logrus.FatalLevel)
	})

	Describe("NewClient", func() {
		DescribeTable("creating new client",
			func(cfg config.LLMConfig, expectErr bool, errString string) {
				c, err := NewClient(cfg, logger)

				if expectErr {
					Expect(err).To(HaveOccurred())
					Expect(err.Error()).To(ContainSubstring(errString))
					Expect(c).To(BeNil())
				} else {
					Expect(err).ToNot(HaveOccurred())
					Expect(c).ToNot(BeNil())
					var iface Client = c
					Expect(iface).ToNot(BeNil())
				}
			},
			Entry("valid anthropic config",
				config.LLMConfig{Provider: "anthropic", Model: "claude-test", Timeout: 30 * time.Second},
				false, "",
			),
			Entry("invalid provider",
				config.LLMConfig{Provider: "invalid", Model: "test-model"},
				true, "unsupported provider: invalid",
			),
		)
	})

	Describe("Prompt generation", func() {
		var c *client

		BeforeEach(func() {
			cfg := config.LLMConfig{Provider: "anthropic", Model: "claude-test", Timeout: 30 * time.Second, MaxContextSize: 4000}
			created, err := NewClient(cfg, logger)
			Expect(err).ToNot(HaveOccurred())
			c = created.(*client)
		})

		It("renders the disaster description and hints into the prompt", func() {
			prompt, err := c.generateParsePrompt("M6.5 earthquake, building collapse", map[string]interface{}{
				"disaster_type": "earthquake",
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(prompt).To(ContainSubstring("M6.5 earthquake, building collapse"))
			Expect(prompt).To(ContainSubstring("earthquake"))
			Expect(prompt).To(ContainSubstring("<|system|>"))
			Expect(prompt).To(ContainSubstring("<|assistant|>"))
		})
	})

	Describe("decodeParsedDisaster", func() {
		It("clamps unknown enum values to unknown/medium", func() {
			parsed, err := decodeParsedDisaster(`{"disaster_type":"volcano","severity":"catastrophic","estimated_trapped":12}`)
			Expect(err).ToNot(HaveOccurred())
			Expect(parsed.DisasterType).To(BeEquivalentTo("unknown"))
			Expect(parsed.Severity).To(BeEquivalentTo("medium"))
			Expect(parsed.EstimatedTrapped).To(Equal(12))
		})

		It("errors when disaster_type is entirely absent", func() {
			_, err := decodeParsedDisaster(`{"severity":"high"}`)
			Expect(err).To(HaveOccurred())
		})

		It("errors on malformed JSON", func() {
			_, err := decodeParsedDisaster(`not json`)
			Expect(err).To(HaveOccurred())
		})
	})
})
