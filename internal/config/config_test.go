package config

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	var (
		tempDir    string
		configFile string
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "decision-core-config-test")
		Expect(err).NotTo(HaveOccurred())
		configFile = filepath.Join(tempDir, "config.yaml")
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	Describe("Load", func() {
		Context("when config file exists with valid content", func() {
			BeforeEach(func() {
				validConfig := `
server:
  port: "8080"
  metrics_port: "9090"

llm:
  provider: "anthropic"
  endpoint: "https://api.anthropic.com"
  model: "claude-test"
  timeout: "30s"
  temperature: 0.3
  max_tokens: 500
  max_context_size: 4000

rag:
  endpoint: "http://localhost:6333"
  top_k: 5
  timeout: "10s"

kg:
  endpoint: "bolt://localhost:7687"
  timeout: "10s"

db:
  dsn: "postgres://localhost/teams"
  timeout: "30s"

cache:
  addr: "localhost:6379"
  db: 0

paths:
  meta_task_library: "testdata/meta_tasks.json"
  hard_rules: "testdata/hard_rules.yaml"
  evaluation_weights: "testdata/weights.yaml"
`
				err := os.WriteFile(configFile, []byte(validConfig), 0644)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should load configuration successfully", func() {
				cfg, err := Load(configFile)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg).NotTo(BeNil())

				Expect(cfg.Server.Port).To(Equal("8080"))
				Expect(cfg.Server.MetricsPort).To(Equal("9090"))

				Expect(cfg.LLM.Provider).To(Equal("anthropic"))
				Expect(cfg.LLM.Model).To(Equal("claude-test"))
				Expect(cfg.LLM.Timeout).To(Equal(30 * time.Second))
				Expect(cfg.LLM.Temperature).To(Equal(float32(0.3)))
				Expect(cfg.LLM.MaxTokens).To(Equal(500))

				Expect(cfg.RAG.TopK).To(Equal(5))
				Expect(cfg.DB.DSN).To(Equal("postgres://localhost/teams"))
				Expect(cfg.Matching.AverageSpeedKMH).To(Equal(40.0))
			})
		})

		Context("when config file does not exist", func() {
			It("should return an error", func() {
				_, err := Load(filepath.Join(tempDir, "missing.yaml"))
				Expect(err).To(HaveOccurred())
			})
		})

		Context("when config file has invalid YAML", func() {
			BeforeEach(func() {
				err := os.WriteFile(configFile, []byte("server: [unterminated"), 0644)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return a parse error", func() {
				_, err := Load(configFile)
				Expect(err).To(HaveOccurred())
			})
		})

		Context("when a required field is missing", func() {
			BeforeEach(func() {
				err := os.WriteFile(configFile, []byte(`
server:
  port: "8080"
  metrics_port: "9090"
llm:
  provider: "anthropic"
`), 0644)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return a validation error", func() {
				_, err := Load(configFile)
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("DefaultMatchingConfig", func() {
		It("matches the spec's 40 km/h, 50 km step, 300 km cap, 0.70 floor", func() {
			m := DefaultMatchingConfig()
			Expect(m.AverageSpeedKMH).To(Equal(40.0))
			Expect(m.RadiusStepKM).To(Equal(50.0))
			Expect(m.MaxRadiusKM).To(Equal(300.0))
			Expect(m.MinCoverageRatio).To(Equal(0.70))
		})
	})
})
