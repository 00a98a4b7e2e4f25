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

// Command decision-service is the thin HTTP entry point around the
// decision core: it loads configuration, wires every adapter behind a
// circuit breaker, and exposes the pipeline's single Analyze operation
// (§6 of spec.md) over a small JSON/HTTP contract. Routing, CORS and
// config validation follow the teacher's own gateway-style wiring
// instead of a hand-rolled mux.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/emergency-ai/decision-core/internal/config"
	"github.com/emergency-ai/decision-core/pkg/cache"
	"github.com/emergency-ai/decision-core/pkg/domain"
	"github.com/emergency-ai/decision-core/pkg/evaluation"
	"github.com/emergency-ai/decision-core/pkg/htn"
	"github.com/emergency-ai/decision-core/pkg/llm"
	"github.com/emergency-ai/decision-core/pkg/matching"
	"github.com/emergency-ai/decision-core/pkg/pipeline"
	"github.com/emergency-ai/decision-core/pkg/rag"
	"github.com/emergency-ai/decision-core/pkg/reasoning"
	"github.com/emergency-ai/decision-core/pkg/resilience"
	"github.com/emergency-ai/decision-core/pkg/shared/logging"
	"github.com/emergency-ai/decision-core/pkg/telemetry"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	configPath := os.Getenv("DECISION_CORE_CONFIG")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Warn("tracer provider shutdown failed")
		}
	}()

	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)

	orchestrator, cleanup := buildOrchestrator(cfg, logger, metrics)
	defer cleanup()

	router := newRouter(cfg, logger, orchestrator, reg)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}
	metricsSrv := &http.Server{
		Addr:    ":" + cfg.Server.MetricsPort,
		Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}

	go func() {
		logger.WithField("addr", srv.Addr).Info("decision-service listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server failed")
		}
	}()
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	_ = metricsSrv.Shutdown(ctx)
}

// buildOrchestrator wires every adapter named in SPEC_FULL.md's domain
// stack behind a named circuit breaker and returns the ready-to-serve
// Orchestrator plus a cleanup func releasing its background watchers.
func buildOrchestrator(cfg *config.Config, logger *logrus.Logger, metrics *telemetry.Metrics) (*pipeline.Orchestrator, func()) {
	ctx := context.Background()

	llmClient, err := llm.NewClient(cfg.LLM, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to construct LLM client")
	}

	var ragStore rag.Store
	if cfg.RAG.Endpoint != "" {
		ragStore = rag.NewRemoteStore(cfg.RAG)
	} else {
		logger.Warn("no rag.endpoint configured, falling back to the in-memory case store")
		ragStore = rag.NewInMemoryStore(nil, rag.BagOfWordsEmbed(64))
	}

	var kg reasoning.KnowledgeGraph = reasoning.NoopKnowledgeGraph{}
	if cfg.KG.Endpoint != "" {
		kg = reasoning.NewRemoteKnowledgeGraph(cfg.KG)
	} else {
		logger.Warn("no kg.endpoint configured, rule reasoning will always use the builtin rule set")
	}
	if cfg.Cache.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Cache.Addr, DB: cfg.Cache.DB})
		kg = &reasoning.CachingKnowledgeGraph{
			Inner: kg,
			Cache: cache.NewRedisCacheFromClient(redisClient),
			TTL:   1 * time.Hour,
		}
	}

	var registry matching.Registry
	if cfg.DB.DSN != "" {
		db, err := sqlx.Connect("pgx", cfg.DB.DSN)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to the team registry database")
		}
		registry = matching.NewPGRegistry(db)
	} else {
		logger.Warn("no db.dsn configured, the resource matcher will see no standby teams")
		registry = &matching.FakeRegistry{}
	}

	htnLibrary, err := htn.LoadLibrary(cfg.Paths.MetaTaskLibrary)
	if err != nil {
		logger.WithError(err).Fatal("failed to load the meta-task library")
	}

	hardRulesSource := ""
	if cfg.Paths.HardRules != "" {
		data, err := os.ReadFile(cfg.Paths.HardRules)
		if err != nil {
			logger.WithError(err).Warn("failed to read the hard-rule policy, using the embedded default")
		} else {
			hardRulesSource = string(data)
		}
	}
	hardRules := evaluation.NewHardRuleEvaluator(ctx, hardRulesSource, logger)
	if cfg.Paths.HardRules != "" {
		if err := hardRules.StartHotReload(ctx, cfg.Paths.HardRules); err != nil {
			logger.WithError(err).Warn("failed to start hard-rule policy hot reload")
		}
	}

	breakerLogger := logger
	llmBreaker := resilience.NewBreaker("llm", 0.5, 5, 30*time.Second, breakerLogger)
	ragBreaker := resilience.NewBreaker("rag", 0.5, 5, 30*time.Second, breakerLogger)
	kgBreaker := resilience.NewBreaker("kg", 0.5, 5, 30*time.Second, breakerLogger)
	registryBreaker := resilience.NewBreaker("registry", 0.5, 5, 30*time.Second, breakerLogger)

	orchestrator := &pipeline.Orchestrator{
		LLMClient:      &breakerLLMClient{inner: llmClient, breaker: llmBreaker},
		RAGStore:       &breakerRAGStore{inner: ragStore, breaker: ragBreaker},
		KG:             &breakerKnowledgeGraph{inner: kg, breaker: kgBreaker},
		HTNLibrary:     htnLibrary,
		Registry:       &breakerRegistry{inner: registry, breaker: registryBreaker},
		MatchingConfig: cfg.Matching,
		HardRules:      hardRules,
		HardRuleConfig: evaluation.DefaultHardRuleConfig(),
		Logger:         logger,
		Metrics:        metrics,
	}

	return orchestrator, hardRules.Stop
}

func newRouter(cfg *config.Config, logger *logrus.Logger, orchestrator *pipeline.Orchestrator, reg *prometheus.Registry) chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})
	r.Get("/ready", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	r.Post("/api/v1/analyze", analyzeHandler(cfg, logger, orchestrator))

	return r
}

// analyzeHandler decodes a Request, runs it through the Orchestrator and
// writes the resulting Output, per §6's single caller-facing operation.
func analyzeHandler(cfg *config.Config, logger *logrus.Logger, orchestrator *pipeline.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fields := logging.HTTPFields(r.Method, r.URL.Path, 0)

		var req domain.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.WithFields(fields.Error(err).ToLogrus()).Warn("invalid analyze request body")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid request body"})
			return
		}

		if req.Constraints == (domain.Constraints{}) {
			req.Constraints = domain.DefaultConstraints()
		}
		if req.Deadline.IsZero() {
			req.Deadline = time.Now().Add(cfg.Pipeline.DefaultDeadline)
		}

		out := orchestrator.Analyze(r.Context(), req)

		w.Header().Set("Content-Type", "application/json")
		if !out.Success {
			w.WriteHeader(http.StatusUnprocessableEntity)
		}
		if err := json.NewEncoder(w).Encode(out); err != nil {
			logger.WithFields(fields.Error(err).ToLogrus()).Error("failed to encode analyze response")
		}
	}
}
