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

// Package config loads and validates the decision core's static
// configuration: adapter endpoints/timeouts, the meta-task library and
// scene→chain mapping paths, the hard-rule and weights sources, and
// server ports. Caches built from this configuration (§5 of spec.md)
// are loaded once at process start and are read-only thereafter. This
// package does not watch or reload its file; the only hot-reloaded
// input is the hard-rule policy file, watched by pkg/evaluation.
package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	sharederrors "github.com/emergency-ai/decision-core/pkg/shared/errors"
)

// ServerConfig holds the HTTP entry-point's listen configuration.
type ServerConfig struct {
	Port        string `yaml:"port" validate:"required"`
	MetricsPort string `yaml:"metrics_port" validate:"required"`
}

// LLMConfig holds the LLM adapter's connection parameters.
type LLMConfig struct {
	Provider       string        `yaml:"provider" validate:"required,oneof=anthropic localai bedrock"`
	Endpoint       string        `yaml:"endpoint"`
	Model          string        `yaml:"model" validate:"required"`
	APIKey         string        `yaml:"api_key"`
	Timeout        time.Duration `yaml:"timeout"`
	Temperature    float32       `yaml:"temperature"`
	MaxTokens      int           `yaml:"max_tokens"`
	MaxContextSize int           `yaml:"max_context_size"`
}

// RAGConfig holds the vector-store adapter's connection parameters.
type RAGConfig struct {
	Endpoint string        `yaml:"endpoint"`
	TopK     int           `yaml:"top_k"`
	Timeout  time.Duration `yaml:"timeout"`
}

// KGConfig holds the knowledge-graph adapter's connection parameters.
type KGConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// DBConfig holds the team-registry (relational) adapter's connection parameters.
type DBConfig struct {
	DSN     string        `yaml:"dsn"`
	Timeout time.Duration `yaml:"timeout"`
}

// CacheConfig holds the redis-backed cache adapter's connection parameters.
type CacheConfig struct {
	Addr string `yaml:"addr"`
	DB   int    `yaml:"db"`
}

// PipelineConfig holds orchestrator-wide defaults.
type PipelineConfig struct {
	DefaultDeadline time.Duration `yaml:"default_deadline"`
}

// MatchingConfig holds the resource matcher's defaults.
type MatchingConfig struct {
	AverageSpeedKMH    float64 `yaml:"average_speed_kmh"`
	RadiusStepKM       float64 `yaml:"radius_step_km"`
	MaxRadiusKM        float64 `yaml:"max_radius_km"`
	MinCoverageRatio   float64 `yaml:"min_coverage_ratio"`
}

// DefaultMatchingConfig returns the spec's matcher defaults.
func DefaultMatchingConfig() MatchingConfig {
	return MatchingConfig{
		AverageSpeedKMH:  40.0,
		RadiusStepKM:     50.0,
		MaxRadiusKM:      300.0,
		MinCoverageRatio: 0.70,
	}
}

// Paths holds the filesystem locations of the read-only caches loaded at startup.
type Paths struct {
	MetaTaskLibrary string `yaml:"meta_task_library"`
	HardRules       string `yaml:"hard_rules"`
	EvaluationWeights string `yaml:"evaluation_weights"`
}

// Config is the decision core's top-level configuration.
type Config struct {
	Server    ServerConfig   `yaml:"server"`
	LLM       LLMConfig      `yaml:"llm"`
	RAG       RAGConfig      `yaml:"rag"`
	KG        KGConfig       `yaml:"kg"`
	DB        DBConfig       `yaml:"db"`
	Cache     CacheConfig    `yaml:"cache"`
	Pipeline  PipelineConfig `yaml:"pipeline"`
	Matching  MatchingConfig `yaml:"matching"`
	Paths     Paths          `yaml:"paths"`
}

var validate = validator.New()

// Load reads, parses and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, sharederrors.FailedToWithDetails("read config file", "config", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, sharederrors.ParseError(path, "YAML", err)
	}

	applyDefaults(cfg)

	if err := validate.Struct(cfg); err != nil {
		return nil, sharederrors.ConfigurationError(path, err.Error())
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 120 * time.Second
	}
	if cfg.RAG.Timeout == 0 {
		cfg.RAG.Timeout = 10 * time.Second
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = 5
	}
	if cfg.KG.Timeout == 0 {
		cfg.KG.Timeout = 10 * time.Second
	}
	if cfg.DB.Timeout == 0 {
		cfg.DB.Timeout = 30 * time.Second
	}
	if cfg.Pipeline.DefaultDeadline == 0 {
		cfg.Pipeline.DefaultDeadline = 60 * time.Second
	}
	if cfg.Matching == (MatchingConfig{}) {
		cfg.Matching = DefaultMatchingConfig()
	} else {
		if cfg.Matching.AverageSpeedKMH == 0 {
			cfg.Matching.AverageSpeedKMH = 40.0
		}
		if cfg.Matching.RadiusStepKM == 0 {
			cfg.Matching.RadiusStepKM = 50.0
		}
		if cfg.Matching.MaxRadiusKM == 0 {
			cfg.Matching.MaxRadiusKM = 300.0
		}
		if cfg.Matching.MinCoverageRatio == 0 {
			cfg.Matching.MinCoverageRatio = 0.70
		}
	}
}
