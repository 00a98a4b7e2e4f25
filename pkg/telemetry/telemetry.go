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

// Package telemetry wires the decision core's stage and adapter latency
// into Prometheus metrics and OpenTelemetry spans, mirroring the
// teacher's observability stack instead of ad-hoc stdlib logging.
package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Metrics holds the process-scoped Prometheus collectors for the pipeline.
// It is constructed once at startup and is safe for concurrent use across
// requests.
type Metrics struct {
	StageDuration   *prometheus.HistogramVec
	StageErrors     *prometheus.CounterVec
	AdapterCalls    *prometheus.CounterVec
	PipelineRuns    *prometheus.CounterVec
}

// NewMetrics constructs and registers the pipeline's collectors against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "decision_core",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		StageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "decision_core",
			Name:      "stage_errors_total",
			Help:      "Count of stage executions that appended an error.",
		}, []string{"stage"}),
		AdapterCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "decision_core",
			Name:      "adapter_calls_total",
			Help:      "Count of external adapter calls by adapter and outcome.",
		}, []string{"adapter", "outcome"}),
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "decision_core",
			Name:      "pipeline_runs_total",
			Help:      "Count of completed pipeline runs by status.",
		}, []string{"status"}),
	}
	reg.MustRegister(m.StageDuration, m.StageErrors, m.AdapterCalls, m.PipelineRuns)
	return m
}

// ObserveStage records a stage's elapsed duration and, if err != nil, bumps
// the stage error counter.
func (m *Metrics) ObserveStage(stage string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	if err != nil {
		m.StageErrors.WithLabelValues(stage).Inc()
	}
}

// ObserveAdapterCall records an adapter invocation's outcome ("ok" or "error").
func (m *Metrics) ObserveAdapterCall(adapter string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.AdapterCalls.WithLabelValues(adapter, outcome).Inc()
}

// ObserveRun records a completed pipeline run's terminal status.
func (m *Metrics) ObserveRun(success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	m.PipelineRuns.WithLabelValues(status).Inc()
}

var tracer = otel.Tracer("decision-core/pipeline")

// StartSpan starts a child span named for the given stage or adapter call.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}
