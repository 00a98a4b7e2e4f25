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

// Package domain holds the immutable records that flow through the
// decision pipeline: Request in, Output out, and every intermediate
// record a stage produces along the way. Ownership of each record is
// singular -- the stage that writes it -- and subsequent stages only read.
package domain

import "time"

// Location is a point expressed in either {latitude,longitude} or
// {lat,lng} form, per the Open Question resolved in DESIGN.md: both
// spellings are accepted on input.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Request is the immutable pipeline input.
type Request struct {
	EventID              string                 `json:"event_id"`
	ScenarioID           string                 `json:"scenario_id"`
	DisasterDescription  string                 `json:"disaster_description"`
	StructuredInput      map[string]interface{} `json:"structured_input"`
	Constraints          Constraints            `json:"constraints"`
	OptimizationWeights  *EvaluationWeights      `json:"optimization_weights,omitempty"`
	Deadline             time.Time              `json:"-"`
}

// Constraints holds the recognized keys of Request.constraints.
type Constraints struct {
	MaxResponseTimeHours float64 `json:"max_response_time_hours"`
	MaxTeams             int     `json:"max_teams"`
	NAlternatives        int     `json:"n_alternatives"`
}

// DefaultConstraints returns the spec's defaults: 2h response cap, 5 alternatives.
func DefaultConstraints() Constraints {
	return Constraints{MaxResponseTimeHours: 2.0, NAlternatives: 5}
}

// DisasterType enumerates the recognized disaster categories.
type DisasterType string

const (
	DisasterEarthquake DisasterType = "earthquake"
	DisasterFlood      DisasterType = "flood"
	DisasterHazmat     DisasterType = "hazmat"
	DisasterFire       DisasterType = "fire"
	DisasterLandslide  DisasterType = "landslide"
	DisasterUnknown    DisasterType = "unknown"
)

// Severity enumerates disaster severity levels.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Priority enumerates rule/task priority ranks, ordered critical < high < medium < low.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// PriorityRank returns the ascending sort rank for a priority (lower sorts first).
func PriorityRank(p Priority) int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// ParsedDisaster is produced by the Disaster Understanding stage.
type ParsedDisaster struct {
	DisasterType        DisasterType           `json:"disaster_type"`
	Severity             Severity              `json:"severity"`
	Location             *Location             `json:"location,omitempty"`
	Magnitude            *float64              `json:"magnitude,omitempty"`
	DepthKM              *float64              `json:"depth_km,omitempty"`
	AffectedAreaKM2       *float64              `json:"affected_area_km2,omitempty"`
	DisasterLevel         string                `json:"disaster_level,omitempty"` // I..IV
	HasBuildingCollapse   bool                  `json:"has_building_collapse"`
	HasTrappedPersons     bool                  `json:"has_trapped_persons"`
	HasSecondaryFire      bool                  `json:"has_secondary_fire"`
	HasHazmatLeak         bool                  `json:"has_hazmat_leak"`
	HasRoadDamage         bool                  `json:"has_road_damage"`
	EstimatedTrapped      int                   `json:"estimated_trapped"`
	AffectedPopulation    int                   `json:"affected_population"`
	AdditionalInfo        map[string]interface{} `json:"additional_info"`
}

// SimilarCase is a historical-case retrieval result from the RAG adapter.
type SimilarCase struct {
	CaseID          string   `json:"case_id"`
	DisasterType    string   `json:"disaster_type"`
	Summary         string   `json:"summary"`
	SimilarityScore float64  `json:"similarity_score"`
	Lessons         []string `json:"lessons,omitempty"`
	BestPractices   []string `json:"best_practices,omitempty"`
}

// MatchedRule is a triggered rule produced by the Rule Reasoning stage.
type MatchedRule struct {
	RuleID                 string   `json:"rule_id"`
	RuleName                string   `json:"rule_name"`
	Priority                Priority `json:"priority"`
	Weight                  float64  `json:"weight"`
	SceneCode               string   `json:"scene_code"`
	TriggeredTaskCodes      []string `json:"triggered_task_codes"`
	RequiredCapabilityCodes []string `json:"required_capability_codes"`
	MatchReason             string   `json:"match_reason"`
}

// CapabilityRequirement is a deduplicated capability need produced by Reasoning.
type CapabilityRequirement struct {
	CapabilityCode   string   `json:"capability_code"`
	CapabilityName   string   `json:"capability_name"`
	Priority         Priority `json:"priority"`
	ProvidedBy       []string `json:"provided_by"`
}

// TaskSequenceItem is one step of the HTN-decomposed execution sequence.
type TaskSequenceItem struct {
	SequenceIndex int      `json:"sequence_index"`
	TaskID        string   `json:"task_id"`
	TaskName      string   `json:"task_name"`
	DependsOn     []string `json:"depends_on"`
	SceneCodes    []string `json:"scene_codes"`
}

// ParallelGroup is a set of task ids sharing a topological level.
type ParallelGroup struct {
	TaskIDs []string `json:"task_ids"`
}

// ResourceCandidate is a scored rescue team eligible for allocation.
type ResourceCandidate struct {
	ResourceID      string   `json:"resource_id"`
	ResourceName    string   `json:"resource_name"`
	ResourceType    string   `json:"resource_type"`
	Capabilities    []string `json:"capabilities"`
	DistanceKM      float64  `json:"distance_km"`
	ETAMinutes      float64  `json:"eta_minutes"`
	CapabilityLevel int      `json:"capability_level"`
	Personnel       int      `json:"personnel"`
	MatchScore      float64  `json:"match_score"`
	// RescueCapacity is supplemented from original_source/state.py: personnel*2, floor 5.
	RescueCapacity int `json:"rescue_capacity"`
}

// Allocation is one team's assignment within a solution.
type Allocation struct {
	ResourceID           string   `json:"resource_id"`
	ResourceName         string   `json:"resource_name"`
	AssignedCapabilities []string `json:"assigned_capabilities"`
	DistanceKM           float64  `json:"distance_km"`
	ETAMinutes           float64  `json:"eta_minutes"`
	MatchScore           float64  `json:"match_score"`
}

// AllocationSolution is a candidate response plan.
type AllocationSolution struct {
	SolutionID              string       `json:"solution_id"`
	Allocations             []Allocation `json:"allocations"`
	ResponseTimeMin         float64      `json:"response_time_min"`
	CoverageRate            float64      `json:"coverage_rate"`
	TotalScore              float64      `json:"total_score"`
	RiskLevel               float64      `json:"risk_level"`
	UncoveredCapabilities   []string     `json:"uncovered_capabilities"`
	TeamsCount              int          `json:"teams_count"`
	// Supplemented from original_source/state.py (§4 of SPEC_FULL.md).
	TotalRescueCapacity   int     `json:"total_rescue_capacity"`
	CapacityCoverageRate  float64 `json:"capacity_coverage_rate"`
	CapacityWarning       string  `json:"capacity_warning,omitempty"`
	ExecutionPath         string  `json:"execution_path,omitempty"`
}

// EvaluationWeights holds the five soft-dimension weights, which must sum to 1.0.
type EvaluationWeights struct {
	SuccessRate   float64 `json:"success_rate" yaml:"success_rate"`
	ResponseTime  float64 `json:"response_time" yaml:"response_time"`
	CoverageRate  float64 `json:"coverage_rate" yaml:"coverage_rate"`
	Risk          float64 `json:"risk" yaml:"risk"`
	Redundancy    float64 `json:"redundancy" yaml:"redundancy"`
}

// DefaultEvaluationWeights returns the spec's default 5-D weights.
func DefaultEvaluationWeights() EvaluationWeights {
	return EvaluationWeights{
		SuccessRate:  0.35,
		ResponseTime: 0.30,
		CoverageRate: 0.20,
		Risk:         0.05,
		Redundancy:   0.10,
	}
}

// Sum returns the sum of the five weights.
func (w EvaluationWeights) Sum() float64 {
	return w.SuccessRate + w.ResponseTime + w.CoverageRate + w.Risk + w.Redundancy
}

// SoftScores holds the five normalized dimension scores for one solution.
type SoftScores struct {
	SuccessRate  float64 `json:"success_rate"`
	ResponseTime float64 `json:"response_time"`
	CoverageRate float64 `json:"coverage_rate"`
	Risk         float64 `json:"risk"`
	Redundancy   float64 `json:"redundancy"`
}

// SchemeScore is the Evaluator's per-solution verdict.
type SchemeScore struct {
	SchemeID            string     `json:"scheme_id"`
	HardRulePassed       bool       `json:"hard_rule_passed"`
	HardRuleViolations   []string   `json:"hard_rule_violations"`
	SoftRuleScores       SoftScores `json:"soft_rule_scores"`
	WeightedScore        float64    `json:"weighted_score"`
	Rank                 int        `json:"rank"`
	CatastropheMode      bool       `json:"catastrophe_mode"`
	RequiresReinforcement bool      `json:"requires_reinforcement"`
	ReinforcementLevel   string     `json:"reinforcement_level,omitempty"`
	ReinforcementMessage string     `json:"reinforcement_message,omitempty"`
	CapacityWarning      string     `json:"capacity_warning,omitempty"`
}

// Trace is the orchestrator's append-only execution record.
type Trace struct {
	PhasesExecuted    []string          `json:"phases_executed"`
	LLMCalls          int               `json:"llm_calls"`
	RAGCalls          int               `json:"rag_calls"`
	KGCalls           int               `json:"kg_calls"`
	Notes             map[string]interface{} `json:"notes"`
	SearchExpanded    bool              `json:"search_expanded,omitempty"`
	InitialDistanceKM float64           `json:"initial_distance_km,omitempty"`
	FinalDistanceKM   float64           `json:"final_distance_km,omitempty"`
}

// NewTrace returns an initialized, empty Trace.
func NewTrace() *Trace {
	return &Trace{Notes: map[string]interface{}{}}
}

// Append records a stage name as executed.
func (t *Trace) Append(stage string) {
	t.PhasesExecuted = append(t.PhasesExecuted, stage)
}

// State is the mutable pipeline state record threaded through stages.
// Each stage reads fields written by earlier stages and returns a partial
// update that the orchestrator merges in with last-writer-wins semantics.
type State struct {
	Request Request

	ParsedDisaster        *ParsedDisaster
	SimilarCases          []SimilarCase
	UnderstandingSummary  string

	MatchedRules           []MatchedRule
	CapabilityRequirements []CapabilityRequirement

	SceneCodes    []string
	TaskSequence  []TaskSequenceItem
	ParallelTasks []ParallelGroup

	Candidates []ResourceCandidate

	Solutions []AllocationSolution

	SchemeScores       []SchemeScore
	RecommendedScheme  *AllocationSolution
	RecommendedScore   *SchemeScore
	SchemeExplanation  string

	Trace  *Trace
	Errors []string

	StartedAt time.Time
}

// NewState creates the initial pipeline state for a Request.
func NewState(req Request) *State {
	return &State{
		Request:   req,
		Trace:     NewTrace(),
		StartedAt: time.Now(),
	}
}

// AddError appends a human-readable error message to the state.
func (s *State) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}

// Output is the pipeline's final, assembled result.
type Output struct {
	Success              bool                    `json:"success"`
	EventID              string                  `json:"event_id"`
	ScenarioID           string                  `json:"scenario_id"`
	Status               string                  `json:"status"` // completed|failed
	Understanding        *UnderstandingOutput    `json:"understanding,omitempty"`
	Reasoning            *ReasoningOutput        `json:"reasoning,omitempty"`
	HTNDecomposition     *HTNOutput              `json:"htn_decomposition,omitempty"`
	Matching             *MatchingOutput         `json:"matching,omitempty"`
	Optimization         *OptimizationOutput     `json:"optimization,omitempty"`
	RecommendedScheme    *AllocationSolution     `json:"recommended_scheme"`
	SchemeExplanation    string                  `json:"scheme_explanation"`
	Trace                *Trace                  `json:"trace"`
	Errors               []string                `json:"errors"`
	ExecutionTimeMS      int64                   `json:"execution_time_ms"`
	CompletedAt          string                  `json:"completed_at"`
}

// UnderstandingOutput is the Output-shaped view of the Understanding stage's results.
type UnderstandingOutput struct {
	ParsedDisaster *ParsedDisaster `json:"parsed_disaster"`
	SimilarCases   []SimilarCase   `json:"similar_cases"`
	Summary        string          `json:"summary"`
}

// ReasoningOutput is the Output-shaped view of the Rule Reasoning stage's results.
type ReasoningOutput struct {
	MatchedRules           []MatchedRule           `json:"matched_rules"`
	CapabilityRequirements []CapabilityRequirement `json:"capability_requirements"`
}

// HTNOutput is the Output-shaped view of the HTN Decomposer's results.
type HTNOutput struct {
	SceneCodes    []string           `json:"scene_codes"`
	TaskSequence  []TaskSequenceItem `json:"task_sequence"`
	ParallelTasks []ParallelGroup    `json:"parallel_tasks"`
}

// MatchingOutput is the Output-shaped view of the Resource Matcher's results.
type MatchingOutput struct {
	Candidates []ResourceCandidate `json:"candidates"`
}

// OptimizationOutput is the Output-shaped view of the Allocator/Evaluator's results.
type OptimizationOutput struct {
	Solutions    []AllocationSolution `json:"solutions"`
	SchemeScores []SchemeScore        `json:"scheme_scores"`
}
