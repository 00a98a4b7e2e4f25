package evaluation

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/emergency-ai/decision-core/pkg/domain"
	"github.com/emergency-ai/decision-core/pkg/llm"
)

func sol(id string, teamsCount int, responseTime, coverage float64, allocations ...domain.Allocation) domain.AllocationSolution {
	return domain.AllocationSolution{
		SolutionID:      id,
		Allocations:     allocations,
		ResponseTimeMin: responseTime,
		CoverageRate:    coverage,
		RiskLevel:       1 - coverage,
		TeamsCount:      teamsCount,
	}
}

var _ = Describe("HardRuleEvaluator", func() {
	var evaluator *HardRuleEvaluator

	BeforeEach(func() {
		evaluator = NewHardRuleEvaluator(context.Background(), "", nil)
	})

	It("compiles the default policy without degrading", func() {
		Expect(evaluator.Degraded()).To(BeFalse())
	})

	It("passes a solution meeting all three defaults", func() {
		violations, err := evaluator.Evaluate(context.Background(), sol("s1", 3, 60, 0.9), DefaultHardRuleConfig())
		Expect(err).ToNot(HaveOccurred())
		Expect(violations).To(BeEmpty())
	})

	It("reports a teams_count violation", func() {
		violations, err := evaluator.Evaluate(context.Background(), sol("s1", 0, 60, 0.9), DefaultHardRuleConfig())
		Expect(err).ToNot(HaveOccurred())
		Expect(violations).To(ContainElement(ContainSubstring("teams_count")))
	})

	It("reports a coverage-floor violation", func() {
		violations, err := evaluator.Evaluate(context.Background(), sol("s1", 2, 60, 0.5), DefaultHardRuleConfig())
		Expect(err).ToNot(HaveOccurred())
		Expect(violations).To(ContainElement(ContainSubstring("coverage_rate")))
	})

	It("falls back to native predicates when the policy fails to compile", func() {
		bad := NewHardRuleEvaluator(context.Background(), "not valid rego {{{", nil)
		Expect(bad.Degraded()).To(BeTrue())

		violations, err := bad.Evaluate(context.Background(), sol("s1", 0, 200, 0.1), DefaultHardRuleConfig())
		Expect(err).ToNot(HaveOccurred())
		Expect(violations).To(HaveLen(3))
	})
})

var _ = Describe("ScoreSolution", func() {
	It("scores a fully-covered, fast solution near 1.0 on its dimensions", func() {
		s := sol("s1", 2, 10, 1.0, domain.Allocation{ResourceID: "t1", MatchScore: 0.9, AssignedCapabilities: []string{"A"}})
		scores := ScoreSolution(s, domain.DefaultEvaluationWeights(), 0)
		Expect(scores.CoverageRate).To(Equal(1.0))
		Expect(scores.ResponseTime).To(BeNumerically(">", 0.9))
		Expect(scores.Risk).To(Equal(1.0))
	})

	It("weights sum to a value within [0,1]", func() {
		s := sol("s1", 2, 10, 1.0, domain.Allocation{ResourceID: "t1", MatchScore: 0.9, AssignedCapabilities: []string{"A"}})
		scores := ScoreSolution(s, domain.DefaultEvaluationWeights(), 0)
		weighted := WeightedScore(scores, domain.DefaultEvaluationWeights())
		Expect(weighted).To(BeNumerically(">=", 0))
		Expect(weighted).To(BeNumerically("<=", 1))
	})
})

var _ = Describe("Evaluate", func() {
	weights := domain.DefaultEvaluationWeights()
	disaster := domain.ParsedDisaster{DisasterType: domain.DisasterEarthquake, EstimatedTrapped: 50}

	It("recommends the best passing solution and renders an LLM explanation", func() {
		evaluator := NewHardRuleEvaluator(context.Background(), "", nil)
		client := &llm.FakeClient{Explanation: &llm.Explanation{Summary: "ok"}}

		solutions := []domain.AllocationSolution{
			sol("s1", 3, 30, 1.0, domain.Allocation{ResourceID: "t1", MatchScore: 0.9, AssignedCapabilities: []string{"A", "B"}}),
			sol("s2", 1, 100, 0.5, domain.Allocation{ResourceID: "t2", MatchScore: 0.6, AssignedCapabilities: []string{"A"}}),
		}

		result := Evaluate(context.Background(), evaluator, client, solutions, nil, disaster, nil, weights, DefaultHardRuleConfig(), 0)
		Expect(result.Recommended).ToNot(BeNil())
		Expect(result.Recommended.SolutionID).To(Equal("s1"))
		Expect(result.RecommendedScore.CatastropheMode).To(BeFalse())
		Expect(result.Explanation).To(ContainSubstring("ok"))
	})

	It("engages catastrophe mode when every solution fails hard rules", func() {
		evaluator := NewHardRuleEvaluator(context.Background(), "", nil)
		client := &llm.FakeClient{ExplainErr: errFake("llm down")}

		solutions := []domain.AllocationSolution{
			sol("s1", 0, 200, 0.1, domain.Allocation{ResourceID: "t1", MatchScore: 0.5, AssignedCapabilities: []string{"LIFE_DETECTION"}}),
			sol("s2", 0, 200, 0.1, domain.Allocation{ResourceID: "t2", MatchScore: 0.4, AssignedCapabilities: []string{"STRUCTURAL_RESCUE"}}),
		}

		result := Evaluate(context.Background(), evaluator, client, solutions, nil, disaster, nil, weights, DefaultHardRuleConfig(), 0)
		Expect(result.Recommended).ToNot(BeNil())
		Expect(result.RecommendedScore.CatastropheMode).To(BeTrue())
		Expect(result.RecommendedScore.RequiresReinforcement).To(BeTrue())
		Expect(result.RecommendedScore.ReinforcementLevel).ToNot(BeEmpty())
		Expect(result.Explanation).To(ContainSubstring("teams allocated"))
	})

	It("returns an empty result for no solutions", func() {
		evaluator := NewHardRuleEvaluator(context.Background(), "", nil)
		result := Evaluate(context.Background(), evaluator, &llm.FakeClient{}, nil, nil, disaster, nil, weights, DefaultHardRuleConfig(), 0)
		Expect(result.Recommended).To(BeNil())
	})
})

type errFake string

func (e errFake) Error() string { return string(e) }
