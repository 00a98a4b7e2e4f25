package allocation_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/emergency-ai/decision-core/pkg/allocation"
	"github.com/emergency-ai/decision-core/pkg/domain"
)

func TestAllocation(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Allocation Suite")
}

func candidate(id string, caps []string, distanceKM, eta, score float64) domain.ResourceCandidate {
	return domain.ResourceCandidate{
		ResourceID:   id,
		ResourceName: id,
		Capabilities: caps,
		DistanceKM:   distanceKM,
		ETAMinutes:   eta,
		MatchScore:   score,
	}
}

var _ = Describe("Greedy", func() {
	required := []string{"LIFE_DETECTION", "STRUCTURAL_RESCUE"}

	It("covers every required capability when candidates allow it", func() {
		candidates := []domain.ResourceCandidate{
			candidate("t1", []string{"LIFE_DETECTION"}, 5, 10, 0.9),
			candidate("t2", []string{"STRUCTURAL_RESCUE"}, 8, 15, 0.7),
			candidate("t3", []string{"COOKING"}, 1, 2, 0.95),
		}

		solutions := allocation.Greedy(candidates, required)
		Expect(solutions).ToNot(BeEmpty())
		for _, s := range solutions {
			Expect(s.CoverageRate).To(Equal(1.0))
			Expect(s.RiskLevel).To(Equal(0.0))
			Expect(s.UncoveredCapabilities).To(BeEmpty())
		}
	})

	It("reports uncovered capabilities and a matching risk level when coverage is partial", func() {
		candidates := []domain.ResourceCandidate{
			candidate("t1", []string{"LIFE_DETECTION"}, 5, 10, 0.9),
		}

		solutions := allocation.Greedy(candidates, required)
		Expect(solutions).ToNot(BeEmpty())
		s := solutions[0]
		Expect(s.CoverageRate).To(Equal(0.5))
		Expect(s.RiskLevel).To(Equal(0.5))
		Expect(s.UncoveredCapabilities).To(ConsistOf("STRUCTURAL_RESCUE"))
	})

	It("produces monotonically non-decreasing coverage as more candidates are offered", func() {
		base := []domain.ResourceCandidate{
			candidate("t1", []string{"LIFE_DETECTION"}, 5, 10, 0.9),
		}
		extended := append(append([]domain.ResourceCandidate{}, base...),
			candidate("t2", []string{"STRUCTURAL_RESCUE"}, 8, 15, 0.7),
		)

		baseSolutions := allocation.Greedy(base, required)
		extendedSolutions := allocation.Greedy(extended, required)

		Expect(extendedSolutions[0].CoverageRate).To(BeNumerically(">=", baseSolutions[0].CoverageRate))
	})

	It("dedupes solutions selecting the identical resource set", func() {
		candidates := []domain.ResourceCandidate{
			candidate("t1", []string{"LIFE_DETECTION", "STRUCTURAL_RESCUE"}, 5, 10, 0.9),
		}

		solutions := allocation.Greedy(candidates, required)
		Expect(solutions).To(HaveLen(1))
	})
})

var _ = Describe("Allocate", func() {
	required := []string{"LIFE_DETECTION", "STRUCTURAL_RESCUE"}

	It("uses the greedy fallback when the candidate pool is small", func() {
		candidates := []domain.ResourceCandidate{
			candidate("t1", []string{"LIFE_DETECTION"}, 5, 10, 0.9),
			candidate("t2", []string{"STRUCTURAL_RESCUE"}, 8, 15, 0.7),
		}

		solutions := allocation.Allocate(candidates, required, 3)
		Expect(solutions).ToNot(BeEmpty())
		Expect(len(solutions)).To(BeNumerically("<=", 3))
	})

	It("attempts NSGA-II above the candidate threshold and returns feasible solutions", func() {
		candidates := make([]domain.ResourceCandidate, 0, 15)
		for i := 0; i < 15; i++ {
			caps := []string{"LIFE_DETECTION"}
			if i%2 == 0 {
				caps = []string{"STRUCTURAL_RESCUE"}
			}
			candidates = append(candidates, candidate(
				string(rune('a'+i)), caps, float64(i+1), float64(i+1)*5, 1.0-float64(i)*0.01,
			))
		}

		solutions := allocation.Allocate(candidates, required, 3)
		Expect(solutions).ToNot(BeEmpty())
		for _, s := range solutions {
			Expect(s.CoverageRate).To(BeNumerically(">=", 0.70))
		}
	})

	It("is deterministic for a fixed candidate pool", func() {
		candidates := make([]domain.ResourceCandidate, 0, 15)
		for i := 0; i < 15; i++ {
			caps := []string{"LIFE_DETECTION"}
			if i%2 == 0 {
				caps = []string{"STRUCTURAL_RESCUE"}
			}
			candidates = append(candidates, candidate(
				string(rune('a'+i)), caps, float64(i+1), float64(i+1)*5, 1.0-float64(i)*0.01,
			))
		}

		first := allocation.Allocate(candidates, required, 3)
		second := allocation.Allocate(candidates, required, 3)
		Expect(first).To(HaveLen(len(second)))
		for i := range first {
			Expect(first[i].CoverageRate).To(Equal(second[i].CoverageRate))
			Expect(first[i].ResponseTimeMin).To(Equal(second[i].ResponseTimeMin))
			Expect(first[i].TeamsCount).To(Equal(second[i].TeamsCount))
		}
	})
})
