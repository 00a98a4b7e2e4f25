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

package evaluation

import (
	"context"
	"fmt"
	"strings"

	"github.com/emergency-ai/decision-core/pkg/domain"
	"github.com/emergency-ai/decision-core/pkg/llm"
)

// Explain produces the Markdown explanation document for the
// recommendation. An LLM failure is not an error: it produces the
// minimal fallback explanation instead, per §6.
func Explain(ctx context.Context, client llm.Client, recommended domain.AllocationSolution, disaster domain.ParsedDisaster, alternatives []domain.AllocationSolution, taskSequence []domain.TaskSequenceItem) string {
	top3 := alternatives
	if len(top3) > 3 {
		top3 = top3[:3]
	}

	explanation, err := client.ExplainScheme(ctx, llm.ExplainRequest{
		Recommended:  recommended,
		Disaster:     disaster,
		Alternatives: top3,
		TaskSequence: taskSequence,
	})
	if err != nil || explanation == nil {
		return minimalExplanation(recommended)
	}
	return renderMarkdown(*explanation)
}

func renderMarkdown(e llm.Explanation) string {
	var b strings.Builder
	b.WriteString("## Summary\n" + e.Summary + "\n\n")
	b.WriteString("## Situation Assessment\n" + e.SituationAssessment + "\n\n")
	b.WriteString("## Selection Reason\n" + e.SelectionReason + "\n\n")
	writeBulletSection(&b, "Key Advantages", e.KeyAdvantages)
	writeBulletSection(&b, "Resource Deployment", e.ResourceDeployment)
	writeBulletSection(&b, "Timeline", e.Timeline)
	writeBulletSection(&b, "Coordination Points", e.CoordinationPoints)
	writeBulletSection(&b, "Potential Risks", e.PotentialRisks)
	writeBulletSection(&b, "Mitigation Measures", e.MitigationMeasures)
	writeBulletSection(&b, "Execution Suggestions", e.ExecutionSuggestions)
	b.WriteString("## Commander Notes\n" + e.CommanderNotes + "\n")
	return b.String()
}

func writeBulletSection(b *strings.Builder, title string, items []string) {
	b.WriteString("## " + title + "\n")
	for _, item := range items {
		b.WriteString("- " + item + "\n")
	}
	b.WriteString("\n")
}

// minimalExplanation is the §6 fallback: a list of allocations with
// per-team assigned capabilities and the solution's headline metrics.
func minimalExplanation(solution domain.AllocationSolution) string {
	var b strings.Builder
	b.WriteString("## Summary\n")
	b.WriteString(fmt.Sprintf("%d teams allocated, %.0f%% capability coverage, response time %.0f min.\n\n",
		solution.TeamsCount, solution.CoverageRate*100, solution.ResponseTimeMin))
	b.WriteString("## Resource Deployment\n")
	for _, a := range solution.Allocations {
		b.WriteString(fmt.Sprintf("- %s (%s): %s, ETA %.0f min\n",
			a.ResourceName, a.ResourceID, strings.Join(a.AssignedCapabilities, ", "), a.ETAMinutes))
	}
	if len(solution.UncoveredCapabilities) > 0 {
		b.WriteString("\n## Potential Risks\n")
		b.WriteString("- Uncovered capabilities: " + strings.Join(solution.UncoveredCapabilities, ", ") + "\n")
	}
	return b.String()
}
