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

package matching

import "github.com/emergency-ai/decision-core/pkg/domain"

// TeamCap derives the disaster-scale team cap per §4.5. constraints.MaxTeams,
// when set, always overrides the derived cap.
func TeamCap(parsed domain.ParsedDisaster, constraints domain.Constraints) int {
	if constraints.MaxTeams > 0 {
		return constraints.MaxTeams
	}

	catastrophic := parsed.DisasterType == domain.DisasterEarthquake ||
		(parsed.Severity == domain.SeverityCritical &&
			(parsed.AffectedPopulation > 10000 || parsed.EstimatedTrapped > 100))
	if catastrophic {
		return 500
	}

	if parsed.EstimatedTrapped > 50 {
		return 200
	}
	if parsed.EstimatedTrapped > 10 {
		return 100
	}

	switch parsed.Severity {
	case domain.SeverityCritical:
		return 200
	case domain.SeverityHigh:
		return 100
	case domain.SeverityLow:
		return 50
	default:
		return 100
	}
}
