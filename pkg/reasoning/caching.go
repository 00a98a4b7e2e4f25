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

package reasoning

import (
	"context"
	"fmt"
	"time"

	"github.com/emergency-ai/decision-core/pkg/cache"
	"github.com/emergency-ai/decision-core/pkg/domain"
)

// CachingKnowledgeGraph wraps a KnowledgeGraph with a read-through cache
// keyed by disaster_type, since the trigger-response-rule set is
// immutable and startup-loaded in production (§5 of spec.md). A cache
// miss or error falls through to the wrapped graph and populates the
// entry for next time; GetCapabilityProviders is forwarded uncached
// since its key space (arbitrary capability-code sets) doesn't fit the
// same per-disaster_type cache shape.
type CachingKnowledgeGraph struct {
	Inner KnowledgeGraph
	Cache cache.Cache
	TTL   time.Duration
}

func (g *CachingKnowledgeGraph) GetTriggerRules(ctx context.Context, disasterType domain.DisasterType) ([]Rule, error) {
	key := fmt.Sprintf("kg:trigger-rules:%s", disasterType)

	var cached []Rule
	if hit, err := g.Cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	rules, err := g.Inner.GetTriggerRules(ctx, disasterType)
	if err != nil {
		return nil, err
	}
	_ = g.Cache.Set(ctx, key, rules, g.TTL)
	return rules, nil
}

func (g *CachingKnowledgeGraph) GetCapabilityProviders(ctx context.Context, capabilityCodes []string) (map[string][]string, error) {
	return g.Inner.GetCapabilityProviders(ctx, capabilityCodes)
}
