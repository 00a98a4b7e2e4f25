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

package pipeline

import "github.com/emergency-ai/decision-core/pkg/domain"

// resolveLocation extracts the event location from the parsed disaster,
// if the understanding stage set one, otherwise from the request's
// structured_input.location, accepting both the {latitude,longitude} and
// the {lat,lng} spelling per the Open Question resolved in DESIGN.md.
func resolveLocation(req domain.Request, parsed *domain.ParsedDisaster) domain.Location {
	if parsed != nil && parsed.Location != nil {
		return *parsed.Location
	}

	raw, ok := req.StructuredInput["location"]
	if !ok {
		return domain.Location{}
	}
	loc, ok := raw.(map[string]interface{})
	if !ok {
		return domain.Location{}
	}

	return domain.Location{
		Latitude:  firstFloat(loc, "latitude", "lat"),
		Longitude: firstFloat(loc, "longitude", "lng"),
	}
}

func firstFloat(m map[string]interface{}, keys ...string) float64 {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			switch n := v.(type) {
			case float64:
				return n
			case float32:
				return float64(n)
			case int:
				return float64(n)
			}
		}
	}
	return 0
}
