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

// Package matching is the Resource Matcher & Allocator's matcher half
// (§4.5 of spec.md): geospatial proximity + capability-coverage querying
// of the team registry, radius expansion, and candidate scoring. The
// allocator half (NSGA-II / greedy) lives in pkg/allocation.
package matching

import "math"

const earthRadiusKM = 6371.0

// DistanceKM computes the great-circle distance between two points,
// standing in for the team registry's PostGIS ST_Distance query once
// candidates reach this side of the adapter boundary.
func DistanceKM(aLat, aLng, bLat, bLng float64) float64 {
	lat1 := aLat * math.Pi / 180
	lat2 := bLat * math.Pi / 180
	dLat := (bLat - aLat) * math.Pi / 180
	dLng := (bLng - aLng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKM * c
}
