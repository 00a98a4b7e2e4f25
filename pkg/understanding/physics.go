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

package understanding

import (
	"math"

	"github.com/emergency-ai/decision-core/pkg/domain"
)

// physicsResult is the assessor output that overrides the LLM's estimate
// for the same four fields, per §4.2 of spec.md, supplemented from
// original_source/planning/algorithms/assessment/disaster_assessment.py.
type physicsResult struct {
	AffectedAreaKM2    float64
	AffectedPopulation int
	DisasterLevel      string
	EstimatedDeaths    int
	EstimatedInjuries  int
	EstimatedMissing   int
}

// intensityAttenuation constants from the original assessor's simplified
// USGS ShakeMap model: I(R) = 1.5*M - k*log10(hypoDist) - c*hypoDist + 3.0.
const (
	intensityK = 1.5
	intensityC = 0.003
)

var intensitySampleDistancesKM = []float64{0.1, 5, 10, 20, 30, 50, 80, 100}

// calibrateEarthquake computes intensity attenuation over a fixed set of
// sample distances, finds the radius where intensity drops below 6
// (affected-area threshold), and derives population and casualties.
func calibrateEarthquake(magnitude, depthKM float64, populationDensity, buildingVulnerability float64) physicsResult {
	if populationDensity <= 0 {
		populationDensity = 1000
	}
	if buildingVulnerability <= 0 {
		buildingVulnerability = 0.5
	}

	affectedAreaKM2 := 0.0
	maxSampled := intensitySampleDistancesKM[len(intensitySampleDistancesKM)-1]
	found := false
	for _, r := range intensitySampleDistancesKM {
		hypoDist := math.Sqrt(r*r + depthKM*depthKM)
		intensity := 1.5*magnitude - intensityK*math.Log10(hypoDist) - intensityC*hypoDist + 3.0
		intensity = clampIntensity(intensity)
		if intensity < 6 {
			affectedAreaKM2 = math.Pi * r * r
			found = true
			break
		}
	}
	if !found {
		affectedAreaKM2 = math.Pi * maxSampled * maxSampled
	}

	affectedPopulation := int(affectedAreaKM2 * populationDensity)

	baseRate := 0.001
	magnitudeFactor := math.Pow(10, magnitude-5)
	depthFactor := math.Max(0.5, 2-depthKM/20)
	deathRate := baseRate * magnitudeFactor * depthFactor * buildingVulnerability
	deaths := int(float64(affectedPopulation) * deathRate)
	injuries := deaths * 3
	missing := int(float64(deaths) * 0.2)

	level := classifyEarthquakeLevel(magnitude, deaths)

	return physicsResult{
		AffectedAreaKM2:    affectedAreaKM2,
		AffectedPopulation: affectedPopulation,
		DisasterLevel:      level,
		EstimatedDeaths:    deaths,
		EstimatedInjuries:  injuries,
		EstimatedMissing:   missing,
	}
}

func clampIntensity(i float64) float64 {
	if i < 1 {
		return 1
	}
	if i > 12 {
		return 12
	}
	return i
}

func classifyEarthquakeLevel(magnitude float64, deaths int) string {
	switch {
	case magnitude >= 7.0 || deaths >= 100:
		return "I"
	case magnitude >= 6.0 || deaths >= 50:
		return "II"
	case magnitude >= 5.0 || deaths >= 10:
		return "III"
	default:
		return "IV"
	}
}

// calibrateFlood computes net-rainfall-driven water depth and derives
// affected population and casualties, per the original flood assessor.
func calibrateFlood(rainfallMM, durationHours, terrainSlopeDeg, drainageCapacityMMPerHour, affectedAreaKM2, populationDensity float64) physicsResult {
	if drainageCapacityMMPerHour <= 0 {
		drainageCapacityMMPerHour = 30
	}
	if affectedAreaKM2 <= 0 {
		affectedAreaKM2 = 10
	}
	if populationDensity <= 0 {
		populationDensity = 3000
	}

	netRainfallMM := math.Max(0, rainfallMM-drainageCapacityMMPerHour*durationHours)
	slopeFactor := math.Max(0.1, 1-terrainSlopeDeg/10)
	waterDepthM := (netRainfallMM / 1000) * slopeFactor * 5

	affectedPopulation := int(affectedAreaKM2 * populationDensity)

	deathRate := 0.0001
	if waterDepthM >= 1 {
		deathRate = 0.001
	}
	deaths := int(float64(affectedPopulation) * deathRate)
	injuries := int(float64(affectedPopulation) * deathRate * 5)
	missing := int(float64(affectedPopulation) * deathRate * 0.5)

	level := classifyFloodLevel(affectedPopulation, waterDepthM)

	return physicsResult{
		AffectedAreaKM2:    affectedAreaKM2,
		AffectedPopulation: affectedPopulation,
		DisasterLevel:      level,
		EstimatedDeaths:    deaths,
		EstimatedInjuries:  injuries,
		EstimatedMissing:   missing,
	}
}

func classifyFloodLevel(affectedPopulation int, depthM float64) string {
	switch {
	case affectedPopulation >= 100000 || depthM >= 2.0:
		return "I"
	case affectedPopulation >= 50000 || depthM >= 1.0:
		return "II"
	case affectedPopulation >= 10000 || depthM >= 0.5:
		return "III"
	default:
		return "IV"
	}
}

var hazmatStabilityFactors = map[string]float64{
	"A": 0.22, "B": 0.16, "C": 0.11, "D": 0.08, "E": 0.06, "F": 0.04,
}

var hazmatToxicityThresholds = map[string]float64{
	"ammonia": 300, "chlorine": 10, "hydrogen_sulfide": 50,
	"carbon_monoxide": 400, "benzene": 500,
}

var hazmatHighToxicity = map[string]bool{"chlorine": true, "hydrogen_sulfide": true, "phosgene": true}
var hazmatMediumToxicity = map[string]bool{"ammonia": true, "carbon_monoxide": true, "sulfur_dioxide": true}

// calibrateHazmat computes a simplified Gaussian-plume danger radius
// along the downwind axis and derives the affected area as a downwind
// half-circle, per the original hazmat assessor.
func calibrateHazmat(chemicalType string, leakRateKgS, windSpeedMS float64, stability string, populationDensity float64) physicsResult {
	if populationDensity <= 0 {
		populationDensity = 2000
	}
	threshold := hazmatToxicityThresholds[chemicalType]
	if threshold == 0 {
		threshold = 100
	}

	sigmaFactor, ok := hazmatStabilityFactors[stability]
	if !ok {
		sigmaFactor = 0.08
	}
	if windSpeedMS <= 0 {
		windSpeedMS = 1
	}

	dangerRadiusM := hazmatRadius(leakRateKgS, windSpeedMS, threshold, sigmaFactor)

	affectedAreaKM2 := math.Pi*math.Pow(dangerRadiusM/1000, 2) * 0.5
	affectedPopulation := int(affectedAreaKM2 * populationDensity)

	toxicity := classifyToxicity(chemicalType)
	toxicityFactor := 0.001
	switch toxicity {
	case "high":
		toxicityFactor = 0.01
	case "low":
		toxicityFactor = 0.0001
	}
	deaths := int(float64(affectedPopulation) * toxicityFactor)
	injuries := int(float64(affectedPopulation) * toxicityFactor * 10)

	level := classifyHazmatLevel(affectedPopulation, toxicity)

	return physicsResult{
		AffectedAreaKM2:    affectedAreaKM2,
		AffectedPopulation: affectedPopulation,
		DisasterLevel:      level,
		EstimatedDeaths:    deaths,
		EstimatedInjuries:  injuries,
	}
}

func hazmatRadius(leakRateKgS, windSpeedMS, thresholdMGM3, sigmaFactor float64) float64 {
	denominator := math.Pi * sigmaFactor * sigmaFactor * 0.7 * windSpeedMS * (thresholdMGM3 / 1000)
	if denominator <= 0 {
		return 1000
	}
	xSquared := (leakRateKgS * 1000) / denominator
	radius := math.Sqrt(math.Max(0, xSquared))
	if radius < 100 {
		return 100
	}
	if radius > 5000 {
		return 5000
	}
	return radius
}

func classifyToxicity(chemicalType string) string {
	if hazmatHighToxicity[chemicalType] {
		return "high"
	}
	if hazmatMediumToxicity[chemicalType] {
		return "medium"
	}
	return "low"
}

func classifyHazmatLevel(affectedPopulation int, toxicity string) string {
	multiplier := 1.0
	switch toxicity {
	case "high":
		multiplier = 0.5
	case "low":
		multiplier = 2.0
	}
	switch {
	case float64(affectedPopulation) >= 10000*multiplier:
		return "I"
	case float64(affectedPopulation) >= 5000*multiplier:
		return "II"
	case float64(affectedPopulation) >= 1000*multiplier:
		return "III"
	default:
		return "IV"
	}
}

// Calibrate dispatches on parsed.DisasterType to the matching closed-form
// assessor and overrides the LLM's affected_area_km2, affected_population
// and disaster_level, recording the casualty estimate and calibration
// flag in additional_info, per §4.2.
func Calibrate(parsed *domain.ParsedDisaster, hints map[string]interface{}) {
	if parsed == nil {
		return
	}

	var result physicsResult
	switch parsed.DisasterType {
	case domain.DisasterEarthquake:
		if parsed.Magnitude == nil {
			return
		}
		depth := derefOr(parsed.DepthKM, 10)
		result = calibrateEarthquake(*parsed.Magnitude, depth, floatHint(hints, "population_density"), floatHint(hints, "building_vulnerability"))
	case domain.DisasterFlood:
		rainfall := floatHint(hints, "rainfall_mm")
		if rainfall <= 0 {
			return
		}
		duration := floatHint(hints, "duration_hours")
		if duration <= 0 {
			duration = 24
		}
		result = calibrateFlood(rainfall, duration, floatHint(hints, "terrain_slope"), floatHint(hints, "drainage_capacity"), derefOr(parsed.AffectedAreaKM2, 0), floatHint(hints, "population_density"))
	case domain.DisasterHazmat:
		chemical, _ := hints["chemical_type"].(string)
		if chemical == "" {
			return
		}
		windSpeed := floatHint(hints, "wind_speed")
		stability, _ := hints["atmospheric_stability"].(string)
		result = calibrateHazmat(chemical, floatHint(hints, "leak_rate_kg_s"), windSpeed, stability, floatHint(hints, "population_density"))
	default:
		return
	}

	parsed.AffectedAreaKM2 = &result.AffectedAreaKM2
	parsed.AffectedPopulation = result.AffectedPopulation
	parsed.DisasterLevel = result.DisasterLevel
	if parsed.AdditionalInfo == nil {
		parsed.AdditionalInfo = map[string]interface{}{}
	}
	parsed.AdditionalInfo["physics_model_calibrated"] = true
	parsed.AdditionalInfo["estimated_casualties"] = map[string]int{
		"deaths":   result.EstimatedDeaths,
		"injuries": result.EstimatedInjuries,
		"missing":  result.EstimatedMissing,
	}
}

func derefOr(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}

func floatHint(hints map[string]interface{}, key string) float64 {
	v, ok := hints[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}
