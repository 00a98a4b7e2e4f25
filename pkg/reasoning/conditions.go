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
	"fmt"
	"strconv"

	"github.com/google/cel-go/cel"

	"github.com/emergency-ai/decision-core/pkg/domain"
)

// Condition is one atomic trigger-condition clause: field <op> literal.
type Condition struct {
	Field   string      `json:"field" yaml:"field"`
	Op      string      `json:"op" yaml:"op"`
	Literal interface{} `json:"literal" yaml:"literal"`
}

// Combinator joins a rule's Conditions. The zero value behaves as "AND".
type Combinator string

const (
	CombinatorAND Combinator = "AND"
	CombinatorOR  Combinator = "OR"
)

// celEnv has no declared variables: each atom is compiled with its field
// value and literal already substituted as concrete CEL literals, so the
// same environment serves every atom regardless of field type.
var celEnv *cel.Env

func init() {
	env, err := cel.NewEnv()
	if err != nil {
		panic(fmt.Sprintf("reasoning: failed to build CEL environment: %v", err))
	}
	celEnv = env
}

// Evaluate reports whether the given conditions (joined by combinator)
// match the disaster's field map. An empty condition list trivially
// matches per spec. Missing fields compare as falsy.
func Evaluate(conditions []Condition, combinator Combinator, disaster domain.ParsedDisaster) (bool, error) {
	if len(conditions) == 0 {
		return true, nil
	}
	fields := disasterFields(disaster)

	results := make([]bool, 0, len(conditions))
	for _, c := range conditions {
		ok, err := evaluateAtom(c, fields)
		if err != nil {
			return false, err
		}
		results = append(results, ok)
	}

	if combinator == CombinatorOR {
		for _, r := range results {
			if r {
				return true, nil
			}
		}
		return false, nil
	}

	for _, r := range results {
		if !r {
			return false, nil
		}
	}
	return true, nil
}

// evaluateAtom compiles "<value> <op> <literal>" as a self-contained CEL
// boolean expression, with value/literal already rendered as CEL literal
// syntax. Numerics are coerced to float64 on both sides per spec; a
// missing field is treated as falsy and never reaches CEL.
func evaluateAtom(c Condition, fields map[string]interface{}) (bool, error) {
	op, ok := celOp(c.Op)
	if !ok {
		return false, fmt.Errorf("reasoning: unsupported operator %q", c.Op)
	}

	val, exists := fields[c.Field]
	if !exists {
		return falsyCompare(c.Op, c.Literal), nil
	}

	lhs, lhsOK := celLiteral(val)
	rhs, rhsOK := celLiteral(c.Literal)
	if !lhsOK || !rhsOK {
		return false, fmt.Errorf("reasoning: cannot render condition on field %s as a CEL literal", c.Field)
	}

	expr := fmt.Sprintf("%s %s %s", lhs, op, rhs)
	ast, iss := celEnv.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return false, fmt.Errorf("reasoning: compile condition on %s: %w", c.Field, iss.Err())
	}
	prg, err := celEnv.Program(ast)
	if err != nil {
		return false, fmt.Errorf("reasoning: build condition program on %s: %w", c.Field, err)
	}
	out, _, err := prg.Eval(map[string]interface{}{})
	if err != nil {
		return false, fmt.Errorf("reasoning: evaluate condition on %s: %w", c.Field, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("reasoning: condition on %s did not evaluate to a boolean", c.Field)
	}
	return b, nil
}

func celOp(op string) (string, bool) {
	switch op {
	case "=", "==":
		return "==", true
	case ">=":
		return ">=", true
	case ">":
		return ">", true
	default:
		return "", false
	}
}

// celLiteral renders a Go value as CEL source. Numerics always render as
// doubles so int/float fields and literals coerce identically.
func celLiteral(v interface{}) (string, bool) {
	switch t := v.(type) {
	case bool:
		return strconv.FormatBool(t), true
	case string:
		return strconv.Quote(t), true
	case float64:
		return strconv.FormatFloat(t, 'e', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'e', -1, 64), true
	case int:
		return strconv.Itoa(t) + ".0", true
	case int64:
		return strconv.FormatInt(t, 10) + ".0", true
	default:
		return "", false
	}
}

func falsyCompare(op string, literal interface{}) bool {
	switch t := literal.(type) {
	case bool:
		if op == "=" || op == "==" {
			return t == false
		}
	case float64:
		return compareZero(op, t)
	case int:
		return compareZero(op, float64(t))
	case string:
		if op == "=" || op == "==" {
			return t == ""
		}
	}
	return false
}

func compareZero(op string, literal float64) bool {
	switch op {
	case "=", "==":
		return literal == 0
	case ">=":
		return 0 >= literal
	case ">":
		return 0 > literal
	}
	return false
}

// disasterFields flattens ParsedDisaster into the field map Condition
// atoms reference by name.
func disasterFields(d domain.ParsedDisaster) map[string]interface{} {
	fields := map[string]interface{}{
		"disaster_type":         string(d.DisasterType),
		"severity":              string(d.Severity),
		"disaster_level":        d.DisasterLevel,
		"has_building_collapse": d.HasBuildingCollapse,
		"has_trapped_persons":   d.HasTrappedPersons,
		"has_secondary_fire":    d.HasSecondaryFire,
		"has_hazmat_leak":       d.HasHazmatLeak,
		"has_road_damage":       d.HasRoadDamage,
		"estimated_trapped":     float64(d.EstimatedTrapped),
		"affected_population":   float64(d.AffectedPopulation),
		"affected_area_km2":     derefFloat(d.AffectedAreaKM2),
		"magnitude":             derefFloat(d.Magnitude),
		"depth_km":              derefFloat(d.DepthKM),
	}
	for k, v := range d.AdditionalInfo {
		fields[k] = v
	}
	return fields
}

func derefFloat(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
