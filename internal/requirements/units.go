/*
Copyright 2025 The llm-d Authors

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

package requirements

import (
	"math"
	"strings"

	"k8s.io/utils/ptr"

	"github.com/llm-d/diet-formulator/api/v1alpha1"
)

// UnitPercent is the unit every converted requirement is expressed in.
const UnitPercent = "%"

// percentDivisors maps a unit to the divisor that turns it into % of the mix.
var percentDivisors = map[string]float64{
	"%":      1,
	"g/100g": 1,
	"g/kg":   10,
	"g/ton":  10000,
	"mg/kg":  10000,
}

// PercentDivisor returns the divisor converting a value in unit to percent.
// Units are matched case-insensitively; the second value is false for
// unknown units.
func PercentDivisor(unit string) (float64, bool) {
	d, ok := percentDivisors[strings.ToLower(strings.TrimSpace(unit))]
	return d, ok
}

// ToPercent converts value from unit to percent. Unknown units are returned unchanged.
func ToPercent(value float64, unit string) float64 {
	d, ok := PercentDivisor(unit)
	if !ok {
		return value
	}
	return value / d
}

// RequirementToPercent converts the bounds of r to percent, rounded to two
// decimals. Requirements in unknown units are returned unchanged.
func RequirementToPercent(r v1alpha1.NutrientRequirement) v1alpha1.NutrientRequirement {
	if _, ok := PercentDivisor(r.Unit); !ok {
		return r
	}
	out := r
	if r.Min != nil {
		out.Min = ptr.To(round2(ToPercent(*r.Min, r.Unit)))
	}
	if r.Max != nil {
		out.Max = ptr.To(round2(ToPercent(*r.Max, r.Unit)))
	}
	out.Unit = UnitPercent
	return out
}

// AllToPercent applies RequirementToPercent to every requirement.
func AllToPercent(reqs []v1alpha1.NutrientRequirement) []v1alpha1.NutrientRequirement {
	out := make([]v1alpha1.NutrientRequirement, len(reqs))
	for i, r := range reqs {
		out[i] = RequirementToPercent(r)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
