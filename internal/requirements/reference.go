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
	"fmt"
	"math"

	"k8s.io/utils/ptr"

	"github.com/llm-d/diet-formulator/api/v1alpha1"
)

// ReferenceEnergyDensity is the energy density, in kcal/kg of diet, the
// reference tables are expressed at.
const ReferenceEnergyDensity = 1000.0

// referenceMinimums holds minimum grams per kg of a 1000 kcal/kg diet.
var referenceMinimums = map[Species][]struct {
	nutrient string
	grams    float64
}{
	SpeciesDog: {
		{"protein", 50},
		{"calcium", 1.0},
		{"phosphorus", 0.8},
	},
	SpeciesCat: {
		{"protein", 60},
		{"calcium", 1.2},
		{"phosphorus", 1.0},
	},
}

// Reference returns the reference minimums of a species in g/kg at
// ReferenceEnergyDensity.
func Reference(species Species) ([]v1alpha1.NutrientRequirement, error) {
	table, ok := referenceMinimums[species]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSpecies, species)
	}
	out := make([]v1alpha1.NutrientRequirement, 0, len(table))
	for _, e := range table {
		out = append(out, v1alpha1.NutrientRequirement{Name: e.nutrient, Min: ptr.To(e.grams), Unit: "g/kg"})
	}
	return out, nil
}

// energyScaledUnits are the concentration units rescaled with energy density.
var energyScaledUnits = map[string]bool{
	"g/100g": true,
	"g/kg":   true,
}

// ScaleToEnergy rescales requirements stated at referenceKcal to a diet of
// actualKcal energy density. Only mass concentration units (g/100g, g/kg) are
// scaled; other requirements are copied. A non-positive energy leaves every
// requirement unchanged.
func ScaleToEnergy(reqs []v1alpha1.NutrientRequirement, referenceKcal, actualKcal float64) []v1alpha1.NutrientRequirement {
	out := make([]v1alpha1.NutrientRequirement, len(reqs))
	copy(out, reqs)
	if referenceKcal <= 0 || actualKcal <= 0 || math.IsNaN(actualKcal) || math.IsInf(actualKcal, 0) {
		return out
	}
	factor := actualKcal / referenceKcal
	for i, r := range out {
		if !energyScaledUnits[r.Unit] {
			continue
		}
		if r.Min != nil {
			out[i].Min = ptr.To(*r.Min * factor)
		}
		if r.Max != nil {
			out[i].Max = ptr.To(*r.Max * factor)
		}
	}
	return out
}

// ForDiet returns the species reference requirements scaled to a diet of the
// given energy density and converted to percent.
func ForDiet(species Species, dietKcalPerKg float64) ([]v1alpha1.NutrientRequirement, error) {
	ref, err := Reference(species)
	if err != nil {
		return nil, err
	}
	return AllToPercent(ScaleToEnergy(ref, ReferenceEnergyDensity, dietKcalPerKg)), nil
}
