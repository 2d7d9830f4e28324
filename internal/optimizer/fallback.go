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

package optimizer

import (
	"math"

	"github.com/llm-d/diet-formulator/api/v1alpha1"
)

// cheapestIngredient returns the index of the ingredient used for the
// single-ingredient fallback mix, or -1 when the table is empty.
//
// Ingredients allowed to make up the whole mix are preferred; among them the
// lowest finite price wins, ties going to the earlier row.
func cheapestIngredient(req *v1alpha1.FormulationRequest, defaultMax float64) int {
	best, bestEligible := -1, false
	bestPrice := math.Inf(1)
	for i, ing := range req.Ingredients {
		if ing.Name == "" || math.IsNaN(ing.Price) || math.IsInf(ing.Price, 0) {
			continue
		}
		eligible := canFillMix(req, ing.Name, defaultMax)
		switch {
		case eligible && !bestEligible:
		case eligible == bestEligible && ing.Price < bestPrice:
		default:
			continue
		}
		best, bestEligible, bestPrice = i, eligible, ing.Price
	}
	if best >= 0 {
		return best
	}
	if len(req.Ingredients) > 0 {
		return 0
	}
	return -1
}

// canFillMix reports whether the ingredient's max inclusion allows 100%.
func canFillMix(req *v1alpha1.FormulationRequest, name string, defaultMax float64) bool {
	if fixed, ok := req.FixedInclusions[name]; ok && fixed < 1 {
		return false
	}
	limit, ok := req.Limits[name]
	if !ok || limit.Max == nil {
		return defaultMax >= 1
	}
	return *limit.Max >= 1
}

// cheapestMix puts the whole mix on the cheapest ingredient.
func cheapestMix(req *v1alpha1.FormulationRequest, defaultMax float64) []float64 {
	fractions := make([]float64, len(req.Ingredients))
	if i := cheapestIngredient(req, defaultMax); i >= 0 {
		fractions[i] = 1
	}
	return fractions
}
