package limiter

import (
	"math"

	"github.com/llm-d/diet-formulator/api/v1alpha1"
)

// AvailableInclusion returns the share of the mix not already claimed by lower bounds.
func AvailableInclusion(plan *InclusionPlan) float64 {
	return math.Max(0, 1-plan.MinSum())
}

// CategoryCapacity sums the upper bounds of the ingredients in each category.
// Bounds are matched to ingredients by position.
func CategoryCapacity(ingredients []v1alpha1.Ingredient, plan *InclusionPlan) map[v1alpha1.Category]float64 {
	out := make(map[v1alpha1.Category]float64)
	for i, ing := range ingredients {
		if i >= len(plan.Bounds) {
			break
		}
		out[ing.EffectiveCategory()] += plan.Bounds[i].Max
	}
	return out
}

// CategoryFloor sums the lower bounds of the ingredients in each category.
func CategoryFloor(ingredients []v1alpha1.Ingredient, plan *InclusionPlan) map[v1alpha1.Category]float64 {
	out := make(map[v1alpha1.Category]float64)
	for i, ing := range ingredients {
		if i >= len(plan.Bounds) {
			break
		}
		out[ing.EffectiveCategory()] += plan.Bounds[i].Min
	}
	return out
}
