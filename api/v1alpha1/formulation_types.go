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

package v1alpha1

import (
	"fmt"
	"math"
	"strings"
)

// Category is a coarse ingredient classification used for compositional range constraints.
type Category string

const (
	CategoryProteins      Category = "Proteins"
	CategoryCarbohydrates Category = "Carbohydrates"
	CategoryFats          Category = "Fats"
	CategoryVegetables    Category = "Vegetables"
	CategoryFruits        Category = "Fruits"
	CategoryOther         Category = "Other"
)

// Categories lists the fixed category taxonomy in display order.
var Categories = []Category{
	CategoryProteins,
	CategoryCarbohydrates,
	CategoryFats,
	CategoryVegetables,
	CategoryFruits,
	CategoryOther,
}

// IsValid reports whether c belongs to the fixed taxonomy.
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory matches s case-insensitively against the taxonomy.
// The second return value is false when s is not a known category.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, known := range Categories {
		if strings.EqualFold(s, string(known)) {
			return known, true
		}
	}
	return CategoryOther, false
}

// Ingredient is one row of the ingredient table. It is loaded once per
// formulation run and treated as immutable while solving.
type Ingredient struct {
	// Name identifies the ingredient; unique within a formulation run.
	Name string `json:"name" yaml:"name"`

	// Category places the ingredient in the fixed taxonomy. Empty means Other.
	Category Category `json:"category,omitempty" yaml:"category,omitempty"`

	// Price is the cost per mass unit.
	Price float64 `json:"price" yaml:"price"`

	// Nutrients maps nutrient name to content per mass unit.
	Nutrients map[string]float64 `json:"nutrients,omitempty" yaml:"nutrients,omitempty"`
}

// Nutrient returns the content of the named nutrient, or 0 when the ingredient
// does not carry it or the stored value is not finite.
func (i Ingredient) Nutrient(name string) float64 {
	v, ok := i.Nutrients[name]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// EffectiveCategory returns the category, defaulting to Other.
func (i Ingredient) EffectiveCategory() Category {
	if i.Category == "" {
		return CategoryOther
	}
	return i.Category
}

// NutrientRequirement bounds the amount of one nutrient in the final mix.
// Bounds are optional; Unit is carried for display only.
type NutrientRequirement struct {
	// Name is the nutrient name, matching a nutrient column of the ingredient table.
	Name string `json:"name" yaml:"name"`

	// Min is the lower bound. Nil means no lower bound.
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`

	// Max is the upper bound. Nil, zero, or negative means no upper bound.
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`

	// Unit is the display unit of the bounds (e.g. "%", "g/kg").
	Unit string `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// HasMin reports whether a lower bound is set.
func (r NutrientRequirement) HasMin() bool {
	return r.Min != nil
}

// HasMax reports whether an enforceable upper bound is set.
func (r NutrientRequirement) HasMax() bool {
	return r.Max != nil && *r.Max > 0
}

// IsActive reports whether the requirement constrains the mix at all.
func (r NutrientRequirement) IsActive() bool {
	return (r.HasMin() && *r.Min > 0) || r.HasMax()
}

// Validate checks the bound invariants. A min greater than max is a caller
// error and is never silently corrected.
func (r NutrientRequirement) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("nutrient requirement has an empty name")
	}
	if r.Min != nil && (math.IsNaN(*r.Min) || math.IsInf(*r.Min, 0)) {
		return fmt.Errorf("nutrient %q: min must be a finite number", r.Name)
	}
	if r.Max != nil && (math.IsNaN(*r.Max) || math.IsInf(*r.Max, 0)) {
		return fmt.Errorf("nutrient %q: max must be a finite number", r.Name)
	}
	if r.HasMin() && r.HasMax() && *r.Min > *r.Max {
		return fmt.Errorf("nutrient %q: min (%.4f) is greater than max (%.4f)", r.Name, *r.Min, *r.Max)
	}
	return nil
}

// InclusionLimit bounds the fraction of the mix contributed by one ingredient.
type InclusionLimit struct {
	// Min is the minimum fraction in [0,1]. Defaults to 0.
	Min float64 `json:"min,omitempty" yaml:"min,omitempty"`

	// Max is the maximum fraction in [0,1]. Nil falls back to the configured ceiling.
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// Comparator relates a ratio of two nutrients to a target value.
type Comparator string

const (
	ComparatorEqual        Comparator = "="
	ComparatorLessEqual    Comparator = "<="
	ComparatorGreaterEqual Comparator = ">="
	ComparatorLess         Comparator = "<"
	ComparatorGreater      Comparator = ">"
)

// IsValid reports whether c is a supported comparator.
func (c Comparator) IsValid() bool {
	switch c {
	case ComparatorEqual, ComparatorLessEqual, ComparatorGreaterEqual, ComparatorLess, ComparatorGreater:
		return true
	}
	return false
}

// IsStrict reports whether c is a strict inequality.
func (c Comparator) IsStrict() bool {
	return c == ComparatorLess || c == ComparatorGreater
}

// RatioConstraint compares the total of one nutrient against a multiple of another:
// numerator {comparator} target × denominator.
type RatioConstraint struct {
	Numerator   string     `json:"numerator" yaml:"numerator"`
	Denominator string     `json:"denominator" yaml:"denominator"`
	Comparator  Comparator `json:"comparator" yaml:"comparator"`
	Target      float64    `json:"target" yaml:"target"`

	// Soft lets the solver violate the ratio at a penalty instead of failing.
	Soft bool `json:"soft,omitempty" yaml:"soft,omitempty"`
}

// String renders the constraint as "numerator / denominator op target".
func (r RatioConstraint) String() string {
	return fmt.Sprintf("%s / %s %s %g", r.Numerator, r.Denominator, r.Comparator, r.Target)
}

// Validate checks the constraint is well formed.
func (r RatioConstraint) Validate() error {
	if r.Numerator == "" || r.Denominator == "" {
		return fmt.Errorf("ratio %q: numerator and denominator are required", r.String())
	}
	if r.Numerator == r.Denominator {
		return fmt.Errorf("ratio %q: numerator and denominator must be different", r.String())
	}
	if !r.Comparator.IsValid() {
		return fmt.Errorf("ratio %q: unsupported comparator %q", r.String(), r.Comparator)
	}
	if math.IsNaN(r.Target) || math.IsInf(r.Target, 0) || r.Target < 0 {
		return fmt.Errorf("ratio %q: target must be a finite non-negative number", r.String())
	}
	return nil
}

// CategoryRange bounds the fraction of the mix attributable to one category.
type CategoryRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Validate checks 0 <= min <= max <= 1.
func (c CategoryRange) Validate() error {
	if c.Min < 0 || c.Max > 1 || c.Min > c.Max {
		return fmt.Errorf("range [%.4f, %.4f] must satisfy 0 <= min <= max <= 1", c.Min, c.Max)
	}
	return nil
}

// FormulationRequest carries every input of one formulation run.
type FormulationRequest struct {
	// Ingredients is the cleaned ingredient table.
	Ingredients []Ingredient `json:"ingredients" yaml:"ingredients"`

	// Requirements lists nutrient bounds in display order.
	Requirements []NutrientRequirement `json:"requirements,omitempty" yaml:"requirements,omitempty"`

	// Limits maps ingredient name to its inclusion limit.
	Limits map[string]InclusionLimit `json:"limits,omitempty" yaml:"limits,omitempty"`

	// ForcedMinimums maps ingredient name to a fraction the caller insists on including.
	ForcedMinimums map[string]float64 `json:"forcedMinimums,omitempty" yaml:"forcedMinimums,omitempty"`

	// FixedInclusions pins ingredients to an exact fraction (directed re-optimization).
	FixedInclusions map[string]float64 `json:"fixedInclusions,omitempty" yaml:"fixedInclusions,omitempty"`

	// Ratios lists nutrient ratio constraints.
	Ratios []RatioConstraint `json:"ratios,omitempty" yaml:"ratios,omitempty"`

	// CategoryRanges bounds category shares of the mix.
	CategoryRanges map[Category]CategoryRange `json:"categoryRanges,omitempty" yaml:"categoryRanges,omitempty"`

	// MinIngredients requires at least this many ingredients with positive inclusion.
	MinIngredients int `json:"minIngredients,omitempty" yaml:"minIngredients,omitempty"`

	// HardNutrients names nutrients whose bounds must never be relaxed by slack.
	HardNutrients []string `json:"hardNutrients,omitempty" yaml:"hardNutrients,omitempty"`
}

// IngredientIndex maps ingredient names to their position in Ingredients.
func (r FormulationRequest) IngredientIndex() map[string]int {
	idx := make(map[string]int, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		if _, exists := idx[ing.Name]; !exists {
			idx[ing.Name] = i
		}
	}
	return idx
}

// HasActiveRequirements reports whether any nutrient requirement constrains the mix.
func (r FormulationRequest) HasActiveRequirements() bool {
	for _, req := range r.Requirements {
		if req.IsActive() {
			return true
		}
	}
	return false
}

// WithFixedInclusions returns a copy of r with the given ingredients pinned.
// Existing fixed inclusions are kept unless overridden.
func (r FormulationRequest) WithFixedInclusions(fixed map[string]float64) FormulationRequest {
	out := r
	out.FixedInclusions = make(map[string]float64, len(r.FixedInclusions)+len(fixed))
	for k, v := range r.FixedInclusions {
		out.FixedInclusions[k] = v
	}
	for k, v := range fixed {
		out.FixedInclusions[k] = v
	}
	return out
}
