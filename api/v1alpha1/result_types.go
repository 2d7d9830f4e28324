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

// FormulationStatus reports why a formulation run ended the way it did.
type FormulationStatus string

const (
	// StatusOptimal indicates the solver proved optimality.
	StatusOptimal FormulationStatus = "Optimal"
	// StatusInfeasible indicates the hard constraints cannot be satisfied together.
	StatusInfeasible FormulationStatus = "Infeasible"
	// StatusUnbounded indicates the objective is unbounded.
	StatusUnbounded FormulationStatus = "Unbounded"
	// StatusNotSolved indicates the solver stopped without proving optimality.
	StatusNotSolved FormulationStatus = "NotSolved"
	// StatusTimedOut indicates the solver hit its time limit.
	StatusTimedOut FormulationStatus = "TimedOut"
	// StatusInvalidInput indicates validation rejected the request before solving.
	StatusInvalidInput FormulationStatus = "InvalidInput"
)

// ComplianceStatus classifies one checked constraint in the final mix.
type ComplianceStatus string

const (
	ComplianceMeets          ComplianceStatus = "Meets"
	ComplianceDeficient      ComplianceStatus = "Deficient"
	ComplianceExcess         ComplianceStatus = "Excess"
	ComplianceUnconstrained  ComplianceStatus = "Unconstrained"
	ComplianceViolated       ComplianceStatus = "Violated"
	ComplianceDivisionByZero ComplianceStatus = "DivisionByZero"
)

// InclusionEntry is one ingredient of the solved diet.
type InclusionEntry struct {
	Ingredient string  `json:"ingredient" yaml:"ingredient"`
	Percent    float64 `json:"percent" yaml:"percent"`
	Fraction   float64 `json:"fraction" yaml:"fraction"`
}

// NutrientCompliance compares the achieved amount of a nutrient against its bounds.
type NutrientCompliance struct {
	Nutrient  string           `json:"nutrient" yaml:"nutrient"`
	Unit      string           `json:"unit,omitempty" yaml:"unit,omitempty"`
	Min       *float64         `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *float64         `json:"max,omitempty" yaml:"max,omitempty"`
	Achieved  float64          `json:"achieved" yaml:"achieved"`
	Status    ComplianceStatus `json:"status" yaml:"status"`
	Compliant bool             `json:"compliant" yaml:"compliant"`
}

// RatioCompliance re-checks a ratio constraint on the final mix.
type RatioCompliance struct {
	Constraint  RatioConstraint  `json:"constraint" yaml:"constraint"`
	Numerator   float64          `json:"numerator" yaml:"numerator"`
	Denominator float64          `json:"denominator" yaml:"denominator"`
	Value       *float64         `json:"value,omitempty" yaml:"value,omitempty"`
	Status      ComplianceStatus `json:"status" yaml:"status"`
	Compliant   bool             `json:"compliant" yaml:"compliant"`
	Detail      string           `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// CategoryCompliance compares a category share of the mix against its range.
type CategoryCompliance struct {
	Category  Category         `json:"category" yaml:"category"`
	Min       float64          `json:"min" yaml:"min"`
	Max       float64          `json:"max" yaml:"max"`
	Achieved  float64          `json:"achieved" yaml:"achieved"`
	Status    ComplianceStatus `json:"status" yaml:"status"`
	Compliant bool             `json:"compliant" yaml:"compliant"`
}

// MinInclusionStatus checks a forced minimum inclusion, in percent.
type MinInclusionStatus struct {
	Ingredient      string  `json:"ingredient" yaml:"ingredient"`
	IncludedPercent float64 `json:"includedPercent" yaml:"includedPercent"`
	RequiredPercent float64 `json:"requiredPercent" yaml:"requiredPercent"`
	Compliant       bool    `json:"compliant" yaml:"compliant"`
}

// ViolationSide tells which side of a soft bound was relaxed.
type ViolationSide string

const (
	SideDeficit ViolationSide = "Deficit"
	SideExcess  ViolationSide = "Excess"
)

// ViolationKind tells which family of soft constraint was relaxed.
type ViolationKind string

const (
	ViolationNutrient ViolationKind = "Nutrient"
	ViolationCategory ViolationKind = "Category"
	ViolationRatio    ViolationKind = "Ratio"
)

// SlackViolation reports a soft constraint relaxed by the solver.
type SlackViolation struct {
	Constraint string        `json:"constraint" yaml:"constraint"`
	Kind       ViolationKind `json:"kind" yaml:"kind"`
	Side       ViolationSide `json:"side" yaml:"side"`
	Amount     float64       `json:"amount" yaml:"amount"`
}

// FormulationResult is the outcome of one formulation run. It is returned even
// in worst-case infeasibility so the caller always has a mix to inspect.
type FormulationResult struct {
	// Success is true only when the solve was optimal and every compliance check passed.
	Success bool `json:"success" yaml:"success"`

	// Fallback is true when the returned mix is a best effort rather than a compliant optimum.
	Fallback bool `json:"fallback" yaml:"fallback"`

	Status  FormulationStatus `json:"status" yaml:"status"`
	Message string            `json:"message,omitempty" yaml:"message,omitempty"`

	// Diet maps ingredient name to inclusion percent (two decimals, positive entries only).
	Diet map[string]float64 `json:"diet" yaml:"diet"`

	// Composition lists the same entries ordered by percent descending.
	Composition []InclusionEntry `json:"composition" yaml:"composition"`

	// TotalCost is the cost of one batch of BatchSize mass units.
	TotalCost float64 `json:"totalCost" yaml:"totalCost"`
	BatchSize float64 `json:"batchSize" yaml:"batchSize"`

	// Objective is the solver objective including slack penalties.
	Objective float64 `json:"objective" yaml:"objective"`

	// PenaltyWeight is the slack weight actually used for this run.
	PenaltyWeight float64 `json:"penaltyWeight,omitempty" yaml:"penaltyWeight,omitempty"`

	// NutrientValues maps nutrient name to its achieved amount (four decimals).
	NutrientValues map[string]float64 `json:"nutrientValues" yaml:"nutrientValues"`

	NutrientCompliance []NutrientCompliance `json:"nutrientCompliance" yaml:"nutrientCompliance"`
	RatioCompliance    []RatioCompliance    `json:"ratioCompliance,omitempty" yaml:"ratioCompliance,omitempty"`
	CategoryCompliance []CategoryCompliance `json:"categoryCompliance,omitempty" yaml:"categoryCompliance,omitempty"`
	MinInclusionStatus []MinInclusionStatus `json:"minInclusionStatus,omitempty" yaml:"minInclusionStatus,omitempty"`
	Violations         []SlackViolation     `json:"violations,omitempty" yaml:"violations,omitempty"`

	// Diagnostics carries non-fatal observations about the inputs.
	Diagnostics []string `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// Fraction returns the solved fraction of the named ingredient, or 0.
func (r *FormulationResult) Fraction(ingredient string) float64 {
	for _, e := range r.Composition {
		if e.Ingredient == ingredient {
			return e.Fraction
		}
	}
	return 0
}

// NutrientStatus returns the compliance entry for the named nutrient.
func (r *FormulationResult) NutrientStatus(nutrient string) (NutrientCompliance, bool) {
	for _, c := range r.NutrientCompliance {
		if c.Nutrient == nutrient {
			return c, true
		}
	}
	return NutrientCompliance{}, false
}

// CategoryStatus returns the compliance entry for the category.
func (r *FormulationResult) CategoryStatus(category Category) (CategoryCompliance, bool) {
	for _, c := range r.CategoryCompliance {
		if c.Category == category {
			return c, true
		}
	}
	return CategoryCompliance{}, false
}
