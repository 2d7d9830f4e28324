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
	"fmt"
	"math"
	"sort"

	"github.com/llm-d/diet-formulator/api/v1alpha1"
	"github.com/llm-d/diet-formulator/internal/config"
	"github.com/llm-d/diet-formulator/pkg/core"
)

// zeroDenominator is the magnitude below which a ratio denominator counts as zero.
const zeroDenominator = 1e-12

// interpreter turns ingredient fractions into a diet and a compliance report.
type interpreter struct {
	cfg config.FormulatorConfig
	req *v1alpha1.FormulationRequest
}

// interpret fills the mix-derived fields of res from one fraction per
// ingredient (request order) and returns a description of every failed check.
func (in *interpreter) interpret(res *v1alpha1.FormulationResult, fractions []float64) []string {
	fractions = in.normalize(fractions)

	var failures []string
	in.fillDiet(res, fractions)
	in.fillNutrients(res, fractions)
	failures = append(failures, in.checkNutrients(res, fractions)...)
	failures = append(failures, in.checkRatios(res, fractions)...)
	failures = append(failures, in.checkCategories(res, fractions)...)
	failures = append(failures, in.checkForcedMinimums(res, fractions)...)
	if k := in.req.MinIngredients; k > 0 && len(res.Composition) < k {
		failures = append(failures, fmt.Sprintf("only %d ingredients included, at least %d required", len(res.Composition), k))
	}
	return failures
}

// normalize clamps negatives and rescales when the mass balance drifted.
func (in *interpreter) normalize(fractions []float64) []float64 {
	out := make([]float64, len(fractions))
	var sum float64
	for i, f := range fractions {
		f = finite(f)
		if f < 0 {
			f = 0
		}
		out[i] = f
		sum += f
	}
	if sum > 0 && math.Abs(sum-1) > in.cfg.NormalizationTolerance {
		for i := range out {
			out[i] /= sum
		}
	}
	return out
}

func (in *interpreter) fillDiet(res *v1alpha1.FormulationResult, fractions []float64) {
	res.Diet = make(map[string]float64)
	res.Composition = make([]v1alpha1.InclusionEntry, 0, len(fractions))
	var cost float64
	for i, ing := range in.req.Ingredients {
		f := fractions[i]
		cost += f * finite(ing.Price)
		pct := round2(f * 100)
		if pct <= 0 {
			continue
		}
		res.Diet[ing.Name] = pct
		res.Composition = append(res.Composition, v1alpha1.InclusionEntry{
			Ingredient: ing.Name,
			Percent:    pct,
			Fraction:   f,
		})
	}
	sort.SliceStable(res.Composition, func(a, b int) bool {
		ca, cb := res.Composition[a], res.Composition[b]
		if ca.Percent != cb.Percent {
			return ca.Percent > cb.Percent
		}
		return ca.Ingredient < cb.Ingredient
	})
	res.BatchSize = in.cfg.BatchSize
	res.TotalCost = round2(cost * in.cfg.BatchSize)
}

// achieved returns Σ fraction·content for one nutrient.
func (in *interpreter) achieved(nutrient string, fractions []float64) float64 {
	var sum float64
	for i, ing := range in.req.Ingredients {
		sum += fractions[i] * ing.Nutrient(nutrient)
	}
	return sum
}

func (in *interpreter) fillNutrients(res *v1alpha1.FormulationResult, fractions []float64) {
	res.NutrientValues = make(map[string]float64)
	for _, ing := range in.req.Ingredients {
		for name := range ing.Nutrients {
			if _, done := res.NutrientValues[name]; !done {
				res.NutrientValues[name] = round4(in.achieved(name, fractions))
			}
		}
	}
	for _, r := range in.req.Requirements {
		if _, done := res.NutrientValues[r.Name]; !done {
			res.NutrientValues[r.Name] = round4(in.achieved(r.Name, fractions))
		}
	}
}

func (in *interpreter) checkNutrients(res *v1alpha1.FormulationResult, fractions []float64) []string {
	tol := in.cfg.ComplianceTolerance
	var failures []string
	res.NutrientCompliance = make([]v1alpha1.NutrientCompliance, 0, len(in.req.Requirements))
	for _, r := range in.req.Requirements {
		value := in.achieved(r.Name, fractions)
		c := v1alpha1.NutrientCompliance{
			Nutrient: r.Name,
			Unit:     r.Unit,
			Min:      r.Min,
			Max:      r.Max,
			Achieved: round4(value),
		}
		switch {
		case !r.HasMin() && !r.HasMax():
			// reported, but neither compliant nor a failure
			c.Status = v1alpha1.ComplianceUnconstrained
		case r.HasMin() && value < *r.Min-tol:
			c.Status = v1alpha1.ComplianceDeficient
			failures = append(failures, fmt.Sprintf("%s deficient (%.4f < min %.4f)", r.Name, value, *r.Min))
		case r.HasMax() && value > *r.Max+tol:
			c.Status = v1alpha1.ComplianceExcess
			failures = append(failures, fmt.Sprintf("%s in excess (%.4f > max %.4f)", r.Name, value, *r.Max))
		default:
			c.Status = v1alpha1.ComplianceMeets
			c.Compliant = true
		}
		res.NutrientCompliance = append(res.NutrientCompliance, c)
	}
	return failures
}

func (in *interpreter) checkRatios(res *v1alpha1.FormulationResult, fractions []float64) []string {
	tol := in.cfg.RatioTolerance
	var failures []string
	res.RatioCompliance = nil
	for _, r := range in.req.Ratios {
		num := in.achieved(r.Numerator, fractions)
		den := in.achieved(r.Denominator, fractions)
		c := v1alpha1.RatioCompliance{
			Constraint:  r,
			Numerator:   round4(num),
			Denominator: round4(den),
		}
		if math.Abs(den) < zeroDenominator {
			c.Status = v1alpha1.ComplianceDivisionByZero
			c.Detail = fmt.Sprintf("%s is zero in the final mix; the ratio is undefined", r.Denominator)
			failures = append(failures, fmt.Sprintf("ratio %s undefined: %s is zero", r, r.Denominator))
			res.RatioCompliance = append(res.RatioCompliance, c)
			continue
		}

		v := num / den
		rv := round4(v)
		c.Value = &rv
		if ratioHolds(r.Comparator, v, r.Target, tol) {
			c.Status = v1alpha1.ComplianceMeets
			c.Compliant = true
		} else {
			c.Status = v1alpha1.ComplianceViolated
			failures = append(failures, fmt.Sprintf("ratio %s violated (achieved %.4f)", r, v))
		}
		res.RatioCompliance = append(res.RatioCompliance, c)
	}
	return failures
}

// ratioHolds compares v against target. Strict comparators get no tolerance.
func ratioHolds(op v1alpha1.Comparator, v, target, tol float64) bool {
	switch op {
	case v1alpha1.ComparatorEqual:
		return math.Abs(v-target) <= tol
	case v1alpha1.ComparatorGreaterEqual:
		return v >= target-tol
	case v1alpha1.ComparatorLessEqual:
		return v <= target+tol
	case v1alpha1.ComparatorGreater:
		return v > target
	case v1alpha1.ComparatorLess:
		return v < target
	}
	return false
}

func (in *interpreter) checkCategories(res *v1alpha1.FormulationResult, fractions []float64) []string {
	tol := in.cfg.ComplianceTolerance
	var failures []string
	res.CategoryCompliance = nil
	for _, cat := range v1alpha1.Categories {
		r, ok := in.req.CategoryRanges[cat]
		if !ok {
			continue
		}
		var share float64
		for i, ing := range in.req.Ingredients {
			if ing.EffectiveCategory() == cat {
				share += fractions[i]
			}
		}
		c := v1alpha1.CategoryCompliance{Category: cat, Min: r.Min, Max: r.Max, Achieved: round4(share)}
		switch {
		case share < r.Min-tol:
			c.Status = v1alpha1.ComplianceDeficient
			failures = append(failures, fmt.Sprintf("category %s under target (%.2f%% < %.2f%%)", cat, share*100, r.Min*100))
		case share > r.Max+tol:
			c.Status = v1alpha1.ComplianceExcess
			failures = append(failures, fmt.Sprintf("category %s over target (%.2f%% > %.2f%%)", cat, share*100, r.Max*100))
		default:
			c.Status = v1alpha1.ComplianceMeets
			c.Compliant = true
		}
		res.CategoryCompliance = append(res.CategoryCompliance, c)
	}
	return failures
}

func (in *interpreter) checkForcedMinimums(res *v1alpha1.FormulationResult, fractions []float64) []string {
	tol := in.cfg.ComplianceTolerance
	index := in.req.IngredientIndex()
	names := make([]string, 0, len(in.req.ForcedMinimums))
	for name := range in.req.ForcedMinimums {
		names = append(names, name)
	}
	sort.Strings(names)

	var failures []string
	res.MinInclusionStatus = nil
	for _, name := range names {
		required := in.req.ForcedMinimums[name]
		var included float64
		if i, ok := index[name]; ok {
			included = fractions[i]
		}
		s := v1alpha1.MinInclusionStatus{
			Ingredient:      name,
			IncludedPercent: round2(included * 100),
			RequiredPercent: round2(required * 100),
			Compliant:       included >= required-tol,
		}
		if !s.Compliant {
			failures = append(failures, fmt.Sprintf("%s included at %.2f%%, below its forced minimum %.2f%%",
				name, s.IncludedPercent, s.RequiredPercent))
		}
		res.MinInclusionStatus = append(res.MinInclusionStatus, s)
	}
	return failures
}

// ingredientFractions reads the ingredient variables of a solution.
func ingredientFractions(fm *formulationModel, sol *core.Solution) []float64 {
	out := make([]float64, len(fm.ingredientVars))
	for i, v := range fm.ingredientVars {
		out[i] = sol.Value(v)
	}
	return out
}

// slackViolations lists the soft constraints the solver relaxed.
func slackViolations(fm *formulationModel, sol *core.Solution, tol float64) []v1alpha1.SlackViolation {
	var out []v1alpha1.SlackViolation
	for _, s := range fm.slacks {
		amount := sol.Value(s.variable)
		if amount <= tol {
			continue
		}
		out = append(out, v1alpha1.SlackViolation{
			Constraint: s.constraint,
			Kind:       s.kind,
			Side:       s.side,
			Amount:     round4(amount),
		})
	}
	return out
}
