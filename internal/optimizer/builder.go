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

	"github.com/llm-d/diet-formulator/api/v1alpha1"
	"github.com/llm-d/diet-formulator/internal/config"
	"github.com/llm-d/diet-formulator/internal/engines/limiter"
	"github.com/llm-d/diet-formulator/pkg/core"
)

// slackRef ties a slack variable back to the soft constraint it relaxes.
type slackRef struct {
	variable   int
	constraint string
	kind       v1alpha1.ViolationKind
	side       v1alpha1.ViolationSide
}

// formulationModel is a built model plus the bookkeeping needed to read its solution.
type formulationModel struct {
	model *core.Model

	// ingredientVars[i] is the variable of req.Ingredients[i].
	ingredientVars []int
	indicatorVars  []int
	slacks         []slackRef
	penalty        float64
	relaxed        bool
}

// modelBuilder translates a validated request into a core.Model.
type modelBuilder struct {
	cfg     config.FormulatorConfig
	req     *v1alpha1.FormulationRequest
	plan    *limiter.InclusionPlan
	penalty float64

	// relaxHard turns every nutrient and ratio row soft and drops the
	// ingredient count, producing the closest achievable mix of an infeasible request.
	relaxHard bool

	fm   *formulationModel
	hard map[string]bool
}

func newModelBuilder(cfg config.FormulatorConfig, req *v1alpha1.FormulationRequest, plan *limiter.InclusionPlan, penalty float64) *modelBuilder {
	hard := make(map[string]bool, len(req.HardNutrients))
	for _, n := range req.HardNutrients {
		hard[n] = true
	}
	return &modelBuilder{cfg: cfg, req: req, plan: plan, penalty: penalty, hard: hard}
}

// build assembles variables, the mass balance, and every constraint family.
func (b *modelBuilder) build() *formulationModel {
	name := "diet"
	if b.relaxHard {
		name = "diet-relaxed"
	}
	b.fm = &formulationModel{
		model:   core.NewModel(name),
		penalty: b.penalty,
		relaxed: b.relaxHard,
	}

	b.addIngredients()
	b.addMassBalance()
	b.addNutrientRows()
	b.addCategoryRows()
	b.addRatioRows()
	if !b.relaxHard {
		b.addIngredientCount()
	}
	return b.fm
}

func (b *modelBuilder) addIngredients() {
	m := b.fm.model
	b.fm.ingredientVars = make([]int, len(b.req.Ingredients))
	for i, ing := range b.req.Ingredients {
		bound := b.plan.Bounds[i]
		b.fm.ingredientVars[i] = m.AddVariable(ing.Name, bound.Min, bound.Max, finite(ing.Price), core.Continuous)
	}
}

func (b *modelBuilder) addMassBalance() {
	terms := make([]core.Term, len(b.fm.ingredientVars))
	for i, v := range b.fm.ingredientVars {
		terms[i] = core.Term{Var: v, Coef: 1}
	}
	b.fm.model.AddEq("mass balance", 1, terms...)
}

// nutrientTerms returns Σ content·x for one nutrient.
func (b *modelBuilder) nutrientTerms(nutrient string) []core.Term {
	terms := make([]core.Term, 0, len(b.req.Ingredients)+1)
	for i, ing := range b.req.Ingredients {
		terms = append(terms, core.Term{Var: b.fm.ingredientVars[i], Coef: ing.Nutrient(nutrient)})
	}
	return terms
}

// addSoftGe adds Σ terms + s >= rhs, or the hard row when soft is false.
func (b *modelBuilder) addSoftGe(name string, rhs float64, soft bool, kind v1alpha1.ViolationKind, terms []core.Term) {
	if soft {
		terms = append(terms, core.Term{Var: b.addSlack(name, kind, v1alpha1.SideDeficit), Coef: 1})
	}
	b.fm.model.AddGe(name, rhs, terms...)
}

// addSoftLe adds Σ terms - s <= rhs, or the hard row when soft is false.
func (b *modelBuilder) addSoftLe(name string, rhs float64, soft bool, kind v1alpha1.ViolationKind, terms []core.Term) {
	if soft {
		terms = append(terms, core.Term{Var: b.addSlack(name, kind, v1alpha1.SideExcess), Coef: -1})
	}
	b.fm.model.AddLe(name, rhs, terms...)
}

func (b *modelBuilder) addSlack(constraint string, kind v1alpha1.ViolationKind, side v1alpha1.ViolationSide) int {
	v := b.fm.model.AddVariable(fmt.Sprintf("slack[%s:%s]", constraint, side), 0, math.Inf(1), b.penalty, core.Continuous)
	b.fm.slacks = append(b.fm.slacks, slackRef{variable: v, constraint: constraint, kind: kind, side: side})
	return v
}

func (b *modelBuilder) addNutrientRows() {
	for _, r := range b.req.Requirements {
		soft := b.relaxHard || !b.hard[r.Name]
		if r.HasMin() && *r.Min > 0 {
			b.addSoftGe(r.Name+" min", *r.Min, soft, v1alpha1.ViolationNutrient, b.nutrientTerms(r.Name))
		}
		if r.HasMax() {
			b.addSoftLe(r.Name+" max", *r.Max, soft, v1alpha1.ViolationNutrient, b.nutrientTerms(r.Name))
		}
	}
}

func (b *modelBuilder) addCategoryRows() {
	for _, cat := range v1alpha1.Categories {
		r, ok := b.req.CategoryRanges[cat]
		if !ok {
			continue
		}
		var terms []core.Term
		for i, ing := range b.req.Ingredients {
			if ing.EffectiveCategory() == cat {
				terms = append(terms, core.Term{Var: b.fm.ingredientVars[i], Coef: 1})
			}
		}
		if r.Min > 0 {
			b.addSoftGe(string(cat)+" min", r.Min, true, v1alpha1.ViolationCategory, append([]core.Term(nil), terms...))
		}
		if r.Max < 1 {
			b.addSoftLe(string(cat)+" max", r.Max, true, v1alpha1.ViolationCategory, append([]core.Term(nil), terms...))
		}
	}
}

// addRatioRows linearizes numerator / denominator {op} target as
// numerator - target·denominator {op} 0. Strict comparators shift the target
// by the configured margin.
func (b *modelBuilder) addRatioRows() {
	for _, r := range b.req.Ratios {
		target := r.Target
		switch r.Comparator {
		case v1alpha1.ComparatorGreater:
			target += b.cfg.StrictRatioMargin
		case v1alpha1.ComparatorLess:
			target -= b.cfg.StrictRatioMargin
		}
		terms := func() []core.Term {
			out := make([]core.Term, 0, len(b.req.Ingredients)+1)
			for i, ing := range b.req.Ingredients {
				coef := ing.Nutrient(r.Numerator) - target*ing.Nutrient(r.Denominator)
				out = append(out, core.Term{Var: b.fm.ingredientVars[i], Coef: coef})
			}
			return out
		}
		soft := b.relaxHard || r.Soft
		name := r.String()

		switch r.Comparator {
		case v1alpha1.ComparatorEqual:
			if soft {
				terms := append(terms(),
					core.Term{Var: b.addSlack(name, v1alpha1.ViolationRatio, v1alpha1.SideDeficit), Coef: 1},
					core.Term{Var: b.addSlack(name, v1alpha1.ViolationRatio, v1alpha1.SideExcess), Coef: -1})
				b.fm.model.AddEq(name, 0, terms...)
			} else {
				b.fm.model.AddEq(name, 0, terms()...)
			}
		case v1alpha1.ComparatorGreaterEqual, v1alpha1.ComparatorGreater:
			b.addSoftGe(name, 0, soft, v1alpha1.ViolationRatio, terms())
		case v1alpha1.ComparatorLessEqual, v1alpha1.ComparatorLess:
			b.addSoftLe(name, 0, soft, v1alpha1.ViolationRatio, terms())
		}
	}
}

// addIngredientCount links each usable ingredient to a binary indicator and
// requires at least MinIngredients of them to be on.
func (b *modelBuilder) addIngredientCount() {
	k := b.req.MinIngredients
	if k <= 0 {
		return
	}
	m := b.fm.model
	count := make([]core.Term, 0, len(b.req.Ingredients))
	for i, ing := range b.req.Ingredients {
		if b.plan.Bounds[i].Max <= 0 {
			continue
		}
		x := b.fm.ingredientVars[i]
		z := m.AddVariable("use["+ing.Name+"]", 0, 1, 0, core.Binary)
		b.fm.indicatorVars = append(b.fm.indicatorVars, z)
		m.AddLe("link upper "+ing.Name, 0, core.Term{Var: x, Coef: 1}, core.Term{Var: z, Coef: -b.cfg.BigM})
		m.AddGe("link lower "+ing.Name, 0, core.Term{Var: x, Coef: 1}, core.Term{Var: z, Coef: -b.cfg.MinInclusionEpsilon})
		count = append(count, core.Term{Var: z, Coef: 1})
	}
	m.AddGe("ingredient count", float64(k), count...)
}

// penaltyWeight returns the slack weight for a run. When auto-scaling is on
// and the configured weight does not dominate the cost of buying one unit of
// the scarcest requested nutrient, it is raised and a diagnostic is returned.
func penaltyWeight(cfg config.FormulatorConfig, req *v1alpha1.FormulationRequest, relaxHard bool) (float64, string) {
	w := cfg.PenaltyWeight
	if !cfg.AutoScalePenalty {
		return w, ""
	}

	maxPrice := 0.0
	for _, ing := range req.Ingredients {
		maxPrice = math.Max(maxPrice, math.Abs(finite(ing.Price)))
	}
	if maxPrice == 0 {
		return w, ""
	}

	hard := make(map[string]bool, len(req.HardNutrients))
	for _, n := range req.HardNutrients {
		hard[n] = true
	}
	var softNutrients []string
	for _, r := range req.Requirements {
		if r.IsActive() && (relaxHard || !hard[r.Name]) {
			softNutrients = append(softNutrients, r.Name)
		}
	}
	for _, r := range req.Ratios {
		if relaxHard || r.Soft {
			softNutrients = append(softNutrients, r.Numerator, r.Denominator)
		}
	}

	sensitivity := 0.0
	if len(req.CategoryRanges) > 0 {
		sensitivity = maxPrice
	}
	minContent := math.Inf(1)
	for _, n := range softNutrients {
		for _, ing := range req.Ingredients {
			if c := math.Abs(ing.Nutrient(n)); c > 0 {
				minContent = math.Min(minContent, c)
			}
		}
	}
	if !math.IsInf(minContent, 1) {
		sensitivity = math.Max(sensitivity, maxPrice/minContent)
	}

	target := cfg.PenaltyHeadroom * sensitivity
	if w >= target {
		return w, ""
	}
	return target, fmt.Sprintf("penalty weight raised from %g to %g to dominate ingredient cost per nutrient unit", w, target)
}
