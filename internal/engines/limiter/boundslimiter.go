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

package limiter

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/go-logr/logr"

	"github.com/llm-d/diet-formulator/api/v1alpha1"
	"github.com/llm-d/diet-formulator/internal/logging"
)

// BoundsLimiter merges inclusion limits, forced minimums, and fixed inclusions
// into one [min, max] range per ingredient.
type BoundsLimiter struct {
	config *LimiterConfig
}

// NewBoundsLimiter creates a new BoundsLimiter instance.
func NewBoundsLimiter(config *LimiterConfig) (*BoundsLimiter, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.DefaultMaxInclusion == 0 {
		config.DefaultMaxInclusion = DefaultMaxInclusion
	}
	if config.Tolerance == 0 {
		config.Tolerance = DefaultTolerance
	}
	if config.DefaultMaxInclusion < 0 || config.DefaultMaxInclusion > 1 {
		return nil, fmt.Errorf("default max inclusion must be in (0, 1], got %g", config.DefaultMaxInclusion)
	}
	if config.Tolerance < 0 {
		return nil, fmt.Errorf("tolerance must be >= 0, got %g", config.Tolerance)
	}
	return &BoundsLimiter{
		config: config,
	}, nil
}

// Resolve implements Limiter.
func (l *BoundsLimiter) Resolve(ctx context.Context, req *v1alpha1.FormulationRequest) (*InclusionPlan, error) {
	logger := logr.FromContextOrDiscard(ctx)

	if req == nil || len(req.Ingredients) == 0 {
		return nil, ErrNoIngredients
	}

	index := make(map[string]int, len(req.Ingredients))
	for i, ing := range req.Ingredients {
		if strings.TrimSpace(ing.Name) == "" {
			return nil, fmt.Errorf("%w: ingredient at position %d has an empty name", ErrInvalidIngredient, i)
		}
		if _, dup := index[ing.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate ingredient %q", ErrInvalidIngredient, ing.Name)
		}
		index[ing.Name] = i
	}
	if err := checkKnown(index, "inclusion limit", keysOf(req.Limits)); err != nil {
		return nil, err
	}
	if err := checkKnown(index, "forced minimum", keysOf(req.ForcedMinimums)); err != nil {
		return nil, err
	}
	if err := checkKnown(index, "fixed inclusion", keysOf(req.FixedInclusions)); err != nil {
		return nil, err
	}

	tol := l.config.Tolerance
	if forcedSum := sumForced(req.ForcedMinimums); forcedSum > 1+tol {
		return nil, fmt.Errorf("%w: forced minimum inclusions sum to %.2f%%, which exceeds 100%%",
			ErrForcedMinimumsExceed, forcedSum*100)
	}

	plan := &InclusionPlan{Bounds: make([]Bound, len(req.Ingredients))}
	for i, ing := range req.Ingredients {
		b, err := l.resolveOne(ing.Name, req)
		if err != nil {
			return nil, err
		}
		plan.Bounds[i] = b
	}

	if minSum := plan.MinSum(); minSum > 1+tol {
		return nil, fmt.Errorf("%w: minimum inclusions sum to %.2f%%, which exceeds 100%%",
			ErrMinimumsExceed, minSum*100)
	}
	if maxSum := plan.MaxSum(); maxSum < 1-tol {
		return nil, fmt.Errorf("%w: maximum inclusions sum to %.2f%%, below the 100%% mass balance",
			ErrMaximumsBelowTotal, maxSum*100)
	}

	plan.Diagnostics = append(plan.Diagnostics, categoryDiagnostics(req, plan, tol)...)

	logger.V(logging.DEBUG).Info("Resolved inclusion bounds",
		"ingredients", len(plan.Bounds),
		"minSum", plan.MinSum(),
		"maxSum", plan.MaxSum(),
		"diagnostics", len(plan.Diagnostics))
	return plan, nil
}

// resolveOne computes the bound of a single ingredient.
func (l *BoundsLimiter) resolveOne(name string, req *v1alpha1.FormulationRequest) (Bound, error) {
	b := Bound{Ingredient: name, Min: 0, Max: l.config.DefaultMaxInclusion}

	if limit, ok := req.Limits[name]; ok {
		b.Min = limit.Min
		if limit.Max != nil {
			b.Max = *limit.Max
		}
	}
	if !inUnit(b.Min) || !inUnit(b.Max) {
		return Bound{}, fmt.Errorf("%w: %q bounds [%g, %g] must lie within [0, 1]", ErrInvalidLimit, name, b.Min, b.Max)
	}
	if b.Min > b.Max {
		return Bound{}, fmt.Errorf("%w: %q min %.2f%% is greater than max %.2f%%", ErrInvalidLimit, name, b.Min*100, b.Max*100)
	}

	if forced, ok := req.ForcedMinimums[name]; ok {
		if !inUnit(forced) {
			return Bound{}, fmt.Errorf("%w: %q forced minimum %g must lie within [0, 1]", ErrInvalidLimit, name, forced)
		}
		if forced > b.Max+l.config.Tolerance {
			return Bound{}, fmt.Errorf("%w: %q forced minimum %.2f%% exceeds its max %.2f%%", ErrInvalidLimit, name, forced*100, b.Max*100)
		}
		b.Forced = forced
		b.Min = math.Max(b.Min, math.Min(forced, b.Max))
	}

	if fixed, ok := req.FixedInclusions[name]; ok {
		if !inUnit(fixed) {
			return Bound{}, fmt.Errorf("%w: %q fixed inclusion %g must lie within [0, 1]", ErrInvalidLimit, name, fixed)
		}
		tol := l.config.Tolerance
		if fixed < b.Min-tol || fixed > b.Max+tol {
			return Bound{}, fmt.Errorf("%w: %q fixed inclusion %.2f%% is outside its range [%.2f%%, %.2f%%]",
				ErrInvalidLimit, name, fixed*100, b.Min*100, b.Max*100)
		}
		b.Min, b.Max, b.Fixed = fixed, fixed, true
	}
	return b, nil
}

// sumForced adds the positive finite forced minimums; other values are
// rejected per ingredient by resolveOne.
func sumForced(forced map[string]float64) float64 {
	var sum float64
	for _, v := range forced {
		if v > 0 && !math.IsInf(v, 1) {
			sum += v
		}
	}
	return sum
}

func inUnit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

func keysOf[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func checkKnown(index map[string]int, what string, names []string) error {
	for _, name := range names {
		if _, ok := index[name]; !ok {
			return fmt.Errorf("%w: %s refers to %q", ErrUnknownIngredient, what, name)
		}
	}
	return nil
}

// categoryDiagnostics flags category ranges that the resolved bounds make unreachable.
// They are reported, not rejected, because category rows are soft.
func categoryDiagnostics(req *v1alpha1.FormulationRequest, plan *InclusionPlan, tol float64) []string {
	if len(req.CategoryRanges) == 0 {
		return nil
	}
	capacity := CategoryCapacity(req.Ingredients, plan)
	floor := CategoryFloor(req.Ingredients, plan)

	var out []string
	for _, cat := range v1alpha1.Categories {
		r, ok := req.CategoryRanges[cat]
		if !ok {
			continue
		}
		if r.Min > 0 && capacity[cat] < r.Min-tol {
			out = append(out, fmt.Sprintf("category %s can reach at most %.2f%% but requires at least %.2f%%",
				cat, capacity[cat]*100, r.Min*100))
		}
		if floor[cat] > r.Max+tol {
			out = append(out, fmt.Sprintf("category %s is forced to at least %.2f%% but allows at most %.2f%%",
				cat, floor[cat]*100, r.Max*100))
		}
	}
	return out
}
