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
	"errors"
	"fmt"
	"sort"

	"go.uber.org/multierr"

	"github.com/llm-d/diet-formulator/api/v1alpha1"
	"github.com/llm-d/diet-formulator/internal/engines/limiter"
)

// ErrInvalidRequest is wrapped by every request validation failure.
var ErrInvalidRequest = errors.New("invalid formulation request")

// validateRequest checks the parts of a request the limiter does not cover.
// All problems are reported together.
func validateRequest(req *v1alpha1.FormulationRequest, plan *limiter.InclusionPlan) error {
	var errs error

	seen := make(map[string]bool, len(req.Requirements))
	for _, r := range req.Requirements {
		if err := r.Validate(); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if seen[r.Name] {
			errs = multierr.Append(errs, fmt.Errorf("nutrient %q is required more than once", r.Name))
		}
		seen[r.Name] = true
	}

	for _, ratio := range req.Ratios {
		errs = multierr.Append(errs, ratio.Validate())
	}

	cats := make([]string, 0, len(req.CategoryRanges))
	for c := range req.CategoryRanges {
		cats = append(cats, string(c))
	}
	sort.Strings(cats)
	for _, c := range cats {
		cat := v1alpha1.Category(c)
		if !cat.IsValid() {
			errs = multierr.Append(errs, fmt.Errorf("unknown category %q", c))
			continue
		}
		if err := req.CategoryRanges[cat].Validate(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("category %s: %w", cat, err))
		}
	}

	switch {
	case req.MinIngredients < 0:
		errs = multierr.Append(errs, fmt.Errorf("minimum ingredient count must be >= 0, got %d", req.MinIngredients))
	case plan != nil && req.MinIngredients > plan.Eligible():
		errs = multierr.Append(errs, fmt.Errorf("at least %d ingredients are required but only %d can be included",
			req.MinIngredients, plan.Eligible()))
	}

	if errs != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, errs)
	}
	return nil
}

// inputDiagnostics returns non-fatal observations about a valid request.
func inputDiagnostics(req *v1alpha1.FormulationRequest) []string {
	var out []string
	if len(req.Requirements) > 0 && !req.HasActiveRequirements() {
		out = append(out, "no nutrient requirement has a positive minimum or maximum; the cheapest blend within inclusion limits is returned")
	}
	required := make(map[string]bool, len(req.Requirements))
	for _, r := range req.Requirements {
		required[r.Name] = true
	}
	for _, name := range req.HardNutrients {
		if !required[name] {
			out = append(out, fmt.Sprintf("hard nutrient %q has no requirement and is ignored", name))
		}
	}
	return out
}
