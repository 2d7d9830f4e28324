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

// Bound is the resolved inclusion range of one ingredient, as fractions of the mix.
type Bound struct {
	Ingredient string
	Min        float64
	Max        float64

	// Forced is the caller's forced minimum (0 when none).
	Forced float64
	// Fixed is true when the ingredient is pinned to Min == Max.
	Fixed bool
}

// InclusionPlan is the output of a Limiter.
type InclusionPlan struct {
	// Bounds holds one entry per ingredient, in request order.
	Bounds []Bound
	// Diagnostics are non-fatal observations about the bounds.
	Diagnostics []string
}

// MinSum returns the sum of the lower bounds.
func (p *InclusionPlan) MinSum() float64 {
	var sum float64
	for _, b := range p.Bounds {
		sum += b.Min
	}
	return sum
}

// MaxSum returns the sum of the upper bounds.
func (p *InclusionPlan) MaxSum() float64 {
	var sum float64
	for _, b := range p.Bounds {
		sum += b.Max
	}
	return sum
}

// Bound returns the resolved bound of the named ingredient.
func (p *InclusionPlan) Bound(ingredient string) (Bound, bool) {
	for _, b := range p.Bounds {
		if b.Ingredient == ingredient {
			return b, true
		}
	}
	return Bound{}, false
}

// Eligible counts the ingredients whose upper bound is positive.
func (p *InclusionPlan) Eligible() int {
	n := 0
	for _, b := range p.Bounds {
		if b.Max > 0 {
			n++
		}
	}
	return n
}
