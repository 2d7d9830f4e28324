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

// Package v1alpha1 contains the data model exchanged with the diet formulator.
//
// Inputs:
//
//   - Ingredient: name, category, unit price and nutrient content per mass unit
//   - NutrientRequirement: optional min/max bound for one nutrient
//   - InclusionLimit: min/max fraction of the mix for one ingredient
//   - RatioConstraint: numerator {op} target × denominator
//   - CategoryRange: min/max share of the mix for one category
//   - FormulationRequest: everything above for one run
//
// Output:
//
//   - FormulationResult: diet, cost, nutrient totals and compliance records
//
// All fractions are expressed in [0,1]; all percentages in the result are in [0,100].
package v1alpha1
