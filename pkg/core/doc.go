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

// Package core provides the solver-independent optimization model used by the
// diet formulator.
//
// This package contains the building blocks a formulation run assembles before
// handing the problem to a solver:
//
//   - Variable: a bounded decision variable with an objective cost (continuous or binary)
//   - Constraint: a ranged linear row, Lower <= Σ coef·x <= Upper
//   - Model: a minimization problem over variables and constraints
//   - Solution: the solver's status and assignment
//
// Example usage:
//
//	m := core.NewModel("diet")
//	corn := m.AddVariable("corn", 0, 1, 0.25, core.Continuous)
//	soy := m.AddVariable("soy", 0, 1, 0.45, core.Continuous)
//	m.AddEq("mass-balance", 1, core.Term{Var: corn, Coef: 1}, core.Term{Var: soy, Coef: 1})
//	m.AddGe("protein", 20, core.Term{Var: corn, Coef: 8.5}, core.Term{Var: soy, Coef: 46})
//
// The core package is designed to be:
//   - Independent of any solver library
//   - Owned by exactly one formulation run (no shared state)
//   - Cheap to clone for branch-and-bound
package core
