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

package core

// Status is the outcome reported by a solver.
type Status int

const (
	// StatusNotSolved means the solver stopped without proving optimality or infeasibility.
	StatusNotSolved Status = iota
	// StatusOptimal means the returned assignment is optimal.
	StatusOptimal
	// StatusInfeasible means no assignment satisfies every constraint.
	StatusInfeasible
	// StatusUnbounded means the objective decreases without bound.
	StatusUnbounded
	// StatusTimedOut means the time limit expired.
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "Optimal"
	case StatusInfeasible:
		return "Infeasible"
	case StatusUnbounded:
		return "Unbounded"
	case StatusTimedOut:
		return "TimedOut"
	default:
		return "NotSolved"
	}
}

// Solution holds a solver's answer for a Model.
type Solution struct {
	Status Status

	// Values holds one entry per model variable. Empty when no assignment is available.
	Values []float64

	// Objective is the objective value of Values.
	Objective float64

	// Nodes counts the LP relaxations solved (1 for a pure LP).
	Nodes int

	// Message carries the solver's explanation when not optimal.
	Message string
}

// IsOptimal reports whether the solution is proven optimal.
func (s *Solution) IsOptimal() bool {
	return s != nil && s.Status == StatusOptimal
}

// HasValues reports whether an assignment is available, optimal or not.
func (s *Solution) HasValues() bool {
	return s != nil && len(s.Values) > 0
}

// Value returns the value of variable i, or 0 if unavailable.
func (s *Solution) Value(i int) float64 {
	if s == nil || i < 0 || i >= len(s.Values) {
		return 0
	}
	return s.Values[i]
}
