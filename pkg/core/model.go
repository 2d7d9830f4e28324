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

import (
	"fmt"
	"math"
)

// VarKind is the domain of a decision variable.
type VarKind int

const (
	// Continuous variables take any value within their bounds.
	Continuous VarKind = iota
	// Binary variables take 0 or 1.
	Binary
)

func (k VarKind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Binary:
		return "binary"
	default:
		return fmt.Sprintf("VarKind(%d)", int(k))
	}
}

// Variable is one column of the model.
type Variable struct {
	Name  string
	Lower float64
	Upper float64
	Cost  float64
	Kind  VarKind
}

// Term is a coefficient applied to a variable within a constraint.
type Term struct {
	Var  int
	Coef float64
}

// Constraint is one row of the model: Lower <= Σ Coef·x[Var] <= Upper.
// Use math.Inf for a missing side.
type Constraint struct {
	Name  string
	Terms []Term
	Lower float64
	Upper float64
}

// Activity evaluates Σ Coef·x[Var] for the given assignment.
func (c Constraint) Activity(values []float64) float64 {
	var sum float64
	for _, t := range c.Terms {
		if t.Var >= 0 && t.Var < len(values) {
			sum += t.Coef * values[t.Var]
		}
	}
	return sum
}

// IsEquality reports whether both sides coincide.
func (c Constraint) IsEquality() bool {
	return c.Lower == c.Upper
}

// Model is a minimization problem over bounded variables:
//
//	minimize    Σ Cost·x + Offset
//	subject to  Lower <= A·x <= Upper   (per constraint)
//	            Lower <= x <= Upper     (per variable)
//
// A Model is owned by a single formulation run and is not safe for concurrent mutation.
type Model struct {
	Name        string
	Offset      float64
	Variables   []Variable
	Constraints []Constraint
}

// NewModel creates an empty model.
func NewModel(name string) *Model {
	return &Model{Name: name}
}

// AddVariable appends a variable and returns its index.
func (m *Model) AddVariable(name string, lower, upper, cost float64, kind VarKind) int {
	if kind == Binary {
		lower = math.Max(lower, 0)
		upper = math.Min(upper, 1)
	}
	m.Variables = append(m.Variables, Variable{
		Name:  name,
		Lower: lower,
		Upper: upper,
		Cost:  cost,
		Kind:  kind,
	})
	return len(m.Variables) - 1
}

// AddConstraint appends a ranged constraint and returns its index.
// Zero coefficients are dropped.
func (m *Model) AddConstraint(name string, lower, upper float64, terms ...Term) int {
	kept := make([]Term, 0, len(terms))
	for _, t := range terms {
		if t.Coef != 0 {
			kept = append(kept, t)
		}
	}
	m.Constraints = append(m.Constraints, Constraint{
		Name:  name,
		Terms: kept,
		Lower: lower,
		Upper: upper,
	})
	return len(m.Constraints) - 1
}

// AddEq adds Σ terms = rhs.
func (m *Model) AddEq(name string, rhs float64, terms ...Term) int {
	return m.AddConstraint(name, rhs, rhs, terms...)
}

// AddGe adds Σ terms >= rhs.
func (m *Model) AddGe(name string, rhs float64, terms ...Term) int {
	return m.AddConstraint(name, rhs, math.Inf(1), terms...)
}

// AddLe adds Σ terms <= rhs.
func (m *Model) AddLe(name string, rhs float64, terms ...Term) int {
	return m.AddConstraint(name, math.Inf(-1), rhs, terms...)
}

// NumVars returns the number of variables.
func (m *Model) NumVars() int { return len(m.Variables) }

// NumConstraints returns the number of constraints.
func (m *Model) NumConstraints() int { return len(m.Constraints) }

// HasInteger reports whether any variable is binary.
func (m *Model) HasInteger() bool {
	for _, v := range m.Variables {
		if v.Kind == Binary {
			return true
		}
	}
	return false
}

// Objective evaluates the objective for the given assignment.
func (m *Model) Objective(values []float64) float64 {
	obj := m.Offset
	for i, v := range m.Variables {
		if i < len(values) {
			obj += v.Cost * values[i]
		}
	}
	return obj
}

// Clone returns a deep copy whose bounds may be changed independently.
func (m *Model) Clone() *Model {
	out := &Model{
		Name:        m.Name,
		Offset:      m.Offset,
		Variables:   make([]Variable, len(m.Variables)),
		Constraints: make([]Constraint, len(m.Constraints)),
	}
	copy(out.Variables, m.Variables)
	for i, c := range m.Constraints {
		c.Terms = append([]Term(nil), c.Terms...)
		out.Constraints[i] = c
	}
	return out
}

// Validate checks indices and bounds.
func (m *Model) Validate() error {
	for i, v := range m.Variables {
		if math.IsNaN(v.Lower) || math.IsNaN(v.Upper) || math.IsNaN(v.Cost) || math.IsInf(v.Cost, 0) {
			return fmt.Errorf("variable %d (%s): bounds and cost must be numbers", i, v.Name)
		}
		if math.IsInf(v.Lower, -1) {
			return fmt.Errorf("variable %d (%s): free variables are not supported", i, v.Name)
		}
	}
	for i, c := range m.Constraints {
		if math.IsNaN(c.Lower) || math.IsNaN(c.Upper) {
			return fmt.Errorf("constraint %d (%s): bounds must be numbers", i, c.Name)
		}
		for _, t := range c.Terms {
			if t.Var < 0 || t.Var >= len(m.Variables) {
				return fmt.Errorf("constraint %d (%s): variable index %d out of range", i, c.Name, t.Var)
			}
			if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
				return fmt.Errorf("constraint %d (%s): coefficient for %s is not finite", i, c.Name, m.Variables[t.Var].Name)
			}
		}
	}
	return nil
}
