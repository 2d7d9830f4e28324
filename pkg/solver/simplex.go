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

package solver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/llm-d/diet-formulator/pkg/core"
)

const (
	// feasibilityTol is used for rows that collapse to constants during conversion.
	feasibilityTol = 1e-9
	// rankTol is the singular value cutoff, relative to the largest, below
	// which a row is treated as linearly dependent.
	rankTol = 1e-9
)

var errInfeasibleBounds = errors.New("variable or constant row bounds are contradictory")

// SimplexSolver solves core.Models with gonum's simplex.
// It is stateless and safe for concurrent use.
type SimplexSolver struct {
	opts Options
}

// NewSimplexSolver creates a SimplexSolver.
func NewSimplexSolver(opts Options) *SimplexSolver {
	return &SimplexSolver{opts: opts}
}

// Name implements Solver.
func (s *SimplexSolver) Name() string {
	return string(KindSimplex)
}

// Solve implements Solver.
func (s *SimplexSolver) Solve(ctx context.Context, model *core.Model) (*core.Solution, error) {
	if model == nil {
		return nil, fmt.Errorf("model cannot be nil")
	}
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model %q: %w", model.Name, err)
	}
	if s.opts.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.TimeLimit)
		defer cancel()
	}
	if model.HasInteger() {
		return s.branchAndBound(ctx, model), nil
	}
	sol := s.solveRelaxation(ctx, model)
	sol.Nodes = 1
	return sol, nil
}

// standardForm is a model rewritten as: minimize cᵀy s.t. A·y = b, y >= 0,
// with x = lower + y for every kept variable.
type standardForm struct {
	c      []float64
	rows   []map[int]float64
	names  []string
	b      []float64
	cols   int
	colOf  []int
	lower  []float64
	status core.Status
	reason string
}

func (sf *standardForm) addColumn(cost float64) int {
	sf.c = append(sf.c, cost)
	sf.cols++
	return sf.cols - 1
}

func (sf *standardForm) addRow(name string, entries map[int]float64, rhs float64) {
	sf.rows = append(sf.rows, entries)
	sf.names = append(sf.names, name)
	sf.b = append(sf.b, rhs)
}

// toStandardForm shifts every variable by its lower bound, turns finite upper
// bounds and inequality rows into equalities with slack columns, and removes
// empty rows and fixed or unused columns that gonum rejects.
func toStandardForm(m *core.Model) *standardForm {
	sf := &standardForm{
		colOf:  make([]int, len(m.Variables)),
		lower:  make([]float64, len(m.Variables)),
		status: core.StatusOptimal,
	}

	used := make([]bool, len(m.Variables))
	for _, c := range m.Constraints {
		for _, t := range c.Terms {
			used[t.Var] = true
		}
	}

	for j, v := range m.Variables {
		sf.lower[j] = v.Lower
		sf.colOf[j] = -1
		if v.Upper < v.Lower-feasibilityTol {
			sf.status = core.StatusInfeasible
			sf.reason = fmt.Sprintf("variable %s: upper bound %g below lower bound %g: %v", v.Name, v.Upper, v.Lower, errInfeasibleBounds)
			return sf
		}
		if v.Upper-v.Lower <= feasibilityTol {
			continue
		}
		hasUpper := !math.IsInf(v.Upper, 1)
		if !used[j] && !hasUpper {
			if v.Cost < 0 {
				sf.status = core.StatusUnbounded
				sf.reason = fmt.Sprintf("variable %s has negative cost and no upper bound", v.Name)
				return sf
			}
			continue
		}
		if !used[j] && v.Cost >= 0 {
			continue
		}
		sf.colOf[j] = sf.addColumn(v.Cost)
		if hasUpper {
			slack := sf.addColumn(0)
			sf.addRow("upper["+v.Name+"]", map[int]float64{sf.colOf[j]: 1, slack: 1}, v.Upper-v.Lower)
		}
	}

	for _, c := range m.Constraints {
		shift := 0.0
		entries := make(map[int]float64, len(c.Terms))
		for _, t := range c.Terms {
			shift += t.Coef * sf.lower[t.Var]
			// fixed variables have no column and only contribute to the shift
			if col := sf.colOf[t.Var]; col >= 0 {
				entries[col] += t.Coef
			}
		}
		for col, v := range entries {
			if v == 0 {
				delete(entries, col)
			}
		}
		if len(entries) == 0 {
			if shift < c.Lower-feasibilityTol || shift > c.Upper+feasibilityTol {
				sf.status = core.StatusInfeasible
				sf.reason = fmt.Sprintf("constraint %s: constant %g outside [%g, %g]: %v", c.Name, shift, c.Lower, c.Upper, errInfeasibleBounds)
				return sf
			}
			continue
		}
		switch {
		case c.IsEquality():
			sf.addRow(c.Name, entries, c.Lower-shift)
		default:
			if !math.IsInf(c.Lower, -1) {
				row := cloneEntries(entries)
				row[sf.addColumn(0)] = -1
				sf.addRow(c.Name, row, c.Lower-shift)
			}
			if !math.IsInf(c.Upper, 1) {
				row := cloneEntries(entries)
				row[sf.addColumn(0)] = 1
				sf.addRow(c.Name, row, c.Upper-shift)
			}
		}
	}
	return sf
}

func cloneEntries(in map[int]float64) map[int]float64 {
	out := make(map[int]float64, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (sf *standardForm) matrix() *mat.Dense {
	return denseRows(sf.rows, sf.cols, nil)
}

// denseRows builds the row matrix, with b appended as a last column when set.
func denseRows(rows []map[int]float64, cols int, b []float64) *mat.Dense {
	width := cols
	if b != nil {
		width++
	}
	a := mat.NewDense(len(rows), width, nil)
	for i, row := range rows {
		for j, v := range row {
			a.Set(i, j, v)
		}
		if b != nil {
			a.Set(i, cols, b[i])
		}
	}
	return a
}

// matrixRank counts the singular values of a above rankTol relative to the largest.
func matrixRank(a *mat.Dense) int {
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDNone) {
		r, _ := a.Dims()
		return r
	}
	vals := svd.Values(nil)
	if len(vals) == 0 || vals[0] == 0 {
		return 0
	}
	n := 0
	for _, v := range vals {
		if v > rankTol*vals[0] {
			n++
		}
	}
	return n
}

// reduceRows drops equality rows that are linear combinations of the rows
// kept before them, since gonum's simplex rejects a rank-deficient A. A
// dependent row whose right-hand side disagrees with that combination makes
// the model infeasible.
func (sf *standardForm) reduceRows() {
	if matrixRank(sf.matrix()) == len(sf.rows) {
		return
	}
	var (
		rows  []map[int]float64
		names []string
		b     []float64
		rank  int
	)
	for i, row := range sf.rows {
		candRows := append(append([]map[int]float64(nil), rows...), row)
		candB := append(append([]float64(nil), b...), sf.b[i])
		if r := matrixRank(denseRows(candRows, sf.cols, nil)); r > rank {
			rows, b, rank = candRows, candB, r
			names = append(names, sf.names[i])
			continue
		}
		if matrixRank(denseRows(candRows, sf.cols, candB)) > rank {
			sf.status = core.StatusInfeasible
			sf.reason = fmt.Sprintf("constraint %s contradicts the constraints it depends on", sf.names[i])
			return
		}
	}
	sf.rows, sf.names, sf.b = rows, names, b
}

// recover maps a standard-form solution back to model variables.
func (sf *standardForm) recover(y []float64) []float64 {
	x := make([]float64, len(sf.colOf))
	for j, col := range sf.colOf {
		x[j] = sf.lower[j]
		if col >= 0 && col < len(y) {
			x[j] += y[col]
		}
	}
	return x
}

type lpOutcome struct {
	y   []float64
	err error
}

// solveRelaxation solves the model ignoring integrality.
func (s *SimplexSolver) solveRelaxation(ctx context.Context, m *core.Model) *core.Solution {
	if err := ctx.Err(); err != nil {
		return contextSolution(err)
	}

	sf := toStandardForm(m)
	if sf.status != core.StatusOptimal {
		return &core.Solution{Status: sf.status, Message: sf.reason}
	}
	if len(sf.rows) == 0 {
		// every variable sits at its lower bound
		x := sf.recover(nil)
		return &core.Solution{Status: core.StatusOptimal, Values: x, Objective: m.Objective(x)}
	}
	sf.reduceRows()
	if sf.status != core.StatusOptimal {
		return &core.Solution{Status: sf.status, Message: sf.reason}
	}

	a := sf.matrix()
	done := make(chan lpOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- lpOutcome{err: fmt.Errorf("simplex panicked: %v", r)}
			}
		}()
		_, y, err := lp.Simplex(sf.c, a, sf.b, s.opts.Tolerance, nil)
		done <- lpOutcome{y: y, err: err}
	}()

	var out lpOutcome
	select {
	case <-ctx.Done():
		return contextSolution(ctx.Err())
	case out = <-done:
	}

	switch {
	case out.err == nil:
		x := sf.recover(out.y)
		return &core.Solution{Status: core.StatusOptimal, Values: x, Objective: m.Objective(x)}
	case errors.Is(out.err, lp.ErrInfeasible):
		return &core.Solution{Status: core.StatusInfeasible, Message: out.err.Error()}
	case errors.Is(out.err, lp.ErrUnbounded):
		return &core.Solution{Status: core.StatusUnbounded, Message: out.err.Error()}
	default:
		return &core.Solution{Status: core.StatusNotSolved, Message: out.err.Error()}
	}
}

func contextSolution(err error) *core.Solution {
	if errors.Is(err, context.DeadlineExceeded) {
		return &core.Solution{Status: core.StatusTimedOut, Message: "solver time limit exceeded"}
	}
	return &core.Solution{Status: core.StatusNotSolved, Message: fmt.Sprintf("solve interrupted: %v", err)}
}
