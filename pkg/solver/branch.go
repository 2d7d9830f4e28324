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
	"fmt"
	"math"

	"github.com/llm-d/diet-formulator/pkg/core"
)

// pruneTol keeps nodes whose bound only ties the incumbent from being explored.
const pruneTol = 1e-9

// fixing pins a binary variable to 0 or 1 in a branch-and-bound node.
type fixing struct {
	index int
	value float64
}

type node struct {
	fixings []fixing
}

// branchAndBound runs a depth-first search over the binary variables,
// solving the LP relaxation at each node.
func (s *SimplexSolver) branchAndBound(ctx context.Context, root *core.Model) *core.Solution {
	var (
		best        []float64
		bestObj     = math.Inf(1)
		nodes       int
		unresolved  bool
		sawUnbound  bool
		stack       = []node{{}}
		maxNodes    = s.opts.MaxNodes
		integralTol = s.opts.IntegralityTolerance
	)
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	if integralTol <= 0 {
		integralTol = DefaultIntegralityTolerance
	}

	finish := func(status core.Status, msg string) *core.Solution {
		sol := &core.Solution{Status: status, Nodes: nodes, Message: msg}
		if best != nil {
			roundBinaries(root, best)
			sol.Values = best
			sol.Objective = root.Objective(best)
		}
		return sol
	}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			interrupted := contextSolution(err)
			return finish(interrupted.Status, interrupted.Message)
		}
		if nodes >= maxNodes {
			return finish(core.StatusNotSolved, fmt.Sprintf("branch-and-bound stopped after %d nodes", nodes))
		}

		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		sub := root.Clone()
		for _, f := range n.fixings {
			sub.Variables[f.index].Lower = f.value
			sub.Variables[f.index].Upper = f.value
		}

		relaxed := s.solveRelaxation(ctx, sub)
		switch relaxed.Status {
		case core.StatusOptimal:
		case core.StatusInfeasible:
			continue
		case core.StatusUnbounded:
			sawUnbound = true
			continue
		case core.StatusTimedOut:
			return finish(core.StatusTimedOut, relaxed.Message)
		default:
			unresolved = true
			continue
		}
		if relaxed.Objective >= bestObj-pruneTol {
			continue
		}

		branchVar, frac := mostFractional(root, relaxed.Values, integralTol)
		if branchVar < 0 {
			best = relaxed.Values
			bestObj = relaxed.Objective
			continue
		}

		down := node{fixings: appendFixing(n.fixings, fixing{index: branchVar, value: 0})}
		up := node{fixings: appendFixing(n.fixings, fixing{index: branchVar, value: 1})}
		// the branch closer to the relaxed value is explored first
		if frac >= 0.5 {
			stack = append(stack, down, up)
		} else {
			stack = append(stack, up, down)
		}
	}

	switch {
	case best != nil:
		return finish(core.StatusOptimal, "")
	case sawUnbound:
		return finish(core.StatusUnbounded, "relaxation is unbounded")
	case unresolved:
		return finish(core.StatusNotSolved, "one or more relaxations could not be solved")
	default:
		return finish(core.StatusInfeasible, "no integer-feasible assignment exists")
	}
}

func appendFixing(in []fixing, f fixing) []fixing {
	out := make([]fixing, len(in), len(in)+1)
	copy(out, in)
	return append(out, f)
}

// mostFractional returns the binary variable whose value is furthest from
// integral, along with that value. It returns -1 when all binaries are integral.
func mostFractional(m *core.Model, values []float64, tol float64) (int, float64) {
	idx, bestDist, val := -1, tol, 0.0
	for i, v := range m.Variables {
		if v.Kind != core.Binary || i >= len(values) {
			continue
		}
		x := values[i]
		dist := math.Abs(x - math.Round(x))
		if dist > bestDist {
			idx, bestDist, val = i, dist, x
		}
	}
	return idx, val
}

func roundBinaries(m *core.Model, values []float64) {
	for i, v := range m.Variables {
		if v.Kind == core.Binary && i < len(values) {
			values[i] = math.Round(values[i])
		}
	}
}
