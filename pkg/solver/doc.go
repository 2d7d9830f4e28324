// Package solver computes optimal assignments for core.Models.
//
// The solver package hides the linear programming engine behind the Solver
// interface so the formulation engine never depends on a particular backend.
//
// Key Components:
//
//   - Solver: the interface consumed by the optimizer
//   - SimplexSolver: gonum's dense simplex (gonum.org/v1/gonum/optimize/convex/lp)
//   - Branch-and-bound: depth-first search used when the model has binary variables
//
// Conversion to Standard Form:
//
// gonum solves minimize cᵀy subject to A·y = b, y >= 0. A core.Model is
// converted as follows:
//  1. Every variable is shifted by its lower bound (x = lower + y)
//  2. Fixed variables become constants folded into the right-hand sides
//  3. Finite upper bounds become y + s = upper - lower with a slack column
//  4. Ranged rows get a surplus column for the lower side and a slack column
//     for the upper side; equal sides become one equality row
//  5. Rows left without terms are checked for feasibility and dropped
//
// Status Mapping:
//
//	lp.ErrInfeasible           -> core.StatusInfeasible
//	lp.ErrUnbounded            -> core.StatusUnbounded
//	context.DeadlineExceeded   -> core.StatusTimedOut
//	anything else              -> core.StatusNotSolved
//
// Example usage:
//
//	s, err := solver.NewSolver(solver.KindSimplex, solver.WithTimeLimit(5*time.Second))
//	if err != nil {
//	    return err
//	}
//	sol, err := s.Solve(ctx, model)
//	if err != nil {
//	    return err // malformed model
//	}
//	if !sol.IsOptimal() {
//	    log.Info("no optimal formulation", "status", sol.Status, "reason", sol.Message)
//	}
//
// Solvers are stateless; a single instance may serve concurrent Solve calls.
package solver
