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
	"time"

	"github.com/llm-d/diet-formulator/pkg/core"
)

// Solver computes an assignment for a core.Model.
type Solver interface {
	// Name identifies the implementation in logs and results.
	Name() string

	// Solve returns the solver status and, when available, an assignment.
	// An error is returned only for malformed models; infeasibility,
	// unboundedness and timeouts are reported through Solution.Status.
	Solve(ctx context.Context, model *core.Model) (*core.Solution, error)
}

// Kind selects a Solver implementation.
type Kind string

const (
	// KindSimplex is gonum's dense simplex, with branch-and-bound for binary variables.
	KindSimplex Kind = "simplex"
)

const (
	// DefaultTolerance is passed to the simplex as its pivoting tolerance.
	DefaultTolerance = 1e-10
	// DefaultIntegralityTolerance decides when a binary relaxation value counts as integral.
	DefaultIntegralityTolerance = 1e-6
	// DefaultMaxNodes caps the number of branch-and-bound relaxations.
	DefaultMaxNodes = 5000
)

// Options configures a Solver.
type Options struct {
	// TimeLimit caps a whole Solve call. Zero means no limit beyond the context deadline.
	TimeLimit time.Duration
	// Tolerance is the simplex tolerance.
	Tolerance float64
	// IntegralityTolerance applies to binary variables.
	IntegralityTolerance float64
	// MaxNodes caps branch-and-bound relaxations. Zero means DefaultMaxNodes.
	MaxNodes int
}

// Option mutates Options.
type Option func(*Options)

// WithTimeLimit caps the duration of each Solve call. When the limit fires,
// Solve returns TimedOut right away but the simplex call already running is
// not interruptible: its goroutine keeps using a CPU until it finishes, and
// its result is discarded.
func WithTimeLimit(d time.Duration) Option {
	return func(o *Options) {
		o.TimeLimit = d
	}
}

// WithTolerance sets the simplex tolerance.
func WithTolerance(tol float64) Option {
	return func(o *Options) {
		o.Tolerance = tol
	}
}

// WithIntegralityTolerance sets the tolerance used to accept binary values.
func WithIntegralityTolerance(tol float64) Option {
	return func(o *Options) {
		o.IntegralityTolerance = tol
	}
}

// WithMaxNodes caps the branch-and-bound search.
func WithMaxNodes(n int) Option {
	return func(o *Options) {
		o.MaxNodes = n
	}
}

func defaultOptions() Options {
	return Options{
		Tolerance:            DefaultTolerance,
		IntegralityTolerance: DefaultIntegralityTolerance,
		MaxNodes:             DefaultMaxNodes,
	}
}

// NewSolver is a factory that creates a Solver of the requested kind.
func NewSolver(kind Kind, opts ...Option) (Solver, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Tolerance < 0 || o.IntegralityTolerance <= 0 || o.IntegralityTolerance >= 0.5 {
		return nil, fmt.Errorf("invalid solver tolerances: simplex %g, integrality %g", o.Tolerance, o.IntegralityTolerance)
	}
	if o.MaxNodes <= 0 {
		o.MaxNodes = DefaultMaxNodes
	}
	switch kind {
	case KindSimplex, "":
		return NewSimplexSolver(o), nil
	default:
		return nil, fmt.Errorf("unsupported solver kind: %q", kind)
	}
}
