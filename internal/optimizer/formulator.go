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
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/llm-d/diet-formulator/api/v1alpha1"
	"github.com/llm-d/diet-formulator/internal/config"
	"github.com/llm-d/diet-formulator/internal/engines/limiter"
	"github.com/llm-d/diet-formulator/internal/logging"
	"github.com/llm-d/diet-formulator/pkg/core"
	"github.com/llm-d/diet-formulator/pkg/solver"
)

// Recorder observes every completed formulation run.
type Recorder interface {
	RecordFormulation(result *v1alpha1.FormulationResult, elapsed time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) RecordFormulation(*v1alpha1.FormulationResult, time.Duration) {}

// Formulator builds, solves, and interprets least-cost diet formulations.
// It is safe for concurrent use; each call to Formulate owns its model.
type Formulator struct {
	cfg      config.FormulatorConfig
	solver   solver.Solver
	limiter  limiter.Limiter
	recorder Recorder
	logger   *logr.Logger
}

// Option customizes a Formulator.
type Option func(*Formulator)

// WithSolver replaces the solver built from the configuration.
func WithSolver(s solver.Solver) Option {
	return func(f *Formulator) {
		f.solver = s
	}
}

// WithLimiter replaces the default bounds limiter.
func WithLimiter(l limiter.Limiter) Option {
	return func(f *Formulator) {
		f.limiter = l
	}
}

// WithRecorder registers an observer for completed runs.
func WithRecorder(r Recorder) Option {
	return func(f *Formulator) {
		f.recorder = r
	}
}

// WithLogger sets the logger used when the context carries none.
func WithLogger(l logr.Logger) Option {
	return func(f *Formulator) {
		f.logger = &l
	}
}

// NewFormulator validates cfg and wires the default solver and limiter.
func NewFormulator(cfg config.FormulatorConfig, opts ...Option) (*Formulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f := &Formulator{cfg: cfg, recorder: noopRecorder{}}
	for _, opt := range opts {
		opt(f)
	}

	if f.solver == nil {
		s, err := solver.NewSolver(solver.Kind(cfg.Solver),
			solver.WithTimeLimit(cfg.SolveTimeout),
			solver.WithMaxNodes(cfg.MaxBranchNodes))
		if err != nil {
			return nil, fmt.Errorf("failed to create solver: %w", err)
		}
		f.solver = s
	}
	if f.limiter == nil {
		l, err := limiter.NewLimiter(limiter.BoundsStrategy, &limiter.LimiterConfig{
			DefaultMaxInclusion: cfg.DefaultMaxInclusion,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create limiter: %w", err)
		}
		f.limiter = l
	}
	if f.recorder == nil {
		f.recorder = noopRecorder{}
	}
	return f, nil
}

// Config returns the configuration the formulator was built with.
func (f *Formulator) Config() config.FormulatorConfig {
	return f.cfg
}

func (f *Formulator) loggerFor(ctx context.Context) logr.Logger {
	if l := logr.FromContextOrDiscard(ctx); l.GetSink() != nil {
		return l
	}
	if f.logger != nil {
		return *f.logger
	}
	return logging.Logger()
}

// Formulate computes the least-cost mix for req. It never returns nil: input
// errors, infeasibility, and solver failures are all reported through the
// result, which always carries a mix the caller can inspect.
func (f *Formulator) Formulate(ctx context.Context, req v1alpha1.FormulationRequest) (result *v1alpha1.FormulationResult) {
	start := time.Now()
	logger := f.loggerFor(ctx).WithValues("ingredients", len(req.Ingredients), "requirements", len(req.Requirements))
	in := &interpreter{cfg: f.cfg, req: &req}

	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Errorf("%v", r), "Formulation panicked, returning fallback mix")
			result = f.fallback(in, v1alpha1.StatusNotSolved,
				fmt.Sprintf("internal error while formulating: %v", r), nil)
		}
		f.recorder.RecordFormulation(result, time.Since(start))
		logger.V(logging.DEBUG).Info("Formulation finished",
			"status", result.Status,
			"success", result.Success,
			"cost", result.TotalCost,
			"elapsed", time.Since(start))
	}()

	plan, err := f.limiter.Resolve(ctx, &req)
	if err == nil {
		err = validateRequest(&req, plan)
	}
	if err != nil {
		logger.V(logging.VERBOSE).Info("Rejected formulation request", "reason", err.Error())
		return f.fallback(in, v1alpha1.StatusInvalidInput, err.Error(), nil)
	}
	diagnostics := append(append([]string(nil), plan.Diagnostics...), inputDiagnostics(&req)...)

	penalty, note := penaltyWeight(f.cfg, &req, false)
	if note != "" {
		diagnostics = append(diagnostics, note)
	}
	fm := newModelBuilder(f.cfg, &req, plan, penalty).build()
	logger.V(logging.DEBUG).Info("Built formulation model",
		"variables", fm.model.NumVars(),
		"constraints", fm.model.NumConstraints(),
		"penaltyWeight", penalty)

	sol, err := f.solver.Solve(ctx, fm.model)
	if err != nil {
		logger.Error(err, "Solver rejected the formulation model")
		return f.fallback(in, v1alpha1.StatusNotSolved, fmt.Sprintf("solver rejected the model: %v", err), diagnostics)
	}
	logger.V(logging.DEBUG).Info("Solved formulation model",
		"solver", f.solver.Name(),
		"status", sol.Status.String(),
		"nodes", sol.Nodes)

	switch sol.Status {
	case core.StatusOptimal:
		return f.interpretSolution(in, fm, sol, v1alpha1.StatusOptimal, "", diagnostics)

	case core.StatusInfeasible:
		return f.relaxed(ctx, logger, in, plan, diagnostics)

	case core.StatusTimedOut:
		msg := fmt.Sprintf("solver timed out after %s before proving optimality", f.cfg.SolveTimeout)
		if sol.HasValues() {
			return f.interpretSolution(in, fm, sol, v1alpha1.StatusTimedOut, msg, diagnostics)
		}
		return f.fallback(in, v1alpha1.StatusTimedOut, msg, diagnostics)

	case core.StatusUnbounded:
		return f.fallback(in, v1alpha1.StatusUnbounded,
			"solver reported an unbounded objective; check ingredient prices and penalty weight", diagnostics)

	default:
		msg := "solver stopped without proving optimality"
		if sol.Message != "" {
			msg += ": " + sol.Message
		}
		if sol.HasValues() {
			return f.interpretSolution(in, fm, sol, v1alpha1.StatusNotSolved, msg, diagnostics)
		}
		return f.fallback(in, v1alpha1.StatusNotSolved, msg, diagnostics)
	}
}

// relaxed re-solves an infeasible request with every nutrient and ratio row
// softened, so the caller sees the closest achievable mix and which bounds
// could not be met.
func (f *Formulator) relaxed(ctx context.Context, logger logr.Logger, in *interpreter,
	plan *limiter.InclusionPlan, diagnostics []string) *v1alpha1.FormulationResult {

	const msg = "cannot satisfy requirements with the available ingredients and limits"

	penalty, note := penaltyWeight(f.cfg, in.req, true)
	if note != "" {
		diagnostics = append(diagnostics, note)
	}
	b := newModelBuilder(f.cfg, in.req, plan, penalty)
	b.relaxHard = true
	fm := b.build()

	sol, err := f.solver.Solve(ctx, fm.model)
	if err != nil || !sol.HasValues() {
		logger.V(logging.VERBOSE).Info("Relaxed formulation produced no mix, using cheapest ingredient")
		return f.fallback(in, v1alpha1.StatusInfeasible, msg+"; returning the cheapest eligible ingredient", diagnostics)
	}
	diagnostics = append(diagnostics, "hard nutrient, ratio, and ingredient count constraints were relaxed to find the closest mix")
	return f.interpretSolution(in, fm, sol, v1alpha1.StatusInfeasible, msg, diagnostics)
}

// interpretSolution reads sol into a result. Success requires an optimal
// status and every compliance check to pass.
func (f *Formulator) interpretSolution(in *interpreter, fm *formulationModel, sol *core.Solution,
	status v1alpha1.FormulationStatus, msg string, diagnostics []string) *v1alpha1.FormulationResult {

	res := &v1alpha1.FormulationResult{
		Status:        status,
		Objective:     round4(sol.Objective),
		PenaltyWeight: fm.penalty,
		Diagnostics:   diagnostics,
	}
	failures := in.interpret(res, ingredientFractions(fm, sol))
	res.Violations = slackViolations(fm, sol, f.cfg.ComplianceTolerance)

	res.Success = status == v1alpha1.StatusOptimal && len(failures) == 0
	res.Fallback = !res.Success
	switch {
	case res.Success:
		res.Message = "optimal formulation found"
	case msg != "" && len(failures) > 0:
		res.Message = msg + "; unmet: " + strings.Join(failures, "; ")
	case msg != "":
		res.Message = msg
	default:
		res.Message = "closest achievable mix does not meet every requirement: " + strings.Join(failures, "; ")
	}
	return res
}

// fallback returns the single cheapest eligible ingredient at 100%.
func (f *Formulator) fallback(in *interpreter, status v1alpha1.FormulationStatus, msg string, diagnostics []string) *v1alpha1.FormulationResult {
	res := &v1alpha1.FormulationResult{
		Status:      status,
		Fallback:    true,
		Message:     msg,
		Diagnostics: diagnostics,
	}
	in.interpret(res, cheapestMix(in.req, f.cfg.DefaultMaxInclusion))
	return res
}
