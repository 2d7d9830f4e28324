package optimizer

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/llm-d/diet-formulator/api/v1alpha1"
	"github.com/llm-d/diet-formulator/internal/logging"
	"github.com/llm-d/diet-formulator/pkg/core"
	"github.com/llm-d/diet-formulator/pkg/solver"
)

func TestOptimizer(t *testing.T) {
	logging.NewTestLogger()
	RegisterFailHandler(Fail)
	RunSpecs(t, "Optimizer Suite")
}

// countingSolver delegates to a real solver and counts Solve calls.
type countingSolver struct {
	solver.Solver
	calls int
}

func (s *countingSolver) Solve(ctx context.Context, m *core.Model) (*core.Solution, error) {
	s.calls++
	return s.Solver.Solve(ctx, m)
}

func newCountingSolver() *countingSolver {
	s, err := solver.NewSolver(solver.KindSimplex)
	Expect(err).NotTo(HaveOccurred())
	return &countingSolver{Solver: s}
}

// stubSolver returns a canned answer, or panics when panicWith is set.
type stubSolver struct {
	sol       *core.Solution
	err       error
	panicWith string
}

func (s *stubSolver) Name() string { return "stub" }

func (s *stubSolver) Solve(_ context.Context, m *core.Model) (*core.Solution, error) {
	if s.panicWith != "" {
		panic(s.panicWith)
	}
	if s.err != nil {
		return nil, s.err
	}
	out := *s.sol
	if out.Values != nil {
		// pad to the model size so slack lookups stay in range
		values := make([]float64, m.NumVars())
		copy(values, out.Values)
		out.Values = values
	}
	return &out, nil
}

type recordedRun struct {
	status  v1alpha1.FormulationStatus
	elapsed time.Duration
}

type fakeRecorder struct {
	runs []recordedRun
}

func (r *fakeRecorder) RecordFormulation(result *v1alpha1.FormulationResult, elapsed time.Duration) {
	r.runs = append(r.runs, recordedRun{status: result.Status, elapsed: elapsed})
}

func ingredient(name string, cat v1alpha1.Category, price float64, nutrients map[string]float64) v1alpha1.Ingredient {
	return v1alpha1.Ingredient{Name: name, Category: cat, Price: price, Nutrients: nutrients}
}

func sumPercent(diet map[string]float64) float64 {
	var sum float64
	for _, p := range diet {
		sum += p
	}
	return sum
}
