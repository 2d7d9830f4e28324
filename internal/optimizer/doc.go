// Package optimizer implements the diet formulation engine.
//
// The optimizer package turns a FormulationRequest into a least-cost mix by
// coordinating bound resolution, model building, solver invocation, and result
// interpretation.
//
// Architecture:
//
// The optimizer follows a pipeline pattern:
//
//	Bound Resolution → Model Building → Solver → Interpretation
//	    (Limiter)        (builder.go)   (Solver)  (interpreter.go)
//
// Example usage:
//
//	f, err := optimizer.NewFormulator(config.Default(),
//	    optimizer.WithRecorder(metrics.NewRecorder(registry)),
//	)
//	if err != nil {
//	    return err
//	}
//
//	result := f.Formulate(ctx, request)
//	if !result.Success {
//	    log.Info("best-effort formulation",
//	        "status", result.Status,
//	        "message", result.Message)
//	}
//
// Model:
//
//   - One continuous variable per ingredient, bounded by the resolved inclusion range
//   - Mass balance: the fractions sum to one
//   - Nutrient and category bounds are soft, each relaxed by a penalized slack,
//     unless the nutrient is listed in HardNutrients
//   - Ratio constraints are linearized as numerator - target·denominator {op} 0
//   - A minimum ingredient count adds one binary indicator per ingredient
//
// Error Handling:
//
// Formulate never returns an error. Each failure maps to a result status:
//   - Invalid input → InvalidInput, solver never called, cheapest ingredient mix
//   - Infeasible → relaxed re-solve, closest achievable mix
//   - Time limit → TimedOut, incumbent mix if any
//   - Unbounded or solver failure → cheapest ingredient mix
//
// Success is reported only for an optimal solve whose mix passes every
// compliance check; any other mix has Fallback set.
package optimizer
