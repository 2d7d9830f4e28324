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

package limiter

import (
	"context"
	"errors"
	"fmt"

	"github.com/llm-d/diet-formulator/api/v1alpha1"
)

// Limiter resolves the effective inclusion bounds of every ingredient of a request
// and rejects requests whose bounds cannot add up to a complete mix.
type Limiter interface {
	// Resolve returns one bound per ingredient, in request order.
	// It returns an error wrapping one of the package sentinels when the
	// bounds are contradictory; the solver must not be invoked in that case.
	Resolve(ctx context.Context, req *v1alpha1.FormulationRequest) (*InclusionPlan, error)
}

// LimiterStrategy is an enumeration of the different strategies that can be used by the Limiter
type LimiterStrategy int

// enumeration of LimiterStrategy
const (
	// BoundsStrategy combines limits, forced minimums, and fixed inclusions into hard bounds.
	BoundsStrategy LimiterStrategy = iota
)

const (
	// DefaultMaxInclusion is the ceiling for ingredients without an explicit max.
	DefaultMaxInclusion = 1.0
	// DefaultTolerance absorbs rounding when summing bounds.
	DefaultTolerance = 1e-9
)

// LimiterConfig holds configuration shared by all limiters.
type LimiterConfig struct {
	// DefaultMaxInclusion applies when an ingredient has no explicit max.
	DefaultMaxInclusion float64
	// Tolerance absorbs rounding when comparing sums against 100%.
	Tolerance float64
}

// Sentinel errors returned (wrapped) by Resolve.
var (
	ErrNoIngredients        = errors.New("no ingredients supplied")
	ErrInvalidIngredient    = errors.New("invalid ingredient")
	ErrUnknownIngredient    = errors.New("unknown ingredient")
	ErrInvalidLimit         = errors.New("invalid inclusion limit")
	ErrForcedMinimumsExceed = errors.New("forced minimum inclusions exceed 100%")
	ErrMinimumsExceed       = errors.New("minimum inclusions exceed 100%")
	ErrMaximumsBelowTotal   = errors.New("maximum inclusions cannot reach 100%")
)

// NewLimiter is a factory that creates a new Limiter based on the provided strategy
func NewLimiter(strategy LimiterStrategy, config *LimiterConfig) (Limiter, error) {
	switch strategy {
	case BoundsStrategy:
		return NewBoundsLimiter(config)
	default:
		return nil, fmt.Errorf("unsupported limiter strategy: %v", strategy)
	}
}
