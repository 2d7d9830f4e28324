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

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load (e.g. DIET_PENALTYWEIGHT).
const EnvPrefix = "DIET"

// Configuration keys, shared by the YAML file, the environment, and the flags.
const (
	KeyPenaltyWeight          = "penaltyWeight"
	KeyAutoScalePenalty       = "autoScalePenalty"
	KeyPenaltyHeadroom        = "penaltyHeadroom"
	KeyBatchSize              = "batchSize"
	KeyDefaultMaxInclusion    = "defaultMaxInclusion"
	KeyNormalizationTolerance = "normalizationTolerance"
	KeyComplianceTolerance    = "complianceTolerance"
	KeyRatioTolerance         = "ratioTolerance"
	KeyStrictRatioMargin      = "strictRatioMargin"
	KeyBigM                   = "bigM"
	KeyMinInclusionEpsilon    = "minInclusionEpsilon"
	KeySolveTimeout           = "solveTimeout"
	KeyMaxBranchNodes         = "maxBranchNodes"
	KeySolver                 = "solver"
)

// flagNames maps configuration keys to their command line flag names.
var flagNames = map[string]string{
	KeyPenaltyWeight:          "penalty-weight",
	KeyAutoScalePenalty:       "auto-scale-penalty",
	KeyPenaltyHeadroom:        "penalty-headroom",
	KeyBatchSize:              "batch-size",
	KeyDefaultMaxInclusion:    "default-max-inclusion",
	KeyNormalizationTolerance: "normalization-tolerance",
	KeyComplianceTolerance:    "compliance-tolerance",
	KeyRatioTolerance:         "ratio-tolerance",
	KeyStrictRatioMargin:      "strict-ratio-margin",
	KeyBigM:                   "big-m",
	KeyMinInclusionEpsilon:    "min-inclusion-epsilon",
	KeySolveTimeout:           "solve-timeout",
	KeyMaxBranchNodes:         "max-branch-nodes",
	KeySolver:                 "solver",
}

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid formulator configuration")

// FormulatorConfig holds the numeric policy of the formulation engine.
// It is immutable once handed to a Formulator.
type FormulatorConfig struct {
	// PenaltyWeight multiplies every slack variable in the objective.
	PenaltyWeight float64 `yaml:"penaltyWeight" json:"penaltyWeight" mapstructure:"penaltyWeight"`

	// AutoScalePenalty raises PenaltyWeight when it is too small relative to ingredient prices.
	AutoScalePenalty bool `yaml:"autoScalePenalty" json:"autoScalePenalty" mapstructure:"autoScalePenalty"`

	// PenaltyHeadroom is the factor applied to the cost sensitivity when auto-scaling.
	PenaltyHeadroom float64 `yaml:"penaltyHeadroom" json:"penaltyHeadroom" mapstructure:"penaltyHeadroom"`

	// BatchSize is the number of mass units the reported total cost refers to.
	BatchSize float64 `yaml:"batchSize" json:"batchSize" mapstructure:"batchSize"`

	// DefaultMaxInclusion is the ceiling for ingredients without an explicit max.
	DefaultMaxInclusion float64 `yaml:"defaultMaxInclusion" json:"defaultMaxInclusion" mapstructure:"defaultMaxInclusion"`

	// NormalizationTolerance is the mass-balance drift tolerated before rescaling.
	NormalizationTolerance float64 `yaml:"normalizationTolerance" json:"normalizationTolerance" mapstructure:"normalizationTolerance"`

	// ComplianceTolerance applies to nutrient, category, and inclusion checks.
	ComplianceTolerance float64 `yaml:"complianceTolerance" json:"complianceTolerance" mapstructure:"complianceTolerance"`

	// RatioTolerance applies to non-strict ratio checks.
	RatioTolerance float64 `yaml:"ratioTolerance" json:"ratioTolerance" mapstructure:"ratioTolerance"`

	// StrictRatioMargin turns strict ratio comparators into solvable inequalities.
	StrictRatioMargin float64 `yaml:"strictRatioMargin" json:"strictRatioMargin" mapstructure:"strictRatioMargin"`

	// BigM links inclusion fractions to their indicator variables.
	BigM float64 `yaml:"bigM" json:"bigM" mapstructure:"bigM"`

	// MinInclusionEpsilon is the smallest fraction that counts as "included".
	MinInclusionEpsilon float64 `yaml:"minInclusionEpsilon" json:"minInclusionEpsilon" mapstructure:"minInclusionEpsilon"`

	// SolveTimeout caps one solve. Zero disables the limit.
	SolveTimeout time.Duration `yaml:"solveTimeout" json:"solveTimeout" mapstructure:"solveTimeout"`

	// MaxBranchNodes caps the branch-and-bound search.
	MaxBranchNodes int `yaml:"maxBranchNodes" json:"maxBranchNodes" mapstructure:"maxBranchNodes"`

	// Solver selects the solver implementation.
	Solver string `yaml:"solver" json:"solver" mapstructure:"solver"`
}

// Default returns the built-in configuration.
func Default() FormulatorConfig {
	return FormulatorConfig{
		PenaltyWeight:          1000,
		AutoScalePenalty:       true,
		PenaltyHeadroom:        10,
		BatchSize:              100,
		DefaultMaxInclusion:    1,
		NormalizationTolerance: 1e-5,
		ComplianceTolerance:    1e-4,
		RatioTolerance:         1e-4,
		StrictRatioMargin:      1e-6,
		BigM:                   1,
		MinInclusionEpsilon:    0.001,
		SolveTimeout:           30 * time.Second,
		MaxBranchNodes:         5000,
		Solver:                 "simplex",
	}
}

// Validate checks for invalid configuration values.
func (c FormulatorConfig) Validate() error {
	switch {
	case c.PenaltyWeight <= 0:
		return fmt.Errorf("%w: penaltyWeight must be > 0, got %g", ErrInvalidConfig, c.PenaltyWeight)
	case c.PenaltyHeadroom < 1:
		return fmt.Errorf("%w: penaltyHeadroom must be >= 1, got %g", ErrInvalidConfig, c.PenaltyHeadroom)
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batchSize must be > 0, got %g", ErrInvalidConfig, c.BatchSize)
	case c.DefaultMaxInclusion <= 0 || c.DefaultMaxInclusion > 1:
		return fmt.Errorf("%w: defaultMaxInclusion must be in (0, 1], got %g", ErrInvalidConfig, c.DefaultMaxInclusion)
	case c.NormalizationTolerance <= 0:
		return fmt.Errorf("%w: normalizationTolerance must be > 0, got %g", ErrInvalidConfig, c.NormalizationTolerance)
	case c.ComplianceTolerance <= 0:
		return fmt.Errorf("%w: complianceTolerance must be > 0, got %g", ErrInvalidConfig, c.ComplianceTolerance)
	case c.RatioTolerance <= 0:
		return fmt.Errorf("%w: ratioTolerance must be > 0, got %g", ErrInvalidConfig, c.RatioTolerance)
	case c.StrictRatioMargin < 0:
		return fmt.Errorf("%w: strictRatioMargin must be >= 0, got %g", ErrInvalidConfig, c.StrictRatioMargin)
	case c.BigM <= 0:
		return fmt.Errorf("%w: bigM must be > 0, got %g", ErrInvalidConfig, c.BigM)
	case c.MinInclusionEpsilon <= 0 || c.MinInclusionEpsilon > c.BigM:
		return fmt.Errorf("%w: minInclusionEpsilon must be in (0, bigM], got %g", ErrInvalidConfig, c.MinInclusionEpsilon)
	case c.SolveTimeout < 0:
		return fmt.Errorf("%w: solveTimeout must be >= 0, got %s", ErrInvalidConfig, c.SolveTimeout)
	case c.MaxBranchNodes < 0:
		return fmt.Errorf("%w: maxBranchNodes must be >= 0, got %d", ErrInvalidConfig, c.MaxBranchNodes)
	case strings.TrimSpace(c.Solver) == "":
		return fmt.Errorf("%w: solver must not be empty", ErrInvalidConfig)
	}
	return nil
}

// RegisterFlags defines one flag per configuration key on fs, defaulting to Default().
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.Float64(flagNames[KeyPenaltyWeight], d.PenaltyWeight, "weight applied to every constraint slack in the objective")
	fs.Bool(flagNames[KeyAutoScalePenalty], d.AutoScalePenalty, "raise the penalty weight when ingredient prices dominate it")
	fs.Float64(flagNames[KeyPenaltyHeadroom], d.PenaltyHeadroom, "factor applied to the cost sensitivity when auto-scaling the penalty")
	fs.Float64(flagNames[KeyBatchSize], d.BatchSize, "batch size in mass units used for the reported cost")
	fs.Float64(flagNames[KeyDefaultMaxInclusion], d.DefaultMaxInclusion, "inclusion ceiling for ingredients without an explicit max")
	fs.Float64(flagNames[KeyNormalizationTolerance], d.NormalizationTolerance, "mass balance drift tolerated before rescaling")
	fs.Float64(flagNames[KeyComplianceTolerance], d.ComplianceTolerance, "tolerance for nutrient and category compliance checks")
	fs.Float64(flagNames[KeyRatioTolerance], d.RatioTolerance, "tolerance for ratio compliance checks")
	fs.Float64(flagNames[KeyStrictRatioMargin], d.StrictRatioMargin, "margin enforcing strict ratio comparators")
	fs.Float64(flagNames[KeyBigM], d.BigM, "big-M coefficient for ingredient indicators")
	fs.Float64(flagNames[KeyMinInclusionEpsilon], d.MinInclusionEpsilon, "smallest fraction counted as an included ingredient")
	fs.Duration(flagNames[KeySolveTimeout], d.SolveTimeout, "time limit for one solve (0 disables)")
	fs.Int(flagNames[KeyMaxBranchNodes], d.MaxBranchNodes, "node limit for the branch-and-bound search")
	fs.String(flagNames[KeySolver], d.Solver, "solver implementation")
}

// Load resolves the configuration from, in increasing precedence: Default(),
// the YAML file at path (optional), DIET_* environment variables, and flags
// in fs that were explicitly set.
func Load(path string, fs *pflag.FlagSet) (FormulatorConfig, error) {
	v := viper.New()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return FormulatorConfig{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if fs != nil {
		for key, name := range flagNames {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return FormulatorConfig{}, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := FormulatorConfig{
		PenaltyWeight:          v.GetFloat64(KeyPenaltyWeight),
		AutoScalePenalty:       v.GetBool(KeyAutoScalePenalty),
		PenaltyHeadroom:        v.GetFloat64(KeyPenaltyHeadroom),
		BatchSize:              v.GetFloat64(KeyBatchSize),
		DefaultMaxInclusion:    v.GetFloat64(KeyDefaultMaxInclusion),
		NormalizationTolerance: v.GetFloat64(KeyNormalizationTolerance),
		ComplianceTolerance:    v.GetFloat64(KeyComplianceTolerance),
		RatioTolerance:         v.GetFloat64(KeyRatioTolerance),
		StrictRatioMargin:      v.GetFloat64(KeyStrictRatioMargin),
		BigM:                   v.GetFloat64(KeyBigM),
		MinInclusionEpsilon:    v.GetFloat64(KeyMinInclusionEpsilon),
		SolveTimeout:           v.GetDuration(KeySolveTimeout),
		MaxBranchNodes:         v.GetInt(KeyMaxBranchNodes),
		Solver:                 v.GetString(KeySolver),
	}
	if err := cfg.Validate(); err != nil {
		return FormulatorConfig{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d FormulatorConfig) {
	v.SetDefault(KeyPenaltyWeight, d.PenaltyWeight)
	v.SetDefault(KeyAutoScalePenalty, d.AutoScalePenalty)
	v.SetDefault(KeyPenaltyHeadroom, d.PenaltyHeadroom)
	v.SetDefault(KeyBatchSize, d.BatchSize)
	v.SetDefault(KeyDefaultMaxInclusion, d.DefaultMaxInclusion)
	v.SetDefault(KeyNormalizationTolerance, d.NormalizationTolerance)
	v.SetDefault(KeyComplianceTolerance, d.ComplianceTolerance)
	v.SetDefault(KeyRatioTolerance, d.RatioTolerance)
	v.SetDefault(KeyStrictRatioMargin, d.StrictRatioMargin)
	v.SetDefault(KeyBigM, d.BigM)
	v.SetDefault(KeyMinInclusionEpsilon, d.MinInclusionEpsilon)
	v.SetDefault(KeySolveTimeout, d.SolveTimeout)
	v.SetDefault(KeyMaxBranchNodes, d.MaxBranchNodes)
	v.SetDefault(KeySolver, d.Solver)
}
