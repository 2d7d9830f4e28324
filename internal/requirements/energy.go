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

package requirements

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Species selects the maintenance energy table.
type Species string

const (
	SpeciesDog Species = "dog"
	SpeciesCat Species = "cat"
)

// Condition is the life stage or body condition of the animal.
type Condition string

const (
	ConditionAdultIntact   Condition = "adult-intact"
	ConditionAdultNeutered Condition = "adult-neutered"
	ConditionObeseProne    Condition = "obese-prone"
	ConditionPuppyUnder4M  Condition = "puppy-under-4m"
	ConditionPuppyOver4M   Condition = "puppy-over-4m"
	ConditionKitten        Condition = "kitten"
)

// RERFormula selects how the resting energy requirement is computed.
type RERFormula string

const (
	// FormulaAuto uses the linear formula inside its weight range and the exponential one elsewhere.
	FormulaAuto RERFormula = "auto"
	// FormulaExponential is 70 × kg^0.75.
	FormulaExponential RERFormula = "exponential"
	// FormulaLinear is 30 × kg + 70.
	FormulaLinear RERFormula = "linear"
)

// Weight range, exclusive, in which the linear RER formula is accurate.
const (
	linearMinKg = 2.0
	linearMaxKg = 45.0
)

var (
	ErrInvalidWeight    = errors.New("body weight must be a positive number of kilograms")
	ErrUnknownSpecies   = errors.New("unknown species")
	ErrUnknownCondition = errors.New("unknown condition")
	ErrUnknownFormula   = errors.New("unknown RER formula")
)

// merFactors holds the maintenance multipliers applied to RER.
var merFactors = map[Species]map[Condition]float64{
	SpeciesDog: {
		ConditionAdultIntact:   1.8,
		ConditionAdultNeutered: 1.6,
		ConditionObeseProne:    1.4,
		ConditionPuppyUnder4M:  3.0,
		ConditionPuppyOver4M:   2.0,
	},
	SpeciesCat: {
		ConditionAdultIntact:   1.4,
		ConditionAdultNeutered: 1.2,
		ConditionObeseProne:    1.0,
		ConditionKitten:        2.5,
	},
}

// RER returns the resting energy requirement in kcal/day.
func RER(weightKg float64, formula RERFormula) (float64, error) {
	if math.IsNaN(weightKg) || math.IsInf(weightKg, 0) || weightKg <= 0 {
		return 0, fmt.Errorf("%w: %g", ErrInvalidWeight, weightKg)
	}
	switch formula {
	case FormulaAuto, "":
		if weightKg > linearMinKg && weightKg < linearMaxKg {
			return linearRER(weightKg), nil
		}
		return exponentialRER(weightKg), nil
	case FormulaExponential:
		return exponentialRER(weightKg), nil
	case FormulaLinear:
		return linearRER(weightKg), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormula, formula)
	}
}

func exponentialRER(kg float64) float64 { return 70 * math.Pow(kg, 0.75) }

func linearRER(kg float64) float64 { return 30*kg + 70 }

// MERFactor returns the maintenance multiplier for the species and condition.
func MERFactor(species Species, condition Condition) (float64, error) {
	table, ok := merFactors[species]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSpecies, species)
	}
	f, ok := table[condition]
	if !ok {
		return 0, fmt.Errorf("%w: %q for %s", ErrUnknownCondition, condition, species)
	}
	return f, nil
}

// Conditions lists the conditions known for a species, sorted.
func Conditions(species Species) []Condition {
	out := make([]Condition, 0, len(merFactors[species]))
	for c := range merFactors[species] {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PuppyCondition picks the puppy condition for an age in months.
func PuppyCondition(ageMonths float64) Condition {
	if ageMonths < 4 {
		return ConditionPuppyUnder4M
	}
	return ConditionPuppyOver4M
}

// EnergyRequirement is the daily energy budget of one animal.
type EnergyRequirement struct {
	Species   Species    `json:"species" yaml:"species"`
	Condition Condition  `json:"condition" yaml:"condition"`
	WeightKg  float64    `json:"weightKg" yaml:"weightKg"`
	Formula   RERFormula `json:"formula" yaml:"formula"`
	RER       float64    `json:"rer" yaml:"rer"`
	Factor    float64    `json:"factor" yaml:"factor"`
	MER       float64    `json:"mer" yaml:"mer"`
}

// Energy computes RER and MER (both kcal/day) for an animal.
func Energy(species Species, condition Condition, weightKg float64, formula RERFormula) (EnergyRequirement, error) {
	if formula == "" {
		formula = FormulaAuto
	}
	factor, err := MERFactor(species, condition)
	if err != nil {
		return EnergyRequirement{}, err
	}
	rer, err := RER(weightKg, formula)
	if err != nil {
		return EnergyRequirement{}, err
	}
	return EnergyRequirement{
		Species:   species,
		Condition: condition,
		WeightKg:  weightKg,
		Formula:   formula,
		RER:       rer,
		Factor:    factor,
		MER:       factor * rer,
	}, nil
}
