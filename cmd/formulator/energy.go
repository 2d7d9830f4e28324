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

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/llm-d/diet-formulator/api/v1alpha1"
	"github.com/llm-d/diet-formulator/internal/requirements"
)

type energyOptions struct {
	species    string
	condition  string
	weight     float64
	formula    string
	ageMonths  float64
	dietEnergy float64
	output     string
}

// energyReport is the output of the energy command.
type energyReport struct {
	requirements.EnergyRequirement `yaml:",inline"`

	DietEnergy   float64                        `json:"dietEnergyKcalPerKg,omitempty" yaml:"dietEnergyKcalPerKg,omitempty"`
	DailyIntake  float64                        `json:"dailyIntakeGrams,omitempty" yaml:"dailyIntakeGrams,omitempty"`
	Requirements []v1alpha1.NutrientRequirement `json:"requirements,omitempty" yaml:"requirements,omitempty"`
}

func newEnergyCmd() *cobra.Command {
	opts := &energyOptions{}
	cmd := &cobra.Command{
		Use:   "energy",
		Short: "Compute resting and maintenance energy for a dog or cat",
		Long: `Compute the resting energy requirement (RER) and the maintenance energy
requirement (MER) in kcal/day.

With --diet-energy the reference nutrient minimums are scaled to the
diet's energy density and printed as formulation requirements.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEnergy(cmd, opts)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&opts.species, "species", string(requirements.SpeciesDog), "dog or cat")
	fs.StringVar(&opts.condition, "condition", "", "life stage or condition (defaults to adult-intact, or by --age-months for puppies)")
	fs.Float64Var(&opts.weight, "weight", 0, "body weight in kg")
	fs.StringVar(&opts.formula, "formula", string(requirements.FormulaAuto), "RER formula: auto, exponential or linear")
	fs.Float64Var(&opts.ageMonths, "age-months", 0, "puppy age in months, used when --condition is empty")
	fs.Float64Var(&opts.dietEnergy, "diet-energy", 0, "diet energy density in kcal/kg")
	fs.StringVarP(&opts.output, "output", "o", formatTable, "output format: table, json or yaml")
	_ = cmd.MarkFlagRequired("weight")
	return cmd
}

func runEnergy(cmd *cobra.Command, opts *energyOptions) error {
	species := requirements.Species(opts.species)
	condition := requirements.Condition(opts.condition)
	switch {
	case condition != "":
	case species == requirements.SpeciesDog && opts.ageMonths > 0:
		condition = requirements.PuppyCondition(opts.ageMonths)
	case species == requirements.SpeciesCat && opts.ageMonths > 0 && opts.ageMonths < 12:
		condition = requirements.ConditionKitten
	default:
		condition = requirements.ConditionAdultIntact
	}

	energy, err := requirements.Energy(species, condition, opts.weight, requirements.RERFormula(opts.formula))
	if err != nil {
		return err
	}
	report := energyReport{EnergyRequirement: energy}
	if opts.dietEnergy > 0 {
		reqs, err := requirements.ForDiet(species, opts.dietEnergy)
		if err != nil {
			return err
		}
		report.DietEnergy = opts.dietEnergy
		report.DailyIntake = energy.MER / opts.dietEnergy * 1000
		report.Requirements = reqs
	}

	out := cmd.OutOrStdout()
	if done, err := writeStructured(out, opts.output, report); done {
		return err
	}
	fmt.Fprintf(out, "Species:   %s (%s)\n", energy.Species, energy.Condition)
	fmt.Fprintf(out, "Weight:    %.2f kg\n", energy.WeightKg)
	fmt.Fprintf(out, "RER:       %.1f kcal/day (%s)\n", energy.RER, energy.Formula)
	fmt.Fprintf(out, "MER:       %.1f kcal/day (x%.1f)\n", energy.MER, energy.Factor)
	if report.DietEnergy == 0 {
		return nil
	}
	fmt.Fprintf(out, "Intake:    %.1f g/day at %.0f kcal/kg\n\n", report.DailyIntake, report.DietEnergy)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NUTRIENT\tMIN\tUNIT")
	for _, r := range report.Requirements {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, bound(r.Min), r.Unit)
	}
	return tw.Flush()
}
