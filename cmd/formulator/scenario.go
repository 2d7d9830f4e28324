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

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/llm-d/diet-formulator/internal/scenario"
	"github.com/llm-d/diet-formulator/internal/storage"
)

type scenarioOptions struct {
	dbPath string
	output string
	unit   string
}

func newScenarioCmd(root *rootOptions) *cobra.Command {
	opts := &scenarioOptions{}
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Manage saved formulation scenarios",
	}
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "scenarios.db", "scenario database path")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", formatTable, "output format: table, json or yaml")

	var profilesPath string
	save := &cobra.Command{
		Use:   "save <name> <problem.yaml>",
		Short: "Formulate a problem file and save the result as a scenario",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := logr.NewContext(cmd.Context(), root.logger)
			req, res, err := solveProblem(ctx, root, args[1], profilesPath)
			if err != nil {
				return err
			}
			return saveScenario(cmd, root, opts.dbPath, args[0], req, res)
		},
	}
	save.Flags().StringVar(&profilesPath, "profiles", "", "YAML file of additional diet profiles")

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved scenarios, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := storage.NewScenarioStore(opts.dbPath)
			if err != nil {
				return err
			}
			defer store.Close()
			rows, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			return writeSummaries(cmd.OutOrStdout(), opts.output, rows)
		},
	}

	show := &cobra.Command{
		Use:   "show <id|name>",
		Short: "Show a scenario with its cost breakdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioShow(cmd, opts, args[0])
		},
	}
	show.Flags().StringVar(&opts.unit, "unit", string(scenario.CostPerKg), "cost unit: USD/kg or USD/ton")

	compare := &cobra.Command{
		Use:   "compare <id|name> <id|name>...",
		Short: "Compare cost, composition, and nutrients across scenarios",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.NewScenarioStore(opts.dbPath)
			if err != nil {
				return err
			}
			defer store.Close()
			snaps := make([]scenario.Snapshot, 0, len(args))
			for _, ref := range args {
				snap, err := store.Get(cmd.Context(), ref)
				if err != nil {
					return fmt.Errorf("scenario %q: %w", ref, err)
				}
				snaps = append(snaps, snap)
			}
			cmp, err := scenario.Compare(scenario.CostUnit(opts.unit), snaps...)
			if err != nil {
				return err
			}
			return writeComparison(cmd.OutOrStdout(), opts.output, cmp)
		},
	}
	compare.Flags().StringVar(&opts.unit, "unit", string(scenario.CostPerKg), "cost unit: USD/kg or USD/ton")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.NewScenarioStore(opts.dbPath)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			root.logger.Info("Deleted scenario", "id", args[0])
			return nil
		},
	}

	cmd.AddCommand(save, list, show, compare, del)
	return cmd
}

// scenarioDetail is the structured form of scenario show.
type scenarioDetail struct {
	scenario.Snapshot `yaml:",inline"`

	Unit         scenario.CostUnit      `json:"costUnit" yaml:"costUnit"`
	CostShares   []scenario.CostShare   `json:"costShares" yaml:"costShares"`
	UnitCost     float64                `json:"unitCost" yaml:"unitCost"`
	ShadowPrices []scenario.ShadowPrice `json:"shadowPrices,omitempty" yaml:"shadowPrices,omitempty"`
}

func runScenarioShow(cmd *cobra.Command, opts *scenarioOptions, ref string) error {
	store, err := storage.NewScenarioStore(opts.dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	snap, err := store.Get(cmd.Context(), ref)
	if err != nil {
		return fmt.Errorf("scenario %q: %w", ref, err)
	}
	unit := scenario.CostUnit(opts.unit)
	shares, total, err := snap.CostShares(unit)
	if err != nil {
		return err
	}
	detail := scenarioDetail{Snapshot: snap, Unit: unit, CostShares: shares, UnitCost: total}
	for _, n := range snap.Nutrients {
		detail.ShadowPrices = append(detail.ShadowPrices, snap.ShadowPrice(n))
	}

	out := cmd.OutOrStdout()
	if done, err := writeStructured(out, opts.output, detail); done {
		return err
	}
	fmt.Fprintf(out, "Scenario: %s (%s)\n", snap.Name, snap.ID)
	fmt.Fprintf(out, "Created:  %s\n", snap.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Status:   %s (success=%t)\n", snap.Status, snap.Success)
	fmt.Fprintf(out, "Cost:     %.4f %s\n\n", total, unit)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INGREDIENT\tPERCENT\tPRICE\tCOST\tSHARE")
	for _, s := range shares {
		fmt.Fprintf(tw, "%s\t%.2f\t%.4f\t%.4f\t%.2f%%\n", s.Ingredient, s.Percent, s.Price, s.Cost, s.DietShare)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "NUTRIENT\tSHADOW PRICE\tCHEAPEST SOURCE")
	for _, sp := range detail.ShadowPrices {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", sp.Nutrient, bound(sp.Price), sp.Ingredient)
	}
	return tw.Flush()
}
