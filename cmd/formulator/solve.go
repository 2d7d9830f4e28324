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
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/llm-d/diet-formulator/api/v1alpha1"
	"github.com/llm-d/diet-formulator/internal/logging"
	"github.com/llm-d/diet-formulator/internal/optimizer"
	"github.com/llm-d/diet-formulator/internal/scenario"
	"github.com/llm-d/diet-formulator/internal/storage"
)

type solveOptions struct {
	output       string
	profilesPath string
	saveAs       string
	dbPath       string
}

func newSolveCmd(root *rootOptions) *cobra.Command {
	opts := &solveOptions{}
	cmd := &cobra.Command{
		Use:   "solve <problem.yaml>",
		Short: "Formulate the least-cost mix for a problem file",
		Long: `Read a problem file (ingredients, requirements, limits, ratios and
category ranges) and print the least-cost formulation.

A result is always printed. When the requirements cannot all be met the
closest achievable mix is shown together with the unmet constraints.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, root, opts, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", formatTable, "output format: table, json or yaml")
	cmd.Flags().StringVar(&opts.profilesPath, "profiles", "", "YAML file of additional diet profiles")
	cmd.Flags().StringVar(&opts.saveAs, "save", "", "save the result as a named scenario")
	cmd.Flags().StringVar(&opts.dbPath, "db", "scenarios.db", "scenario database path")
	return cmd
}

func runSolve(cmd *cobra.Command, root *rootOptions, opts *solveOptions, path string) error {
	ctx := logr.NewContext(cmd.Context(), root.logger)
	req, res, err := solveProblem(ctx, root, path, opts.profilesPath)
	if err != nil {
		return err
	}
	if err := writeResult(cmd.OutOrStdout(), opts.output, res); err != nil {
		return err
	}
	if opts.saveAs == "" {
		return nil
	}
	return saveScenario(cmd, root, opts.dbPath, opts.saveAs, req, res)
}

// solveProblem reads the problem file at path and formulates it.
func solveProblem(ctx context.Context, root *rootOptions, path, profilesPath string) (
	v1alpha1.FormulationRequest, *v1alpha1.FormulationResult, error) {

	problem, err := readProblem(path)
	if err != nil {
		return v1alpha1.FormulationRequest{}, nil, err
	}
	profiles, err := loadProfiles(profilesPath)
	if err != nil {
		return v1alpha1.FormulationRequest{}, nil, err
	}
	req, err := problem.Request(ctx, profiles)
	if err != nil {
		return req, nil, err
	}
	f, err := optimizer.NewFormulator(root.cfg, optimizer.WithLogger(root.logger))
	if err != nil {
		return req, nil, err
	}
	return req, f.Formulate(ctx, req), nil
}

func saveScenario(cmd *cobra.Command, root *rootOptions, dbPath, name string,
	req v1alpha1.FormulationRequest, res *v1alpha1.FormulationResult) error {

	snap, err := scenario.NewSnapshot(name, req, res, time.Now())
	if err != nil {
		return err
	}
	store, err := storage.NewScenarioStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Save(cmd.Context(), snap); err != nil {
		return err
	}
	root.logger.V(logging.VERBOSE).Info("Saved scenario", "name", snap.Name, "id", snap.ID, "db", dbPath)
	fmt.Fprintf(cmd.ErrOrStderr(), "saved scenario %s (%s)\n", snap.Name, snap.ID)
	return nil
}
