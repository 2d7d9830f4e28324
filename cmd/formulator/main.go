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

// Command formulator computes least-cost diet formulations.
package main

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/llm-d/diet-formulator/internal/config"
	"github.com/llm-d/diet-formulator/internal/logging"
)

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	configPath  string
	verbosity   int
	development bool

	cfg    config.FormulatorConfig
	logger logr.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "formulator",
		Short: "Least-cost diet formulation",
		Long: `Formulate least-cost ingredient mixes subject to nutrient bounds,
inclusion limits, category ranges, and nutrient ratios.

Configuration is read, in increasing precedence, from built-in defaults,
the --config YAML file, DIET_* environment variables, and flags.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.NewLogger(logging.Options{
				Verbosity:   opts.verbosity,
				Development: opts.development,
			})
			if err != nil {
				return err
			}
			logging.SetLogger(logger)
			opts.logger = logger

			cfg, err := config.Load(opts.configPath, cmd.Flags())
			if err != nil {
				return err
			}
			opts.cfg = cfg
			logger.V(logging.VERBOSE).Info("Loaded configuration",
				"solver", cfg.Solver,
				"penaltyWeight", cfg.PenaltyWeight,
				"solveTimeout", cfg.SolveTimeout)
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "path to a YAML configuration file")
	pf.IntVarP(&opts.verbosity, "verbosity", "v", 0, "log verbosity (3 verbose, 4 debug, 5 trace)")
	pf.BoolVar(&opts.development, "log-development", false, "use the human-readable development logger")
	config.RegisterFlags(pf)

	cmd.AddCommand(
		newSolveCmd(opts),
		newEnergyCmd(),
		newScenarioCmd(opts),
		newServeCmd(opts),
		newProfilesCmd(),
	)
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
