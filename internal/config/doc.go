// Package config provides configuration management for the diet formulator.
//
// This package handles loading, validation, and access to formulator
// configuration from a YAML file, environment variables, and command-line flags.
//
// Configuration Types:
//
//   - FormulatorConfig: penalty weighting, tolerances, batch size, solver limits
//   - DietProfile: a named set of category ranges applied to a request
//
// Configuration Sources:
//
//  1. Command-line flags (highest priority)
//  2. Environment variables (DIET_ prefix, e.g. DIET_PENALTYWEIGHT)
//  3. YAML configuration file
//  4. Default values (lowest priority)
//
// Example usage:
//
//	config.RegisterFlags(cmd.Flags())
//	...
//	cfg, err := config.Load(configPath, cmd.Flags())
//	if err != nil {
//	    return err
//	}
//	log.Info("formulator configuration",
//	    "penaltyWeight", cfg.PenaltyWeight,
//	    "solveTimeout", cfg.SolveTimeout)
//
// Configuration Validation:
//
// Load always returns a validated configuration. Validate checks numeric
// ranges (e.g. batchSize > 0, defaultMaxInclusion in (0, 1]) and that a
// solver is named; every error wraps ErrInvalidConfig.
//
// Diet Profiles:
//
// Profiles are parsed from YAML entries. A "default" entry holds ranges
// shared by every profile; GetProfile layers the named profile on top.
// BuiltinProfiles ships high-protein, balanced, and high-carbohydrate.
package config
