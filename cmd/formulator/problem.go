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
	"os"

	"gopkg.in/yaml.v3"

	"github.com/llm-d/diet-formulator/api/v1alpha1"
	"github.com/llm-d/diet-formulator/internal/collector"
	"github.com/llm-d/diet-formulator/internal/config"
	"github.com/llm-d/diet-formulator/internal/requirements"
)

// Problem is the file and HTTP representation of a formulation request. The
// ingredient table may be given as decoded ingredients, as a raw table, or both.
type Problem struct {
	v1alpha1.FormulationRequest `yaml:",inline"`

	// Table is a raw ingredient table; its rows are appended to Ingredients.
	Table *collector.Table `json:"table,omitempty" yaml:"table,omitempty"`
	// Schema names the reserved columns of Table.
	Schema collector.TableSchema `json:"schema,omitempty" yaml:"schema,omitempty"`

	// Profile applies the category ranges of a named diet profile. Ranges set
	// in CategoryRanges take precedence.
	Profile string `json:"profile,omitempty" yaml:"profile,omitempty"`

	// ConvertUnits converts requirement bounds to percent before solving.
	ConvertUnits bool `json:"convertUnits,omitempty" yaml:"convertUnits,omitempty"`
}

// readProblem decodes a YAML (or JSON) problem file.
func readProblem(path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read problem file: %w", err)
	}
	var p Problem
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse problem file %s: %w", path, err)
	}
	return &p, nil
}

// Request resolves the problem into a formulation request.
func (p *Problem) Request(ctx context.Context, profiles config.DietProfileData) (v1alpha1.FormulationRequest, error) {
	req := p.FormulationRequest

	ingredients, err := collector.NewStaticSource("inline", req.Ingredients).Collect(ctx)
	if err != nil {
		return req, err
	}
	if p.Table != nil {
		rows, err := collector.NewTableSource("table", *p.Table, p.Schema).Collect(ctx)
		if err != nil {
			return req, err
		}
		ingredients = append(ingredients, rows...)
	}
	req.Ingredients = ingredients

	if p.ConvertUnits {
		req.Requirements = requirements.AllToPercent(req.Requirements)
	}

	if p.Profile != "" {
		profile, ok := profiles.GetProfile(p.Profile)
		if !ok {
			return req, fmt.Errorf("unknown diet profile %q (known: %v)", p.Profile, profiles.Names())
		}
		ranges := make(map[v1alpha1.Category]v1alpha1.CategoryRange, len(profile.CategoryRanges)+len(req.CategoryRanges))
		for c, r := range profile.CategoryRanges {
			ranges[c] = r
		}
		for c, r := range req.CategoryRanges {
			ranges[c] = r
		}
		req.CategoryRanges = ranges
	}
	return req, nil
}

// loadProfiles returns the built-in profiles, overridden by entries from an
// optional YAML file mapping entry keys to profile documents.
func loadProfiles(path string) (config.DietProfileData, error) {
	builtin := config.BuiltinProfiles()
	if path == "" {
		return builtin, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}
	var entries map[string]string
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse profiles file %s: %w", path, err)
	}
	return config.ParseDietProfiles(entries).Merge(builtin), nil
}
