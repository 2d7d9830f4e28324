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
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/llm-d/diet-formulator/api/v1alpha1"
	"github.com/llm-d/diet-formulator/internal/logging"
)

// GlobalDefaultsKey is the entry whose ranges apply to every profile.
const GlobalDefaultsKey = "default"

// Built-in profile names.
const (
	ProfileHighProtein      = "high-protein"
	ProfileBalanced         = "balanced"
	ProfileHighCarbohydrate = "high-carbohydrate"
)

// DietProfile is a named set of category ranges applied to a formulation.
type DietProfile struct {
	// Name identifies the profile (only used in override entries).
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Description is free text shown to operators.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// CategoryRanges maps category to its [min, max] share of the mix.
	CategoryRanges map[v1alpha1.Category]v1alpha1.CategoryRange `yaml:"categoryRanges,omitempty" json:"categoryRanges,omitempty"`
}

// DietProfileData holds parsed profiles keyed by profile name.
type DietProfileData map[string]DietProfile

// Validate checks every category and range of the profile.
func (p *DietProfile) Validate() error {
	for cat, r := range p.CategoryRanges {
		if !cat.IsValid() {
			return fmt.Errorf("unknown category %q", cat)
		}
		if err := r.Validate(); err != nil {
			return fmt.Errorf("category %s: %w", cat, err)
		}
	}
	return nil
}

// ParseDietProfiles parses profile entries, each a YAML document.
// The entry format:
//   - "default": ranges shared by every profile
//   - "<entry-name>": a profile with a name field
//
// Invalid entries are logged and skipped. When two entries declare the same
// profile name, the first key in sorted order wins.
func ParseDietProfiles(data map[string]string) DietProfileData {
	out := make(DietProfileData)
	if data == nil {
		return out
	}
	log := logging.Logger()

	nameToKeys := make(map[string][]string)

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		var profile DietProfile
		if err := yaml.Unmarshal([]byte(data[key]), &profile); err != nil {
			log.Info("Failed to parse diet profile entry, skipping",
				"key", key,
				"error", err)
			continue
		}

		if err := profile.Validate(); err != nil {
			log.Info("Invalid diet profile entry, skipping",
				"key", key,
				"error", err)
			continue
		}

		if key == GlobalDefaultsKey {
			out[GlobalDefaultsKey] = profile
			continue
		}

		if profile.Name == "" {
			log.Info("Skipping diet profile without name field",
				"key", key)
			continue
		}

		if existingKeys, exists := nameToKeys[profile.Name]; exists {
			log.Info("Duplicate diet profile name - first key wins",
				"name", profile.Name,
				"winningKey", existingKeys[0],
				"duplicateKey", key)
			continue
		}
		nameToKeys[profile.Name] = append(nameToKeys[profile.Name], key)

		out[profile.Name] = profile
	}

	log.V(logging.DEBUG).Info("Parsed diet profiles",
		"profileCount", len(out))

	return out
}

// GetProfile returns the effective profile for name: the default ranges with
// the profile's own ranges layered on top. The second return value is false
// when neither the profile nor the defaults exist.
func (data DietProfileData) GetProfile(name string) (DietProfile, bool) {
	defaults, hasDefaults := data[GlobalDefaultsKey]
	profile, hasProfile := data[name]
	if !hasProfile && !hasDefaults {
		return DietProfile{}, false
	}

	result := DietProfile{
		Name:           name,
		Description:    defaults.Description,
		CategoryRanges: make(map[v1alpha1.Category]v1alpha1.CategoryRange),
	}
	for cat, r := range defaults.CategoryRanges {
		result.CategoryRanges[cat] = r
	}
	if !hasProfile {
		return result, true
	}
	if profile.Description != "" {
		result.Description = profile.Description
	}
	for cat, r := range profile.CategoryRanges {
		result.CategoryRanges[cat] = r
	}
	return result, true
}

// Names returns the profile names, excluding the defaults entry, sorted.
func (data DietProfileData) Names() []string {
	names := make([]string, 0, len(data))
	for name := range data {
		if name != GlobalDefaultsKey {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Merge returns a copy of data with the entries of other added; entries
// already present in data win.
func (data DietProfileData) Merge(other DietProfileData) DietProfileData {
	out := make(DietProfileData, len(data)+len(other))
	for k, v := range other {
		out[k] = v
	}
	for k, v := range data {
		out[k] = v
	}
	return out
}

// BuiltinProfiles returns the standard diet profiles.
func BuiltinProfiles() DietProfileData {
	return DietProfileData{
		ProfileHighProtein: {
			Name:        ProfileHighProtein,
			Description: "protein-dense maintenance diet",
			CategoryRanges: map[v1alpha1.Category]v1alpha1.CategoryRange{
				v1alpha1.CategoryProteins:      {Min: 0.30, Max: 0.50},
				v1alpha1.CategoryCarbohydrates: {Min: 0.10, Max: 0.35},
				v1alpha1.CategoryFats:          {Min: 0.10, Max: 0.20},
				v1alpha1.CategoryVegetables:    {Min: 0, Max: 0.20},
				v1alpha1.CategoryFruits:        {Min: 0, Max: 0.15},
				v1alpha1.CategoryOther:         {Min: 0, Max: 0.15},
			},
		},
		ProfileBalanced: {
			Name:        ProfileBalanced,
			Description: "balanced maintenance diet",
			CategoryRanges: map[v1alpha1.Category]v1alpha1.CategoryRange{
				v1alpha1.CategoryProteins:      {Min: 0.20, Max: 0.35},
				v1alpha1.CategoryCarbohydrates: {Min: 0.20, Max: 0.40},
				v1alpha1.CategoryFats:          {Min: 0.10, Max: 0.18},
				v1alpha1.CategoryVegetables:    {Min: 0, Max: 0.20},
				v1alpha1.CategoryFruits:        {Min: 0, Max: 0.15},
				v1alpha1.CategoryOther:         {Min: 0, Max: 0.15},
			},
		},
		ProfileHighCarbohydrate: {
			Name:        ProfileHighCarbohydrate,
			Description: "carbohydrate-based energy diet",
			CategoryRanges: map[v1alpha1.Category]v1alpha1.CategoryRange{
				v1alpha1.CategoryProteins:      {Min: 0.10, Max: 0.25},
				v1alpha1.CategoryCarbohydrates: {Min: 0.35, Max: 0.60},
				v1alpha1.CategoryFats:          {Min: 0.08, Max: 0.15},
				v1alpha1.CategoryVegetables:    {Min: 0, Max: 0.25},
				v1alpha1.CategoryFruits:        {Min: 0, Max: 0.18},
				v1alpha1.CategoryOther:         {Min: 0, Max: 0.15},
			},
		},
	}
}
