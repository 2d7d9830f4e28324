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

package scenario

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/llm-d/diet-formulator/api/v1alpha1"
)

var (
	ErrEmptyName       = errors.New("scenario name must not be empty")
	ErrNoResult        = errors.New("scenario requires a formulation result")
	ErrUnknownCostUnit = errors.New("unknown cost unit")
)

// Snapshot is a saved formulation. It keeps the full ingredient table so
// derived metrics can be recomputed without the original model.
type Snapshot struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`

	// Ingredients is the ingredient table the formulation was solved over.
	Ingredients []v1alpha1.Ingredient `json:"ingredients" yaml:"ingredients"`

	// Diet maps ingredient name to inclusion percent.
	Diet map[string]float64 `json:"diet" yaml:"diet"`

	TotalCost float64 `json:"totalCost" yaml:"totalCost"`
	BatchSize float64 `json:"batchSize" yaml:"batchSize"`

	// Nutrients lists the requested nutrients in request order.
	Nutrients []string `json:"nutrients,omitempty" yaml:"nutrients,omitempty"`
	// Units maps a requested nutrient to its display unit.
	Units map[string]string `json:"units,omitempty" yaml:"units,omitempty"`

	Status  v1alpha1.FormulationStatus `json:"status" yaml:"status"`
	Success bool                       `json:"success" yaml:"success"`
}

// NewSnapshot captures a formulation result under a fresh ID.
func NewSnapshot(name string, req v1alpha1.FormulationRequest, res *v1alpha1.FormulationResult, now time.Time) (Snapshot, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Snapshot{}, ErrEmptyName
	}
	if res == nil {
		return Snapshot{}, ErrNoResult
	}

	s := Snapshot{
		ID:          uuid.NewString(),
		Name:        name,
		CreatedAt:   now.UTC(),
		Ingredients: append([]v1alpha1.Ingredient(nil), req.Ingredients...),
		Diet:        make(map[string]float64, len(res.Diet)),
		TotalCost:   res.TotalCost,
		BatchSize:   res.BatchSize,
		Units:       make(map[string]string),
		Status:      res.Status,
		Success:     res.Success,
	}
	for k, v := range res.Diet {
		s.Diet[k] = v
	}
	for _, r := range req.Requirements {
		s.Nutrients = append(s.Nutrients, r.Name)
		if r.Unit != "" {
			s.Units[r.Name] = r.Unit
		}
	}
	return s, nil
}

// Included returns the ingredients with a positive inclusion, in table order.
func (s Snapshot) Included() []v1alpha1.Ingredient {
	var out []v1alpha1.Ingredient
	for _, ing := range s.Ingredients {
		if s.Diet[ing.Name] > 0 {
			out = append(out, ing)
		}
	}
	return out
}

// NutrientValue recomputes the achieved amount of a nutrient from the diet.
func (s Snapshot) NutrientValue(nutrient string) float64 {
	var sum float64
	for _, ing := range s.Included() {
		sum += ing.Nutrient(nutrient) * s.Diet[ing.Name] / 100
	}
	return sum
}

// CostUnit is the unit cost shares are reported in.
type CostUnit string

const (
	CostPerKg  CostUnit = "USD/kg"
	CostPerTon CostUnit = "USD/ton"
)

// Factor converts a cost per 100 mass units of mix into the unit.
func (u CostUnit) Factor() (float64, error) {
	switch u {
	case CostPerKg:
		return 1, nil
	case CostPerTon:
		return 10, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCostUnit, u)
	}
}

// CostShare is one ingredient's part of the batch cost.
type CostShare struct {
	Ingredient string  `json:"ingredient" yaml:"ingredient"`
	Percent    float64 `json:"percent" yaml:"percent"`
	Price      float64 `json:"price" yaml:"price"`
	Cost       float64 `json:"cost" yaml:"cost"`

	// DietShare is the ingredient's share of the included mass, in percent.
	DietShare float64 `json:"dietShare" yaml:"dietShare"`
}

// CostShares breaks the cost down per included ingredient and returns the total.
func (s Snapshot) CostShares(unit CostUnit) ([]CostShare, float64, error) {
	factor, err := unit.Factor()
	if err != nil {
		return nil, 0, err
	}
	included := s.Included()
	var totalPercent float64
	for _, ing := range included {
		totalPercent += s.Diet[ing.Name]
	}

	out := make([]CostShare, 0, len(included))
	var total float64
	for _, ing := range included {
		pct := s.Diet[ing.Name]
		c := CostShare{
			Ingredient: ing.Name,
			Percent:    pct,
			Price:      ing.Price,
			Cost:       ing.Price * pct / 100 * factor,
		}
		if totalPercent > 0 {
			c.DietShare = pct * 100 / totalPercent
		}
		total += c.Cost
		out = append(out, c)
	}
	return out, total, nil
}

// Contribution is one ingredient's part of a nutrient.
type Contribution struct {
	Ingredient string  `json:"ingredient" yaml:"ingredient"`
	Amount     float64 `json:"amount" yaml:"amount"`

	// Share is the percent of the nutrient total; zero when the total is not positive.
	Share float64 `json:"share" yaml:"share"`
}

// NutrientContributions splits a nutrient's achieved amount per ingredient.
func (s Snapshot) NutrientContributions(nutrient string) []Contribution {
	included := s.Included()
	out := make([]Contribution, 0, len(included))
	var total float64
	for _, ing := range included {
		amount := ing.Nutrient(nutrient) * s.Diet[ing.Name] / 100
		total += amount
		out = append(out, Contribution{Ingredient: ing.Name, Amount: amount})
	}
	if total > 0 {
		for i := range out {
			out[i].Share = 100 * out[i].Amount / total
		}
	}
	return out
}

// names returns the sorted keys of a set.
func names(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
