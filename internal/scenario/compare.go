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

// Row is one compared quantity, with one value per scenario.
type Row struct {
	Label  string    `json:"label" yaml:"label"`
	Values []float64 `json:"values" yaml:"values"`
}

// Comparison lines up several scenarios side by side.
type Comparison struct {
	Scenarios []string `json:"scenarios" yaml:"scenarios"`

	// Cost holds the batch cost converted to the requested unit.
	Cost        Row   `json:"cost" yaml:"cost"`
	Composition []Row `json:"composition" yaml:"composition"`
	Nutrients   []Row `json:"nutrients" yaml:"nutrients"`
	// ShadowPrices holds the shadow price per nutrient; scenarios without one report 0.
	ShadowPrices []Row `json:"shadowPrices" yaml:"shadowPrices"`
}

// Compare builds a comparison of the snapshots in the given order. Rows
// cover the union of ingredients and requested nutrients, sorted by name.
func Compare(unit CostUnit, snaps ...Snapshot) (Comparison, error) {
	factor, err := unit.Factor()
	if err != nil {
		return Comparison{}, err
	}

	c := Comparison{Cost: Row{Label: "Total cost (" + string(unit) + ")"}}
	ingredients := map[string]bool{}
	nutrients := map[string]bool{}
	for _, s := range snaps {
		c.Scenarios = append(c.Scenarios, s.Name)
		batch := s.BatchSize
		if batch <= 0 {
			batch = 100
		}
		// total cost is per batch; normalize to 100 mass units before applying the unit factor
		c.Cost.Values = append(c.Cost.Values, s.TotalCost*100/batch*factor)
		for name, pct := range s.Diet {
			if pct > 0 {
				ingredients[name] = true
			}
		}
		for _, n := range s.Nutrients {
			nutrients[n] = true
		}
	}

	for _, name := range names(ingredients) {
		row := Row{Label: name}
		for _, s := range snaps {
			row.Values = append(row.Values, s.Diet[name])
		}
		c.Composition = append(c.Composition, row)
	}
	for _, n := range names(nutrients) {
		value := Row{Label: n}
		shadow := Row{Label: n}
		for _, s := range snaps {
			value.Values = append(value.Values, s.NutrientValue(n))
			var p float64
			if sp := s.ShadowPrice(n); sp.Price != nil {
				p = *sp.Price
			}
			shadow.Values = append(shadow.Values, p)
		}
		c.Nutrients = append(c.Nutrients, value)
		c.ShadowPrices = append(c.ShadowPrices, shadow)
	}
	return c, nil
}
