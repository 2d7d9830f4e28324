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
	"math"

	"k8s.io/utils/ptr"
)

// ShadowStatus tells whether an ingredient can price a nutrient.
type ShadowStatus string

const (
	ShadowPriced ShadowStatus = "Priced"
	// ShadowNoContribution marks ingredients without positive content; no unit price exists.
	ShadowNoContribution ShadowStatus = "NoContribution"
)

// ShadowPriceRow is the cost of one nutrient unit bought through one ingredient.
type ShadowPriceRow struct {
	Ingredient string       `json:"ingredient" yaml:"ingredient"`
	Content    float64      `json:"content" yaml:"content"`
	Price      float64      `json:"price" yaml:"price"`
	UnitPrice  *float64     `json:"unitPrice,omitempty" yaml:"unitPrice,omitempty"`
	Status     ShadowStatus `json:"status" yaml:"status"`
	Cheapest   bool         `json:"cheapest" yaml:"cheapest"`
}

// ShadowPrice is the lowest cost per unit of a nutrient among the included
// ingredients.
type ShadowPrice struct {
	Nutrient string           `json:"nutrient" yaml:"nutrient"`
	Rows     []ShadowPriceRow `json:"rows" yaml:"rows"`

	// Price and Ingredient are unset when no included ingredient supplies the nutrient.
	Price      *float64 `json:"price,omitempty" yaml:"price,omitempty"`
	Ingredient string   `json:"ingredient,omitempty" yaml:"ingredient,omitempty"`
}

// ShadowPrice computes price / content for every included ingredient and
// marks the cheapest. Ties go to the earlier ingredient.
func (s Snapshot) ShadowPrice(nutrient string) ShadowPrice {
	out := ShadowPrice{Nutrient: nutrient}
	best := -1
	for _, ing := range s.Included() {
		row := ShadowPriceRow{
			Ingredient: ing.Name,
			Content:    ing.Nutrient(nutrient),
			Price:      ing.Price,
			Status:     ShadowNoContribution,
		}
		if row.Content > 0 && !math.IsNaN(ing.Price) && !math.IsInf(ing.Price, 0) {
			row.UnitPrice = ptr.To(ing.Price / row.Content)
			row.Status = ShadowPriced
			if best < 0 || *row.UnitPrice < *out.Rows[best].UnitPrice {
				best = len(out.Rows)
			}
		}
		out.Rows = append(out.Rows, row)
	}
	if best >= 0 {
		out.Rows[best].Cheapest = true
		out.Price = ptr.To(*out.Rows[best].UnitPrice)
		out.Ingredient = out.Rows[best].Ingredient
	}
	return out
}
