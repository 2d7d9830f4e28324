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

package collector

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/llm-d/diet-formulator/api/v1alpha1"
	"github.com/llm-d/diet-formulator/internal/logging"
)

// ErrMissingColumn is returned when a required column is absent from the table.
var ErrMissingColumn = errors.New("required column missing")

// IngredientSource is the interface for pluggable ingredient inputs.
// Implementations turn an external table into cleaned ingredients.
type IngredientSource interface {
	// Name returns a short identifier of the source for logs.
	Name() string

	// Collect returns the cleaned ingredients. Cell-level problems never fail
	// the collection; they coerce to zero.
	Collect(ctx context.Context) ([]v1alpha1.Ingredient, error)
}

// TableSource reads ingredients from an in-memory Table.
type TableSource struct {
	name   string
	table  Table
	schema TableSchema
}

// NewTableSource creates a source over table. Empty schema fields use DefaultSchema.
func NewTableSource(name string, table Table, schema TableSchema) *TableSource {
	return &TableSource{
		name:   name,
		table:  table,
		schema: schema.withDefaults(),
	}
}

// Name implements IngredientSource.
func (s *TableSource) Name() string {
	return s.name
}

// NutrientColumns returns the nutrient columns of the table, in table order.
func (s *TableSource) NutrientColumns() []string {
	return NutrientColumns(s.table, s.schema)
}

// Collect implements IngredientSource.
func (s *TableSource) Collect(ctx context.Context) ([]v1alpha1.Ingredient, error) {
	log := logr.FromContextOrDiscard(ctx)
	if log.GetSink() == nil {
		log = logging.Logger()
	}

	nameIdx := columnIndex(s.table.Columns, s.schema.NameColumn)
	if nameIdx < 0 {
		return nil, fmt.Errorf("%w: name column %q", ErrMissingColumn, s.schema.NameColumn)
	}
	priceIdx := columnIndex(s.table.Columns, s.schema.PriceColumn)
	if priceIdx < 0 {
		return nil, fmt.Errorf("%w: price column %q", ErrMissingColumn, s.schema.PriceColumn)
	}
	categoryIdx := columnIndex(s.table.Columns, s.schema.CategoryColumn)

	type nutrientColumn struct {
		index int
		name  string
	}
	var nutrients []nutrientColumn
	for i, c := range s.table.Columns {
		if !s.schema.isReserved(c) && ToName(c) != "" {
			nutrients = append(nutrients, nutrientColumn{index: i, name: ToName(c)})
		}
	}

	out := make([]v1alpha1.Ingredient, 0, len(s.table.Rows))
	for r, row := range s.table.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := ToName(cell(row, nameIdx))
		if name == "" {
			log.V(logging.DEBUG).Info("Skipping ingredient row without a name", "source", s.name, "row", r)
			continue
		}
		ing := v1alpha1.Ingredient{
			Name:      name,
			Category:  v1alpha1.CategoryOther,
			Price:     ToFloat(cell(row, priceIdx)),
			Nutrients: make(map[string]float64, len(nutrients)),
		}
		if categoryIdx >= 0 {
			if cat, ok := v1alpha1.ParseCategory(ToName(cell(row, categoryIdx))); ok {
				ing.Category = cat
			}
		}
		for _, n := range nutrients {
			ing.Nutrients[n.name] = ToFloat(cell(row, n.index))
		}
		out = append(out, ing)
	}

	log.V(logging.DEBUG).Info("Collected ingredients",
		"source", s.name,
		"ingredients", len(out),
		"nutrients", len(nutrients))
	return out, nil
}

// NutrientColumns lists the columns of table that are not reserved by schema.
func NutrientColumns(table Table, schema TableSchema) []string {
	schema = schema.withDefaults()
	var cols []string
	for _, c := range table.Columns {
		if !schema.isReserved(c) && ToName(c) != "" {
			cols = append(cols, ToName(c))
		}
	}
	return cols
}

// StaticSource serves a fixed ingredient list, e.g. one decoded from a request body.
type StaticSource struct {
	name        string
	ingredients []v1alpha1.Ingredient
}

// NewStaticSource creates a StaticSource.
func NewStaticSource(name string, ingredients []v1alpha1.Ingredient) *StaticSource {
	return &StaticSource{name: name, ingredients: ingredients}
}

// Name implements IngredientSource.
func (s *StaticSource) Name() string {
	return s.name
}

// Collect implements IngredientSource. Non-finite values are replaced by zero.
func (s *StaticSource) Collect(ctx context.Context) ([]v1alpha1.Ingredient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]v1alpha1.Ingredient, len(s.ingredients))
	for i, ing := range s.ingredients {
		clean := ing
		clean.Name = ToName(ing.Name)
		clean.Price = ToFloat(ing.Price)
		clean.Category, _ = v1alpha1.ParseCategory(string(ing.Category))
		clean.Nutrients = make(map[string]float64, len(ing.Nutrients))
		for k, v := range ing.Nutrients {
			clean.Nutrients[k] = ToFloat(v)
		}
		out[i] = clean
	}
	return out, nil
}
