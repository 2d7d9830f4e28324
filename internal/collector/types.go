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
	"strings"
)

// Table is an in-memory ingredient table as produced by a spreadsheet or CSV reader.
// Cells may hold strings, numbers, booleans, or nil.
type Table struct {
	// Columns are the header names in file order.
	Columns []string `json:"columns" yaml:"columns"`

	// Rows hold one cell per column. Short rows are padded with nil.
	Rows [][]any `json:"rows" yaml:"rows"`
}

// TableSchema names the special columns of a Table. Every other column is a nutrient.
// Column names are matched after trimming spaces, case-insensitively.
type TableSchema struct {
	// NameColumn holds the ingredient name. Required.
	NameColumn string `json:"nameColumn" yaml:"nameColumn"`

	// PriceColumn holds the unit price. Required.
	PriceColumn string `json:"priceColumn" yaml:"priceColumn"`

	// CategoryColumn holds the ingredient category. Optional.
	CategoryColumn string `json:"categoryColumn,omitempty" yaml:"categoryColumn,omitempty"`

	// ExcludedColumns are neither special nor nutrients (e.g. dry matter).
	ExcludedColumns []string `json:"excludedColumns,omitempty" yaml:"excludedColumns,omitempty"`
}

// DefaultSchema returns the column layout of the standard ingredient sheet.
func DefaultSchema() TableSchema {
	return TableSchema{
		NameColumn:      "Ingredient",
		PriceColumn:     "Price",
		CategoryColumn:  "Category",
		ExcludedColumns: []string{"Dry matter (%)"},
	}
}

// withDefaults fills empty column names from DefaultSchema.
func (s TableSchema) withDefaults() TableSchema {
	d := DefaultSchema()
	if s.NameColumn == "" {
		s.NameColumn = d.NameColumn
	}
	if s.PriceColumn == "" {
		s.PriceColumn = d.PriceColumn
	}
	if s.CategoryColumn == "" {
		s.CategoryColumn = d.CategoryColumn
	}
	if s.ExcludedColumns == nil {
		s.ExcludedColumns = d.ExcludedColumns
	}
	return s
}

// isReserved reports whether column is one of the schema's non-nutrient columns.
func (s TableSchema) isReserved(column string) bool {
	if sameColumn(column, s.NameColumn) || sameColumn(column, s.PriceColumn) || sameColumn(column, s.CategoryColumn) {
		return true
	}
	for _, excluded := range s.ExcludedColumns {
		if sameColumn(column, excluded) {
			return true
		}
	}
	return false
}

func sameColumn(a, b string) bool {
	return b != "" && strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// columnIndex returns the position of name in columns, or -1.
func columnIndex(columns []string, name string) int {
	for i, c := range columns {
		if sameColumn(c, name) {
			return i
		}
	}
	return -1
}

// cell returns row[i], or nil when the row is short.
func cell(row []any, i int) any {
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}
