// Package collector ingests ingredient tables for the formulation engine.
//
// The collector package turns tabular ingredient data (as read from a
// spreadsheet, a CSV file, or a request body) into cleaned
// v1alpha1.Ingredient values. It does not parse files itself; callers hand it
// a Table of header names and cell values.
//
// # Architecture
//
// Sources implement the IngredientSource interface:
//
//	src := collector.NewTableSource("feed-sheet", table, collector.DefaultSchema())
//	ingredients, err := src.Collect(ctx)
//
// # Supported Sources
//
//   - TableSource: a Table with name, price, optional category, and nutrient columns
//   - StaticSource: an already structured ingredient list
//
// # Schema
//
// TableSchema names the reserved columns. Every other non-excluded column is
// treated as a nutrient, keyed by its trimmed header. Column matching ignores
// case and surrounding spaces.
//
// # Numeric Coercion
//
// Cells are converted with spf13/cast after replacing decimal commas:
//
//	"12,5"  -> 12.5
//	"n/a"   -> 0
//	NaN/Inf -> 0
//	nil     -> 0
//
// A missing name or price column is the only collection error
// (ErrMissingColumn); bad cells never fail a run. Unknown categories map to
// Other.
package collector
