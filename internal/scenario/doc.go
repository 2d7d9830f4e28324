// Package scenario keeps formulation snapshots and derives comparison
// metrics from them.
//
// A Snapshot retains the ingredient table, inclusion percents, and batch
// cost of one formulation. Cost shares, per-ingredient nutrient
// contributions, and shadow prices are recomputed from that snapshot alone,
// so saved scenarios stay comparable after the ingredient table changes.
//
// The shadow price of a nutrient is the lowest price per unit of that
// nutrient among the ingredients in the mix. Ingredients that do not supply
// the nutrient are listed as NoContribution instead of dividing by zero.
package scenario
