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
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/llm-d/diet-formulator/api/v1alpha1"
	"github.com/llm-d/diet-formulator/internal/scenario"
	"github.com/llm-d/diet-formulator/internal/storage"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// writeStructured renders v as JSON or YAML. It reports false for the table format.
func writeStructured(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	case formatTable, "":
		return false, nil
	default:
		return true, fmt.Errorf("unknown output format %q (want %s, %s or %s)", format, formatTable, formatJSON, formatYAML)
	}
}

func writeResult(w io.Writer, format string, res *v1alpha1.FormulationResult) error {
	if done, err := writeStructured(w, format, res); done {
		return err
	}

	fmt.Fprintf(w, "Status:  %s (success=%t)\n", res.Status, res.Success)
	fmt.Fprintf(w, "Message: %s\n", res.Message)
	fmt.Fprintf(w, "Cost:    %.2f per %g\n\n", res.TotalCost, res.BatchSize)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INGREDIENT\tPERCENT")
	for _, e := range res.Composition {
		fmt.Fprintf(tw, "%s\t%.2f\n", e.Ingredient, e.Percent)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "NUTRIENT\tACHIEVED\tMIN\tMAX\tSTATUS")
	for _, c := range res.NutrientCompliance {
		fmt.Fprintf(tw, "%s\t%.4f\t%s\t%s\t%s\n", c.Nutrient, c.Achieved, bound(c.Min), bound(c.Max), c.Status)
	}
	for _, c := range res.RatioCompliance {
		fmt.Fprintf(tw, "%s\t\t\t\t%s\n", c.Constraint.String(), c.Status)
	}
	for _, c := range res.CategoryCompliance {
		fmt.Fprintf(tw, "%s\t%.2f%%\t%.2f%%\t%.2f%%\t%s\n", c.Category, c.Achieved*100, c.Min*100, c.Max*100, c.Status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, v := range res.Violations {
		fmt.Fprintf(w, "violation: %s %s by %.4f\n", v.Constraint, v.Side, v.Amount)
	}
	for _, d := range res.Diagnostics {
		fmt.Fprintf(w, "note: %s\n", d)
	}
	return nil
}

func bound(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *v)
}

func writeSummaries(w io.Writer, format string, rows []storage.Summary) error {
	if done, err := writeStructured(w, format, rows); done {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCREATED\tCOST\tSTATUS\tINGREDIENTS")
	for _, s := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\t%d\n",
			s.ID, s.Name, s.CreatedAt.Format("2006-01-02 15:04"), s.TotalCost, s.Status, s.Ingredients)
	}
	return tw.Flush()
}

func writeComparison(w io.Writer, format string, cmp scenario.Comparison) error {
	if done, err := writeStructured(w, format, cmp); done {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := "\t"
	for _, name := range cmp.Scenarios {
		header += name + "\t"
	}
	fmt.Fprintln(tw, header)
	writeRow(tw, cmp.Cost)
	for _, section := range [][]scenario.Row{cmp.Composition, cmp.Nutrients, cmp.ShadowPrices} {
		for _, r := range section {
			writeRow(tw, r)
		}
	}
	return tw.Flush()
}

func writeRow(w io.Writer, r scenario.Row) {
	line := r.Label + "\t"
	for _, v := range r.Values {
		line += fmt.Sprintf("%.4f\t", v)
	}
	fmt.Fprintln(w, line)
}
