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
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/llm-d/diet-formulator/api/v1alpha1"
)

func newProfilesCmd() *cobra.Command {
	var path, output string
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List diet profiles and their category ranges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profiles, err := loadProfiles(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if done, err := writeStructured(out, output, profiles); done {
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "PROFILE\tCATEGORY\tMIN\tMAX")
			for _, name := range profiles.Names() {
				p, _ := profiles.GetProfile(name)
				for _, cat := range v1alpha1.Categories {
					r, ok := p.CategoryRanges[cat]
					if !ok {
						continue
					}
					fmt.Fprintf(tw, "%s\t%s\t%.0f%%\t%.0f%%\n", name, cat, r.Min*100, r.Max*100)
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&path, "profiles", "", "YAML file of additional diet profiles")
	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format: table, json or yaml")
	return cmd
}
