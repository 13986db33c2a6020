package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	matchdex "github.com/matchdex/matchdex/pkg/sdk"
)

var insightsCmd = &cobra.Command{
	Use:   "insights [resumes|jobs]",
	Short: "Print the analytics summary of one population",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		svc, err := recordService(client, args[0])
		if err != nil {
			return err
		}

		ins, err := svc.Insights(cmd.Context())
		if err != nil {
			return err
		}

		if jsonOutput() {
			return printJSON(ins)
		}
		printInsights(ins)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(insightsCmd)
}

func printInsights(ins matchdex.Insights) {
	fmt.Printf("%s: %d records\n", ins.Population, ins.Total)

	if len(ins.TopSkills) > 0 {
		fmt.Println("\ntop skills:")
		for _, sc := range ins.TopSkills {
			fmt.Printf("  %-20s %d\n", sc.Skill, sc.Count)
		}
	}

	sen := ins.Seniority
	fmt.Printf("\nseniority: entry %d, mid %d, senior %d, unknown %d\n",
		sen.Entry, sen.Mid, sen.Senior, sen.Unknown)

	if len(ins.Numerics) > 0 {
		fields := make([]string, 0, len(ins.Numerics))
		for f := range ins.Numerics {
			fields = append(fields, f)
		}
		sort.Strings(fields)

		fmt.Println("\nnumeric fields:")
		for _, f := range fields {
			d := ins.Numerics[f]
			fmt.Printf("  %-20s n=%d min=%.1f max=%.1f mean=%.1f\n",
				f, d.Count, d.Min, d.Max, d.Mean)
		}
	}

	if len(ins.TopTags) > 0 {
		fields := make([]string, 0, len(ins.TopTags))
		for f := range ins.TopTags {
			fields = append(fields, f)
		}
		sort.Strings(fields)

		fmt.Println("\ntop tags:")
		for _, f := range fields {
			fmt.Printf("  %s:\n", f)
			for _, tc := range ins.TopTags[f] {
				fmt.Printf("    %-18s %d\n", tc.Value, tc.Count)
			}
		}
	}
}
