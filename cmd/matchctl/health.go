package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the server health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		hs, err := client.Health(cmd.Context())
		if err != nil {
			return err
		}

		if jsonOutput() {
			return printJSON(hs)
		}

		fmt.Printf("status: %s (server %s)\n", hs.Status, hs.Version)
		components := make([]string, 0, len(hs.Checks))
		for c := range hs.Checks {
			components = append(components, c)
		}
		sort.Strings(components)
		for _, c := range components {
			fmt.Printf("  %-12s %s\n", c, hs.Checks[c])
		}

		if !hs.Healthy() {
			return fmt.Errorf("server is %s", hs.Status)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
