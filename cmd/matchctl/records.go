package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get [resumes|jobs] [id]",
	Short: "Fetch one record by id",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		svc, err := recordService(client, args[0])
		if err != nil {
			return err
		}

		rec, err := svc.Get(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		return printJSON(rec)
	},
}

var listCmd = &cobra.Command{
	Use:   "list [resumes|jobs]",
	Short: "List records, optionally filtered by owner",
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

		owner, _ := cmd.Flags().GetString("owner")
		list, err := svc.List(cmd.Context(), owner)
		if err != nil {
			return err
		}

		if jsonOutput() {
			return printJSON(list)
		}
		for _, rec := range list.Items {
			fmt.Printf("%-24s %s\n", rec.ID, firstLine(rec.Text))
		}
		fmt.Printf("%d records\n", list.Total)
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove [resumes|jobs] [id]",
	Short: "Delete a record by id",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		svc, err := recordService(client, args[0])
		if err != nil {
			return err
		}

		if err := svc.Remove(cmd.Context(), args[1]); err != nil {
			return err
		}
		fmt.Printf("removed %s/%s\n", args[0], args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd, listCmd, removeCmd)

	listCmd.Flags().String("owner", "", "only records owned by this owner")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	const max = 100
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
