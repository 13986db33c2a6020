package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	matchdex "github.com/matchdex/matchdex/pkg/sdk"
)

var submitCmd = &cobra.Command{
	Use:   "submit [resumes|jobs]",
	Short: "Submit a record from flags, a JSON file or stdin",
	Long: `Submit a resume or job posting.

The record text comes from --text, or from a JSON file given with --file
("-" reads stdin). A file may hold either a single record object or an
array of records; arrays are submitted as one batch.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		svc, err := recordService(client, args[0])
		if err != nil {
			return err
		}

		file, _ := cmd.Flags().GetString("file")
		if file != "" {
			return submitFromFile(cmd, svc, file)
		}
		return submitFromFlags(cmd, svc)
	},
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().String("text", "", "record text")
	submitCmd.Flags().String("id", "", "record id (assigned by the server when empty)")
	submitCmd.Flags().StringSlice("skills", nil, "comma-separated skills")
	submitCmd.Flags().StringArray("tag", nil, "tag as key=value, repeatable")
	submitCmd.Flags().StringArray("numeric", nil, "numeric field as key=value, repeatable")
	submitCmd.Flags().String("file", "", "JSON file with a record or an array of records, - for stdin")
}

func submitFromFlags(cmd *cobra.Command, svc *matchdex.RecordService) error {
	text, _ := cmd.Flags().GetString("text")
	if text == "" {
		return fmt.Errorf("either --text or --file is required")
	}
	id, _ := cmd.Flags().GetString("id")
	skills, _ := cmd.Flags().GetStringSlice("skills")
	tagPairs, _ := cmd.Flags().GetStringArray("tag")
	numPairs, _ := cmd.Flags().GetStringArray("numeric")

	tags, err := parseTags(tagPairs)
	if err != nil {
		return err
	}
	numerics, err := parseNumerics(numPairs)
	if err != nil {
		return err
	}

	rec, err := svc.Submit(cmd.Context(), matchdex.SubmitRequest{
		ID:       id,
		Text:     text,
		Skills:   skills,
		Tags:     tags,
		Numerics: numerics,
	})
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(rec)
	}
	fmt.Printf("submitted %s/%s\n", rec.Population, rec.ID)
	return nil
}

func submitFromFile(cmd *cobra.Command, svc *matchdex.RecordService, file string) error {
	data, err := readInput(file)
	if err != nil {
		return err
	}

	// Массив или одиночная запись.
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var items []matchdex.SubmitRequest
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("parse %s: %w", file, err)
		}
		res, err := svc.SubmitBatch(cmd.Context(), items)
		if err != nil {
			return err
		}
		if jsonOutput() {
			return printJSON(res)
		}
		fmt.Printf("submitted %d, failed %d\n", res.Succeeded, res.Failed)
		for _, item := range res.Items {
			if !item.OK() {
				fmt.Printf("  %s: %s\n", itemLabel(item), item.Error.Message)
			}
		}
		return nil
	}

	var req matchdex.SubmitRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("parse %s: %w", file, err)
	}
	rec, err := svc.Submit(cmd.Context(), req)
	if err != nil {
		return err
	}
	if jsonOutput() {
		return printJSON(rec)
	}
	fmt.Printf("submitted %s/%s\n", rec.Population, rec.ID)
	return nil
}

func itemLabel(item matchdex.BatchResult) string {
	if item.ID == "" {
		return "(no id)"
	}
	return item.ID
}

func readInput(file string) ([]byte, error) {
	if file == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(file)
}

func parseTags(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid tag %q, want key=value", p)
		}
		out[k] = v
	}
	return out, nil
}

func parseNumerics(pairs []string) (map[string]float64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid numeric %q, want key=value", p)
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid numeric %q: %w", p, err)
		}
		out[k] = f
	}
	return out, nil
}
