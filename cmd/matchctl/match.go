package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	matchdex "github.com/matchdex/matchdex/pkg/sdk"
)

var matchCmd = &cobra.Command{
	Use:   "match [resumes|jobs] [query]",
	Short: "Run a ranked retrieval against one population",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		svc, err := recordService(client, args[0])
		if err != nil {
			return err
		}

		mode, _ := cmd.Flags().GetString("mode")
		k, _ := cmd.Flags().GetInt("k")
		minScore, _ := cmd.Flags().GetFloat64("min-score")
		excludeOwner, _ := cmd.Flags().GetString("exclude-owner")

		res, err := svc.Match(cmd.Context(), matchdex.MatchRequest{
			Query:        strings.Join(args[1:], " "),
			Mode:         matchdex.MatchMode(mode),
			K:            k,
			MinScore:     minScore,
			ExcludeOwner: excludeOwner,
		})
		if err != nil {
			return err
		}

		if jsonOutput() {
			return printJSON(res)
		}
		printMatches(res.Items)
		fmt.Printf("\n%d results (embedder %s", res.Total, res.EmbedderVersion)
		if res.EmbeddingTokens > 0 {
			fmt.Printf(", %d embedding tokens", res.EmbeddingTokens)
		}
		fmt.Println(")")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().String("mode", "semantic", "match mode: semantic, keyword or hybrid")
	matchCmd.Flags().Int("k", 10, "number of results")
	matchCmd.Flags().Float64("min-score", 0, "drop results below this score")
	matchCmd.Flags().String("exclude-owner", "", "exclude records owned by this owner")
}

func printMatches(items []matchdex.Match) {
	for _, m := range items {
		line := fmt.Sprintf("%3d. %-24s %.4f", m.Rank, m.ID, m.Score)
		if m.Snippet != "" {
			line += "  " + m.Snippet
		}
		fmt.Println(line)
		if len(m.Skills) > 0 {
			fmt.Printf("     skills: %s\n", strings.Join(m.Skills, ", "))
		}
	}
}
