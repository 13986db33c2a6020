package main

import (
	"fmt"

	"github.com/spf13/cobra"

	matchdex "github.com/matchdex/matchdex/pkg/sdk"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Print embedding usage and budget state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		periodFlag, _ := cmd.Flags().GetString("period")
		period := matchdex.UsagePeriod(periodFlag)
		switch period {
		case matchdex.PeriodDay, matchdex.PeriodMonth, matchdex.PeriodTotal:
		default:
			return fmt.Errorf("invalid period %q (want day, month or total)", periodFlag)
		}

		client, err := newClient()
		if err != nil {
			return err
		}

		report, err := client.Usage(cmd.Context(), period)
		if err != nil {
			return err
		}

		if jsonOutput() {
			return printJSON(report)
		}

		fmt.Printf("period: %s", report.Period)
		if !report.PeriodStart.IsZero() {
			fmt.Printf(" (%s .. %s)",
				report.PeriodStart.Format("2006-01-02"),
				report.PeriodEnd.Format("2006-01-02"))
		}
		fmt.Println()
		if report.Provider != "" {
			fmt.Printf("provider: %s\n", report.Provider)
		}
		fmt.Printf("requests: %d\n", report.Metrics.EmbeddingRequests)
		fmt.Printf("tokens:   %d\n", report.Metrics.Tokens)
		if report.Metrics.CostMillidollars > 0 {
			fmt.Printf("cost:     $%.3f\n", float64(report.Metrics.CostMillidollars)/1000)
		}

		if report.Budget.TokensLimit > 0 {
			fmt.Printf("budget:   %d of %d tokens left", report.Budget.TokensRemaining, report.Budget.TokensLimit)
			if report.Budget.IsExhausted {
				fmt.Print(" (exhausted)")
			}
			if !report.Budget.ResetsAt.IsZero() {
				fmt.Printf(", resets %s", report.Budget.ResetsAt.Format("2006-01-02 15:04 MST"))
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(usageCmd)

	usageCmd.Flags().String("period", "month", "report period: day, month or total")
}
