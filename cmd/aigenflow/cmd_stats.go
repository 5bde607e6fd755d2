package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"aigenflow/internal/tokens"
)

var statsPeriod string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show token usage and spend",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		period := tokens.Period(statsPeriod)
		switch period {
		case tokens.PeriodDaily, tokens.PeriodWeekly, tokens.PeriodMonthly, tokens.PeriodAll:
		default:
			return fmt.Errorf("unknown period: %s", statsPeriod)
		}

		summary := tokens.NewStatsCollector(a.tracker).Collect(period)
		fmt.Printf("Usage (%s)\n", period)
		fmt.Printf("  requests: %d\n", summary.Total.Requests)
		fmt.Printf("  tokens:   %d in / %d out\n", summary.Total.InputTokens, summary.Total.OutputTokens)
		fmt.Printf("  cost:     $%.4f\n", summary.Total.CostUSD)

		providers := make([]string, 0, len(summary.ByProvider))
		for p := range summary.ByProvider {
			providers = append(providers, p)
		}
		sort.Strings(providers)
		for _, p := range providers {
			b := summary.ByProvider[p]
			fmt.Printf("  %-12s %6d req  %10d tok  $%.4f\n", p, b.Requests, b.TotalTokens, b.CostUSD)
		}

		for _, alert := range a.tracker.CheckBudget() {
			fmt.Printf("  ALERT: %s budget at %d%% ($%.2f of $%.2f)\n",
				alert.Period, alert.Threshold, alert.SpentUSD, alert.BudgetUSD)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsPeriod, "period", "all", "daily, weekly, monthly, or all")
}
