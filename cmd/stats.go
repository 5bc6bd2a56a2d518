package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jobtrack/jobtrack-cli/internal/summary"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print funnel statistics for the tracked set",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		apps, err := st.GetApplications(ctx)
		if err != nil {
			return err
		}
		stats := summary.Compute(apps)

		fmt.Printf("Applications: %d total, %d active\n", stats.Total, stats.Active)
		fmt.Printf("Interview rate: %s   Offer rate: %s   Rejection rate: %s\n\n",
			summary.Percent(stats.InterviewRate),
			summary.Percent(stats.OfferRate),
			summary.Percent(stats.RejectionRate))

		fmt.Println("By stage:")
		for _, sc := range stats.ByStage {
			fmt.Printf("  %-22s %4d  %s\n", sc.Stage, sc.Count, sc.Bar)
		}

		if len(stats.MonthlyApplied) > 0 {
			fmt.Println("\nApplied per month:")
			for _, mc := range stats.MonthlyApplied {
				fmt.Printf("  %s  %d\n", mc.Month, mc.Count)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
