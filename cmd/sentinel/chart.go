package main

import (
	"fmt"
	"os"

	"PatternSentinel/internal/chart"
	"PatternSentinel/internal/model"

	"github.com/spf13/cobra"
)

func newChartCmd() *cobra.Command {
	var (
		symbol   string
		interval int
		policy   string
		out      string
	)
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Fetch one series and write an HTML chart with its projections",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, key, err := collectOnce(cmd, symbol, interval, policy, 0, 0)
			if err != nil {
				return err
			}
			file, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			defer file.Close()

			in := chart.Input{
				Title:   fmt.Sprintf("%s %dm", key.Symbol, key.Interval),
				History: c.History,
				Batches: []*model.Batch{c.Batch},
				Keep:    1,
			}
			if err := chart.Render(file, in); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "chart written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&symbol, "symbol", "s", "", "symbol to fetch (default: first watched symbol)")
	cmd.Flags().IntVarP(&interval, "interval", "i", 0, "bar interval in minutes (default: first watched interval)")
	cmd.Flags().StringVar(&policy, "policy", "", "match policy: fixed or variable (default from config)")
	cmd.Flags().StringVarP(&out, "out", "o", "projection.html", "output HTML file")
	return cmd
}
