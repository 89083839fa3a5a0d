package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"PatternSentinel/internal/collector"
	"PatternSentinel/internal/export"
	"PatternSentinel/internal/logger"
	"PatternSentinel/internal/model"

	"github.com/spf13/cobra"
)

type projectFlags struct {
	symbol   string
	interval int
	policy   string
	horizon  int
	lines    int
	format   string
}

func newProjectCmd() *cobra.Command {
	var f projectFlags
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Fetch one series and print its projections",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProject(cmd, f)
		},
	}
	cmd.Flags().StringVarP(&f.symbol, "symbol", "s", "", "symbol to fetch (default: first watched symbol)")
	cmd.Flags().IntVarP(&f.interval, "interval", "i", 0, "bar interval in minutes (default: first watched interval)")
	cmd.Flags().StringVar(&f.policy, "policy", "", "match policy: fixed or variable (default from config)")
	cmd.Flags().IntVar(&f.horizon, "horizon", 0, "projected steps per line (default from config)")
	cmd.Flags().IntVar(&f.lines, "lines", 0, "maximum projection lines (default from config)")
	cmd.Flags().StringVarP(&f.format, "format", "o", "table", "output format: table, csv or json")
	return cmd
}

// collectOnce resolves series flags against the config and runs one collection.
func collectOnce(cmd *cobra.Command, symbol string, interval int, policyName string, horizon, lines int) (*collector.Collection, model.SeriesKey, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, model.SeriesKey{}, err
	}
	log, err := logger.New(cfg.LogLevel, "stderr")
	if err != nil {
		return nil, model.SeriesKey{}, err
	}
	defer log.Sync()

	key := seriesFromConfig(cfg)[0]
	if symbol != "" {
		key.Symbol = symbol
	}
	if interval != 0 {
		key.Interval = interval
	}
	if horizon == 0 {
		horizon = cfg.Projection.Horizon
	}
	if lines == 0 {
		lines = cfg.Projection.Lines
	}

	fetcher, err := buildFetcher(cfg, log)
	if err != nil {
		return nil, key, err
	}
	policy, err := buildPolicy(cfg, policyName)
	if err != nil {
		return nil, key, err
	}
	col := collector.NewCollector(fetcher, collector.Settings{Policy: policy, Horizon: horizon, Lines: lines})
	c, err := col.Collect(cmd.Context(), key.Symbol, key.Interval)
	return c, key, err
}

func runProject(cmd *cobra.Command, f projectFlags) error {
	var write func(io.Writer, []model.ProjectionLine) error
	switch f.format {
	case "table":
		write = export.WriteTable
	case "csv":
		write = export.WriteCSV
	case "json":
		write = export.WriteJSON
	default:
		return fmt.Errorf("unknown format %q", f.format)
	}

	c, key, err := collectOnce(cmd, f.symbol, f.interval, f.policy, f.horizon, f.lines)
	if err != nil {
		return err
	}
	b := c.Batch
	if f.format == "table" {
		fmt.Fprintf(os.Stderr, "%s %dm | last %s at %s | pattern %s | %d lines\n",
			key.Symbol, key.Interval, export.Price(b.AnchorClose).String(),
			b.AnchorTime.UTC().Format(time.RFC3339), b.Pattern, len(b.Lines))
	}
	return write(cmd.OutOrStdout(), b.Lines)
}
