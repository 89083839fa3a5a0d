package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"PatternSentinel/internal/collector"
	"PatternSentinel/internal/history"
	"PatternSentinel/internal/logger"
	"PatternSentinel/internal/metrics"
	"PatternSentinel/internal/notifier"
	"PatternSentinel/internal/projector"
	"PatternSentinel/internal/recorder"
	"PatternSentinel/internal/scheduler"
	"PatternSentinel/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newRunCmd() *cobra.Command {
	var refreshOnStart bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Refresh watched series on schedule and serve the API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runService(cmd.Context(), refreshOnStart)
		},
	}
	cmd.Flags().BoolVar(&refreshOnStart, "refresh-on-start", os.Getenv("RUN_ON_START") != "false",
		"refresh every series once before the first cron tick")
	return cmd
}

func runService(parent context.Context, refreshOnStart bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()
	log.Info("PatternSentinel starting", zap.String("config", configPath))

	fetcher, err := buildFetcher(cfg, log)
	if err != nil {
		return err
	}
	policy, err := buildPolicy(cfg, "")
	if err != nil {
		return err
	}
	log.Info("data source ready", zap.String("source", fetcher.Name()), zap.String("policy", policy.Name()))

	col := collector.NewCollector(fetcher, collector.Settings{
		Policy:  policy,
		Horizon: cfg.Projection.Horizon,
		Lines:   cfg.Projection.Lines,
	})

	m := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	buf := history.NewBuffer(cfg.History.KeepBatches)

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn("init sqlite recorder failed, using noop", zap.Error(err))
		} else {
			rec = sr
			health.SetSQLiteOK(true)
		}
	}
	defer rec.Close()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := server.NewHub(log, m)
	sched := scheduler.NewScheduler(col, seriesFromConfig(cfg), buf, rec, m, health, log)
	sched.Broadcaster = hub

	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.DataSource.Proxy, log)
		sched.Notifier = tn
	}

	if err := sched.Register(ctx, cfg.Schedule.RefreshCron); err != nil {
		return err
	}

	defaults := projector.DefaultOptions()
	defaults.Policy = policy
	defaults.Horizon = cfg.Projection.Horizon
	defaults.MaxLines = cfg.Projection.Lines
	srv := server.New(buf, hub, m, health, defaults, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx, cfg.Server.Addr) })
	if tn != nil {
		g.Go(func() error {
			tn.StartPolling(gctx, sched.HandleCommand)
			return nil
		})
		log.Info("telegram polling started")
	}
	if refreshOnStart {
		g.Go(func() error {
			if err := sched.RefreshAll(gctx); err != nil {
				log.Warn("initial refresh finished with errors", zap.Error(err))
			}
			return nil
		})
	}

	sched.Start()
	log.Info("PatternSentinel is running, press Ctrl+C to stop")

	err = g.Wait()
	sched.Stop()
	log.Info("PatternSentinel stopped")
	return err
}
