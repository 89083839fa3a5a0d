package scheduler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"PatternSentinel/internal/calculator"
	"PatternSentinel/internal/collector"
	"PatternSentinel/internal/history"
	"PatternSentinel/internal/metrics"
	"PatternSentinel/internal/model"
	"PatternSentinel/internal/notifier"
	"PatternSentinel/internal/recorder"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Broadcaster receives every new batch.
type Broadcaster interface {
	Broadcast(b *model.Batch)
}

// Notifier delivers alert text.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

type pinger interface {
	Ping() error
}

// Scheduler refreshes every watched series on a cron schedule.
type Scheduler struct {
	Cron        *cron.Cron
	Collector   *collector.Collector
	Series      []model.SeriesKey
	Buffer      *history.Buffer
	Recorder    recorder.Recorder
	Metrics     *metrics.Metrics
	Health      *metrics.HealthStatus
	Broadcaster Broadcaster // optional
	Notifier    Notifier    // optional
	Logger      *zap.Logger
	// MaxConcurrent bounds parallel refreshes within one run.
	MaxConcurrent int

	running atomic.Bool

	mu         sync.Mutex
	directions map[model.SeriesKey]calculator.Direction
	failing    map[model.SeriesKey]bool
}

// NewScheduler creates a new Scheduler.
func NewScheduler(col *collector.Collector, series []model.SeriesKey, buf *history.Buffer, rec recorder.Recorder,
	m *metrics.Metrics, health *metrics.HealthStatus, logger *zap.Logger) *Scheduler {
	cronLog := cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))
	return &Scheduler{
		Cron:          cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cronLog))),
		Collector:     col,
		Series:        series,
		Buffer:        buf,
		Recorder:      rec,
		Metrics:       m,
		Health:        health,
		Logger:        logger,
		MaxConcurrent: 4,
		directions:    make(map[model.SeriesKey]calculator.Direction),
		failing:       make(map[model.SeriesKey]bool),
	}
}

// Register schedules the refresh job. ctx bounds every triggered run.
func (s *Scheduler) Register(ctx context.Context, refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, func() { s.refreshJob(ctx) }); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info("scheduler started", zap.Int("series", len(s.Series)))
}

// Stop stops the cron scheduler and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Logger.Info("scheduler stopped")
}

// refreshJob skips a tick while the previous run is still in flight.
func (s *Scheduler) refreshJob(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.Logger.Debug("previous refresh still running, skipping tick")
		return
	}
	defer s.running.Store(false)
	if err := s.RefreshAll(ctx); err != nil {
		s.Logger.Warn("refresh run finished with errors", zap.Error(err))
	}
}

// RefreshAll refreshes every series concurrently and joins their errors.
func (s *Scheduler) RefreshAll(ctx context.Context) error {
	var g errgroup.Group
	if s.MaxConcurrent > 0 {
		g.SetLimit(s.MaxConcurrent)
	}
	errs := make([]error, len(s.Series))
	for i, key := range s.Series {
		g.Go(func() error {
			errs[i] = s.Refresh(ctx, key)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Refresh fetches one series, projects it and fans the batch out.
func (s *Scheduler) Refresh(ctx context.Context, key model.SeriesKey) error {
	start := time.Now()
	log := s.Logger.With(zap.String("symbol", key.Symbol), zap.Int("interval", key.Interval))

	col, err := s.Collector.Collect(ctx, key.Symbol, key.Interval)
	if col != nil && len(col.History) > 0 {
		s.Buffer.SetPrices(key, col.History)
	}
	if err != nil {
		stage := "fetch"
		if col != nil {
			stage = "project"
		}
		s.fail(ctx, key, stage, err, time.Since(start))
		log.Error("refresh failed", zap.String("stage", stage), zap.Error(err))
		return err
	}

	b := col.Batch
	s.Buffer.Push(b)
	outlook := calculator.Consensus(b.Lines)
	took := time.Since(start)

	outcome := "ok"
	if len(b.Lines) == 0 {
		outcome = "no_pattern"
	}
	s.Metrics.ObserveRefresh(key.Symbol, key.Interval, outcome, len(b.Lines), b.AnchorClose, took)
	s.Health.SetLastRefresh(time.Now())

	if err := s.Recorder.RecordRun(&recorder.RunEvent{
		BatchID:     b.ID,
		Symbol:      b.Symbol,
		Interval:    b.Interval,
		Source:      b.Source,
		Pattern:     b.Pattern,
		HistoryLen:  b.HistoryLen,
		Lines:       len(b.Lines),
		AnchorClose: b.AnchorClose,
		Consensus:   string(outlook.Direction),
		Duration:    took,
		At:          b.CreatedAt,
	}); err != nil {
		log.Error("record run", zap.Error(err))
	}
	if p, ok := s.Recorder.(pinger); ok {
		s.Health.SetSQLiteOK(p.Ping() == nil)
	}

	if s.Broadcaster != nil {
		s.Broadcaster.Broadcast(b)
	}

	log.Info("series refreshed",
		zap.String("pattern", b.Pattern),
		zap.Int("lines", len(b.Lines)),
		zap.String("outlook", string(outlook.Direction)),
		zap.Duration("took", took))

	if s.directionChanged(key, outlook.Direction) {
		s.trySend(ctx, notifier.FormatBatch(b))
	}
	return nil
}

func (s *Scheduler) fail(ctx context.Context, key model.SeriesKey, stage string, err error, took time.Duration) {
	s.Metrics.ObserveRefresh(key.Symbol, key.Interval, "error", 0, 0, took)
	if stage == "fetch" {
		s.Metrics.FetchFailures.WithLabelValues(s.Collector.Fetcher.Name()).Inc()
	}
	s.Health.SetLastError(err)

	if recErr := s.Recorder.RecordFailure(&recorder.FailureEvent{
		Symbol:   key.Symbol,
		Interval: key.Interval,
		Source:   s.Collector.Fetcher.Name(),
		Stage:    stage,
		Error:    err.Error(),
		At:       time.Now(),
	}); recErr != nil {
		s.Logger.Error("record failure", zap.Error(recErr))
	}

	s.mu.Lock()
	first := !s.failing[key]
	s.failing[key] = true
	s.mu.Unlock()
	if first {
		s.trySend(ctx, notifier.FormatFailure(key.Symbol, key.Interval, err))
	}
}

// directionChanged reports whether the outlook differs from the last one seen.
// The first outlook of a series counts as a change unless it is none.
func (s *Scheduler) directionChanged(key model.SeriesKey, dir calculator.Direction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failing, key)
	prev, seen := s.directions[key]
	s.directions[key] = dir
	if !seen {
		return dir != calculator.DirectionNone
	}
	return prev != dir
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.HelpText
	}
	switch strings.ToLower(fields[0]) {
	case "/projections":
		symbol := ""
		if len(fields) > 1 {
			symbol = strings.ToUpper(fields[1])
		}
		var parts []string
		for _, key := range s.Buffer.Keys() {
			if symbol != "" && key.Symbol != symbol {
				continue
			}
			if b, ok := s.Buffer.Latest(key); ok {
				parts = append(parts, notifier.FormatBatch(b))
			}
		}
		if len(parts) == 0 {
			return "No projections yet."
		}
		return strings.Join(parts, "\n")
	case "/status":
		var latest []*model.Batch
		for _, key := range s.Buffer.Keys() {
			if b, ok := s.Buffer.Latest(key); ok {
				latest = append(latest, b)
			}
		}
		reply := notifier.FormatStatus(latest) + s.rangeReport()
		if runs, err := s.Recorder.RecentRuns(5); err == nil && len(runs) > 0 {
			reply += fmt.Sprintf("\nLast recorded run: %s %dm at %s\n",
				runs[0].Symbol, runs[0].Interval, runs[0].At.UTC().Format("2006-01-02 15:04:05"))
		}
		return reply
	case "/refresh":
		if err := s.RefreshAll(ctx); err != nil {
			return "❌ <b>Refresh failed</b>\n\n" + html.EscapeString(err.Error())
		}
		return "✅ All series refreshed."
	default:
		return notifier.HelpText
	}
}

// rangeReport places each series' last close within its buffered prices.
func (s *Scheduler) rangeReport() string {
	var sb strings.Builder
	for _, key := range s.Buffer.Keys() {
		prices, ok := s.Buffer.Prices(key)
		if !ok || len(prices) == 0 {
			continue
		}
		high, low, err := calculator.PriceRange(prices.Closes())
		if err != nil {
			continue
		}
		last := prices.Last().Close
		pos, err := calculator.RangePosition(last, high, low)
		if err != nil {
			continue
		}
		if sb.Len() == 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(notifier.FormatRange(key.Symbol, key.Interval, last, high, low, pos))
	}
	return sb.String()
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(ctx, text, 3); err != nil {
		s.Logger.Error("send notification", zap.Error(err))
	}
}
