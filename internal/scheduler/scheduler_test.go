package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"PatternSentinel/internal/collector"
	"PatternSentinel/internal/history"
	"PatternSentinel/internal/metrics"
	"PatternSentinel/internal/model"
	"PatternSentinel/internal/projector"
	"PatternSentinel/internal/recorder"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var scenarioCloses = []float64{
	100, 102, 104, 103, 105, 104, 103, 105, 107, 109,
	111, 113, 115, 117, 119, 121, 123, 125, 124, 126,
	125, 124, 126, 128, 130, 132, 131, 133, 132, 131,
}

func scenario() model.PriceHistory {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	h := make(model.PriceHistory, len(scenarioCloses))
	for i, c := range scenarioCloses {
		h[i] = model.PricePoint{Time: t0.Add(time.Duration(i) * time.Hour), Close: c}
	}
	return h
}

// symbolFetcher serves the scenario for every symbol except those in fail.
type symbolFetcher struct {
	fail map[string]error
}

func (f *symbolFetcher) Name() string { return "fake" }

func (f *symbolFetcher) FetchHistory(_ context.Context, symbol string, _ int) (model.PriceHistory, error) {
	if err, ok := f.fail[symbol]; ok {
		return nil, err
	}
	return scenario(), nil
}

type captureNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *captureNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, text)
	return nil
}

func (n *captureNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}

type captureBroadcaster struct {
	mu      sync.Mutex
	batches []*model.Batch
}

func (b *captureBroadcaster) Broadcast(batch *model.Batch) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.batches = append(b.batches, batch)
}

type captureRecorder struct {
	recorder.NoopRecorder
	mu       sync.Mutex
	runs     []recorder.RunEvent
	failures []recorder.FailureEvent
}

func (r *captureRecorder) RecordRun(evt *recorder.RunEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, *evt)
	return nil
}

func (r *captureRecorder) RecordFailure(evt *recorder.FailureEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, *evt)
	return nil
}

func (r *captureRecorder) RecentRuns(limit int) ([]recorder.RunEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]recorder.RunEvent, 0, len(r.runs))
	for i := len(r.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.runs[i])
	}
	return out, nil
}

type fixture struct {
	s   *Scheduler
	n   *captureNotifier
	b   *captureBroadcaster
	rec *captureRecorder
	m   *metrics.Metrics
	buf *history.Buffer
}

func newFixture(fetcher collector.Fetcher, series ...model.SeriesKey) *fixture {
	col := collector.NewCollector(fetcher, collector.Settings{Policy: projector.DefaultFixed, Horizon: 5, Lines: 3})
	f := &fixture{
		n:   &captureNotifier{},
		b:   &captureBroadcaster{},
		rec: &captureRecorder{},
		m:   metrics.NewMetrics(),
		buf: history.NewBuffer(3),
	}
	f.s = NewScheduler(col, series, f.buf, f.rec, f.m, metrics.NewHealthStatus(), zap.NewNop())
	f.s.Notifier = f.n
	f.s.Broadcaster = f.b
	return f
}

var btc = model.SeriesKey{Symbol: "XXBTZUSD", Interval: 60}

func TestRefresh_Success(t *testing.T) {
	f := newFixture(&symbolFetcher{}, btc)

	require.NoError(t, f.s.Refresh(context.Background(), btc))

	latest, ok := f.buf.Latest(btc)
	require.True(t, ok)
	assert.Equal(t, "UUDUDD", latest.Pattern)
	assert.Len(t, latest.Lines, 2)
	prices, ok := f.buf.Prices(btc)
	require.True(t, ok)
	assert.Len(t, prices, 30)

	require.Len(t, f.b.batches, 1)
	require.Len(t, f.rec.runs, 1)
	assert.Equal(t, latest.ID, f.rec.runs[0].BatchID)
	assert.Equal(t, "bearish", f.rec.runs[0].Consensus)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.m.RefreshTotal.WithLabelValues("XXBTZUSD", "60", "ok")))
	assert.Equal(t, 131.0, testutil.ToFloat64(f.m.LastClose.WithLabelValues("XXBTZUSD", "60")))
	assert.Equal(t, "ok", f.s.Health.Snapshot().Status)

	// The first outlook is announced; an unchanged one is not.
	assert.Equal(t, 1, f.n.count())
	require.NoError(t, f.s.Refresh(context.Background(), btc))
	assert.Equal(t, 1, f.n.count())
	assert.Len(t, f.buf.Snapshot(btc), 2)
}

func TestRefresh_FetchFailureAlertsOnce(t *testing.T) {
	f := newFixture(&symbolFetcher{fail: map[string]error{"XXBTZUSD": errors.New("exchange down")}}, btc)

	require.Error(t, f.s.Refresh(context.Background(), btc))
	require.Error(t, f.s.Refresh(context.Background(), btc))

	require.Len(t, f.rec.failures, 2)
	assert.Equal(t, "fetch", f.rec.failures[0].Stage)
	assert.Contains(t, f.rec.failures[0].Error, "exchange down")
	assert.Equal(t, 2.0, testutil.ToFloat64(f.m.FetchFailures.WithLabelValues("fake")))
	assert.Equal(t, 1, f.n.count())
	assert.Contains(t, f.n.msgs[0], "refresh failed")
	_, ok := f.buf.Latest(btc)
	assert.False(t, ok)
}

type shortFetcher struct{}

func (shortFetcher) Name() string { return "short" }
func (shortFetcher) FetchHistory(context.Context, string, int) (model.PriceHistory, error) {
	return scenario()[:4], nil
}

func TestRefresh_ProjectFailureKeepsPrices(t *testing.T) {
	f := newFixture(shortFetcher{}, btc)

	err := f.s.Refresh(context.Background(), btc)
	require.ErrorIs(t, err, projector.ErrInsufficientData)
	require.Len(t, f.rec.failures, 1)
	assert.Equal(t, "project", f.rec.failures[0].Stage)
	prices, ok := f.buf.Prices(btc)
	require.True(t, ok)
	assert.Len(t, prices, 4)
	assert.Equal(t, 0.0, testutil.ToFloat64(f.m.FetchFailures.WithLabelValues("short")))
}

func TestRefreshAll_JoinsErrors(t *testing.T) {
	bad := model.SeriesKey{Symbol: "BAD", Interval: 15}
	f := newFixture(&symbolFetcher{fail: map[string]error{"BAD": errors.New("unknown pair")}}, btc, bad)

	err := f.s.RefreshAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown pair")
	_, ok := f.buf.Latest(btc)
	assert.True(t, ok)
}

func TestHandleCommand(t *testing.T) {
	f := newFixture(&symbolFetcher{}, btc)
	ctx := context.Background()

	assert.Equal(t, "No projections yet.", f.s.HandleCommand(ctx, "/projections"))
	assert.Contains(t, f.s.HandleCommand(ctx, "/refresh"), "refreshed")

	reply := f.s.HandleCommand(ctx, "/projections xxbtzusd")
	assert.Contains(t, reply, "XXBTZUSD 1h")
	assert.Equal(t, "No projections yet.", f.s.HandleCommand(ctx, "/projections ETH"))

	status := f.s.HandleCommand(ctx, "/status")
	assert.Contains(t, status, "Series status")
	assert.Contains(t, status, "Last recorded run: XXBTZUSD 60m")
	assert.Contains(t, status, "XXBTZUSD 1h: $131.00 at 94% of range $100.00–$133.00")

	assert.Contains(t, f.s.HandleCommand(ctx, "hello"), "Available commands")
	assert.Contains(t, f.s.HandleCommand(ctx, "  "), "Available commands")
}

func TestRegister(t *testing.T) {
	f := newFixture(&symbolFetcher{}, btc)
	assert.Error(t, f.s.Register(context.Background(), "not a cron"))
	require.NoError(t, f.s.Register(context.Background(), "*/15 * * * * *"))
	assert.Len(t, f.s.Cron.Entries(), 1)
}

func TestRefreshJob_SkipsWhileRunning(t *testing.T) {
	f := newFixture(&symbolFetcher{}, btc)
	f.s.running.Store(true)
	f.s.refreshJob(context.Background())
	assert.Empty(t, f.rec.runs)

	f.s.running.Store(false)
	f.s.refreshJob(context.Background())
	assert.Len(t, f.rec.runs, 1)
	assert.False(t, strings.Contains(f.s.HandleCommand(context.Background(), "/status"), "No projections yet."))
}
