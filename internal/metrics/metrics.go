package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the projection service.
type Metrics struct {
	RefreshTotal    *prometheus.CounterVec // labels: symbol, interval, outcome
	FetchFailures   *prometheus.CounterVec // labels: source
	ProjectionLines *prometheus.CounterVec // labels: symbol, interval
	RefreshDuration prometheus.Histogram
	LastClose       *prometheus.GaugeVec // labels: symbol, interval
	WSClients       prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates the metrics on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_refresh_total",
			Help: "Refresh runs by outcome (ok, no_pattern, error)",
		}, []string{"symbol", "interval", "outcome"}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_fetch_failures_total",
			Help: "Quote fetches that failed after retries",
		}, []string{"source"}),
		ProjectionLines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_projection_lines_total",
			Help: "Projection lines generated",
		}, []string{"symbol", "interval"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_refresh_duration_seconds",
			Help:    "Time to fetch and project one series",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		LastClose: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sentinel_last_close",
			Help: "Latest close seen per series",
		}, []string{"symbol", "interval"}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_ws_clients",
			Help: "Connected WebSocket clients",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.RefreshTotal,
		m.FetchFailures,
		m.ProjectionLines,
		m.RefreshDuration,
		m.LastClose,
		m.WSClients,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRefresh records one refresh of a series.
func (m *Metrics) ObserveRefresh(symbol string, interval int, outcome string, lines int, lastClose float64, took time.Duration) {
	iv := strconv.Itoa(interval)
	m.RefreshTotal.WithLabelValues(symbol, iv, outcome).Inc()
	m.RefreshDuration.Observe(took.Seconds())
	if lines > 0 {
		m.ProjectionLines.WithLabelValues(symbol, iv).Add(float64(lines))
	}
	if lastClose > 0 {
		m.LastClose.WithLabelValues(symbol, iv).Set(lastClose)
	}
}

// HealthStatus tracks liveness for /healthz.
type HealthStatus struct {
	mu          sync.RWMutex
	started     time.Time
	lastRefresh time.Time
	lastError   string
	sqliteOK    bool
}

// NewHealthStatus creates a health tracker started now.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{started: time.Now()}
}

func (h *HealthStatus) SetLastRefresh(t time.Time) {
	h.mu.Lock()
	h.lastRefresh = t
	h.lastError = ""
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastError(err error) {
	h.mu.Lock()
	if err != nil {
		h.lastError = err.Error()
	}
	h.mu.Unlock()
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.sqliteOK = v
	h.mu.Unlock()
}

// Snapshot is the JSON body served by /healthz.
type Snapshot struct {
	Status      string    `json:"status"`
	Uptime      string    `json:"uptime"`
	LastRefresh time.Time `json:"last_refresh,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	SQLiteOK    bool      `json:"sqlite_ok"`
}

// Snapshot reports "ok" once a refresh has succeeded and no error followed it.
func (h *HealthStatus) Snapshot() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "ok"
	switch {
	case h.lastRefresh.IsZero():
		status = "starting"
	case h.lastError != "":
		status = "degraded"
	}
	return Snapshot{
		Status:      status,
		Uptime:      time.Since(h.started).Truncate(time.Second).String(),
		LastRefresh: h.lastRefresh,
		LastError:   h.lastError,
		SQLiteOK:    h.sqliteOK,
	}
}
