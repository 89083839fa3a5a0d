package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRefresh(t *testing.T) {
	m := NewMetrics()
	m.ObserveRefresh("XXBTZUSD", 15, "ok", 3, 64000.5, 120*time.Millisecond)
	m.ObserveRefresh("XXBTZUSD", 15, "no_pattern", 0, 64001, 80*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RefreshTotal.WithLabelValues("XXBTZUSD", "15", "ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ProjectionLines.WithLabelValues("XXBTZUSD", "15")))
	assert.Equal(t, 64001.0, testutil.ToFloat64(m.LastClose.WithLabelValues("XXBTZUSD", "15")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.RefreshTotal))
}

func TestHandler(t *testing.T) {
	m := NewMetrics()
	m.FetchFailures.WithLabelValues("kraken").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `sentinel_fetch_failures_total{source="kraken"} 1`)
}

func TestHealthStatus(t *testing.T) {
	h := NewHealthStatus()
	assert.Equal(t, "starting", h.Snapshot().Status)

	h.SetLastRefresh(time.Now())
	assert.Equal(t, "ok", h.Snapshot().Status)

	h.SetLastError(errors.New("kraken down"))
	s := h.Snapshot()
	assert.Equal(t, "degraded", s.Status)
	assert.Equal(t, "kraken down", s.LastError)
}
