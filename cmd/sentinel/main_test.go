package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"PatternSentinel/internal/collector"
	"PatternSentinel/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const mockConfig = `
data_source:
  provider: mock
watch:
  - symbol: TEST
    interval: 60
projection:
  horizon: 4
  lines: 2
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestProjectCommand_CSV(t *testing.T) {
	path := writeConfig(t, mockConfig)
	out, err := execute(t, "--config", path, "project", "--format", "csv")
	require.NoError(t, err)

	rows := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "label,timestamp,close", rows[0])
	// 2 lines of anchor + 4 steps.
	assert.Len(t, rows, 1+2*5)
}

func TestProjectCommand_JSONWithFlags(t *testing.T) {
	path := writeConfig(t, mockConfig)
	out, err := execute(t, "--config", path, "project", "-s", "OTHER", "-i", "15", "--lines", "1", "--policy", "variable", "-o", "json")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, `"label"`))
}

func TestProjectCommand_BadFormat(t *testing.T) {
	path := writeConfig(t, mockConfig)
	_, err := execute(t, "--config", path, "project", "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestChartCommand(t *testing.T) {
	path := writeConfig(t, mockConfig)
	html := filepath.Join(t.TempDir(), "out.html")
	out, err := execute(t, "--config", path, "chart", "--out", html)
	require.NoError(t, err)
	assert.Contains(t, out, "chart written")

	raw, err := os.ReadFile(html)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "TEST 60m")
}

func TestBuildFetcher(t *testing.T) {
	cfg := &config.Config{}
	cfg.DataSource.Provider = "mock"
	f, err := buildFetcher(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "mock", f.Name())

	cfg.DataSource.Provider = "kraken"
	f, err = buildFetcher(cfg, zap.NewNop())
	require.NoError(t, err)
	rf, ok := f.(*collector.RetryFetcher)
	require.True(t, ok)
	assert.Equal(t, "kraken", f.Name())
	assert.Equal(t, 0, rf.MaxRetries)

	retries := 4
	cfg.DataSource.MaxRetries = &retries
	f, err = buildFetcher(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 4, f.(*collector.RetryFetcher).MaxRetries)

	cfg.DataSource.Provider = "ftp"
	_, err = buildFetcher(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestSeriesFromConfigDedupes(t *testing.T) {
	cfg := &config.Config{Watch: []config.Watch{{Symbol: "A", Interval: 1}, {Symbol: "A", Interval: 1}, {Symbol: "A", Interval: 15}}}
	assert.Len(t, seriesFromConfig(cfg), 2)
}
