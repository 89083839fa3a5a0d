package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists refresh activity to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so the API can read while the scheduler writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS projection_runs (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			batch_id     TEXT NOT NULL,
			symbol       TEXT NOT NULL,
			interval_min INTEGER NOT NULL,
			source       TEXT,
			pattern      TEXT,
			history_len  INTEGER,
			lines        INTEGER,
			anchor_close REAL,
			consensus    TEXT,
			duration_ms  INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_series ON projection_runs(symbol, interval_min, timestamp)`,

		`CREATE TABLE IF NOT EXISTS refresh_failures (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			symbol       TEXT NOT NULL,
			interval_min INTEGER NOT NULL,
			source       TEXT,
			stage        TEXT,
			error        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_failures_ts ON refresh_failures(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func stamp(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Unix()
}

func (r *SQLiteRecorder) RecordRun(evt *RunEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO projection_runs
		(timestamp, batch_id, symbol, interval_min, source, pattern, history_len, lines, anchor_close, consensus, duration_ms)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		stamp(evt.At), evt.BatchID, evt.Symbol, evt.Interval, evt.Source, evt.Pattern,
		evt.HistoryLen, evt.Lines, evt.AnchorClose, evt.Consensus, evt.Duration.Milliseconds(),
	)
	return err
}

func (r *SQLiteRecorder) RecordFailure(evt *FailureEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO refresh_failures
		(timestamp, symbol, interval_min, source, stage, error)
		VALUES (?,?,?,?,?,?)`,
		stamp(evt.At), evt.Symbol, evt.Interval, evt.Source, evt.Stage, evt.Error,
	)
	return err
}

// RecentRuns returns up to limit runs, newest first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunEvent, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(`SELECT timestamp, batch_id, symbol, interval_min, source, pattern,
		history_len, lines, anchor_close, consensus, duration_ms
		FROM projection_runs ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunEvent
	for rows.Next() {
		var (
			e      RunEvent
			ts, ms int64
		)
		if err := rows.Scan(&ts, &e.BatchID, &e.Symbol, &e.Interval, &e.Source, &e.Pattern,
			&e.HistoryLen, &e.Lines, &e.AnchorClose, &e.Consensus, &ms); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		e.At = time.Unix(ts, 0).UTC()
		e.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

// Ping reports whether the database is reachable.
func (r *SQLiteRecorder) Ping() error { return r.db.Ping() }

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}
