// Package sqlite keeps verdict history in a local SQLite file, for
// deployments that want the monitor's bookkeeping out of the platform
// database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mikey/delivery-monitor/internal/core"
)

// TestRunStore is a SQLite implementation of the TestRunStore port.
type TestRunStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTestRunStore creates a new SQLite test run store.
func NewTestRunStore(dbPath string, logger *zap.Logger) (*TestRunStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS test_runs (
			run_id INTEGER PRIMARY KEY AUTOINCREMENT,
			server_id INTEGER NOT NULL,
			status TEXT NOT NULL,
			error_message TEXT,
			recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_server_recorded ON test_runs(server_id, recorded_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &TestRunStore{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *TestRunStore) Close() error {
	return s.db.Close()
}

// Record writes one verdict row and returns its id.
func (s *TestRunStore) Record(ctx context.Context, serverID int64, status core.VerdictStatus, errorMessage string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO test_runs (server_id, status, error_message, recorded_at)
		VALUES (?, ?, ?, ?)
	`, serverID, string(status), errorMessage, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to record verdict for server %d: %w", serverID, err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read verdict id for server %d: %w", serverID, err)
	}
	s.logger.Debug("Verdict recorded",
		zap.Int64("run_id", runID),
		zap.Int64("server_id", serverID),
		zap.String("status", string(status)))
	return runID, nil
}

// ListByServer returns the most recent verdicts, newest first.
func (s *TestRunStore) ListByServer(ctx context.Context, serverID int64, limit int) ([]core.TestVerdict, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, server_id, status, COALESCE(error_message, ''), recorded_at
		FROM test_runs
		WHERE server_id = ?
		ORDER BY recorded_at DESC, run_id DESC
		LIMIT ?
	`, serverID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list verdicts for server %d: %w", serverID, err)
	}
	defer rows.Close()

	var verdicts []core.TestVerdict
	for rows.Next() {
		var v core.TestVerdict
		var status string
		if err := rows.Scan(&v.RunID, &v.ServerID, &status, &v.ErrorMessage, &v.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan verdict: %w", err)
		}
		v.Status = core.VerdictStatus(status)
		verdicts = append(verdicts, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate verdicts: %w", err)
	}
	return verdicts, nil
}
