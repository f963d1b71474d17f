package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mikey/delivery-monitor/internal/core"
)

// TestRunStore persists verdicts in the platform database. The table is
// owned by the monitor and created on first use; rows are append-only.
type TestRunStore struct {
	db *sql.DB
}

// NewTestRunStore creates a new test run store, creating the verdict
// table if it does not exist.
func NewTestRunStore(db *sql.DB) (*TestRunStore, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS delivery_monitor_test_runs (
			run_id BIGINT AUTO_INCREMENT PRIMARY KEY,
			server_id BIGINT NOT NULL,
			status VARCHAR(16) NOT NULL,
			error_message TEXT,
			recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_server_recorded (server_id, recorded_at)
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create test run table: %w", err)
	}
	return &TestRunStore{db: db}, nil
}

// Record writes one verdict row and returns its id.
func (s *TestRunStore) Record(ctx context.Context, serverID int64, status core.VerdictStatus, errorMessage string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO delivery_monitor_test_runs (server_id, status, error_message)
		VALUES (?, ?, ?)
	`, serverID, string(status), errorMessage)
	if err != nil {
		return 0, fmt.Errorf("failed to record verdict for server %d: %w", serverID, err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read verdict id for server %d: %w", serverID, err)
	}
	return runID, nil
}

// ListByServer returns the most recent verdicts, newest first.
func (s *TestRunStore) ListByServer(ctx context.Context, serverID int64, limit int) ([]core.TestVerdict, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, server_id, status, COALESCE(error_message, ''), recorded_at
		FROM delivery_monitor_test_runs
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
