package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/delivery-monitor/internal/core"
)

// DeliveryServerStore reads and updates the platform's delivery_servers
// table.
type DeliveryServerStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDeliveryServerStore creates a new delivery server store.
func NewDeliveryServerStore(db *sql.DB, logger *zap.Logger) *DeliveryServerStore {
	return &DeliveryServerStore{db: db, logger: logger}
}

const deliveryServerColumns = `server_id, from_email, from_name, status, last_updated`

func scanServer(row interface{ Scan(...any) error }) (*core.DeliveryServer, error) {
	var server core.DeliveryServer
	var status string
	if err := row.Scan(&server.ID, &server.FromEmail, &server.FromName, &status, &server.LastUpdated); err != nil {
		return nil, err
	}
	server.Status = core.ServerStatus(status)
	return &server, nil
}

func (s *DeliveryServerStore) queryServers(ctx context.Context, query string, args ...any) ([]core.DeliveryServer, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query delivery servers: %w", err)
	}
	defer rows.Close()

	var servers []core.DeliveryServer
	for rows.Next() {
		server, err := scanServer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery server: %w", err)
		}
		servers = append(servers, *server)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate delivery servers: %w", err)
	}
	return servers, nil
}

// ListActive returns every server with status active.
func (s *DeliveryServerStore) ListActive(ctx context.Context) ([]core.DeliveryServer, error) {
	return s.queryServers(ctx, `
		SELECT `+deliveryServerColumns+`
		FROM delivery_servers
		WHERE status = 'active'
		ORDER BY server_id
	`)
}

// ListActiveUpdatedWithin returns active servers reconfigured within
// the window.
func (s *DeliveryServerStore) ListActiveUpdatedWithin(ctx context.Context, window time.Duration) ([]core.DeliveryServer, error) {
	return s.queryServers(ctx, `
		SELECT `+deliveryServerColumns+`
		FROM delivery_servers
		WHERE status = 'active'
		  AND last_updated >= NOW() - INTERVAL ? SECOND
		ORDER BY server_id
	`, int64(window.Seconds()))
}

// ListActiveUntestedWithin returns active servers with no verdict row
// recorded within the window.
func (s *DeliveryServerStore) ListActiveUntestedWithin(ctx context.Context, window time.Duration) ([]core.DeliveryServer, error) {
	return s.queryServers(ctx, `
		SELECT `+deliveryServerColumns+`
		FROM delivery_servers ds
		WHERE ds.status = 'active'
		  AND NOT EXISTS (
			SELECT 1 FROM delivery_monitor_test_runs tr
			WHERE tr.server_id = ds.server_id
			  AND tr.recorded_at >= NOW() - INTERVAL ? SECOND
		  )
		ORDER BY ds.server_id
	`, int64(window.Seconds()))
}

// GetByID returns the server or core.ErrNotFound.
func (s *DeliveryServerStore) GetByID(ctx context.Context, id int64) (*core.DeliveryServer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+deliveryServerColumns+`
		FROM delivery_servers
		WHERE server_id = ?
	`, id)
	server, err := scanServer(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load delivery server %d: %w", id, err)
	}
	return server, nil
}

// SetStatus updates the server's lifecycle status.
func (s *DeliveryServerStore) SetStatus(ctx context.Context, id int64, status core.ServerStatus) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE delivery_servers
		SET status = ?, last_updated = NOW()
		WHERE server_id = ?
	`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update status of delivery server %d: %w", id, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return core.ErrNotFound
	}
	s.logger.Info("Delivery server status updated",
		zap.Int64("server_id", id),
		zap.String("status", string(status)))
	return nil
}

// SetUnlimitedQuota zeroes the per-period quota columns; the platform
// treats zero as unlimited.
func (s *DeliveryServerStore) SetUnlimitedQuota(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE delivery_servers
		SET hourly_quota = 0, daily_quota = 0, monthly_quota = 0
		WHERE server_id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to lift quota of delivery server %d: %w", id, err)
	}
	return nil
}
