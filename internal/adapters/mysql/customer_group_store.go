package mysql

import (
	"context"
	"database/sql"
	"fmt"
)

// CustomerGroupStore manages the platform's delivery-server to
// customer-group mapping.
type CustomerGroupStore struct {
	db *sql.DB
}

// NewCustomerGroupStore creates a new customer group store.
func NewCustomerGroupStore(db *sql.DB) *CustomerGroupStore {
	return &CustomerGroupStore{db: db}
}

// Exists reports whether the (server, group) mapping is present.
func (s *CustomerGroupStore) Exists(ctx context.Context, serverID, groupID int64) (bool, error) {
	var found int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM delivery_server_customer_groups
		WHERE server_id = ? AND group_id = ?
	`, serverID, groupID).Scan(&found)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to check group mapping (%d, %d): %w", serverID, groupID, err)
	}
	return found > 0, nil
}

// Add inserts the (server, group) mapping.
func (s *CustomerGroupStore) Add(ctx context.Context, serverID, groupID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO delivery_server_customer_groups (server_id, group_id, date_added)
		VALUES (?, ?, NOW())
	`, serverID, groupID)
	if err != nil {
		return fmt.Errorf("failed to add group mapping (%d, %d): %w", serverID, groupID, err)
	}
	return nil
}
