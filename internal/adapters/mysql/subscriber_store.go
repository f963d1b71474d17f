package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// SubscriberStore clears recipient-side suppression state in the
// platform schema.
type SubscriberStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSubscriberStore creates a new subscriber store.
func NewSubscriberStore(db *sql.DB, logger *zap.Logger) *SubscriberStore {
	return &SubscriberStore{db: db, logger: logger}
}

// RemoveFromBlacklist deletes any blacklist row for the address. A
// missing row is not an error.
func (s *SubscriberStore) RemoveFromBlacklist(ctx context.Context, email string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM email_blacklist WHERE email = ?
	`, email)
	if err != nil {
		return fmt.Errorf("failed to remove %s from blacklist: %w", email, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected > 0 {
		s.logger.Info("Removed recipient from blacklist", zap.String("email", email))
	}
	return nil
}

// EnsureSubscribed forces the address to confirmed status on the test
// list, inserting the subscriber row when it does not exist yet.
func (s *SubscriberStore) EnsureSubscribed(ctx context.Context, email string, listID int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE list_subscribers
		SET status = 'confirmed'
		WHERE email = ? AND list_id = ?
	`, email, listID)
	if err != nil {
		return fmt.Errorf("failed to confirm subscription of %s on list %d: %w", email, listID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to confirm subscription of %s on list %d: %w", email, listID, err)
	}
	if affected > 0 {
		return nil
	}

	// Row may simply not exist yet; an unchanged confirmed row also
	// reports zero affected, so tolerate a duplicate insert race.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO list_subscribers (email, list_id, status, date_added)
		VALUES (?, ?, 'confirmed', NOW())
		ON DUPLICATE KEY UPDATE status = 'confirmed'
	`, email, listID)
	if err != nil {
		return fmt.Errorf("failed to subscribe %s to list %d: %w", email, listID, err)
	}
	return nil
}
