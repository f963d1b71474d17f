package mysql

import (
	"context"
	"database/sql"
	"fmt"
)

// TrackingStore queries the platform's analytics tables for recorded
// recipient interactions.
type TrackingStore struct {
	db *sql.DB
}

// NewTrackingStore creates a new tracking store.
func NewTrackingStore(db *sql.DB) *TrackingStore {
	return &TrackingStore{db: db}
}

func (s *TrackingStore) exists(ctx context.Context, query string, campaignID int64) (bool, error) {
	var found int
	err := s.db.QueryRowContext(ctx, query, campaignID).Scan(&found)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to query tracking tables: %w", err)
	}
	return found > 0, nil
}

// HasOpen reports whether any open was recorded for the campaign.
func (s *TrackingStore) HasOpen(ctx context.Context, campaignID int64) (bool, error) {
	return s.exists(ctx, `
		SELECT COUNT(1) FROM campaign_track_opens
		WHERE campaign_id = ?
	`, campaignID)
}

// HasClick reports whether any click was recorded, joined through the
// campaign's URL set.
func (s *TrackingStore) HasClick(ctx context.Context, campaignID int64) (bool, error) {
	return s.exists(ctx, `
		SELECT COUNT(1)
		FROM campaign_track_url_clicks c
		JOIN campaign_urls u ON u.url_id = c.url_id
		WHERE u.campaign_id = ?
	`, campaignID)
}

// HasUnsubscribe reports whether any unsubscribe was recorded.
func (s *TrackingStore) HasUnsubscribe(ctx context.Context, campaignID int64) (bool, error) {
	return s.exists(ctx, `
		SELECT COUNT(1) FROM campaign_track_unsubscribes
		WHERE campaign_id = ?
	`, campaignID)
}

// HasBounce reports whether any bounce was logged.
func (s *TrackingStore) HasBounce(ctx context.Context, campaignID int64) (bool, error) {
	return s.exists(ctx, `
		SELECT COUNT(1) FROM campaign_bounce_logs
		WHERE campaign_id = ?
	`, campaignID)
}
