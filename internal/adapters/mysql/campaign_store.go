package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/delivery-monitor/internal/core"
)

// CampaignStore delegates probe-campaign creation to the platform's
// stored procedure. The procedure owns all row bookkeeping; this store
// only passes parameters through and reads the assigned id back.
type CampaignStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCampaignStore creates a new campaign store.
func NewCampaignStore(db *sql.DB, logger *zap.Logger) *CampaignStore {
	return &CampaignStore{db: db, logger: logger}
}

// Create calls the platform's campaign-creation procedure and returns
// the new campaign id. The NULL send-at makes the platform send
// immediately.
func (s *CampaignStore) Create(ctx context.Context, draft core.CampaignDraft) (int64, error) {
	row := s.db.QueryRowContext(ctx, `
		CALL create_probe_campaign(?, ?, ?, ?, NULL, ?, ?, ?, ?, ?)
	`,
		draft.ListID,
		draft.CustomerID,
		draft.Name,
		draft.TemplateID,
		draft.FromName,
		draft.FromEmail,
		draft.DeliveryServerID,
		draft.Subject,
		draft.PreHeader,
	)

	var campaignID sql.NullInt64
	if err := row.Scan(&campaignID); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to create probe campaign: %w", err)
	}
	if !campaignID.Valid {
		return 0, nil
	}

	s.logger.Debug("Campaign procedure returned",
		zap.Int64("campaign_id", campaignID.Int64),
		zap.Int64("server_id", draft.DeliveryServerID))
	return campaignID.Int64, nil
}
