package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// DatabasePreparator clears the preconditions that would suppress the
// probe before it is sent: a blacklist row for the recipient, a
// non-confirmed subscription on the test list, and a sending quota.
type DatabasePreparator struct {
	servers     DeliveryServerStore
	subscribers SubscriberStore
	logger      *zap.Logger
	recipient   string
	listID      int64
}

// NewDatabasePreparator creates a new database preparator.
func NewDatabasePreparator(
	servers DeliveryServerStore,
	subscribers SubscriberStore,
	logger *zap.Logger,
	recipient string,
	listID int64,
) *DatabasePreparator {
	return &DatabasePreparator{
		servers:     servers,
		subscribers: subscribers,
		logger:      logger,
		recipient:   recipient,
		listID:      listID,
	}
}

// Prepare removes every blocking precondition for the given server.
func (p *DatabasePreparator) Prepare(ctx context.Context, server *DeliveryServer) error {
	if err := p.subscribers.RemoveFromBlacklist(ctx, p.recipient); err != nil {
		return fmt.Errorf("clearing blacklist for %s: %w", p.recipient, err)
	}

	if err := p.subscribers.EnsureSubscribed(ctx, p.recipient, p.listID); err != nil {
		return fmt.Errorf("confirming subscription for %s on list %d: %w", p.recipient, p.listID, err)
	}

	if err := p.servers.SetUnlimitedQuota(ctx, server.ID); err != nil {
		return fmt.Errorf("lifting quota for server %d: %w", server.ID, err)
	}

	p.logger.Debug("Preconditions cleared",
		zap.Int64("server_id", server.ID),
		zap.String("recipient", p.recipient))
	return nil
}
