package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// InteractionAuditor checks the platform's own tracking tables for the
// four audit signals tied to a campaign. All four are mandatory: unlike
// the simulation step, this is ground truth in the platform's system of
// record, so nothing is tolerated missing.
type InteractionAuditor struct {
	tracking     TrackingStore
	logger       *zap.Logger
	bouncePolicy RetryPolicy
}

// NewInteractionAuditor creates a new interaction auditor. bouncePolicy
// bounds the dedicated bounce retry loop; bounce processing is
// asynchronous on the platform side, so the single-check margin used
// for the other three signals is not enough for it.
func NewInteractionAuditor(tracking TrackingStore, logger *zap.Logger, bouncePolicy RetryPolicy) *InteractionAuditor {
	return &InteractionAuditor{
		tracking:     tracking,
		logger:       logger,
		bouncePolicy: bouncePolicy,
	}
}

// Validate confirms all four signals for the campaign. Open, click, and
// unsubscribe are each checked once; bounce is retried per the bounce
// policy. Fails with AuditValidationFailure naming the missing signal.
func (a *InteractionAuditor) Validate(ctx context.Context, campaignID int64) error {
	checks := []struct {
		signal InteractionSignal
		query  func(context.Context, int64) (bool, error)
	}{
		{SignalOpen, a.tracking.HasOpen},
		{SignalClick, a.tracking.HasClick},
		{SignalUnsubscribe, a.tracking.HasUnsubscribe},
	}
	for _, check := range checks {
		recorded, err := check.query(ctx, campaignID)
		if err != nil {
			return fmt.Errorf("querying %s records for campaign %d: %w", check.signal, campaignID, err)
		}
		if !recorded {
			return &AuditValidationFailure{
				CampaignID: campaignID,
				Reason:     fmt.Sprintf("No %s records found", check.signal),
			}
		}
		a.logger.Debug("Audit signal confirmed",
			zap.Int64("campaign_id", campaignID),
			zap.String("signal", string(check.signal)))
	}

	return a.validateBounce(ctx, campaignID)
}

func (a *InteractionAuditor) validateBounce(ctx context.Context, campaignID int64) error {
	_, err := Retry(ctx, a.bouncePolicy, func(ctx context.Context, attempt int) (struct{}, error) {
		recorded, err := a.tracking.HasBounce(ctx, campaignID)
		if err != nil {
			return struct{}{}, fmt.Errorf("querying bounce records for campaign %d: %w", campaignID, err)
		}
		if !recorded {
			a.logger.Debug("Bounce record not yet present",
				zap.Int64("campaign_id", campaignID),
				zap.Int("attempt", attempt))
			return struct{}{}, &AuditValidationFailure{
				CampaignID: campaignID,
				Reason:     fmt.Sprintf("No bounce records found after %d attempts", a.bouncePolicy.MaxAttempts),
			}
		}
		return struct{}{}, nil
	})
	if err == nil {
		a.logger.Debug("Audit signal confirmed",
			zap.Int64("campaign_id", campaignID),
			zap.String("signal", string(SignalBounce)))
	}
	return err
}
