package core

import (
	"context"
	"time"
)

// DeliveryServerStore reads delivery servers from the platform schema
// and writes their lifecycle status.
type DeliveryServerStore interface {
	// ListActive returns every server with status active.
	ListActive(ctx context.Context) ([]DeliveryServer, error)

	// ListActiveUpdatedWithin returns active servers whose configuration
	// changed within the given window.
	ListActiveUpdatedWithin(ctx context.Context, window time.Duration) ([]DeliveryServer, error)

	// ListActiveUntestedWithin returns active servers with no verdict
	// recorded within the given window.
	ListActiveUntestedWithin(ctx context.Context, window time.Duration) ([]DeliveryServer, error)

	// GetByID returns the server or ErrNotFound.
	GetByID(ctx context.Context, id int64) (*DeliveryServer, error)

	// SetStatus updates the server's lifecycle status.
	SetStatus(ctx context.Context, id int64, status ServerStatus) error

	// SetUnlimitedQuota lifts the server's sending quota so the probe
	// cannot be throttled away.
	SetUnlimitedQuota(ctx context.Context, id int64) error
}

// CampaignDraft carries everything the platform's campaign-creation
// procedure needs to build a probe campaign.
type CampaignDraft struct {
	ListID           int64
	CustomerID       int64
	TemplateID       int64
	Name             string
	Subject          string
	PreHeader        string
	FromName         string
	FromEmail        string
	DeliveryServerID int64
}

// CampaignStore creates probe campaigns inside the mail platform. Row
// creation is delegated to the platform's stored procedure.
type CampaignStore interface {
	// Create returns the platform-assigned campaign id, or zero when
	// the procedure created nothing.
	Create(ctx context.Context, draft CampaignDraft) (int64, error)
}

// MailboxStore is the recipient mailbox the probe lands in.
type MailboxStore interface {
	// ListMessageIDs returns the ids of every message in the inbox.
	ListMessageIDs(ctx context.Context) ([]uint32, error)

	// FetchRaw returns the full raw RFC 5322 bytes of one message.
	FetchRaw(ctx context.Context, id uint32) ([]byte, error)
}

// TrackingStore queries the platform's own analytics tables.
type TrackingStore interface {
	HasOpen(ctx context.Context, campaignID int64) (bool, error)
	HasClick(ctx context.Context, campaignID int64) (bool, error)
	HasUnsubscribe(ctx context.Context, campaignID int64) (bool, error)
	HasBounce(ctx context.Context, campaignID int64) (bool, error)
}

// SubscriberStore clears recipient-side preconditions that would stop
// the probe from being sent or delivered.
type SubscriberStore interface {
	// RemoveFromBlacklist deletes any blacklist row for the address.
	RemoveFromBlacklist(ctx context.Context, email string) error

	// EnsureSubscribed forces the address to confirmed status on the
	// test list.
	EnsureSubscribed(ctx context.Context, email string, listID int64) error
}

// TestRunStore persists verdicts. Append-only: one row per run.
type TestRunStore interface {
	// Record writes one verdict row and returns its id.
	Record(ctx context.Context, serverID int64, status VerdictStatus, errorMessage string) (int64, error)

	// ListByServer returns the most recent verdicts for a server,
	// newest first.
	ListByServer(ctx context.Context, serverID int64, limit int) ([]TestVerdict, error)
}

// CustomerGroupStore manages the platform's customer-group mapping.
type CustomerGroupStore interface {
	Exists(ctx context.Context, serverID, groupID int64) (bool, error)
	Add(ctx context.Context, serverID, groupID int64) error
}
