package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CampaignInjector creates a freshly tagged probe campaign for a
// delivery server. Row creation is delegated to the platform's
// campaign-creation procedure via CampaignStore.
type CampaignInjector struct {
	campaigns  CampaignStore
	logger     *zap.Logger
	listID     int64
	customerID int64
	templateID int64
	preHeader  string
}

// NewCampaignInjector creates a new campaign injector.
func NewCampaignInjector(
	campaigns CampaignStore,
	logger *zap.Logger,
	listID int64,
	customerID int64,
	templateID int64,
	preHeader string,
) *CampaignInjector {
	return &CampaignInjector{
		campaigns:  campaigns,
		logger:     logger,
		listID:     listID,
		customerID: customerID,
		templateID: templateID,
		preHeader:  preHeader,
	}
}

// newSubjectTag returns an opaque token unique per run. The tag is the
// sole correlation key between injection, retrieval, and audit.
func newSubjectTag() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Inject generates a tag, embeds it in the subject, and asks the
// platform to create the campaign. Fails with InjectionError when the
// procedure returns no campaign id.
func (i *CampaignInjector) Inject(ctx context.Context, server *DeliveryServer) (*ProbeCampaign, error) {
	tag := newSubjectTag()
	domain := server.Domain()
	subject := fmt.Sprintf("Test Email from %s [%s]", domain, tag)

	draft := CampaignDraft{
		ListID:           i.listID,
		CustomerID:       i.customerID,
		TemplateID:       i.templateID,
		Name:             fmt.Sprintf("Delivery test %s", tag),
		Subject:          subject,
		PreHeader:        i.preHeader,
		FromName:         domain,
		FromEmail:        server.FromEmail,
		DeliveryServerID: server.ID,
	}

	campaignID, err := i.campaigns.Create(ctx, draft)
	if err != nil {
		return nil, &InjectionError{ServerID: server.ID, Reason: err.Error()}
	}
	if campaignID == 0 {
		return nil, &InjectionError{ServerID: server.ID, Reason: "campaign procedure returned no campaign id"}
	}

	i.logger.Info("Probe campaign injected",
		zap.Int64("server_id", server.ID),
		zap.Int64("campaign_id", campaignID),
		zap.String("tag", tag))

	return &ProbeCampaign{
		SubjectTag: tag,
		CampaignID: campaignID,
		CreatedAt:  time.Now(),
	}, nil
}
