package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/delivery-monitor/internal/config"
	"github.com/mikey/delivery-monitor/internal/core"
	"github.com/mikey/delivery-monitor/internal/mailmsg"
)

// PipelineFactory assembles the test workflow components with their
// per-component retry policies taken from configuration
type PipelineFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewPipelineFactory creates a new pipeline factory
func NewPipelineFactory(cfg *config.Config, logger *zap.Logger) *PipelineFactory {
	return &PipelineFactory{
		cfg:    cfg,
		logger: logger,
	}
}

func (f *PipelineFactory) retryPolicy(prefix string) (core.RetryPolicy, error) {
	interval, err := f.cfg.GetDuration(prefix + ".interval")
	if err != nil {
		return core.RetryPolicy{}, fmt.Errorf("invalid %s interval: %w", prefix, err)
	}
	return core.RetryPolicy{
		MaxAttempts: f.cfg.GetInt(prefix + ".max_attempts"),
		Interval:    interval,
	}, nil
}

// CreateOrchestrator builds the full pipeline for the given stores and
// mailbox.
func (f *PipelineFactory) CreateOrchestrator(
	stores *PlatformStores,
	runs core.TestRunStore,
	mailbox core.MailboxStore,
) (*core.TestOrchestrator, error) {
	probe := f.cfg.GetProbe()

	retrievalPolicy, err := f.retryPolicy("retrieval")
	if err != nil {
		return nil, err
	}
	bouncePolicy, err := f.retryPolicy("bounce")
	if err != nil {
		return nil, err
	}
	replayTimeout, err := f.cfg.GetDuration("replay.timeout")
	if err != nil {
		return nil, fmt.Errorf("invalid replay timeout: %w", err)
	}

	preparator := core.NewDatabasePreparator(
		stores.Servers, stores.Subscribers, f.logger, probe.Recipient, probe.ListID)
	injector := core.NewCampaignInjector(
		stores.Campaigns, f.logger, probe.ListID, probe.CustomerID, probe.TemplateID, probe.PreHeader)
	retriever := core.NewMessageRetriever(mailbox, mailmsg.Parse, f.logger, retrievalPolicy)
	simulator := core.NewInteractionSimulator(
		f.logger,
		f.cfg.GetString("replay.user_agent"),
		replayTimeout,
		f.cfg.GetInt("replay.max_redirects"))
	interactions := core.NewInteractionAuditor(stores.Tracking, f.logger, bouncePolicy)
	headers := core.NewHeaderAuditor(f.logger)

	return core.NewTestOrchestrator(
		stores.Servers,
		runs,
		stores.Groups,
		preparator,
		injector,
		retriever,
		simulator,
		interactions,
		headers,
		f.logger,
		probe.GroupID,
	), nil
}

// CreateScanner builds the due-server scanner over the orchestrator.
func (f *PipelineFactory) CreateScanner(
	stores *PlatformStores,
	orchestrator *core.TestOrchestrator,
) (*core.DeliveryServerScanner, error) {
	updatedWithin, err := f.cfg.GetDuration("scanner.updated_within")
	if err != nil {
		return nil, fmt.Errorf("invalid scanner updated_within: %w", err)
	}
	untestedWithin, err := f.cfg.GetDuration("scanner.untested_within")
	if err != nil {
		return nil, fmt.Errorf("invalid scanner untested_within: %w", err)
	}

	return core.NewDeliveryServerScanner(
		stores.Servers, orchestrator, f.logger, updatedWithin, untestedWithin), nil
}
