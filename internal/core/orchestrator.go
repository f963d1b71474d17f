package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Stage collaborators the orchestrator sequences. Narrow interfaces so
// tests can substitute a single stage without faking the whole world.
type (
	// Preparator clears blocking preconditions before injection.
	Preparator interface {
		Prepare(ctx context.Context, server *DeliveryServer) error
	}

	// Injector creates the tagged probe campaign.
	Injector interface {
		Inject(ctx context.Context, server *DeliveryServer) (*ProbeCampaign, error)
	}

	// Retriever polls the mailbox for the tagged probe message.
	Retriever interface {
		Retrieve(ctx context.Context, subjectTag string) (*RetrievedMessage, error)
	}

	// Simulator replays recipient interactions against the message.
	Simulator interface {
		Simulate(ctx context.Context, msg *RetrievedMessage) (*InteractionOutcome, error)
	}

	// InteractionValidator confirms the tracking tables recorded the
	// interactions.
	InteractionValidator interface {
		Validate(ctx context.Context, campaignID int64) error
	}

	// HeaderValidator checks the message's sending-identity headers.
	HeaderValidator interface {
		Validate(msg *RetrievedMessage, server *DeliveryServer) error
	}
)

// TestOrchestrator runs the full test pipeline for one delivery server
// and commits the verdict. The pipeline is linear and fail-fast: the
// first stage error ends the run, persists a Failed verdict, and
// demotes the server to inactive.
type TestOrchestrator struct {
	servers        DeliveryServerStore
	runs           TestRunStore
	groups         CustomerGroupStore
	preparator     Preparator
	injector       Injector
	retriever      Retriever
	simulator      Simulator
	interactions   InteractionValidator
	headers        HeaderValidator
	logger         *zap.Logger
	defaultGroupID int64
}

// NewTestOrchestrator creates a new test orchestrator. A defaultGroupID
// of zero disables the post-success group mapping.
func NewTestOrchestrator(
	servers DeliveryServerStore,
	runs TestRunStore,
	groups CustomerGroupStore,
	preparator Preparator,
	injector Injector,
	retriever Retriever,
	simulator Simulator,
	interactions InteractionValidator,
	headers HeaderValidator,
	logger *zap.Logger,
	defaultGroupID int64,
) *TestOrchestrator {
	return &TestOrchestrator{
		servers:        servers,
		runs:           runs,
		groups:         groups,
		preparator:     preparator,
		injector:       injector,
		retriever:      retriever,
		simulator:      simulator,
		interactions:   interactions,
		headers:        headers,
		logger:         logger,
		defaultGroupID: defaultGroupID,
	}
}

// RunForServer executes the pipeline for the given server id. Returns
// nil after a Successful verdict is persisted; otherwise returns a
// TerminalTestFailure after persisting a Failed verdict and demoting
// the server. A missing server returns ErrNotFound with no verdict,
// since there is nothing to demote.
func (o *TestOrchestrator) RunForServer(ctx context.Context, serverID int64) error {
	server, err := o.servers.GetByID(ctx, serverID)
	if err != nil {
		return fmt.Errorf("loading delivery server %d: %w", serverID, err)
	}

	o.logger.Info("Starting delivery test",
		zap.Int64("server_id", server.ID),
		zap.String("from_email", server.FromEmail))

	if err := o.preparator.Prepare(ctx, server); err != nil {
		return o.fail(ctx, server, "prepare", err)
	}

	probe, err := o.injector.Inject(ctx, server)
	if err != nil {
		return o.fail(ctx, server, "inject", err)
	}

	msg, err := o.retriever.Retrieve(ctx, probe.SubjectTag)
	if err != nil {
		return o.fail(ctx, server, "retrieve", err)
	}

	if _, err := o.simulator.Simulate(ctx, msg); err != nil {
		return o.fail(ctx, server, "interact", err)
	}

	if err := o.interactions.Validate(ctx, probe.CampaignID); err != nil {
		return o.fail(ctx, server, "audit", err)
	}

	if err := o.headers.Validate(msg, server); err != nil {
		return o.fail(ctx, server, "headers", err)
	}

	return o.succeed(ctx, server)
}

// succeed records the Successful verdict and, when configured, maps the
// server into the default customer group. The mapping is an idempotent
// upsert so repeated successes never hit a duplicate-row error.
func (o *TestOrchestrator) succeed(ctx context.Context, server *DeliveryServer) error {
	if _, err := o.runs.Record(ctx, server.ID, VerdictSuccessful, ""); err != nil {
		return fmt.Errorf("recording successful verdict for server %d: %w", server.ID, err)
	}

	if o.defaultGroupID != 0 {
		exists, err := o.groups.Exists(ctx, server.ID, o.defaultGroupID)
		if err != nil {
			return fmt.Errorf("checking group mapping for server %d: %w", server.ID, err)
		}
		if !exists {
			if err := o.groups.Add(ctx, server.ID, o.defaultGroupID); err != nil {
				return fmt.Errorf("adding server %d to group %d: %w", server.ID, o.defaultGroupID, err)
			}
		}
	}

	o.logger.Info("Delivery test passed", zap.Int64("server_id", server.ID))
	return nil
}

// fail commits the Failed verdict, demotes the server, and wraps the
// stage error for the caller. Verdict and demotion problems are logged
// but never mask the original failure.
func (o *TestOrchestrator) fail(ctx context.Context, server *DeliveryServer, stage string, cause error) error {
	o.logger.Error("Delivery test failed",
		zap.Int64("server_id", server.ID),
		zap.String("stage", stage),
		zap.Error(cause))

	if _, err := o.runs.Record(ctx, server.ID, VerdictFailed, cause.Error()); err != nil {
		o.logger.Error("Failed to record verdict",
			zap.Int64("server_id", server.ID),
			zap.Error(err))
	}

	if err := o.servers.SetStatus(ctx, server.ID, ServerStatusInactive); err != nil {
		o.logger.Error("Failed to demote delivery server",
			zap.Int64("server_id", server.ID),
			zap.Error(err))
	}

	return &TerminalTestFailure{ServerID: server.ID, Stage: stage, Err: cause}
}
