package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- store fakes ---

type statusChange struct {
	id     int64
	status ServerStatus
}

type fakeServers struct {
	servers       map[int64]*DeliveryServer
	updated       []DeliveryServer
	stale         []DeliveryServer
	statusChanges []statusChange
	quotaLifted   []int64
}

func (f *fakeServers) ListActive(ctx context.Context) ([]DeliveryServer, error) {
	var out []DeliveryServer
	for _, s := range f.servers {
		if s.Status == ServerStatusActive {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeServers) ListActiveUpdatedWithin(ctx context.Context, window time.Duration) ([]DeliveryServer, error) {
	return f.updated, nil
}

func (f *fakeServers) ListActiveUntestedWithin(ctx context.Context, window time.Duration) ([]DeliveryServer, error) {
	return f.stale, nil
}

func (f *fakeServers) GetByID(ctx context.Context, id int64) (*DeliveryServer, error) {
	server, ok := f.servers[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *server
	return &copied, nil
}

func (f *fakeServers) SetStatus(ctx context.Context, id int64, status ServerStatus) error {
	f.statusChanges = append(f.statusChanges, statusChange{id, status})
	if server, ok := f.servers[id]; ok {
		server.Status = status
	}
	return nil
}

func (f *fakeServers) SetUnlimitedQuota(ctx context.Context, id int64) error {
	f.quotaLifted = append(f.quotaLifted, id)
	return nil
}

type recordedVerdict struct {
	serverID int64
	status   VerdictStatus
	message  string
}

type fakeRuns struct {
	verdicts []recordedVerdict
}

func (f *fakeRuns) Record(ctx context.Context, serverID int64, status VerdictStatus, errorMessage string) (int64, error) {
	f.verdicts = append(f.verdicts, recordedVerdict{serverID, status, errorMessage})
	return int64(len(f.verdicts)), nil
}

func (f *fakeRuns) ListByServer(ctx context.Context, serverID int64, limit int) ([]TestVerdict, error) {
	var out []TestVerdict
	for i, v := range f.verdicts {
		if v.serverID == serverID {
			out = append(out, TestVerdict{
				RunID:        int64(i + 1),
				ServerID:     v.serverID,
				Status:       v.status,
				ErrorMessage: v.message,
			})
		}
	}
	return out, nil
}

type groupPair struct {
	serverID, groupID int64
}

type fakeGroups struct {
	existing map[groupPair]struct{}
	added    []groupPair
}

func (f *fakeGroups) Exists(ctx context.Context, serverID, groupID int64) (bool, error) {
	_, ok := f.existing[groupPair{serverID, groupID}]
	return ok, nil
}

func (f *fakeGroups) Add(ctx context.Context, serverID, groupID int64) error {
	f.added = append(f.added, groupPair{serverID, groupID})
	return nil
}

type fakeSubscribers struct {
	unblacklisted []string
	subscribed    []string
}

func (f *fakeSubscribers) RemoveFromBlacklist(ctx context.Context, email string) error {
	f.unblacklisted = append(f.unblacklisted, email)
	return nil
}

func (f *fakeSubscribers) EnsureSubscribed(ctx context.Context, email string, listID int64) error {
	f.subscribed = append(f.subscribed, email)
	return nil
}

// --- stage fakes ---

type stageRecorder struct {
	stages []string
}

type fakePreparator struct {
	rec *stageRecorder
	err error
}

func (f *fakePreparator) Prepare(ctx context.Context, server *DeliveryServer) error {
	f.rec.stages = append(f.rec.stages, "prepare")
	return f.err
}

type fakeInjector struct {
	rec   *stageRecorder
	probe *ProbeCampaign
	err   error
}

func (f *fakeInjector) Inject(ctx context.Context, server *DeliveryServer) (*ProbeCampaign, error) {
	f.rec.stages = append(f.rec.stages, "inject")
	return f.probe, f.err
}

type fakeRetriever struct {
	rec *stageRecorder
	msg *RetrievedMessage
	err error
}

func (f *fakeRetriever) Retrieve(ctx context.Context, subjectTag string) (*RetrievedMessage, error) {
	f.rec.stages = append(f.rec.stages, "retrieve")
	return f.msg, f.err
}

type fakeSimulator struct {
	rec *stageRecorder
	err error
}

func (f *fakeSimulator) Simulate(ctx context.Context, msg *RetrievedMessage) (*InteractionOutcome, error) {
	f.rec.stages = append(f.rec.stages, "interact")
	return &InteractionOutcome{}, f.err
}

type fakeInteractionValidator struct {
	rec *stageRecorder
	err error
}

func (f *fakeInteractionValidator) Validate(ctx context.Context, campaignID int64) error {
	f.rec.stages = append(f.rec.stages, "audit")
	return f.err
}

type fakeHeaderValidator struct {
	rec *stageRecorder
	err error
}

func (f *fakeHeaderValidator) Validate(msg *RetrievedMessage, server *DeliveryServer) error {
	f.rec.stages = append(f.rec.stages, "headers")
	return f.err
}

type orchestratorFixture struct {
	servers      *fakeServers
	runs         *fakeRuns
	groups       *fakeGroups
	rec          *stageRecorder
	preparator   *fakePreparator
	injector     *fakeInjector
	retriever    *fakeRetriever
	simulator    *fakeSimulator
	interactions *fakeInteractionValidator
	headers      *fakeHeaderValidator
	orchestrator *TestOrchestrator
}

func newFixture(groupID int64) *orchestratorFixture {
	rec := &stageRecorder{}
	f := &orchestratorFixture{
		servers: &fakeServers{servers: map[int64]*DeliveryServer{
			42: {ID: 42, FromEmail: "test@acme.com", Status: ServerStatusActive},
		}},
		runs:         &fakeRuns{},
		groups:       &fakeGroups{existing: map[groupPair]struct{}{}},
		rec:          rec,
		preparator:   &fakePreparator{rec: rec},
		injector:     &fakeInjector{rec: rec, probe: &ProbeCampaign{SubjectTag: "abc123", CampaignID: 900}},
		retriever:    &fakeRetriever{rec: rec, msg: &RetrievedMessage{Subject: "Test Email from acme.com [abc123]"}},
		simulator:    &fakeSimulator{rec: rec},
		interactions: &fakeInteractionValidator{rec: rec},
		headers:      &fakeHeaderValidator{rec: rec},
	}
	f.orchestrator = NewTestOrchestrator(
		f.servers, f.runs, f.groups,
		f.preparator, f.injector, f.retriever, f.simulator, f.interactions, f.headers,
		zap.NewNop(), groupID)
	return f
}

func TestRunForServerHappyPath(t *testing.T) {
	f := newFixture(2)
	err := f.orchestrator.RunForServer(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, []string{"prepare", "inject", "retrieve", "interact", "audit", "headers"}, f.rec.stages)
	require.Len(t, f.runs.verdicts, 1)
	assert.Equal(t, recordedVerdict{42, VerdictSuccessful, ""}, f.runs.verdicts[0])
	assert.Empty(t, f.servers.statusChanges)
	assert.Equal(t, []groupPair{{42, 2}}, f.groups.added)
}

func TestRunForServerGroupMappingIsIdempotent(t *testing.T) {
	f := newFixture(2)
	f.groups.existing[groupPair{42, 2}] = struct{}{}

	require.NoError(t, f.orchestrator.RunForServer(context.Background(), 42))
	assert.Empty(t, f.groups.added)
}

func TestRunForServerGroupMappingDisabled(t *testing.T) {
	f := newFixture(0)
	require.NoError(t, f.orchestrator.RunForServer(context.Background(), 42))
	assert.Empty(t, f.groups.added)
}

func TestRunForServerUnknownServer(t *testing.T) {
	f := newFixture(2)
	err := f.orchestrator.RunForServer(context.Background(), 777)
	require.ErrorIs(t, err, ErrNotFound)
	// Nothing to demote, nothing recorded.
	assert.Empty(t, f.runs.verdicts)
	assert.Empty(t, f.servers.statusChanges)
	assert.Empty(t, f.rec.stages)
}

func TestRunForServerFailFast(t *testing.T) {
	cases := []struct {
		name       string
		arrange    func(f *orchestratorFixture)
		wantStages []string
	}{
		{
			"prepare fails",
			func(f *orchestratorFixture) { f.preparator.err = errors.New("blacklist locked") },
			[]string{"prepare"},
		},
		{
			"inject fails",
			func(f *orchestratorFixture) {
				f.injector.probe = nil
				f.injector.err = &InjectionError{ServerID: 42, Reason: "no campaign id"}
			},
			[]string{"prepare", "inject"},
		},
		{
			"retrieve fails",
			func(f *orchestratorFixture) {
				f.retriever.msg = nil
				f.retriever.err = &RetrievalTimeout{SubjectTag: "abc123", Attempts: 20}
			},
			[]string{"prepare", "inject", "retrieve"},
		},
		{
			"interact fails",
			func(f *orchestratorFixture) {
				f.simulator.err = &InteractionFailure{Outcome: &InteractionOutcome{}}
			},
			[]string{"prepare", "inject", "retrieve", "interact"},
		},
		{
			"audit fails",
			func(f *orchestratorFixture) {
				f.interactions.err = &AuditValidationFailure{CampaignID: 900, Reason: "No open records found"}
			},
			[]string{"prepare", "inject", "retrieve", "interact", "audit"},
		},
		{
			"headers fail",
			func(f *orchestratorFixture) {
				f.headers.err = &HeaderValidationFailure{Problems: []string{"Reply-To header missing or unparseable"}}
			},
			[]string{"prepare", "inject", "retrieve", "interact", "audit", "headers"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(2)
			tc.arrange(f)

			err := f.orchestrator.RunForServer(context.Background(), 42)
			var terminal *TerminalTestFailure
			require.ErrorAs(t, err, &terminal)
			assert.Equal(t, int64(42), terminal.ServerID)

			// Stages after the failing one never run.
			assert.Equal(t, tc.wantStages, f.rec.stages)

			// Failed verdict persisted, server demoted, no group mapping.
			require.Len(t, f.runs.verdicts, 1)
			assert.Equal(t, VerdictFailed, f.runs.verdicts[0].status)
			assert.NotEmpty(t, f.runs.verdicts[0].message)
			assert.Equal(t, []statusChange{{42, ServerStatusInactive}}, f.servers.statusChanges)
			assert.Empty(t, f.groups.added)
		})
	}
}

// TestFullPipelineSuccess wires real components over fakes at the store
// boundary: the probe appears on the third mailbox poll, open and click
// replay fine, the unsubscribe link is missing (2 of 3 tolerated), and
// the platform recorded all four tracking signals.
func TestFullPipelineSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	servers := &fakeServers{servers: map[int64]*DeliveryServer{
		42: {ID: 42, FromEmail: "test@acme.com", Status: ServerStatusActive},
	}}
	runs := &fakeRuns{}
	groups := &fakeGroups{existing: map[groupPair]struct{}{}}
	subscribers := &fakeSubscribers{}
	campaigns := &fakeCampaigns{nextID: 900}
	tracking := &fakeTracking{open: true, click: true, unsub: true, bounce: true}

	// The mailbox delivers the probe on the third listing; the raw
	// bytes carry the injected subject so the tag round-trips.
	mailbox := &fakeMailbox{appearAfter: 3, messages: map[uint32][]byte{}}
	parse := func(raw []byte) (*RetrievedMessage, error) {
		return &RetrievedMessage{
			Subject: string(raw),
			HTMLBody: fmt.Sprintf(`<html><body>
				<img src="%[1]s/track/open/900"/>
				<a href="%[1]s/landing">Read more</a>
			</body></html>`, srv.URL),
			Headers: map[string][]string{
				"From":     {`"acme" <test@acme.com>`},
				"Sender":   {"test@acme.com"},
				"Reply-To": {"test@acme.com"},
			},
		}, nil
	}

	preparator := NewDatabasePreparator(servers, subscribers, zap.NewNop(), "probe@inbox.test", 1)
	injector := &capturingInjector{
		inner:   NewCampaignInjector(campaigns, zap.NewNop(), 1, 1, 1, "pre"),
		mailbox: mailbox,
	}
	retriever := NewMessageRetriever(mailbox, parse, zap.NewNop(),
		RetryPolicy{MaxAttempts: 5, Interval: time.Millisecond})
	simulator := NewInteractionSimulator(zap.NewNop(), "test-agent", time.Second, 5)
	auditor := NewInteractionAuditor(tracking, zap.NewNop(), RetryPolicy{MaxAttempts: 10, Interval: time.Millisecond})
	headers := NewHeaderAuditor(zap.NewNop())

	orchestrator := NewTestOrchestrator(servers, runs, groups,
		preparator, injector, retriever, simulator, auditor, headers,
		zap.NewNop(), 2)

	require.NoError(t, orchestrator.RunForServer(context.Background(), 42))

	assert.Equal(t, []string{"probe@inbox.test"}, subscribers.unblacklisted)
	assert.Equal(t, []int64{42}, servers.quotaLifted)
	assert.Equal(t, 3, mailbox.listCalls)
	require.Len(t, runs.verdicts, 1)
	assert.Equal(t, recordedVerdict{42, VerdictSuccessful, ""}, runs.verdicts[0])
	assert.Equal(t, ServerStatusActive, servers.servers[42].Status)
	assert.Equal(t, []groupPair{{42, 2}}, groups.added)
}

// TestFullPipelineBounceFailure mirrors the success wiring but the
// platform never logs a bounce: the verdict is Failed with the bounce
// message and the server is demoted.
func TestFullPipelineBounceFailure(t *testing.T) {
	servers := &fakeServers{servers: map[int64]*DeliveryServer{
		42: {ID: 42, FromEmail: "test@acme.com", Status: ServerStatusActive},
	}}
	runs := &fakeRuns{}
	tracking := &fakeTracking{open: true, click: true, unsub: true, bounce: false}

	rec := &stageRecorder{}
	orchestrator := NewTestOrchestrator(servers, runs, &fakeGroups{},
		&fakePreparator{rec: rec},
		&fakeInjector{rec: rec, probe: &ProbeCampaign{SubjectTag: "abc123", CampaignID: 900}},
		&fakeRetriever{rec: rec, msg: &RetrievedMessage{}},
		&fakeSimulator{rec: rec},
		NewInteractionAuditor(tracking, zap.NewNop(), RetryPolicy{MaxAttempts: 10, Interval: time.Millisecond}),
		&fakeHeaderValidator{rec: rec},
		zap.NewNop(), 2)

	err := orchestrator.RunForServer(context.Background(), 42)
	var terminal *TerminalTestFailure
	require.ErrorAs(t, err, &terminal)

	assert.Equal(t, 10, tracking.bounceCalls)
	require.Len(t, runs.verdicts, 1)
	assert.Equal(t, VerdictFailed, runs.verdicts[0].status)
	assert.Equal(t, "No bounce records found after 10 attempts", runs.verdicts[0].message)
	assert.Equal(t, []statusChange{{42, ServerStatusInactive}}, servers.statusChanges)
}

// capturingInjector plants the injected subject into the mailbox so the
// retriever can find it, the way the platform's send pipeline would.
type capturingInjector struct {
	inner   *CampaignInjector
	mailbox *fakeMailbox
}

func (c *capturingInjector) Inject(ctx context.Context, server *DeliveryServer) (*ProbeCampaign, error) {
	probe, err := c.inner.Inject(ctx, server)
	if err != nil {
		return nil, err
	}
	subject := fmt.Sprintf("Test Email from %s [%s]", server.Domain(), probe.SubjectTag)
	c.mailbox.messages[1] = []byte(subject)
	return probe, nil
}
