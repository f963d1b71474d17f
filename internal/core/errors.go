package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by stores when the requested row is absent.
var ErrNotFound = errors.New("not found")

// InjectionError indicates the platform's campaign-creation procedure
// failed to produce a campaign for the probe.
type InjectionError struct {
	ServerID int64
	Reason   string
}

func (e *InjectionError) Error() string {
	return fmt.Sprintf("campaign injection failed for server %d: %s", e.ServerID, e.Reason)
}

// RetrievalTimeout indicates the probe message never showed up in the
// recipient mailbox within the retry budget.
type RetrievalTimeout struct {
	SubjectTag string
	Attempts   int
	LastErr    error
}

func (e *RetrievalTimeout) Error() string {
	msg := fmt.Sprintf("no message tagged [%s] after %d attempts", e.SubjectTag, e.Attempts)
	if e.LastErr != nil {
		msg += ": " + e.LastErr.Error()
	}
	return msg
}

func (e *RetrievalTimeout) Unwrap() error { return e.LastErr }

// InteractionFailure indicates fewer than the required number of
// simulated interaction signals succeeded.
type InteractionFailure struct {
	Outcome *InteractionOutcome
}

func (e *InteractionFailure) Error() string {
	var failed []string
	for _, s := range []struct {
		name   InteractionSignal
		result SignalResult
	}{
		{SignalOpen, e.Outcome.Open},
		{SignalClick, e.Outcome.Click},
		{SignalUnsubscribe, e.Outcome.Unsubscribe},
	} {
		if !s.result.Succeeded {
			detail := "link not found"
			if s.result.Err != nil {
				detail = s.result.Err.Error()
			}
			failed = append(failed, fmt.Sprintf("%s (%s)", s.name, detail))
		}
	}
	return fmt.Sprintf("only %d of 3 interactions succeeded, failed: %s",
		e.Outcome.SuccessCount(), strings.Join(failed, ", "))
}

// AuditValidationFailure indicates one or more tracking signals were
// never recorded by the platform.
type AuditValidationFailure struct {
	CampaignID int64
	Reason     string
}

func (e *AuditValidationFailure) Error() string {
	return e.Reason
}

// HeaderValidationFailure lists every missing or mismatched header.
type HeaderValidationFailure struct {
	Problems []string
}

func (e *HeaderValidationFailure) Error() string {
	return "header validation failed: " + strings.Join(e.Problems, "; ")
}

// TerminalTestFailure is the aggregated failure the orchestrator raises
// to its caller. It is always accompanied by a persisted Failed verdict
// and a server demotion.
type TerminalTestFailure struct {
	ServerID int64
	Stage    string
	Err      error
}

func (e *TerminalTestFailure) Error() string {
	return fmt.Sprintf("delivery test failed for server %d at stage %s: %v", e.ServerID, e.Stage, e.Err)
}

func (e *TerminalTestFailure) Unwrap() error { return e.Err }
