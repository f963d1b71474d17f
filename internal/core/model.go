package core

import (
	"net/mail"
	"net/textproto"
	"strings"
	"time"
)

// ServerStatus is the lifecycle status of a delivery server.
type ServerStatus string

const (
	ServerStatusActive   ServerStatus = "active"
	ServerStatusInactive ServerStatus = "inactive"
)

// VerdictStatus is the persisted outcome of one test run.
type VerdictStatus string

const (
	VerdictSuccessful VerdictStatus = "Successful"
	VerdictFailed     VerdictStatus = "Failed"
)

// DeliveryServer is an outbound sending path registered in the mail
// platform. The monitor only reads it and writes its status.
type DeliveryServer struct {
	ID          int64
	FromEmail   string
	FromName    string
	Status      ServerStatus
	LastUpdated time.Time
}

// Domain returns the domain portion of the server's from-email, or an
// empty string if the address has no @.
func (s *DeliveryServer) Domain() string {
	_, domain, found := strings.Cut(s.FromEmail, "@")
	if !found {
		return ""
	}
	return domain
}

// ProbeCampaign is one disposable test send. Created fresh per run and
// never reused; the platform owns its retention.
type ProbeCampaign struct {
	SubjectTag string
	CampaignID int64
	CreatedAt  time.Time
}

// RetrievedMessage is the probe email as observed by the recipient
// mailbox. Held in memory only for the duration of a run.
type RetrievedMessage struct {
	Subject  string
	HTMLBody string
	TextBody string
	Raw      []byte
	Headers  map[string][]string
}

// Header returns the first value of the named header, matching the name
// case-insensitively. Returns an empty string when the header is absent.
func (m *RetrievedMessage) Header(name string) string {
	if m.Headers == nil {
		return ""
	}
	values := m.Headers[textproto.CanonicalMIMEHeaderKey(name)]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// Address parses the named header as an email address, accepting both
// the `"Name" <addr>` and bare `addr` forms. The boolean is false when
// the header is missing or unparseable.
func (m *RetrievedMessage) Address(name string) (*mail.Address, bool) {
	value := strings.TrimSpace(m.Header(name))
	if value == "" {
		return nil, false
	}
	addr, err := mail.ParseAddress(value)
	if err != nil {
		return nil, false
	}
	return addr, true
}

// InteractionSignal names one recipient interaction signal.
type InteractionSignal string

const (
	SignalOpen        InteractionSignal = "open"
	SignalClick       InteractionSignal = "click"
	SignalUnsubscribe InteractionSignal = "unsubscribe"
	SignalBounce      InteractionSignal = "bounce"
)

// SignalResult is the outcome of replaying a single interaction.
type SignalResult struct {
	Succeeded bool
	URL       string
	Err       error
}

// InteractionOutcome is the result of replaying open, click, and
// unsubscribe against the links extracted from a retrieved message.
type InteractionOutcome struct {
	Open        SignalResult
	Click       SignalResult
	Unsubscribe SignalResult
}

// SuccessCount returns how many of the three signals succeeded.
func (o *InteractionOutcome) SuccessCount() int {
	n := 0
	for _, r := range []SignalResult{o.Open, o.Click, o.Unsubscribe} {
		if r.Succeeded {
			n++
		}
	}
	return n
}

// TrackingAuditResult holds the four independent signals read back from
// the platform's own tracking tables for one campaign.
type TrackingAuditResult struct {
	OpenRecorded        bool
	ClickRecorded       bool
	UnsubscribeRecorded bool
	BounceRecorded      bool
}

// MissingSignals lists the signals not yet recorded, in a fixed order.
func (r *TrackingAuditResult) MissingSignals() []InteractionSignal {
	var missing []InteractionSignal
	if !r.OpenRecorded {
		missing = append(missing, SignalOpen)
	}
	if !r.ClickRecorded {
		missing = append(missing, SignalClick)
	}
	if !r.UnsubscribeRecorded {
		missing = append(missing, SignalUnsubscribe)
	}
	if !r.BounceRecorded {
		missing = append(missing, SignalBounce)
	}
	return missing
}

// TestVerdict is the persisted outcome of one run. Exactly one row is
// written per run; history accumulates and rows are never updated.
type TestVerdict struct {
	RunID        int64
	ServerID     int64
	Status       VerdictStatus
	ErrorMessage string
	RecordedAt   time.Time
}
