package core

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/delivery-monitor/internal/links"
)

// interactionSuccessThreshold is the minimum number of the three
// simulated signals that must succeed. A single missing link or failed
// request is tolerated; majority failure is not.
const interactionSuccessThreshold = 2

// InteractionSimulator replays HTTP GETs against the links extracted
// from a retrieved message to emulate a recipient opening, clicking,
// and unsubscribing.
type InteractionSimulator struct {
	client    *http.Client
	logger    *zap.Logger
	userAgent string
}

// NewInteractionSimulator creates a new interaction simulator. The
// client follows up to maxRedirects redirects and gives up after
// timeout; any response that arrives counts as success, whatever its
// status code.
func NewInteractionSimulator(
	logger *zap.Logger,
	userAgent string,
	timeout time.Duration,
	maxRedirects int,
) *InteractionSimulator {
	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
	return &InteractionSimulator{
		client:    client,
		logger:    logger,
		userAgent: userAgent,
	}
}

// Simulate extracts the three link types from the message and replays
// each that is present. Fails with InteractionFailure when fewer than
// two of the three signals succeed; absence of a link counts as a
// failure for that signal.
func (s *InteractionSimulator) Simulate(ctx context.Context, msg *RetrievedMessage) (*InteractionOutcome, error) {
	outcome := &InteractionOutcome{}

	pixel, err := links.TrackingPixelURL(msg.HTMLBody)
	if err != nil {
		return nil, fmt.Errorf("extracting tracking pixel: %w", err)
	}
	outcome.Open = s.replay(ctx, SignalOpen, pixel)

	content, err := links.ContentLinks(msg.HTMLBody)
	if err != nil {
		return nil, fmt.Errorf("extracting content links: %w", err)
	}
	clickURL := ""
	if len(content) > 0 {
		clickURL = content[0]
	}
	outcome.Click = s.replay(ctx, SignalClick, clickURL)

	unsub, err := links.UnsubscribeLink(msg.HTMLBody)
	if err != nil {
		return nil, fmt.Errorf("extracting unsubscribe link: %w", err)
	}
	outcome.Unsubscribe = s.replay(ctx, SignalUnsubscribe, unsub)

	if outcome.SuccessCount() < interactionSuccessThreshold {
		return outcome, &InteractionFailure{Outcome: outcome}
	}
	return outcome, nil
}

// replay issues one GET against url. An empty url marks the signal as
// failed without issuing a request.
func (s *InteractionSimulator) replay(ctx context.Context, signal InteractionSignal, url string) SignalResult {
	if url == "" {
		return SignalResult{Succeeded: false}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return SignalResult{URL: url, Err: fmt.Errorf("building %s request: %w", signal, err)}
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("Interaction replay failed",
			zap.String("signal", string(signal)),
			zap.String("url", url),
			zap.Error(err))
		return SignalResult{URL: url, Err: err}
	}
	defer resp.Body.Close()

	s.logger.Debug("Interaction replayed",
		zap.String("signal", string(signal)),
		zap.String("url", url),
		zap.Int("status", resp.StatusCode))
	return SignalResult{Succeeded: true, URL: url}
}
