package core

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// MessageParser turns raw message bytes into a RetrievedMessage.
type MessageParser func(raw []byte) (*RetrievedMessage, error)

// MessageRetriever polls the recipient mailbox until the probe message
// arrives. Each attempt scans the whole inbox; the mailbox adapter
// opens a fresh session per operation, so nothing is held open across
// the inter-attempt wait.
type MessageRetriever struct {
	mailbox MailboxStore
	parse   MessageParser
	logger  *zap.Logger
	policy  RetryPolicy
}

// NewMessageRetriever creates a new message retriever.
func NewMessageRetriever(
	mailbox MailboxStore,
	parse MessageParser,
	logger *zap.Logger,
	policy RetryPolicy,
) *MessageRetriever {
	return &MessageRetriever{
		mailbox: mailbox,
		parse:   parse,
		logger:  logger,
		policy:  policy,
	}
}

// Retrieve returns the first message whose subject contains the
// bracketed tag. Fails with RetrievalTimeout once attempts are
// exhausted, embedding the last per-attempt error.
func (r *MessageRetriever) Retrieve(ctx context.Context, subjectTag string) (*RetrievedMessage, error) {
	marker := "[" + subjectTag + "]"

	msg, err := Retry(ctx, r.policy, func(ctx context.Context, attempt int) (*RetrievedMessage, error) {
		found, err := r.scanInbox(ctx, marker)
		if err != nil {
			r.logger.Warn("Inbox scan failed",
				zap.Int("attempt", attempt),
				zap.String("tag", subjectTag),
				zap.Error(err))
			return nil, err
		}
		if found == nil {
			r.logger.Debug("Probe message not yet delivered",
				zap.Int("attempt", attempt),
				zap.String("tag", subjectTag))
			return nil, fmt.Errorf("no message with subject containing %s", marker)
		}
		r.logger.Info("Probe message retrieved",
			zap.Int("attempt", attempt),
			zap.String("tag", subjectTag),
			zap.String("subject", found.Subject))
		return found, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, &RetrievalTimeout{
			SubjectTag: subjectTag,
			Attempts:   r.policy.MaxAttempts,
			LastErr:    err,
		}
	}
	return msg, nil
}

// scanInbox lists every message and returns the first parse whose
// subject carries the marker, or nil when none match.
func (r *MessageRetriever) scanInbox(ctx context.Context, marker string) (*RetrievedMessage, error) {
	ids, err := r.mailbox.ListMessageIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing mailbox: %w", err)
	}

	for _, id := range ids {
		raw, err := r.mailbox.FetchRaw(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("fetching message %d: %w", id, err)
		}
		msg, err := r.parse(raw)
		if err != nil {
			// Unparseable unrelated mail in the inbox is not fatal.
			r.logger.Debug("Skipping unparseable message", zap.Uint32("id", id), zap.Error(err))
			continue
		}
		if strings.Contains(msg.Subject, marker) {
			return msg, nil
		}
	}
	return nil, nil
}
