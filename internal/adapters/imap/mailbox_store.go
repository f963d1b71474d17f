// Package imap implements the MailboxStore port against the recipient
// inbox over IMAP. Every operation dials a fresh session and logs out
// before returning, so no connection survives a retry wait.
package imap

import (
	"context"
	"fmt"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"

	"github.com/mikey/delivery-monitor/internal/core"
)

// MailboxStore is an IMAP implementation of the MailboxStore port.
type MailboxStore struct {
	addr     string
	username string
	password string
	useTLS   bool
	mailbox  string
	logger   *zap.Logger
}

// NewMailboxStore creates a new IMAP mailbox store.
func NewMailboxStore(addr, username, password string, useTLS bool, mailbox string, logger *zap.Logger) *MailboxStore {
	if mailbox == "" {
		mailbox = "INBOX"
	}
	return &MailboxStore{
		addr:     addr,
		username: username,
		password: password,
		useTLS:   useTLS,
		mailbox:  mailbox,
		logger:   logger,
	}
}

// connect dials, authenticates, and selects the mailbox. The caller
// must Logout the returned client.
func (s *MailboxStore) connect() (*imapclient.Client, error) {
	var client *imapclient.Client
	var err error
	if s.useTLS {
		client, err = imapclient.DialTLS(s.addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(s.addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", s.addr, err)
	}

	if err := client.Login(s.username, s.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("IMAP login failed for %s: %w", s.username, err)
	}

	if _, err := client.Select(s.mailbox, nil).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("selecting %s: %w", s.mailbox, err)
	}
	return client, nil
}

// ListMessageIDs returns the UID of every message in the mailbox.
func (s *MailboxStore) ListMessageIDs(ctx context.Context) ([]uint32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client, err := s.connect()
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	searchData, err := client.UIDSearch(&imap.SearchCriteria{}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching mailbox: %w", err)
	}

	uids := searchData.AllUIDs()
	ids := make([]uint32, 0, len(uids))
	for _, uid := range uids {
		ids = append(ids, uint32(uid))
	}
	s.logger.Debug("Mailbox listed", zap.Int("messages", len(ids)))
	return ids, nil
}

// FetchRaw returns the full raw bytes of one message without marking
// it seen.
func (s *MailboxStore) FetchRaw(ctx context.Context, id uint32) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client, err := s.connect()
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := client.Fetch(imap.UIDSetNum(imap.UID(id)), fetchOpts)
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return nil, fmt.Errorf("message %d: %w", id, core.ErrNotFound)
	}

	buf, err := msg.Collect()
	if err != nil {
		return nil, fmt.Errorf("collecting message %d: %w", id, err)
	}

	raw := buf.FindBodySection(bodySection)
	if raw == nil {
		return nil, fmt.Errorf("message %d has no body section", id)
	}

	if err := fetchCmd.Close(); err != nil {
		return raw, fmt.Errorf("closing fetch for message %d: %w", id, err)
	}
	return raw, nil
}
