package factory

import (
	"go.uber.org/zap"

	"github.com/mikey/delivery-monitor/internal/adapters/imap"
	"github.com/mikey/delivery-monitor/internal/config"
	"github.com/mikey/delivery-monitor/internal/core"
)

// MailboxFactory creates the recipient mailbox store based on configuration
type MailboxFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewMailboxFactory creates a new mailbox factory
func NewMailboxFactory(cfg *config.Config, logger *zap.Logger) *MailboxFactory {
	return &MailboxFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateMailboxStore creates the IMAP mailbox store
func (f *MailboxFactory) CreateMailboxStore() core.MailboxStore {
	mailbox := f.cfg.GetMailbox()
	return imap.NewMailboxStore(
		mailbox.Addr,
		mailbox.Username,
		mailbox.Password,
		mailbox.TLS,
		mailbox.Folder,
		f.logger,
	)
}
