package config

// PlatformConfig represents the configuration for the platform database
type PlatformConfig struct {
	MySQLDSN     string
	MaxOpenConns int
	MaxIdleConns int
}

// MailboxConfig represents the configuration for the recipient mailbox
type MailboxConfig struct {
	Addr     string
	Username string
	Password string
	TLS      bool
	Folder   string
}

// ProbeConfig represents the configuration for probe campaigns
type ProbeConfig struct {
	Recipient  string
	ListID     int64
	CustomerID int64
	TemplateID int64
	GroupID    int64
	PreHeader  string
}

// GetPlatform returns the platform database configuration
func (c *Config) GetPlatform() PlatformConfig {
	return PlatformConfig{
		MySQLDSN:     c.GetString("platform.mysql_dsn"),
		MaxOpenConns: c.GetInt("platform.max_open_conns"),
		MaxIdleConns: c.GetInt("platform.max_idle_conns"),
	}
}

// GetMailbox returns the recipient mailbox configuration
func (c *Config) GetMailbox() MailboxConfig {
	return MailboxConfig{
		Addr:     c.GetString("mailbox.addr"),
		Username: c.GetString("mailbox.username"),
		Password: c.GetString("mailbox.password"),
		TLS:      c.GetBool("mailbox.tls"),
		Folder:   c.GetString("mailbox.folder"),
	}
}

// GetProbe returns the probe campaign configuration
func (c *Config) GetProbe() ProbeConfig {
	return ProbeConfig{
		Recipient:  c.GetString("probe.recipient"),
		ListID:     c.GetInt64("probe.list_id"),
		CustomerID: c.GetInt64("probe.customer_id"),
		TemplateID: c.GetInt64("probe.template_id"),
		GroupID:    c.GetInt64("probe.group_id"),
		PreHeader:  c.GetString("probe.pre_header"),
	}
}
