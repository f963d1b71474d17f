package di

import (
	"flag"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/delivery-monitor/internal/adapters/memory"
	"github.com/mikey/delivery-monitor/internal/config"
	"github.com/mikey/delivery-monitor/internal/core"
	"github.com/mikey/delivery-monitor/internal/factory"
	"github.com/mikey/delivery-monitor/internal/logging"
)

// CLIFlags contains all command line flags for the one-shot CLI
type CLIFlags struct {
	ServerID int64

	// Platform flags
	MySQLDSN string

	// Mailbox flags
	MailboxAddr     string
	MailboxUsername string
	MailboxPassword string
	MailboxTLS      bool

	// Probe flags
	Recipient  string
	ListID     int64
	CustomerID int64
	TemplateID int64

	// Output flags
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	flag.Int64Var(&flags.ServerID, "server-id", 0, "Delivery server id to test (required)")

	// Platform flags
	flag.StringVar(&flags.MySQLDSN, "mysql-dsn", "", "Platform MySQL DSN")

	// Mailbox flags
	flag.StringVar(&flags.MailboxAddr, "mailbox-addr", "", "IMAP address of the recipient mailbox")
	flag.StringVar(&flags.MailboxUsername, "mailbox-user", "", "IMAP username")
	flag.StringVar(&flags.MailboxPassword, "mailbox-pass", "", "IMAP password")
	flag.BoolVar(&flags.MailboxTLS, "mailbox-tls", true, "Use implicit TLS for IMAP")

	// Probe flags
	flag.StringVar(&flags.Recipient, "recipient", "", "Recipient address of the probe")
	flag.Int64Var(&flags.ListID, "list-id", 0, "Platform list id holding the recipient")
	flag.Int64Var(&flags.CustomerID, "customer-id", 0, "Platform customer owning the probe")
	flag.Int64Var(&flags.TemplateID, "template-id", 0, "Platform template id for the probe body")

	// Output flags
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.New()
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewStorageFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewMailboxFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewPipelineFactory); err != nil {
		return nil, err
	}

	// Register platform stores
	if err := container.Provide(func(f *factory.StorageFactory) (*factory.PlatformStores, error) {
		return f.CreatePlatformStores()
	}); err != nil {
		return nil, err
	}

	// One-shot runs keep their verdict in memory; the platform tables
	// stay untouched unless a config file selects another backend.
	if err := container.Provide(func() core.TestRunStore {
		return memory.NewTestRunStore()
	}); err != nil {
		return nil, err
	}

	// Register mailbox store
	if err := container.Provide(func(f *factory.MailboxFactory) core.MailboxStore {
		return f.CreateMailboxStore()
	}); err != nil {
		return nil, err
	}

	// Register orchestrator
	if err := container.Provide(func(
		f *factory.PipelineFactory,
		stores *factory.PlatformStores,
		runs core.TestRunStore,
		mailbox core.MailboxStore,
	) (*core.TestOrchestrator, error) {
		return f.CreateOrchestrator(stores, runs, mailbox)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	if flags.MySQLDSN != "" {
		v.Set("platform.mysql_dsn", flags.MySQLDSN)
	}

	v.Set("mailbox.addr", flags.MailboxAddr)
	v.Set("mailbox.username", flags.MailboxUsername)
	v.Set("mailbox.password", flags.MailboxPassword)
	v.Set("mailbox.tls", flags.MailboxTLS)

	v.Set("probe.recipient", flags.Recipient)
	v.Set("probe.list_id", flags.ListID)
	v.Set("probe.customer_id", flags.CustomerID)
	v.Set("probe.template_id", flags.TemplateID)

	return config.NewFromViper(v)
}
