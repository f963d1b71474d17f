package di

import (
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/delivery-monitor/internal/api"
	"github.com/mikey/delivery-monitor/internal/config"
	"github.com/mikey/delivery-monitor/internal/core"
	"github.com/mikey/delivery-monitor/internal/factory"
	"github.com/mikey/delivery-monitor/internal/logging"
	"github.com/mikey/delivery-monitor/internal/scheduler"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
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

	// Register verdict store
	if err := container.Provide(func(f *factory.StorageFactory, stores *factory.PlatformStores) (core.TestRunStore, error) {
		return f.CreateTestRunStore(stores)
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

	// Register scanner
	if err := container.Provide(func(
		f *factory.PipelineFactory,
		stores *factory.PlatformStores,
		orchestrator *core.TestOrchestrator,
	) (*core.DeliveryServerScanner, error) {
		return f.CreateScanner(stores, orchestrator)
	}); err != nil {
		return nil, err
	}

	// Register scheduler
	if err := container.Provide(func(
		cfg *config.Config,
		logger *zap.Logger,
		scanner *core.DeliveryServerScanner,
	) (*scheduler.Scheduler, error) {
		interval, err := cfg.GetDuration("scanner.interval")
		if err != nil {
			return nil, err
		}
		if interval <= 0 {
			interval = 60 * time.Minute
		}
		return scheduler.New(scanner, logger, interval), nil
	}); err != nil {
		return nil, err
	}

	// Register API server
	if err := container.Provide(func(
		cfg *config.Config,
		logger *zap.Logger,
		orchestrator *core.TestOrchestrator,
		runs core.TestRunStore,
		stores *factory.PlatformStores,
	) *api.Server {
		return api.NewServer(orchestrator, runs, stores.DB, logger, cfg.GetString("api.listen_address"))
	}); err != nil {
		return nil, err
	}

	return container, nil
}
