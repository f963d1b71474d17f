package factory

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mikey/delivery-monitor/internal/adapters/memory"
	"github.com/mikey/delivery-monitor/internal/adapters/mysql"
	"github.com/mikey/delivery-monitor/internal/adapters/sqlite"
	"github.com/mikey/delivery-monitor/internal/config"
	"github.com/mikey/delivery-monitor/internal/core"
)

// StorageFactory creates the platform store bundle based on configuration
type StorageFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config, logger *zap.Logger) *StorageFactory {
	return &StorageFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// PlatformStores bundles every store backed by the platform database.
// All of them share one bounded connection pool.
type PlatformStores struct {
	DB          *sql.DB
	Servers     core.DeliveryServerStore
	Campaigns   core.CampaignStore
	Tracking    core.TrackingStore
	Subscribers core.SubscriberStore
	Groups      core.CustomerGroupStore
}

// CreatePlatformStores opens the platform connection pool and builds
// the stores on top of it.
func (f *StorageFactory) CreatePlatformStores() (*PlatformStores, error) {
	platform := f.cfg.GetPlatform()
	lifetime, err := f.cfg.GetDuration("platform.conn_max_lifetime")
	if err != nil {
		return nil, fmt.Errorf("invalid platform connection lifetime: %w", err)
	}

	db, err := mysql.Open(platform.MySQLDSN, platform.MaxOpenConns, platform.MaxIdleConns, lifetime)
	if err != nil {
		return nil, err
	}

	return &PlatformStores{
		DB:          db,
		Servers:     mysql.NewDeliveryServerStore(db, f.logger),
		Campaigns:   mysql.NewCampaignStore(db, f.logger),
		Tracking:    mysql.NewTrackingStore(db),
		Subscribers: mysql.NewSubscriberStore(db, f.logger),
		Groups:      mysql.NewCustomerGroupStore(db),
	}, nil
}

// CreateTestRunStore selects the verdict store backend from
// configuration: the platform database itself, a local SQLite file, or
// memory.
func (f *StorageFactory) CreateTestRunStore(stores *PlatformStores) (core.TestRunStore, error) {
	backend := f.cfg.GetString("verdicts.backend")
	switch backend {
	case "platform":
		return mysql.NewTestRunStore(stores.DB)
	case "sqlite":
		sqlitePath := f.cfg.GetString("verdicts.sqlite_path")
		if err := os.MkdirAll(filepath.Dir(sqlitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return sqlite.NewTestRunStore(sqlitePath, f.logger)
	case "memory":
		return memory.NewTestRunStore(), nil
	default:
		return nil, fmt.Errorf("unsupported verdict backend: %s", backend)
	}
}
