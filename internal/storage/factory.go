// File: internal/storage/factory.go
package storage

import (
	"strings"

	"github.com/smartdevs17/multichain-watcher/internal/config"
	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

var supportedTypes = []string{"sqlite", "postgres", "postgresql", "mongo", "mongodb", "redis", "memory"}

// NewStorage creates a new address store based on configuration
func NewStorage(cfg *config.StorageConfig) (AddressStore, error) {
	if err := ValidateStorageConfig(cfg); err != nil {
		return nil, err
	}

	storageConfig := &StorageConfig{
		Type:             cfg.Type,
		ConnectionString: cfg.ConnectionString,
		Database:         cfg.Database,
		MaxConnections:   cfg.MaxConnections,
		MaxIdleTime:      cfg.MaxIdleTime,
		OperationTimeout: cfg.OperationTimeout,
	}

	switch strings.ToLower(cfg.Type) {
	case "sqlite":
		return NewSQLiteStorage(storageConfig), nil
	case "postgres", "postgresql":
		return NewPostgreSQLStorage(storageConfig), nil
	case "mongo", "mongodb":
		return NewMongoStorage(storageConfig), nil
	case "redis":
		return NewRedisStorage(storageConfig), nil
	default:
		return NewMemoryStorage(), nil
	}
}

// ValidateStorageConfig validates storage configuration
func ValidateStorageConfig(cfg *config.StorageConfig) error {
	if cfg.Type == "" {
		return utils.NewAppError(utils.ErrCodeStartupConfig, "Storage type is required", "")
	}

	supported := false
	for _, t := range supportedTypes {
		if strings.ToLower(cfg.Type) == t {
			supported = true
			break
		}
	}
	if !supported {
		return utils.NewAppError(utils.ErrCodeStartupConfig,
			"Unsupported storage type",
			"Supported types: "+strings.Join(supportedTypes, ", "))
	}

	if strings.ToLower(cfg.Type) != "memory" && cfg.ConnectionString == "" {
		return utils.NewAppError(utils.ErrCodeStartupConfig, "Storage connection string is required", "")
	}

	return nil
}
