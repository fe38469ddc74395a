// File: internal/storage/storage.go
package storage

import (
	"context"
	"time"

	"github.com/smartdevs17/multichain-watcher/internal/models"
)

// AddressStore persists tracked-address sets, one set per scope
type AddressStore interface {
	// Connection management
	Connect(ctx context.Context) error
	Close() error
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error

	// Load returns every address tracked under scope. A scope never written
	// yields an empty slice.
	Load(ctx context.Context, scope models.ScopeKey) ([]string, error)
	// Persist replaces the full set stored under scope
	Persist(ctx context.Context, scope models.ScopeKey, addresses []string) error
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Type             string        `json:"type"`
	ConnectionString string        `json:"connection_string"`
	Database         string        `json:"database"`
	MaxConnections   int           `json:"max_connections"`
	MaxIdleTime      time.Duration `json:"max_idle_time"`
	OperationTimeout time.Duration `json:"operation_timeout"`
}
