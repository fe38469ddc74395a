// File: internal/storage/sqlite.go
package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/smartdevs17/multichain-watcher/internal/models"
	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

// SQLiteStorage implements AddressStore using SQLite
type SQLiteStorage struct {
	sqlStore
	config *StorageConfig
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(config *StorageConfig) *SQLiteStorage {
	return &SQLiteStorage{
		sqlStore: sqlStore{
			dialect: sqliteDialect,
			logger:  utils.ComponentLogger("storage").WithField("backend", "sqlite"),
		},
		config: config,
	}
}

// Connect establishes database connection
func (s *SQLiteStorage) Connect(ctx context.Context) error {
	// Ensure directory exists
	dir := filepath.Dir(s.config.ConnectionString)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return utils.WrapError(utils.ErrCodeDatabase, "Failed to create database directory", err)
		}
	}

	db, err := sql.Open("sqlite", s.config.ConnectionString)
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to open SQLite database", err)
	}

	// SQLite allows one writer; a single connection keeps Persist transactions serialized
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(s.config.MaxIdleTime)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to enable WAL mode", err)
	}

	s.db = db
	s.logger.WithField("path", s.config.ConnectionString).Info("SQLite database connected")

	return nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error { return s.close() }

// Ping checks database connectivity
func (s *SQLiteStorage) Ping(ctx context.Context) error { return s.ping(ctx) }

// Migrate runs database migrations
func (s *SQLiteStorage) Migrate(ctx context.Context) error { return s.migrate(ctx) }

// Load returns the addresses tracked under scope
func (s *SQLiteStorage) Load(ctx context.Context, scope models.ScopeKey) ([]string, error) {
	return s.load(ctx, scope)
}

// Persist replaces the addresses tracked under scope
func (s *SQLiteStorage) Persist(ctx context.Context, scope models.ScopeKey, addresses []string) error {
	return s.persist(ctx, scope, addresses)
}
