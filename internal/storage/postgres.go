package storage

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/smartdevs17/multichain-watcher/internal/models"
	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

// PostgreSQLStorage implements AddressStore using PostgreSQL
type PostgreSQLStorage struct {
	sqlStore
	config *StorageConfig
}

// NewPostgreSQLStorage creates a new PostgreSQL storage instance
func NewPostgreSQLStorage(config *StorageConfig) *PostgreSQLStorage {
	return &PostgreSQLStorage{
		sqlStore: sqlStore{
			dialect: postgresDialect,
			logger:  utils.ComponentLogger("storage").WithField("backend", "postgres"),
		},
		config: config,
	}
}

// Connect establishes database connection
func (p *PostgreSQLStorage) Connect(ctx context.Context) error {
	db, err := sql.Open("postgres", p.config.ConnectionString)
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to open PostgreSQL database", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(p.config.MaxConnections)
	db.SetMaxIdleConns(p.config.MaxConnections / 2)
	db.SetConnMaxIdleTime(p.config.MaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to ping PostgreSQL database", err)
	}

	p.db = db
	p.logger.Info("PostgreSQL database connected")

	return nil
}

// Close closes the database connection
func (p *PostgreSQLStorage) Close() error { return p.close() }

// Ping checks database connectivity
func (p *PostgreSQLStorage) Ping(ctx context.Context) error { return p.ping(ctx) }

// Migrate runs database migrations
func (p *PostgreSQLStorage) Migrate(ctx context.Context) error { return p.migrate(ctx) }

// Load returns the addresses tracked under scope
func (p *PostgreSQLStorage) Load(ctx context.Context, scope models.ScopeKey) ([]string, error) {
	return p.load(ctx, scope)
}

// Persist replaces the addresses tracked under scope
func (p *PostgreSQLStorage) Persist(ctx context.Context, scope models.ScopeKey, addresses []string) error {
	return p.persist(ctx, scope, addresses)
}
