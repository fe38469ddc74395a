package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Migration represents a database migration
type Migration struct {
	Version     string    `db:"version"`
	Description string    `db:"description"`
	SQL         string    `db:"sql"`
	AppliedAt   time.Time `db:"applied_at"`
}

// Checksum fingerprints the migration SQL
func (m *Migration) Checksum() string {
	sum := sha256.Sum256([]byte(m.SQL))
	return hex.EncodeToString(sum[:])
}

// GetSQLiteMigrations returns SQLite migration scripts
func GetSQLiteMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create tracked_addresses table",
			SQL: `
				CREATE TABLE IF NOT EXISTS tracked_addresses (
					scope TEXT NOT NULL,
					address TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (scope, address)
				);

				CREATE INDEX IF NOT EXISTS idx_tracked_addresses_scope ON tracked_addresses(scope);
			`,
		},
	}
}

// GetPostgresMigrations returns PostgreSQL migration scripts
func GetPostgresMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create tracked_addresses table",
			SQL: `
				CREATE TABLE IF NOT EXISTS tracked_addresses (
					scope TEXT NOT NULL,
					address TEXT NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					PRIMARY KEY (scope, address)
				);

				CREATE INDEX IF NOT EXISTS idx_tracked_addresses_scope ON tracked_addresses(scope);
			`,
		},
	}
}

const sqliteMigrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		checksum TEXT NOT NULL,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`

const postgresMigrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		checksum TEXT NOT NULL,
		applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`
