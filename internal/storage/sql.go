package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/multichain-watcher/internal/models"
	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

// dialect captures the differences between the SQL backends
type dialect struct {
	name            string
	migrations      []*Migration
	migrationsTable string
	placeholder     func(n int) string
}

var sqliteDialect = dialect{
	name:            "sqlite",
	migrations:      GetSQLiteMigrations(),
	migrationsTable: sqliteMigrationsTable,
	placeholder:     func(int) string { return "?" },
}

var postgresDialect = dialect{
	name:            "postgres",
	migrations:      GetPostgresMigrations(),
	migrationsTable: postgresMigrationsTable,
	placeholder:     func(n int) string { return fmt.Sprintf("$%d", n) },
}

// sqlStore holds the queries shared by the SQLite and PostgreSQL backends
type sqlStore struct {
	db      *sql.DB
	dialect dialect
	logger  *logrus.Entry
}

// rebind rewrites ? placeholders for the dialect
func (s *sqlStore) rebind(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(s.dialect.placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) ping(ctx context.Context) error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}
	return s.db.PingContext(ctx)
}

func (s *sqlStore) close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.logger.Info("Database connection closed")
	return err
}

// migrate applies migrations not yet recorded in schema_migrations
func (s *sqlStore) migrate(ctx context.Context) error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	if _, err := s.db.ExecContext(ctx, s.dialect.migrationsTable); err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to create migrations table", err)
	}

	applied := make(map[string]string)
	rows, err := s.db.QueryContext(ctx, "SELECT version, checksum FROM schema_migrations")
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to read applied migrations", err)
	}
	for rows.Next() {
		var version, checksum string
		if err := rows.Scan(&version, &checksum); err != nil {
			rows.Close()
			return utils.WrapError(utils.ErrCodeDatabase, "Failed to scan migration", err)
		}
		applied[version] = checksum
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to read applied migrations", err)
	}

	for _, migration := range s.dialect.migrations {
		if checksum, ok := applied[migration.Version]; ok {
			if checksum != migration.Checksum() {
				s.logger.WithField("version", migration.Version).Warn("Applied migration differs from bundled version")
			}
			continue
		}

		s.logger.WithFields(logrus.Fields{
			"version":     migration.Version,
			"description": migration.Description,
		}).Info("Applying migration")

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return utils.WrapError(utils.ErrCodeDatabase, "Failed to begin migration", err)
		}
		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			_ = tx.Rollback()
			return utils.WrapError(utils.ErrCodeDatabase,
				fmt.Sprintf("Migration %s failed", migration.Version), err)
		}
		if _, err := tx.ExecContext(ctx,
			s.rebind("INSERT INTO schema_migrations (version, description, checksum) VALUES (?, ?, ?)"),
			migration.Version, migration.Description, migration.Checksum()); err != nil {
			_ = tx.Rollback()
			return utils.WrapError(utils.ErrCodeDatabase, "Failed to record migration", err)
		}
		if err := tx.Commit(); err != nil {
			return utils.WrapError(utils.ErrCodeDatabase, "Failed to commit migration", err)
		}
	}

	s.logger.Debug("Database migrations completed")
	return nil
}

func (s *sqlStore) load(ctx context.Context, scope models.ScopeKey) ([]string, error) {
	if s.db == nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	rows, err := s.db.QueryContext(ctx,
		s.rebind("SELECT address FROM tracked_addresses WHERE scope = ? ORDER BY address"), string(scope))
	if err != nil {
		return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to load tracked addresses", err)
	}
	defer rows.Close()

	addresses := []string{}
	for rows.Next() {
		var address string
		if err := rows.Scan(&address); err != nil {
			return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to scan tracked address", err)
		}
		addresses = append(addresses, address)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to load tracked addresses", err)
	}
	return addresses, nil
}

// persist replaces the scope's rows in one transaction
func (s *sqlStore) persist(ctx context.Context, scope models.ScopeKey, addresses []string) error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM tracked_addresses WHERE scope = ?"), string(scope)); err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to clear tracked addresses", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind("INSERT INTO tracked_addresses (scope, address) VALUES (?, ?)"))
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to prepare insert", err)
	}
	defer stmt.Close()

	for _, address := range addresses {
		if _, err := stmt.ExecContext(ctx, string(scope), address); err != nil {
			return utils.WrapError(utils.ErrCodeDatabase, "Failed to insert tracked address", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to commit tracked addresses", err)
	}
	return nil
}
