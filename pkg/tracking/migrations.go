package tracking

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version of the run store.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS runs (
					id TEXT PRIMARY KEY,
					experiment TEXT NOT NULL,
					name TEXT NOT NULL DEFAULT '',
					status TEXT NOT NULL,
					started_at DATETIME NOT NULL,
					ended_at DATETIME
				)`,
				`CREATE TABLE IF NOT EXISTS metrics (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					run_id TEXT NOT NULL,
					key TEXT NOT NULL,
					value REAL NOT NULL,
					step INTEGER NOT NULL,
					logged_at DATETIME NOT NULL,
					FOREIGN KEY (run_id) REFERENCES runs(id)
				)`,
				`CREATE INDEX IF NOT EXISTS idx_metrics_run_key ON metrics(run_id, key)`,
				`CREATE TABLE IF NOT EXISTS params (
					run_id TEXT NOT NULL,
					key TEXT NOT NULL,
					value TEXT NOT NULL,
					PRIMARY KEY (run_id, key),
					FOREIGN KEY (run_id) REFERENCES runs(id)
				)`,
				`CREATE TABLE IF NOT EXISTS tags (
					run_id TEXT NOT NULL,
					key TEXT NOT NULL,
					value TEXT NOT NULL,
					PRIMARY KEY (run_id, key),
					FOREIGN KEY (run_id) REFERENCES runs(id)
				)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Track run artifacts",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS artifacts (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					run_id TEXT NOT NULL,
					path TEXT NOT NULL,
					FOREIGN KEY (run_id) REFERENCES runs(id)
				)`,
			)
		},
	},
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Migrate brings the schema up to ExpectedSchemaVersion.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
		}
		if err := m.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
		}
		if _, err := tx.Exec(`DELETE FROM schema_version`); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to clear schema version: %w", err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, m.Version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record schema version: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}
		slog.Debug("Applied tracking migration", "version", m.Version, "description", m.Description)
	}

	if v, err := s.SchemaVersion(ctx); err != nil {
		return err
	} else if v != ExpectedSchemaVersion {
		return fmt.Errorf("tracking schema at version %d, expected %d", v, ExpectedSchemaVersion)
	}
	return nil
}

// SchemaVersion returns the applied schema version, 0 for a fresh database.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(v.Int64), nil
}
