package database

import (
	"fmt"
	"log"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

const schemaVersionSQL = `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)
`

// migrations contains all database migrations in order. The SQL is shared
// by SQLite and PostgreSQL.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_documents_table",
		SQL: `
			CREATE TABLE IF NOT EXISTS documents (
				id TEXT PRIMARY KEY,
				text TEXT NOT NULL,
				settings TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'queued',
				last_error TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)
		`,
	},
	{
		Version: 2,
		Name:    "create_documents_updated_at_index",
		SQL:     `CREATE INDEX IF NOT EXISTS idx_documents_updated_at ON documents(updated_at)`,
	},
	{
		Version: 3,
		Name:    "create_analyses_table",
		SQL: `
			CREATE TABLE IF NOT EXISTS analyses (
				document_id TEXT PRIMARY KEY,
				annotated TEXT NOT NULL,
				report TEXT NOT NULL,
				partial BOOLEAN NOT NULL DEFAULT FALSE,
				analyzed_at TIMESTAMP NOT NULL,
				FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
			)
		`,
	},
	{
		Version: 4,
		Name:    "create_user_words_table",
		SQL: `
			CREATE TABLE IF NOT EXISTS user_words (
				word TEXT PRIMARY KEY,
				created_at TIMESTAMP NOT NULL
			)
		`,
	},
}

// Migrate runs all pending migrations
func (db *DB) Migrate() error {
	if _, err := db.conn.Exec(schemaVersionSQL); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var currentVersion int
	err := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	log.Printf("Current schema version: %d", currentVersion)

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		log.Printf("Applying migration %d: %s", migration.Version, migration.Name)
		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if _, err := tx.Exec(migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to run migration %d (%s): %w", migration.Version, migration.Name, err)
		}

		if _, err := tx.Exec(db.rebind("INSERT INTO schema_version (version) VALUES (?)"), migration.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	log.Println("All migrations complete")
	return nil
}
