package store

import (
	"database/sql"
	"fmt"
	"time"
)

// migrate creates all tables if they don't exist and seeds metadata.
func (s *SQLiteStore) migrate() error {
	bootstrapDone, err := s.isMetaFlagEnabled("schema_bootstrap_complete")
	if err != nil {
		return fmt.Errorf("checking bootstrap state: %w", err)
	}

	if !bootstrapDone {
		if err := s.runBootstrapDDL(); err != nil {
			return err
		}
	}

	if err := s.seedMeta(); err != nil {
		return fmt.Errorf("seeding metadata: %w", err)
	}

	if !bootstrapDone {
		if err := s.setMetaFlag("schema_bootstrap_complete"); err != nil {
			return fmt.Errorf("marking bootstrap complete: %w", err)
		}
	}

	if err := s.migrateListIndexes(); err != nil {
		return fmt.Errorf("migrating list indexes: %w", err)
	}
	if err := s.migrateImportIDs(); err != nil {
		return fmt.Errorf("migrating import ids: %w", err)
	}
	return nil
}

func (s *SQLiteStore) runBootstrapDDL() error {
	statements := []string{
		// One row per session, latest import wins
		`CREATE TABLE IF NOT EXISTS sessions (
			session_number INTEGER PRIMARY KEY,
			title          TEXT NOT NULL,
			status         TEXT NOT NULL DEFAULT 'draft',
			brief_synopsis TEXT NOT NULL DEFAULT '',
			full_summary   TEXT NOT NULL DEFAULT '',
			source_file    TEXT,
			imported_at    DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Entities keep the attributes of their first sighting
		`CREATE TABLE IF NOT EXISTS entities (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			kind        TEXT NOT NULL,
			title       TEXT NOT NULL,
			attributes  TEXT NOT NULL DEFAULT '{}',
			source_file TEXT,
			created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(kind, title)
		)`,

		`CREATE TABLE IF NOT EXISTS entity_sessions (
			entity_id      INTEGER NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
			session_number INTEGER NOT NULL,
			PRIMARY KEY (entity_id, session_number)
		)`,

		// Append-only import log
		`CREATE TABLE IF NOT EXISTS imports (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			source_file    TEXT NOT NULL,
			session_number INTEGER,
			created        INTEGER NOT NULL DEFAULT 0,
			merged         INTEGER NOT NULL DEFAULT 0,
			imported_at    DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT
		)`,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning migration transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("executing migration %q: %w", truncate(stmt, 80), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration: %w", err)
	}

	return nil
}

func (s *SQLiteStore) isMetaFlagEnabled(key string) (bool, error) {
	var exists int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='meta'`).Scan(&exists); err != nil {
		return false, err
	}
	if exists == 0 {
		return false, nil
	}

	var value string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return value == "true", nil
}

func (s *SQLiteStore) setMetaFlag(key string) error {
	_, err := s.db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES (?, 'true')", key)
	return err
}

// seedMeta initializes the meta table with defaults if not already set.
func (s *SQLiteStore) seedMeta() error {
	defaults := map[string]string{
		"schema_version": "1",
		"created_at":     time.Now().UTC().Format(time.RFC3339),
	}

	for k, v := range defaults {
		_, err := s.db.Exec(
			"INSERT OR IGNORE INTO meta (key, value) VALUES (?, ?)", k, v,
		)
		if err != nil {
			return fmt.Errorf("seeding meta key %q: %w", k, err)
		}
	}
	return nil
}

// migrateListIndexes adds the indexes behind ListEntities session filters.
func (s *SQLiteStore) migrateListIndexes() error {
	done, err := s.isMetaFlagEnabled("list_indexes_v1")
	if err != nil {
		return err
	}
	if done {
		return nil
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_entity_sessions_session
		 ON entity_sessions(session_number, entity_id)`,
		`CREATE INDEX IF NOT EXISTS idx_entities_kind
		 ON entities(kind, id)`,
	}
	for _, ddl := range indexes {
		if _, err := s.db.Exec(ddl); err != nil {
			return fmt.Errorf("creating list index: %w", err)
		}
	}

	return s.setMetaFlag("list_indexes_v1")
}

// migrateImportIDs gives every import log row a batch id. Rows written before
// the column existed keep an empty id.
func (s *SQLiteStore) migrateImportIDs() error {
	done, err := s.isMetaFlagEnabled("import_ids_v1")
	if err != nil {
		return err
	}
	if done {
		return nil
	}

	has, err := s.hasColumn("imports", "import_id")
	if err != nil {
		return err
	}
	if !has {
		if _, err := s.db.Exec(`ALTER TABLE imports ADD COLUMN import_id TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("adding imports.import_id: %w", err)
		}
	}
	if _, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_imports_import_id ON imports(import_id)`); err != nil {
		return fmt.Errorf("creating import id index: %w", err)
	}

	return s.setMetaFlag("import_ids_v1")
}

func (s *SQLiteStore) hasColumn(table, column string) (bool, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("reading %s columns: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
