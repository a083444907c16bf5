// Package store provides the SQLite campaign catalog for questlog.
//
// Every imported session lands in a single SQLite database file:
// - One row per session summary, keyed by session number
// - One row per entity, keyed by (kind, title)
// - The sessions each entity was seen in
// - An append-only import log
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hurttlocker/questlog/internal/extract"
)

// DefaultDBPath is the default database location.
const DefaultDBPath = "~/.questlog/questlog.db"

// DefaultListLimit caps ListEntities when no limit is given.
const DefaultListLimit = 500

// ErrNotFound is returned when a requested entity or session does not exist.
var ErrNotFound = errors.New("not found")

// ListOpts controls filtering for ListEntities.
type ListOpts struct {
	Kind       extract.Kind // "" = all kinds
	Session    int
	HasSession bool // filter on Session; session 0 is a real session
	Limit      int
}

// SaveResult reports what one SaveExtraction call changed.
type SaveResult struct {
	ImportID      string `json:"import_id"`
	SourceFile    string `json:"source_file"`
	SessionNumber int    `json:"session_number"`
	HasSession    bool   `json:"has_session"`
	SummarySaved  bool   `json:"summary_saved"`
	Created       int    `json:"created"`
	Merged        int    `json:"merged"`
}

// CatalogStats holds observability statistics about the catalog.
type CatalogStats struct {
	Sessions    int64            `json:"sessions"`
	Entities    int64            `json:"entities"`
	ByKind      map[string]int64 `json:"by_kind"`
	Imports     int64            `json:"imports"`
	LastImport  string           `json:"last_import,omitempty"`
	DBSizeBytes int64            `json:"db_size_bytes"`
}

// StoreConfig holds configuration for NewStore.
type StoreConfig struct {
	DBPath string
}

// Store defines the campaign catalog interface.
type Store interface {
	// Writes
	SaveExtraction(ctx context.Context, sourceFile string, entities []extract.Entity) (*SaveResult, error)

	// Entities
	ListEntities(ctx context.Context, opts ListOpts) ([]extract.Entity, error)
	GetEntity(ctx context.Context, kind extract.Kind, title string) (extract.Entity, error)

	// Sessions
	ListSessions(ctx context.Context) ([]*extract.SessionSummary, error)
	GetSession(ctx context.Context, number int) (*extract.SessionSummary, error)

	// Observability
	Stats(ctx context.Context) (*CatalogStats, error)

	// Maintenance
	Vacuum(ctx context.Context) error
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// NewStore creates a new SQLite-backed Store.
// Pass ":memory:" for in-memory databases (testing).
func NewStore(cfg StoreConfig) (Store, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath
	}
	cfg.DBPath = expandPath(cfg.DBPath)

	// Create parent directory for non-memory databases
	if cfg.DBPath != ":memory:" {
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if cfg.DBPath == ":memory:" {
		// Each connection to :memory: is its own database.
		db.SetMaxOpenConns(1)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Enable WAL mode and foreign keys
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{
		db:     db,
		dbPath: cfg.DBPath,
		now:    func() time.Time { return time.Now().UTC() },
	}

	// Run migrations
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Vacuum runs VACUUM on the database.
func (s *SQLiteStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// Stats returns catalog counts and the database size.
func (s *SQLiteStore) Stats(ctx context.Context) (*CatalogStats, error) {
	stats := &CatalogStats{ByKind: map[string]int64{}}

	queries := []struct {
		query string
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM sessions", &stats.Sessions},
		{"SELECT COUNT(*) FROM entities", &stats.Entities},
		{"SELECT COUNT(*) FROM imports", &stats.Imports},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("querying stats (%s): %w", q.query, err)
		}
	}

	for _, k := range extract.Kinds {
		stats.ByKind[string(k)] = 0
	}
	rows, err := s.db.QueryContext(ctx, "SELECT kind, COUNT(*) FROM entities GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("counting entities by kind: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scanning kind count: %w", err)
		}
		stats.ByKind[kind] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var last sql.NullString
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(imported_at) FROM imports").Scan(&last); err != nil {
		return nil, fmt.Errorf("querying last import: %w", err)
	}
	stats.LastImport = last.String

	// Get DB size (only works for file-based DBs)
	if s.dbPath != ":memory:" {
		var pageCount, pageSize int64
		s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
		s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		stats.DBSizeBytes = pageCount * pageSize
	}

	return stats, nil
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
