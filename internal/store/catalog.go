package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hurttlocker/questlog/internal/extract"
)

// SaveExtraction writes one document's extraction result in a single
// transaction. The session summary replaces any earlier summary with the same
// session number. Other entities are keyed by (kind, title): a new key stores
// the entity's attributes, an existing key keeps its original attributes and
// only gains the new entity's sessions.
func (s *SQLiteStore) SaveExtraction(ctx context.Context, sourceFile string, entities []extract.Entity) (*SaveResult, error) {
	result := &SaveResult{SourceFile: sourceFile, ImportID: uuid.NewString()}
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning save transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entities {
		summary, ok := e.(*extract.SessionSummary)
		if !ok {
			continue
		}
		if err := upsertSession(ctx, tx, summary, sourceFile, now); err != nil {
			return nil, err
		}
		result.SummarySaved = true
		result.SessionNumber, result.HasSession = summary.SessionNumber, true
	}

	for _, e := range entities {
		h := e.Header()
		if h.Kind == extract.KindSessionSummary {
			continue
		}
		created, err := upsertEntity(ctx, tx, e, sourceFile, now)
		if err != nil {
			return nil, err
		}
		if created {
			result.Created++
		} else {
			result.Merged++
		}
		if !result.HasSession && len(h.SourceSessions) > 0 {
			result.SessionNumber, result.HasSession = h.SourceSessions[0], true
		}
	}

	var session sql.NullInt64
	if result.HasSession {
		session = sql.NullInt64{Int64: int64(result.SessionNumber), Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO imports (import_id, source_file, session_number, created, merged, imported_at) VALUES (?, ?, ?, ?, ?, ?)`,
		result.ImportID, sourceFile, session, result.Created, result.Merged, now.Format(time.RFC3339),
	); err != nil {
		return nil, fmt.Errorf("logging import: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing save: %w", err)
	}
	return result, nil
}

func upsertSession(ctx context.Context, tx *sql.Tx, ss *extract.SessionSummary, sourceFile string, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (session_number, title, status, brief_synopsis, full_summary, source_file, imported_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_number) DO UPDATE SET
			title = excluded.title,
			status = excluded.status,
			brief_synopsis = excluded.brief_synopsis,
			full_summary = excluded.full_summary,
			source_file = excluded.source_file,
			imported_at = excluded.imported_at`,
		ss.SessionNumber, ss.Title, ss.Status, ss.BriefSynopsis, ss.FullSummary, sourceFile, now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving session %d: %w", ss.SessionNumber, err)
	}
	return nil
}

// upsertEntity reports whether the (kind, title) key was new.
func upsertEntity(ctx context.Context, tx *sql.Tx, e extract.Entity, sourceFile string, now time.Time) (bool, error) {
	h := e.Header()
	stamp := now.Format(time.RFC3339)

	var id int64
	created := false
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM entities WHERE kind = ? AND title = ?`, string(h.Kind), h.Title,
	).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		attrs, err := json.Marshal(e)
		if err != nil {
			return false, fmt.Errorf("encoding %s %q: %w", h.Kind, h.Title, err)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO entities (kind, title, attributes, source_file, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			string(h.Kind), h.Title, string(attrs), sourceFile, stamp, stamp,
		)
		if err != nil {
			return false, fmt.Errorf("inserting %s %q: %w", h.Kind, h.Title, err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return false, fmt.Errorf("getting last insert id: %w", err)
		}
		created = true
	case err != nil:
		return false, fmt.Errorf("looking up %s %q: %w", h.Kind, h.Title, err)
	default:
		if _, err := tx.ExecContext(ctx, `UPDATE entities SET updated_at = ? WHERE id = ?`, stamp, id); err != nil {
			return false, fmt.Errorf("touching %s %q: %w", h.Kind, h.Title, err)
		}
	}

	for _, n := range h.SourceSessions {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO entity_sessions (entity_id, session_number) VALUES (?, ?)`, id, n,
		); err != nil {
			return false, fmt.Errorf("linking %s %q to session %d: %w", h.Kind, h.Title, n, err)
		}
	}
	return created, nil
}

// ListEntities returns catalog entities grouped by kind (NPCs, locations,
// items, quests), each group in first-seen order.
func (s *SQLiteStore) ListEntities(ctx context.Context, opts ListOpts) ([]extract.Entity, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultListLimit
	}

	query := `SELECT e.id, e.attributes FROM entities e WHERE 1=1`
	var args []any
	if opts.Kind != "" {
		query += ` AND e.kind = ?`
		args = append(args, string(opts.Kind))
	}
	if opts.HasSession {
		query += ` AND EXISTS (SELECT 1 FROM entity_sessions es WHERE es.entity_id = e.id AND es.session_number = ?)`
		args = append(args, opts.Session)
	}
	query += ` ORDER BY CASE e.kind WHEN 'npc' THEN 0 WHEN 'location' THEN 1 WHEN 'item' THEN 2 WHEN 'quest' THEN 3 ELSE 4 END, e.id LIMIT ?`
	args = append(args, opts.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	defer rows.Close()

	var ids []int64
	var entities []extract.Entity
	for rows.Next() {
		var id int64
		var attrs string
		if err := rows.Scan(&id, &attrs); err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		e, err := extract.UnmarshalEntity([]byte(attrs))
		if err != nil {
			return nil, fmt.Errorf("decoding entity %d: %w", id, err)
		}
		ids = append(ids, id)
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sessions, err := s.sessionsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i, e := range entities {
		e.Header().SourceSessions = sessions[ids[i]]
	}
	return entities, nil
}

// GetEntity returns the entity with the exact (kind, title) key, or
// ErrNotFound.
func (s *SQLiteStore) GetEntity(ctx context.Context, kind extract.Kind, title string) (extract.Entity, error) {
	var id int64
	var attrs string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, attributes FROM entities WHERE kind = ? AND title = ?`, string(kind), title,
	).Scan(&id, &attrs)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s %q: %w", kind, title, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s %q: %w", kind, title, err)
	}

	e, err := extract.UnmarshalEntity([]byte(attrs))
	if err != nil {
		return nil, fmt.Errorf("decoding entity %d: %w", id, err)
	}
	sessions, err := s.sessionsFor(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	e.Header().SourceSessions = sessions[id]
	return e, nil
}

// sessionsFor loads the sorted session numbers of each entity id.
func (s *SQLiteStore) sessionsFor(ctx context.Context, ids []int64) (map[int64][]int, error) {
	out := make(map[int64][]int, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT entity_id, session_number FROM entity_sessions
		 WHERE entity_id IN (`+strings.Join(placeholders, ",")+`)
		 ORDER BY entity_id, session_number`, args...)
	if err != nil {
		return nil, fmt.Errorf("loading entity sessions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scanning entity session: %w", err)
		}
		out[id] = append(out[id], n)
	}
	return out, rows.Err()
}
