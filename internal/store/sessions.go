package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hurttlocker/questlog/internal/extract"
)

const sessionColumns = `session_number, title, status, brief_synopsis, full_summary`

// ListSessions returns every stored session summary in session order.
func (s *SQLiteStore) ListSessions(ctx context.Context) ([]*extract.SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY session_number`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []*extract.SessionSummary
	for rows.Next() {
		ss, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ss)
	}
	return out, rows.Err()
}

// GetSession returns the summary for one session number, or ErrNotFound.
func (s *SQLiteStore) GetSession(ctx context.Context, number int) (*extract.SessionSummary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE session_number = ?`, number)
	ss, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %d: %w", number, ErrNotFound)
	}
	return ss, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (*extract.SessionSummary, error) {
	ss := &extract.SessionSummary{Base: extract.Base{Kind: extract.KindSessionSummary}}
	err := r.Scan(&ss.SessionNumber, &ss.Title, &ss.Status, &ss.BriefSynopsis, &ss.FullSummary)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	return ss, nil
}
