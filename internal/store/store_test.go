package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hurttlocker/questlog/internal/extract"
)

// newTestStore creates an in-memory store for testing.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewStore(StoreConfig{DBPath: ":memory:"})
	require.NoError(t, err, "failed to create test store")
	t.Cleanup(func() { s.Close() })
	return s.(*SQLiteStore)
}

func sessionOne() []extract.Entity {
	return []extract.Entity{
		&extract.SessionSummary{
			Base:          extract.Base{Kind: extract.KindSessionSummary, Title: "The Yawning Portal"},
			SessionNumber: 1,
			Status:        "complete",
			BriefSynopsis: "The party met Durnan.",
			FullSummary:   "The party met Durnan.",
		},
		&extract.NPC{Base: extract.Base{Kind: extract.KindNPC, Title: "Durnan", SourceSessions: []int{1}}, Role: "barkeep", Importance: extract.ImportanceSupporting},
		&extract.Location{Base: extract.Base{Kind: extract.KindLocation, Title: "Yawning Portal", SourceSessions: []int{1}}, Type: extract.LocationTavern},
		&extract.Item{Base: extract.Base{Kind: extract.KindItem, Title: "ancestral blade", SourceSessions: []int{1}}, Type: extract.ItemWeapon, Owner: "Thorin"},
		&extract.Quest{Base: extract.Base{Kind: extract.KindQuest, Title: "Rescue the missing miners", SourceSessions: []int{1}}, Status: "active"},
	}
}

// --- Database Initialization ---

func TestNewStore(t *testing.T) {
	s := newTestStore(t)

	for _, table := range []string{"sessions", "entities", "entity_sessions", "imports", "meta"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		assert.NoError(t, err, "table %q not found", table)
	}

	done, err := s.isMetaFlagEnabled("schema_bootstrap_complete")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestNewStore_FileReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "questlog.db")
	ctx := context.Background()

	s, err := NewStore(StoreConfig{DBPath: path})
	require.NoError(t, err)
	_, err = s.SaveExtraction(ctx, "session_1.md", sessionOne())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Migrations are idempotent and data survives.
	s, err = NewStore(StoreConfig{DBPath: path})
	require.NoError(t, err)
	defer s.Close()

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Entities)
	assert.Equal(t, int64(1), stats.Sessions)
	assert.Positive(t, stats.DBSizeBytes)
}

func TestMigrateImportIDs_LegacyTable(t *testing.T) {
	s := newTestStore(t)

	has, err := s.hasColumn("imports", "import_id")
	require.NoError(t, err)
	assert.True(t, has)

	// A catalog created before import ids existed gains the column on reopen.
	_, err = s.db.Exec(`DROP TABLE imports`)
	require.NoError(t, err)
	_, err = s.db.Exec(`CREATE TABLE imports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_file TEXT NOT NULL,
		session_number INTEGER,
		created INTEGER NOT NULL DEFAULT 0,
		merged INTEGER NOT NULL DEFAULT 0,
		imported_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	require.NoError(t, err)
	_, err = s.db.Exec(`DELETE FROM meta WHERE key = 'import_ids_v1'`)
	require.NoError(t, err)

	require.NoError(t, s.migrate())
	has, err = s.hasColumn("imports", "import_id")
	require.NoError(t, err)
	assert.True(t, has)
}

// --- SaveExtraction ---

func TestSaveExtraction_ImportID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.SaveExtraction(ctx, "session_1.md", sessionOne())
	require.NoError(t, err)
	second, err := s.SaveExtraction(ctx, "session_1.md", sessionOne())
	require.NoError(t, err)

	_, err = uuid.Parse(first.ImportID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ImportID, second.ImportID)

	var source string
	err = s.db.QueryRow(`SELECT source_file FROM imports WHERE import_id = ?`, second.ImportID).Scan(&source)
	require.NoError(t, err)
	assert.Equal(t, "session_1.md", source)
}

func TestSaveExtraction_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.SaveExtraction(ctx, "session_1.md", sessionOne())
	require.NoError(t, err)
	assert.True(t, res.SummarySaved)
	assert.Equal(t, 1, res.SessionNumber)
	assert.Equal(t, 4, res.Created)
	assert.Equal(t, 0, res.Merged)

	got, err := s.ListEntities(ctx, ListOpts{})
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, sessionOne()[1:], got)
}

func TestSaveExtraction_FirstAttributesWinSessionsUnion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.SaveExtraction(ctx, "session_1.md", sessionOne())
	require.NoError(t, err)

	later := []extract.Entity{
		&extract.NPC{Base: extract.Base{Kind: extract.KindNPC, Title: "Durnan", SourceSessions: []int{3}}, Role: "innkeeper", Status: "missing"},
		&extract.NPC{Base: extract.Base{Kind: extract.KindNPC, Title: "Volo", SourceSessions: []int{3}}, Role: "author"},
	}
	res, err := s.SaveExtraction(ctx, "session_3.md", later)
	require.NoError(t, err)
	assert.False(t, res.SummarySaved)
	assert.Equal(t, 3, res.SessionNumber)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Merged)

	e, err := s.GetEntity(ctx, extract.KindNPC, "Durnan")
	require.NoError(t, err)
	durnan := e.(*extract.NPC)
	assert.Equal(t, "barkeep", durnan.Role)
	assert.Empty(t, durnan.Status)
	assert.Equal(t, []int{1, 3}, durnan.SourceSessions)

	// Re-importing the same session adds nothing new.
	_, err = s.SaveExtraction(ctx, "session_3.md", later)
	require.NoError(t, err)
	e, err = s.GetEntity(ctx, extract.KindNPC, "Durnan")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, e.Header().SourceSessions)
}

func TestSaveExtraction_LatestSummaryWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.SaveExtraction(ctx, "draft.md", []extract.Entity{
		&extract.SessionSummary{Base: extract.Base{Kind: extract.KindSessionSummary, Title: "Draft"}, SessionNumber: 2, Status: "draft"},
	})
	require.NoError(t, err)
	_, err = s.SaveExtraction(ctx, "final.md", []extract.Entity{
		&extract.SessionSummary{Base: extract.Base{Kind: extract.KindSessionSummary, Title: "Final"}, SessionNumber: 2, Status: "complete", FullSummary: "Done."},
	})
	require.NoError(t, err)

	ss, err := s.GetSession(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Final", ss.Title)
	assert.Equal(t, "complete", ss.Status)
	assert.Equal(t, extract.KindSessionSummary, ss.Kind)

	all, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSaveExtraction_NoSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.SaveExtraction(ctx, "notes.md", []extract.Entity{
		&extract.NPC{Base: extract.Base{Kind: extract.KindNPC, Title: "Durnan"}},
	})
	require.NoError(t, err)
	assert.Zero(t, res.SessionNumber)
	assert.False(t, res.HasSession)

	var logged sql.NullInt64
	require.NoError(t, s.db.QueryRow(`SELECT session_number FROM imports WHERE import_id = ?`, res.ImportID).Scan(&logged))
	assert.False(t, logged.Valid, "imports row should record no session")

	e, err := s.GetEntity(ctx, extract.KindNPC, "Durnan")
	require.NoError(t, err)
	assert.Nil(t, e.Header().SourceSessions)
}

func TestSaveExtraction_SessionZero(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.SaveExtraction(ctx, "session_0.md", []extract.Entity{
		&extract.SessionSummary{Base: extract.Base{Kind: extract.KindSessionSummary, Title: "Character Creation"}, SessionNumber: 0, Status: "complete"},
		&extract.NPC{Base: extract.Base{Kind: extract.KindNPC, Title: "Durnan", SourceSessions: []int{0}}},
	})
	require.NoError(t, err)
	assert.True(t, res.HasSession)
	assert.Equal(t, 0, res.SessionNumber)

	var logged sql.NullInt64
	require.NoError(t, s.db.QueryRow(`SELECT session_number FROM imports WHERE import_id = ?`, res.ImportID).Scan(&logged))
	assert.True(t, logged.Valid, "session 0 must be logged, not NULL")
	assert.Equal(t, int64(0), logged.Int64)

	_, err = s.SaveExtraction(ctx, "session_1.md", sessionOne())
	require.NoError(t, err)

	zero, err := s.ListEntities(ctx, ListOpts{Session: 0, HasSession: true})
	require.NoError(t, err)
	require.Len(t, zero, 1)
	assert.Equal(t, "Durnan", zero[0].Header().Title)
	assert.Equal(t, []int{0, 1}, zero[0].Header().SourceSessions)

	all, err := s.ListEntities(ctx, ListOpts{})
	require.NoError(t, err)
	assert.Len(t, all, 4, "no session filter lists everything")

	ss, err := s.GetSession(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "Character Creation", ss.Title)
}

// --- Queries ---

func TestListEntities_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.SaveExtraction(ctx, "session_1.md", sessionOne())
	require.NoError(t, err)
	_, err = s.SaveExtraction(ctx, "session_2.md", []extract.Entity{
		&extract.NPC{Base: extract.Base{Kind: extract.KindNPC, Title: "Volo", SourceSessions: []int{2}}},
		&extract.Location{Base: extract.Base{Kind: extract.KindLocation, Title: "Waterdeep", SourceSessions: []int{2}}, Type: extract.LocationCity},
	})
	require.NoError(t, err)

	npcs, err := s.ListEntities(ctx, ListOpts{Kind: extract.KindNPC})
	require.NoError(t, err)
	require.Len(t, npcs, 2)
	assert.Equal(t, "Durnan", npcs[0].Header().Title)
	assert.Equal(t, "Volo", npcs[1].Header().Title)

	two, err := s.ListEntities(ctx, ListOpts{Session: 2, HasSession: true})
	require.NoError(t, err)
	require.Len(t, two, 2)
	assert.Equal(t, extract.KindNPC, two[0].Header().Kind)
	assert.Equal(t, extract.KindLocation, two[1].Header().Kind)

	limited, err := s.ListEntities(ctx, ListOpts{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, limited, 3)

	none, err := s.ListEntities(ctx, ListOpts{Session: 99, HasSession: true})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetEntity_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetEntity(context.Background(), extract.KindNPC, "Nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetSession(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVacuum(t *testing.T) {
	dir := t.TempDir()
	st, err := NewStore(StoreConfig{DBPath: filepath.Join(dir, "questlog.db")})
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()

	_, err = st.SaveExtraction(ctx, "session_1.md", sessionOne())
	require.NoError(t, err)
	require.NoError(t, st.Vacuum(ctx))

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Entities, "vacuum keeps the catalog intact")
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	empty, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, empty.Entities)
	assert.Empty(t, empty.LastImport)
	assert.Equal(t, int64(0), empty.ByKind["npc"])

	_, err = s.SaveExtraction(ctx, "session_1.md", sessionOne())
	require.NoError(t, err)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Sessions)
	assert.Equal(t, int64(4), stats.Entities)
	assert.Equal(t, int64(1), stats.Imports)
	assert.NotEmpty(t, stats.LastImport)
	for _, k := range extract.Kinds {
		assert.Equal(t, int64(1), stats.ByKind[string(k)], "kind %s", k)
	}
	assert.Zero(t, stats.DBSizeBytes, "in-memory databases report no size")
}
