package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/langtree"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

func id(obj, owner int64) langtree.ID { return langtree.ID{ObjectID: obj, OwnerID: owner} }

// testSnapshot is a small catalog exercising every table, including a
// duplicate language row and a dangling grant participant.
func testSnapshot() *langtree.Snapshot {
	created := time.Date(2019, 3, 1, 12, 0, 0, 0, time.UTC)
	return &langtree.Snapshot{
		Languages: []langtree.Language{
			{ID: id(1, 1), Translation: "Uralic", CreatedAt: created},
			{ID: id(2, 1), ParentID: ptr(id(1, 1)), Translation: "Finnic", CreatedAt: created.Add(time.Hour)},
			{ID: id(2, 1), Translation: "Finnic duplicate"},
		},
		Dictionaries: []langtree.Dictionary{
			{
				ID: id(10, 1), ParentID: ptr(id(2, 1)), Translation: "Veps dictionary",
				Category: langtree.CategoryDictionary,
				Metadata: langtree.Metadata{Authors: "Zaitseva", Status: "Published", Downloaded: true},
				Perspectives: []langtree.Perspective{
					{ID: id(100, 1), ParentID: ptr(id(10, 1)), Translation: "Lexical entries",
						Permissions: langtree.Permissions{View: true, Edit: true}},
					{ID: id(101, 1), Translation: "Paradigms", Permissions: langtree.Permissions{Limited: true}},
				},
			},
			{ID: id(20, 1), Translation: "Orphan corpus", Category: langtree.CategoryCorpus},
		},
		Grants: []langtree.Grant{
			{ID: id(5, 1), Translation: "RFBR 18-00-00001", ParticipantIDs: []langtree.ID{id(10, 1), id(99, 9)}},
			{ID: id(6, 1), Translation: "Empty grant"},
		},
		Entries: []langtree.Entry{
			{ID: id(1000, 1), PerspectiveID: id(100, 1), Translation: "kala (fish)"},
			{ID: id(1001, 1), PerspectiveID: id(100, 1), Translation: "vesi (water)"},
			{ID: id(1002, 1), PerspectiveID: id(101, 1), Translation: "100%_exact"},
		},
	}
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range append([]string{"metadata"}, tables...) {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestNewStore_BadPath(t *testing.T) {
	t.Parallel()
	_, err := NewStore(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	require.Error(t, err)
}

// =============================================================================
// Snapshot round trip
// =============================================================================

func TestReplaceSnapshot_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	want := testSnapshot()

	snapID, err := s.ReplaceSnapshot(want, "fixture.json")
	require.NoError(t, err)
	_, err = ulid.Parse(snapID)
	require.NoError(t, err, "snapshot id should be a ULID")

	got, err := s.Snapshot()
	require.NoError(t, err)

	require.Len(t, got.Languages, 3)
	assert.Equal(t, want.Languages[0].ID, got.Languages[0].ID)
	assert.Nil(t, got.Languages[0].ParentID)
	assert.True(t, want.Languages[0].CreatedAt.Equal(got.Languages[0].CreatedAt))
	require.NotNil(t, got.Languages[1].ParentID)
	assert.Equal(t, id(1, 1), *got.Languages[1].ParentID)
	assert.Equal(t, "Finnic duplicate", got.Languages[2].Translation, "duplicates are stored as imported")
	assert.True(t, got.Languages[2].CreatedAt.IsZero())

	require.Len(t, got.Dictionaries, 2)
	veps := got.Dictionaries[0]
	assert.Equal(t, want.Dictionaries[0].Metadata, veps.Metadata)
	assert.Equal(t, langtree.CategoryDictionary, veps.Category)
	require.Len(t, veps.Perspectives, 2)
	assert.Equal(t, want.Dictionaries[0].Perspectives, veps.Perspectives)
	assert.Nil(t, got.Dictionaries[1].ParentID)
	assert.Equal(t, langtree.CategoryCorpus, got.Dictionaries[1].Category)
	assert.Empty(t, got.Dictionaries[1].Perspectives)

	require.Len(t, got.Grants, 2)
	assert.Equal(t, []langtree.ID{id(10, 1), id(99, 9)}, got.Grants[0].ParticipantIDs)
	assert.Empty(t, got.Grants[1].ParticipantIDs)

	assert.Equal(t, want.Entries, got.Entries)
}

func TestReplaceSnapshot_ReplacesPrevious(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	first, err := s.ReplaceSnapshot(testSnapshot(), "")
	require.NoError(t, err)

	small := &langtree.Snapshot{
		Languages: []langtree.Language{{ID: id(7, 7), Translation: "Yeniseian"}},
	}
	second, err := s.ReplaceSnapshot(small, "small.json")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	got, err := s.Snapshot()
	require.NoError(t, err)
	assert.Len(t, got.Languages, 1)
	assert.Empty(t, got.Dictionaries)
	assert.Empty(t, got.Grants)
	assert.Empty(t, got.Entries)
}

func TestSnapshot_EmptyStore(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	got, err := s.Snapshot()
	require.NoError(t, err)
	assert.NotNil(t, got.Languages)
	assert.Empty(t, got.Languages)
	assert.Empty(t, got.Dictionaries)
}

// =============================================================================
// Entries
// =============================================================================

func TestSearchEntries(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	_, err := s.ReplaceSnapshot(testSnapshot(), "")
	require.NoError(t, err)

	t.Run("substring ignores ascii case", func(t *testing.T) {
		got, err := s.SearchEntries("FISH", 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, id(1000, 1), got[0].ID)
	})

	t.Run("wildcards are literal", func(t *testing.T) {
		got, err := s.SearchEntries("%_", 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, id(1002, 1), got[0].ID)
	})

	t.Run("limit", func(t *testing.T) {
		got, err := s.SearchEntries("(", 1)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("no match is empty not nil", func(t *testing.T) {
		got, err := s.SearchEntries("zzz", 10)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestEntriesInPerspectives(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	_, err := s.ReplaceSnapshot(testSnapshot(), "")
	require.NoError(t, err)

	got, err := s.EntriesInPerspectives([]langtree.ID{id(101, 1), id(555, 5)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "100%_exact", got[0].Translation)

	none, err := s.EntriesInPerspectives(nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

// =============================================================================
// Metadata & Info
// =============================================================================

func TestMetadata_SetGet(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	v, err := s.GetMetadata("missing")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetMetadata("locale", "ru"))
	require.NoError(t, s.SetMetadata("locale", "fi"))
	v, err = s.GetMetadata("locale")
	require.NoError(t, err)
	assert.Equal(t, "fi", v)
}

func TestInfo(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	info, err := s.Info()
	require.NoError(t, err)
	assert.True(t, info.Empty())

	before := time.Now().Add(-time.Second)
	snapID, err := s.ReplaceSnapshot(testSnapshot(), "fixture.json")
	require.NoError(t, err)

	info, err = s.Info()
	require.NoError(t, err)
	assert.False(t, info.Empty())
	assert.Equal(t, snapID, info.SnapshotID)
	assert.Equal(t, "fixture.json", info.Source)
	assert.True(t, info.ImportedAt.After(before))
	assert.Equal(t, map[string]int{
		"languages":          3,
		"dictionaries":       2,
		"perspectives":       2,
		"grants":             2,
		"grant_participants": 2,
		"entries":            3,
	}, info.Rows)
}

// =============================================================================
// Helpers
// =============================================================================

func TestPairPlaceholders(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", pairPlaceholders(0))
	assert.Equal(t, "(?,?)", pairPlaceholders(1))
	assert.Equal(t, "(?,?),(?,?),(?,?)", pairPlaceholders(3))
	assert.Equal(t, []any{int64(1), int64(2), int64(3), int64(4)}, idsToArgs([]langtree.ID{id(1, 2), id(3, 4)}))
}

func TestLikePattern(t *testing.T) {
	t.Parallel()
	assert.Equal(t, `%a\%b\_c\\%`, likePattern(`a%b_c\`))
}
