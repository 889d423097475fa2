package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, InitSchema(db))
	require.NoError(t, InitSchema(db), "schema creation is idempotent")
	return NewStore(db)
}

func TestSaveAndRecentAnalyses(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveAnalysis(Analysis{TS: base, Symbol: "AAPL", Kind: "overview", Provider: "openai", Model: "gpt-4o-mini", Success: true, Duration: 1200, Answer: "ok"}))
	require.NoError(t, s.SaveAnalysis(Analysis{TS: base.Add(time.Minute), Symbol: "AAPL", Kind: "question", Success: false, Error: "quota", Question: "why?"}))
	require.NoError(t, s.SaveAnalysis(Analysis{TS: base.Add(2 * time.Minute), Symbol: "MSFT", Kind: "overview", Success: true}))

	got, err := s.RecentAnalyses("AAPL", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "question", got[0].Kind)
	assert.False(t, got[0].Success)
	assert.Equal(t, "quota", got[0].Error)
	assert.Equal(t, "why?", got[0].Question)
	assert.Equal(t, "overview", got[1].Kind)
	assert.Equal(t, int64(1200), got[1].Duration)
	assert.True(t, got[1].TS.Equal(base))

	all, err := s.RecentAnalyses("", 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "MSFT", all[0].Symbol)
}

func TestOpenSQLite_CreatesDirForFileDSN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "stockdesk.db")
	db, err := OpenSQLite("file:" + path + "?_fk=1")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, InitSchema(db))
	require.NoError(t, NewStore(db).SaveAnalysis(Analysis{TS: time.Now(), Symbol: "AAPL", Kind: "overview", Success: true}))
	assert.FileExists(t, path)
}

func TestDSNPath(t *testing.T) {
	assert.Equal(t, "data/x.db", dsnPath("file:data/x.db?_fk=1"))
	assert.Equal(t, "data/x.db", dsnPath("data/x.db"))
	assert.Equal(t, "", dsnPath(":memory:"))
	assert.Equal(t, "", dsnPath("file::memory:?cache=shared"))
	assert.Equal(t, "", dsnPath("file:x?mode=memory"))
}
