package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/chatflow/core"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "chatflow.db") + "?_journal=WAL"

	s, err := NewSQLite(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s, dsn
}

func TestSQLiteStoreContract(t *testing.T) {
	s, _ := newTestSQLite(t)
	testThreadStoreContract(t, s)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	s, dsn := newTestSQLite(t)

	rec := core.ThreadRecord{
		ThreadID: "thread-1",
		Workflow: "Simple Chat",
		State:    []byte(`{"messages":[{"type":"human","content":"Hi"}]}`),
	}
	require.NoError(t, s.Upsert(ctx, rec))
	require.NoError(t, s.Close())

	reopened, err := NewSQLite(dsn)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, "Simple Chat", got.Workflow)
	assert.JSONEq(t, string(rec.State), string(got.State))
}

func TestSQLiteStoreListOrdersByRecency(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSQLite(t)

	require.NoError(t, s.Upsert(ctx, core.ThreadRecord{ThreadID: "old", Workflow: "Simple Chat", State: []byte(`{}`)}))
	require.NoError(t, s.Upsert(ctx, core.ThreadRecord{ThreadID: "new", Workflow: "Simple Chat", State: []byte(`{}`)}))

	// Touch the older record so it becomes the most recent.
	require.NoError(t, s.Upsert(ctx, core.ThreadRecord{ThreadID: "old", Workflow: "Simple Chat", State: []byte(`{"touched":true}`)}))

	records, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "old", records[0].ThreadID)
}
