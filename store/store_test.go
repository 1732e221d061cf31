package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/chatflow/core"
)

// testThreadStoreContract exercises the behavior every ThreadStore must
// share: not-found reporting, insert, idempotent replace and enumeration.
func testThreadStoreContract(t *testing.T, s core.ThreadStore) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing-thread")
	require.ErrorIs(t, err, core.ErrThreadNotFound)

	first := core.ThreadRecord{
		ThreadID: "thread-1",
		Workflow: "Simple Chat",
		State:    []byte(`{"messages":[],"chat_profile":"Simple Chat"}`),
	}
	require.NoError(t, s.Upsert(ctx, first))

	got, err := s.Get(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, "thread-1", got.ThreadID)
	assert.Equal(t, "Simple Chat", got.Workflow)
	assert.JSONEq(t, string(first.State), string(got.State))
	assert.False(t, got.CreatedAt.IsZero())
	assert.False(t, got.UpdatedAt.IsZero())

	// Upserting the same thread id replaces workflow and state but keeps the
	// original creation timestamp. Doing it twice must not duplicate rows.
	replaced := core.ThreadRecord{
		ThreadID: "thread-1",
		Workflow: "Simple Chat",
		State:    []byte(`{"messages":[{"type":"human","content":"Hi"}],"chat_profile":"Simple Chat"}`),
	}
	require.NoError(t, s.Upsert(ctx, replaced))
	require.NoError(t, s.Upsert(ctx, replaced))

	got2, err := s.Get(ctx, "thread-1")
	require.NoError(t, err)
	assert.JSONEq(t, string(replaced.State), string(got2.State))
	assert.Equal(t, got.CreatedAt, got2.CreatedAt)
	assert.False(t, got2.UpdatedAt.Before(got2.CreatedAt))

	records, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	second := core.ThreadRecord{
		ThreadID: "thread-2",
		Workflow: "Simple Chat",
		State:    []byte(`{"messages":[]}`),
	}
	require.NoError(t, s.Upsert(ctx, second))

	records, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	require.NoError(t, s.Ping(ctx))
}

func TestMemoryStoreContract(t *testing.T) {
	s := NewMemory()
	defer s.Close()

	testThreadStoreContract(t, s)
}

func TestMemoryStoreCopiesState(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	defer s.Close()

	rec := core.ThreadRecord{
		ThreadID: "thread-1",
		Workflow: "Simple Chat",
		State:    []byte(`{"messages":[]}`),
	}
	require.NoError(t, s.Upsert(ctx, rec))

	// Mutating the caller's buffer must not reach the stored copy.
	rec.State[0] = 'X'

	got, err := s.Get(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, `{"messages":[]}`, string(got.State))

	// Mutating a read result must not reach the stored copy either.
	got.State[0] = 'X'

	again, err := s.Get(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, `{"messages":[]}`, string(again.State))
}

func TestMemoryStoreListSorted(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	defer s.Close()

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.Upsert(ctx, core.ThreadRecord{
			ThreadID: id,
			Workflow: "Simple Chat",
			State:    []byte(`{}`),
		}))
	}

	records, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "a", records[0].ThreadID)
	assert.Equal(t, "b", records[1].ThreadID)
	assert.Equal(t, "c", records[2].ThreadID)
}
