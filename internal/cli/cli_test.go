package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/chatflow/core"
	"github.com/hupe1980/chatflow/internal/config"
	"github.com/hupe1980/chatflow/internal/export"
	"github.com/hupe1980/chatflow/internal/testutil"
	"github.com/hupe1980/chatflow/store"
)

// runCommand executes the root command with the given args and captures its
// output. Flag values persist across executions, so they are reset first.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	exportFormat, exportOut = "json", ""

	var buf bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)

	err := rootCmd.ExecuteContext(context.Background())

	return buf.String(), err
}

// setupStoreEnv points the CLI at a throwaway sqlite store.
func setupStoreEnv(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "threads.db")
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", path)
	t.Setenv("MODEL_PROVIDER", "mock")

	return path
}

func threadRecord(threadID string) core.ThreadRecord {
	return testutil.NewRecordBuilder(threadID).
		State(testutil.NewStateBuilder().
			Profile("Simple Chat").
			Human("What time is it?").
			AssistantCall("call_1", "get_datetime_now", map[string]any{}).
			ToolResult("call_1", "get_datetime_now", `{"now":"2025-06-07T09:26:00Z"}`).
			Assistant("It is 09:26 UTC.").
			Build()).
		Build()
}

func seedThreads(t *testing.T, path string, recs ...core.ThreadRecord) {
	t.Helper()

	st, err := store.NewSQLite(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, st.Close()) }()

	for _, rec := range recs {
		require.NoError(t, st.Upsert(context.Background(), rec))
	}
}

func TestThreadsListCommand(t *testing.T) {
	path := setupStoreEnv(t)
	seedThreads(t, path, threadRecord("thread-1"), threadRecord("thread-2"))

	out, err := runCommand(t, "threads", "list")
	require.NoError(t, err)

	assert.Contains(t, out, "Found 2 thread(s)")
	assert.Contains(t, out, "thread-1")
	assert.Contains(t, out, "thread-2")
	assert.Contains(t, out, "Simple Chat")
}

func TestThreadsListCommandEmpty(t *testing.T) {
	setupStoreEnv(t)

	out, err := runCommand(t, "threads", "list")
	require.NoError(t, err)

	assert.Contains(t, out, "No threads found")
}

func TestThreadsShowCommand(t *testing.T) {
	path := setupStoreEnv(t)
	seedThreads(t, path, threadRecord("thread-1"))

	out, err := runCommand(t, "threads", "show", "thread-1")
	require.NoError(t, err)

	assert.Contains(t, out, "Thread thread-1")
	assert.Contains(t, out, "Human")
	assert.Contains(t, out, "What time is it?")
	assert.Contains(t, out, "-> get_datetime_now (call_1)")
	assert.Contains(t, out, "Tool (get_datetime_now)")
	assert.Contains(t, out, "It is 09:26 UTC.")
}

func TestThreadsShowCommandMissingThread(t *testing.T) {
	setupStoreEnv(t)

	_, err := runCommand(t, "threads", "show", "nope")
	require.ErrorIs(t, err, core.ErrThreadNotFound)
}

func TestThreadsExportCommandStdout(t *testing.T) {
	path := setupStoreEnv(t)
	seedThreads(t, path, threadRecord("thread-1"))

	out, err := runCommand(t, "threads", "export", "thread-1")
	require.NoError(t, err)

	var thread export.Thread
	require.NoError(t, json.Unmarshal([]byte(out), &thread))
	assert.Equal(t, "thread-1", thread.ThreadID)
	assert.Len(t, thread.Messages, 4)
}

func TestThreadsExportCommandToFile(t *testing.T) {
	path := setupStoreEnv(t)
	seedThreads(t, path, threadRecord("thread-1"))

	target := filepath.Join(t.TempDir(), "thread.md")

	out, err := runCommand(t, "threads", "export", "thread-1", "--format", "markdown", "-o", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported thread-1")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Thread thread-1")
}

func TestThreadsExportCommandUnknownFormat(t *testing.T) {
	setupStoreEnv(t)

	_, err := runCommand(t, "threads", "export", "thread-1", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestBuildModel(t *testing.T) {
	cfg := &config.Config{Model: config.ModelConfig{Provider: config.ProviderMock}}

	m, err := buildModel(cfg)
	require.NoError(t, err)
	assert.Equal(t, "mock", m.Info().Provider)

	cfg.Model.Provider = "palm"
	_, err = buildModel(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown model provider")
}

func TestOpenStoreUnknownBackend(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Backend: "cassandra"}}

	_, err := openStore(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store backend")
}
