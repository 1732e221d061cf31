package export

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/chatflow/core"
	"github.com/hupe1980/chatflow/internal/testutil"
)

func testRecord(t *testing.T) core.ThreadRecord {
	t.Helper()

	rec := testutil.NewRecordBuilder("thread-1").
		State(testutil.NewStateBuilder().
			Profile("Simple Chat").
			Human("What time is it?").
			AssistantCall("call_1", "get_datetime_now", nil).
			ToolResult("call_1", "get_datetime_now", `"2025-03-14T09:26:53Z"`).
			Assistant("It is 09:26 UTC.").
			Build()).
		Build()

	rec.CreatedAt = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	rec.UpdatedAt = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	return rec
}

func TestFromRecord(t *testing.T) {
	thread, err := FromRecord(testRecord(t))
	require.NoError(t, err)

	assert.Equal(t, "thread-1", thread.ThreadID)
	assert.Equal(t, "Simple Chat", thread.Workflow)
	require.Len(t, thread.Messages, 4)

	assert.Equal(t, core.MessageTypeHuman, thread.Messages[0].Type)
	require.Len(t, thread.Messages[1].ToolCalls, 1)
	assert.Equal(t, "call_1", thread.Messages[1].ToolCalls[0].ID)
	assert.Equal(t, "call_1", thread.Messages[2].ToolCallID)
	assert.Equal(t, "It is 09:26 UTC.", thread.Messages[3].Content)
}

func TestFromRecordCorruptState(t *testing.T) {
	rec := core.ThreadRecord{
		ThreadID: "thread-1",
		Workflow: "Simple Chat",
		State:    []byte(`{"messages":[{"type":"__import__"}]}`),
	}

	_, err := FromRecord(rec)
	require.Error(t, err)

	var variantErr *core.UnknownVariantError
	assert.ErrorAs(t, err, &variantErr)
}

func TestNewExporter(t *testing.T) {
	tests := []struct {
		format  string
		wantExt string
		wantErr bool
	}{
		{format: "json", wantExt: "json"},
		{format: "yaml", wantExt: "yaml"},
		{format: "yml", wantExt: "yaml"},
		{format: "md", wantExt: "md"},
		{format: "markdown", wantExt: "md"},
		{format: "xml", wantErr: true},
		{format: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("format "+tt.format, func(t *testing.T) {
			exporter, err := NewExporter(tt.format)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantExt, exporter.Extension())
		})
	}
}

func TestJSONExporter(t *testing.T) {
	thread, err := FromRecord(testRecord(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, (&JSONExporter{}).Export(thread, &buf))

	var decoded Thread
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, thread.ThreadID, decoded.ThreadID)
	assert.Len(t, decoded.Messages, 4)
	assert.Equal(t, "call_1", decoded.Messages[1].ToolCalls[0].ID)
}

func TestYAMLExporter(t *testing.T) {
	thread, err := FromRecord(testRecord(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, (&YAMLExporter{}).Export(thread, &buf))

	var decoded Thread
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, thread.ThreadID, decoded.ThreadID)
	assert.Len(t, decoded.Messages, 4)
}

func TestMarkdownExporter(t *testing.T) {
	thread, err := FromRecord(testRecord(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, (&MarkdownExporter{}).Export(thread, &buf))

	out := buf.String()
	assert.Contains(t, out, "# Thread thread-1")
	assert.Contains(t, out, "**Workflow:** Simple Chat")
	assert.Contains(t, out, "**Human:**")
	assert.Contains(t, out, "requested `get_datetime_now` (call `call_1`)")
	assert.Contains(t, out, "**Tool (get_datetime_now):**")
	assert.Contains(t, out, "It is 09:26 UTC.")
}
