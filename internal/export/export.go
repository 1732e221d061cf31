// Package export renders persisted conversation threads into portable
// formats: JSON, YAML and Markdown.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/chatflow/core"
)

// Thread is the decoded, format-neutral view of a persisted conversation
// handed to exporters.
type Thread struct {
	ThreadID  string       `json:"thread_id" yaml:"thread_id"`
	Workflow  string       `json:"workflow" yaml:"workflow"`
	CreatedAt time.Time    `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" yaml:"updated_at"`
	Messages  []MessageDoc `json:"messages" yaml:"messages"`
}

// MessageDoc is the flat exportable form of one message, the union of all
// variant fields discriminated by Type.
type MessageDoc struct {
	Type       string          `json:"type" yaml:"type"`
	Content    string          `json:"content" yaml:"content"`
	ToolCalls  []core.ToolCall `json:"tool_calls,omitempty" yaml:"tool_calls,omitempty"`
	Name       string          `json:"name,omitempty" yaml:"name,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty" yaml:"tool_call_id,omitempty"`
}

// FromRecord decodes a stored record into its exportable form.
func FromRecord(rec core.ThreadRecord) (*Thread, error) {
	state, err := core.UnmarshalState(rec.State)
	if err != nil {
		return nil, fmt.Errorf("failed to decode thread %s: %w", rec.ThreadID, err)
	}

	msgs := state.Messages()
	docs := make([]MessageDoc, 0, len(msgs))
	for _, m := range msgs {
		doc := MessageDoc{Type: m.Type(), Content: m.Text()}
		switch v := m.(type) {
		case core.AIMessage:
			doc.ToolCalls = v.ToolCalls
		case core.ToolMessage:
			doc.Name = v.Name
			doc.ToolCallID = v.ToolCallID
		}
		docs = append(docs, doc)
	}

	return &Thread{
		ThreadID:  rec.ThreadID,
		Workflow:  rec.Workflow,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		Messages:  docs,
	}, nil
}

// Exporter defines the interface for all export formats.
type Exporter interface {
	Export(thread *Thread, w io.Writer) error
	Extension() string
}

// NewExporter creates a new exporter based on format.
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "json":
		return &JSONExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: json, yaml, markdown)", format)
	}
}
