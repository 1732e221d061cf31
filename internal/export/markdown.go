package export

import (
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/chatflow/core"
)

// MarkdownExporter exports threads in Markdown format.
type MarkdownExporter struct{}

// roleHeadings maps message type tags to transcript headings.
var roleHeadings = map[string]string{
	core.MessageTypeSystem: "System",
	core.MessageTypeHuman:  "Human",
	core.MessageTypeAI:     "Assistant",
	core.MessageTypeTool:   "Tool",
}

// Export exports a thread to Markdown format.
func (e *MarkdownExporter) Export(thread *Thread, w io.Writer) error {
	_, _ = fmt.Fprintf(w, "# Thread %s\n\n", thread.ThreadID)
	_, _ = fmt.Fprintf(w, "**Workflow:** %s  \n", thread.Workflow)
	_, _ = fmt.Fprintf(w, "**Messages:** %d  \n", len(thread.Messages))
	if !thread.UpdatedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "**Updated:** %s  \n", thread.UpdatedAt.Format(time.RFC3339))
	}
	_, _ = fmt.Fprintf(w, "\n---\n\n")

	for i, msg := range thread.Messages {
		heading := roleHeadings[msg.Type]
		if heading == "" {
			heading = msg.Type
		}

		switch {
		case msg.Type == core.MessageTypeTool:
			_, _ = fmt.Fprintf(w, "**%s (%s):**\n\n```json\n%s\n```\n\n", heading, msg.Name, msg.Content)
		case len(msg.ToolCalls) > 0:
			_, _ = fmt.Fprintf(w, "**%s:**\n\n", heading)
			if msg.Content != "" {
				_, _ = fmt.Fprintf(w, "%s\n\n", msg.Content)
			}
			for _, call := range msg.ToolCalls {
				_, _ = fmt.Fprintf(w, "- requested `%s` (call `%s`)\n", call.Name, call.ID)
			}
			_, _ = fmt.Fprintf(w, "\n")
		default:
			_, _ = fmt.Fprintf(w, "**%s:**\n\n%s\n\n", heading, msg.Content)
		}

		if i < len(thread.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

// Extension returns the file extension for this format.
func (e *MarkdownExporter) Extension() string {
	return "md"
}
