package export

import (
	"encoding/json"
	"io"
)

// JSONExporter exports threads in JSON format (pretty-printed).
type JSONExporter struct{}

// Export exports a thread to JSON format.
func (e *JSONExporter) Export(thread *Thread, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(thread)
}

// Extension returns the file extension for this format.
func (e *JSONExporter) Extension() string {
	return "json"
}
