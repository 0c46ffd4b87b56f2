package output

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/dossier/dossier/internal/profile"
)

// JSONWriter writes the whole result as one JSON document.
type JSONWriter struct {
	w      *bufio.Writer
	pretty bool
	indent string
}

// NewJSONWriter creates a JSON writer.
func NewJSONWriter(w io.Writer, pretty bool, indent string) *JSONWriter {
	return &JSONWriter{
		w:      bufio.NewWriter(w),
		pretty: pretty,
		indent: indent,
	}
}

// Write serializes the result.
func (w *JSONWriter) Write(res profile.Result) error {
	var output []byte
	var err error
	if w.pretty {
		output, err = json.MarshalIndent(res, "", w.indent)
	} else {
		output, err = json.Marshal(res)
	}
	if err != nil {
		return err
	}

	if _, err := w.w.Write(output); err != nil {
		return err
	}
	if _, err := w.w.WriteString("\n"); err != nil {
		return err
	}
	return w.w.Flush()
}

// Close flushes the writer.
func (w *JSONWriter) Close() error {
	return w.w.Flush()
}

// entryRecord is one JSONL line: a single list entry flattened with its
// owning profile and list, so the stream pipes into line-oriented tooling.
type entryRecord struct {
	Target      string `json:"target"`
	List        string `json:"list"`
	DisplayName string `json:"display_name,omitempty"`
	ProfileURL  string `json:"profile_url,omitempty"`
}

// JSONLWriter writes one line per collected entry.
type JSONLWriter struct {
	w *bufio.Writer
}

// NewJSONLWriter creates a JSONL writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	return &JSONLWriter{
		w: bufio.NewWriter(w),
	}
}

// Write flattens every list of the result into entry lines.
func (w *JSONLWriter) Write(res profile.Result) error {
	for _, list := range res.Lists {
		for _, entry := range list.Entries {
			record := entryRecord{
				Target:      res.Target,
				List:        string(list.Kind),
				DisplayName: entry.DisplayName,
				ProfileURL:  entry.ProfileURL,
			}
			line, err := json.Marshal(record)
			if err != nil {
				return err
			}
			if _, err := w.w.Write(line); err != nil {
				return err
			}
			if _, err := w.w.WriteString("\n"); err != nil {
				return err
			}
		}
	}
	return w.w.Flush()
}

// Close flushes the writer.
func (w *JSONLWriter) Close() error {
	return w.w.Flush()
}
