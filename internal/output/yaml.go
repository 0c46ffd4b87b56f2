package output

import (
	"bufio"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/dossier/dossier/internal/profile"
)

// YAMLWriter writes the whole result as one YAML document.
type YAMLWriter struct {
	w *bufio.Writer
}

// NewYAMLWriter creates a YAML writer.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	return &YAMLWriter{
		w: bufio.NewWriter(w),
	}
}

// Write serializes the result.
func (w *YAMLWriter) Write(res profile.Result) error {
	encoder := yaml.NewEncoder(w.w)
	encoder.SetIndent(2)

	if err := encoder.Encode(res); err != nil {
		return err
	}
	if err := encoder.Close(); err != nil {
		return err
	}
	return w.w.Flush()
}

// Close flushes the writer.
func (w *YAMLWriter) Close() error {
	return w.w.Flush()
}
