package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Response is the success envelope for JSON output.
type Response struct {
	OK      bool   `json:"ok"`
	Data    any    `json:"data,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// ErrorResponse is the error envelope for JSON output.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Code  string `json:"code"`
	Hint  string `json:"hint,omitempty"`
}

// Format specifies the output format.
type Format int

const (
	FormatText  Format = iota // Human-readable lines
	FormatJSON                // JSON envelope
	FormatQuiet               // Data only, no envelope
)

// Options controls output behavior.
type Options struct {
	Format Format
	Writer io.Writer
}

// Writer renders command results in the configured format.
type Writer struct {
	opts Options
}

// New creates a Writer.
func New(opts Options) *Writer {
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}
	return &Writer{opts: opts}
}

// OK renders a success result. The summary is used for text output; data is
// used for JSON and quiet output.
func (w *Writer) OK(data any, summary string) error {
	switch w.opts.Format {
	case FormatJSON:
		return w.writeJSON(Response{OK: true, Data: data, Summary: summary})
	case FormatQuiet:
		if data == nil {
			return nil
		}
		return w.writeJSON(data)
	default:
		if summary != "" {
			fmt.Fprintln(w.opts.Writer, summary)
		}
		return nil
	}
}

// Err renders an error result.
func (w *Writer) Err(err error) error {
	e := AsError(err)
	switch w.opts.Format {
	case FormatJSON, FormatQuiet:
		return w.writeJSON(ErrorResponse{OK: false, Error: e.Message, Code: e.Code, Hint: e.Hint})
	default:
		fmt.Fprintf(w.opts.Writer, "Error: %s\n", e.Message)
		if e.Hint != "" {
			fmt.Fprintf(w.opts.Writer, "Hint: %s\n", e.Hint)
		}
		return nil
	}
}

func (w *Writer) writeJSON(v any) error {
	enc := json.NewEncoder(w.opts.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
