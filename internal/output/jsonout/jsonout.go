// Package jsonout writes parsed reports as newline-delimited JSON.
package jsonout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/crimson-sun/eventimx/internal/model"
)

// Output writes one JSON document per report.
type Output struct {
	enc         *json.Encoder
	diagnostics bool
}

// New creates an Output writing to w, optionally pretty-printed. When
// diagnostics is false they are stripped from every report.
func New(w io.Writer, pretty, diagnostics bool) *Output {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Output{enc: enc, diagnostics: diagnostics}
}

// NewStdout creates an Output writing to os.Stdout.
func NewStdout(pretty, diagnostics bool) *Output {
	return New(os.Stdout, pretty, diagnostics)
}

func (o *Output) Write(_ context.Context, report model.Report) error {
	if !o.diagnostics {
		report.Diagnostics = nil
	}
	if err := o.enc.Encode(report); err != nil {
		return fmt.Errorf("json output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
