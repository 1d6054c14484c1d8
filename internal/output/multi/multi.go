package multi

import (
	"context"
	"errors"
	"fmt"

	"github.com/crimson-sun/eventimx/internal/model"
	"github.com/crimson-sun/eventimx/internal/output"
)

// Multi fans a report out to several outputs, e.g. a workbook plus a
// SQLite archive. A failing output does not stop delivery to the others.
type Multi struct {
	outputs []output.Output
}

// New creates a Multi over the non-nil outputs given.
func New(outputs ...output.Output) *Multi {
	m := &Multi{}
	for _, o := range outputs {
		if o != nil {
			m.outputs = append(m.outputs, o)
		}
	}
	return m
}

// Len returns the number of wrapped outputs.
func (m *Multi) Len() int { return len(m.outputs) }

// Write delivers the report to every output and joins their errors.
func (m *Multi) Write(ctx context.Context, report model.Report) error {
	var errs []error
	for i, o := range m.outputs {
		if err := o.Write(ctx, report); err != nil {
			errs = append(errs, fmt.Errorf("output %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every output and joins their errors.
func (m *Multi) Close() error {
	var errs []error
	for i, o := range m.outputs {
		if err := o.Close(); err != nil {
			errs = append(errs, fmt.Errorf("output %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
