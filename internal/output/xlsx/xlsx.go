// Package xlsx writes parsed reports to an Excel workbook.
package xlsx

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/crimson-sun/eventimx/internal/model"
	"github.com/crimson-sun/eventimx/internal/output"
)

const (
	// DefaultFileName is the name offered for a converted report.
	DefaultFileName = "report.xlsx"
	// SheetName is the worksheet holding the exported rows.
	SheetName = "events"

	defaultDateFormat = "dd.mm.yy hh:mm"
	fixedColumnWidth  = 18
)

// Option configures an xlsx Output.
type Option func(*Output)

// WithDateFormat sets the Excel number format of the Datum column.
func WithDateFormat(f string) Option {
	return func(o *Output) { o.dateFormat = f }
}

// Output collects reports and writes them as one workbook on Close, since
// the fee columns are only known once every report has been seen.
type Output struct {
	mu         sync.Mutex
	path       string
	w          io.Writer
	dateFormat string
	reports    []model.Report
	closed     bool
}

// New creates an Output that saves the workbook to path.
func New(path string, opts ...Option) *Output {
	return newOutput(path, nil, opts)
}

// NewWriter creates an Output that streams the workbook to w.
func NewWriter(w io.Writer, opts ...Option) *Output {
	return newOutput("", w, opts)
}

func newOutput(path string, w io.Writer, opts []Option) *Output {
	o := &Output{path: path, w: w, dateFormat: defaultDateFormat}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Write queues the report for the workbook.
func (o *Output) Write(_ context.Context, report model.Report) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return fmt.Errorf("xlsx output: write after close")
	}
	o.reports = append(o.reports, report)
	return nil
}

// Close builds the workbook from all queued reports and writes it out.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true

	f, err := Build(output.BuildTable(o.reports...), o.dateFormat)
	if err != nil {
		return err
	}
	defer f.Close()

	if o.w != nil {
		if _, err := f.WriteTo(o.w); err != nil {
			return fmt.Errorf("xlsx output: write: %w", err)
		}
		return nil
	}
	if err := f.SaveAs(o.path); err != nil {
		return fmt.Errorf("xlsx output: save %s: %w", o.path, err)
	}
	return nil
}

// Build renders a table into a new workbook with a frozen header row.
func Build(t output.Table, dateFormat string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := build(f, t, dateFormat); err != nil {
		f.Close()
		return nil, fmt.Errorf("xlsx output: %w", err)
	}
	return f, nil
}

func build(f *excelize.File, t output.Table, dateFormat string) error {
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}

	header := t.Header()
	row := make([]any, len(header))
	for i, h := range header {
		row[i] = h
	}
	if err := setRow(f, 1, row); err != nil {
		return err
	}
	for i, rec := range t.Records {
		if err := setRow(f, i+2, rec.Cells()); err != nil {
			return err
		}
	}

	if len(t.Records) > 0 {
		style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFormat})
		if err != nil {
			return err
		}
		last := fmt.Sprintf("B%d", len(t.Records)+1)
		if err := f.SetCellStyle(SheetName, "B2", last, style); err != nil {
			return err
		}
	}

	lastFixed, err := excelize.ColumnNumberToName(len(output.FixedColumns))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "A", lastFixed, fixedColumnWidth); err != nil {
		return err
	}

	return f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func setRow(f *excelize.File, n int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	return f.SetSheetRow(SheetName, cell, &cells)
}
