// Package csv writes parsed reports as delimiter-separated text.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/crimson-sun/eventimx/internal/model"
	"github.com/crimson-sun/eventimx/internal/output"
)

const dateLayout = "02.01.2006 15:04"

// Option configures a csv Output.
type Option func(*Output)

// WithDelimiter sets the field separator. Default: ';'.
func WithDelimiter(r rune) Option {
	return func(o *Output) { o.delimiter = r }
}

// WithDecimalComma writes numbers with a decimal comma. Default: true.
func WithDecimalComma(on bool) Option {
	return func(o *Output) { o.decimalComma = on }
}

// Output buffers reports and writes one table on Close.
type Output struct {
	mu           sync.Mutex
	w            io.Writer
	closer       io.Closer
	delimiter    rune
	decimalComma bool
	reports      []model.Report
	closed       bool
}

// New creates a csv Output writing to w. If w is also an io.Closer it is
// closed after the table has been written.
func New(w io.Writer, opts ...Option) *Output {
	o := &Output{w: w, delimiter: ';', decimalComma: true}
	if c, ok := w.(io.Closer); ok {
		o.closer = c
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Output) Write(_ context.Context, report model.Report) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return fmt.Errorf("csv output: write after close")
	}
	o.reports = append(o.reports, report)
	return nil
}

func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true

	err := o.writeTable(output.BuildTable(o.reports...))
	if o.closer != nil {
		if cerr := o.closer.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("csv output: close: %w", cerr)
		}
	}
	return err
}

func (o *Output) writeTable(t output.Table) error {
	w := csv.NewWriter(o.w)
	w.Comma = o.delimiter
	if err := w.Write(t.Header()); err != nil {
		return fmt.Errorf("csv output: header: %w", err)
	}
	for _, rec := range t.Records {
		if err := w.Write(o.format(rec.Cells())); err != nil {
			return fmt.Errorf("csv output: record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csv output: flush: %w", err)
	}
	return nil
}

func (o *Output) format(cells []any) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		switch v := c.(type) {
		case nil:
		case string:
			out[i] = v
		case int:
			out[i] = strconv.Itoa(v)
		case float64:
			s := strconv.FormatFloat(v, 'f', -1, 64)
			if o.decimalComma {
				s = strings.Replace(s, ".", ",", 1)
			}
			out[i] = s
		case time.Time:
			out[i] = v.Format(dateLayout)
		default:
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}
