package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/crimson-sun/eventimx/internal/config"
	"github.com/crimson-sun/eventimx/internal/model"
	"github.com/crimson-sun/eventimx/internal/output"
	"github.com/crimson-sun/eventimx/internal/output/csv"
	"github.com/crimson-sun/eventimx/internal/output/jsonout"
	"github.com/crimson-sun/eventimx/internal/output/sqlite"
	"github.com/crimson-sun/eventimx/internal/output/xlsx"
)

// stdoutPath selects standard output as the destination.
const stdoutPath = "-"

// extensions maps output formats to the file extension used in watch mode.
var extensions = map[string]string{
	"xlsx":   ".xlsx",
	"csv":    ".csv",
	"json":   ".json",
	"sqlite": ".db",
}

// openSink builds the output for format writing to path; "-" writes to stdout.
func openSink(cfg config.Config, format, path string, stdout io.Writer) (output.Output, error) {
	oc := cfg.Output
	switch format {
	case "xlsx":
		opts := []xlsx.Option{xlsx.WithDateFormat(oc.DateFormat)}
		if path == stdoutPath {
			return xlsx.NewWriter(stdout, opts...), nil
		}
		return xlsx.New(path, opts...), nil

	case "csv":
		w, err := create(path, stdout)
		if err != nil {
			return nil, err
		}
		return csv.New(w, csv.WithDelimiter(oc.Delimiter())), nil

	case "json":
		w, err := create(path, stdout)
		if err != nil {
			return nil, err
		}
		out := jsonout.New(w, oc.Pretty, cfg.Engine.Diagnostics)
		if c, ok := w.(io.Closer); ok {
			return &closingOutput{Output: out, closer: c}, nil
		}
		return out, nil

	case "sqlite":
		if path == stdoutPath {
			return nil, errors.New("sqlite output needs a file path")
		}
		return sqlite.New(path)
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

// create opens path for writing. stdout is wrapped to hide any Close
// method so outputs do not close it.
func create(path string, stdout io.Writer) (io.Writer, error) {
	if path == stdoutPath {
		return struct{ io.Writer }{stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	return f, nil
}

// outputName derives the converted file name for a document, e.g.
// "2024-03.html" -> "<dir>/2024-03.xlsx".
func outputName(dir, docName, format string) string {
	base := strings.TrimSuffix(filepath.Base(docName), filepath.Ext(docName))
	if base == "" || base == "." {
		base = "report"
	}
	return filepath.Join(dir, base+extensions[format])
}

// closingOutput closes an underlying file after its output.
type closingOutput struct {
	output.Output
	closer io.Closer
}

func (c *closingOutput) Close() error {
	return errors.Join(c.Output.Close(), c.closer.Close())
}

// tally counts what passes through for the end-of-run summary.
type tally struct {
	mu      sync.Mutex
	reports int
	events  int
	rows    int
	notes   int
}

func (t *tally) Write(_ context.Context, r model.Report) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reports++
	t.events += len(r.Events)
	t.rows += r.RowCount()
	t.notes += len(r.Diagnostics)
	return nil
}

func (t *tally) Close() error { return nil }
