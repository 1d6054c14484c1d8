package eventimx

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/crimson-sun/eventimx/internal/engine/parser"
	"github.com/crimson-sun/eventimx/internal/engine/tokenizer"
	"github.com/crimson-sun/eventimx/internal/model"
	"github.com/crimson-sun/eventimx/internal/output"
	"github.com/crimson-sun/eventimx/internal/output/csv"
	"github.com/crimson-sun/eventimx/internal/output/xlsx"
)

// Tokenize extracts the styled text fragments of every table cell in the
// markup read from r.
func Tokenize(r io.Reader, opts ...Option) ([]Token, error) {
	o := resolve(opts)
	toks, err := tokenizer.Tokenize(r, o.contentType)
	if err != nil {
		return nil, fmt.Errorf("eventimx: %w", err)
	}
	out := make([]Token, len(toks))
	for i, t := range toks {
		out[i] = Token{Text: t.Text, Emphasized: t.Emphasized}
	}
	return out, nil
}

// Parse reconstructs a report from a token stream. It never fails.
func Parse(tokens []Token, opts ...Option) Report {
	o := resolve(opts)
	in := make([]model.Token, len(tokens))
	for i, t := range tokens {
		in[i] = model.Token{Text: t.Text, Emphasized: t.Emphasized}
	}
	return fromModel(parser.Parse(in, o.parserOptions()...))
}

// ParseHTML tokenizes and parses the report markup read from r.
func ParseHTML(r io.Reader, opts ...Option) (Report, error) {
	o := resolve(opts)
	toks, err := tokenizer.Tokenize(r, o.contentType)
	if err != nil {
		return Report{}, fmt.Errorf("eventimx: %w", err)
	}
	return fromModel(parser.Parse(toks, o.parserOptions()...)), nil
}

// WriteWorkbook writes the reports to w as one Excel workbook, one line per
// event row with a column per fee name seen in any report.
func WriteWorkbook(w io.Writer, reports ...Report) error {
	return write(xlsx.NewWriter(w), reports)
}

// WriteCSV writes the same table as WriteWorkbook as semicolon-separated
// text with decimal commas.
func WriteCSV(w io.Writer, reports ...Report) error {
	return write(csv.New(struct{ io.Writer }{w}), reports)
}

func write(out output.Output, reports []Report) error {
	var errs []error
	for _, r := range reports {
		if err := out.Write(context.Background(), toModel(r)); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, out.Close())
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("eventimx: %w", err)
	}
	return nil
}

func resolve(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// fromModel converts the internal report to the public type.
func fromModel(r model.Report) Report {
	out := Report{
		Source:      r.Source,
		Events:      make([]Event, len(r.Events)),
		AllFeeNames: append([]string(nil), r.AllFeeNames...),
	}
	for i, ev := range r.Events {
		rows := make([]Row, len(ev.Rows))
		for j, row := range ev.Rows {
			keys := row.Values.Keys()
			fees := make([]Fee, len(keys))
			for k, name := range keys {
				v, _ := row.Values.Get(name)
				fees[k] = Fee{Name: name, Value: v}
			}
			rows[j] = Row{
				DiscountCategory: row.DiscountCategory,
				PriceCategory:    row.PriceCategory,
				HasPriceCategory: row.HasPriceCategory,
				Fees:             fees,
			}
		}
		out.Events[i] = Event{
			ID:         ev.ID,
			HasID:      ev.HasID,
			Date:       ev.Date,
			EventName:  ev.EventName,
			LocationID: ev.LocationID,
			Location:   ev.Location,
			Address:    ev.Address,
			Rows:       rows,
		}
	}
	for _, d := range r.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, Diagnostic{
			Kind:   string(d.Kind),
			Index:  d.Index,
			Text:   d.Text,
			Detail: d.Detail,
		})
	}
	return out
}

// toModel converts a public report back for the writers.
func toModel(r Report) model.Report {
	out := model.Report{
		Source:      r.Source,
		Events:      make([]model.Event, len(r.Events)),
		AllFeeNames: r.AllFeeNames,
	}
	for i, ev := range r.Events {
		rows := make([]model.Row, len(ev.Rows))
		for j, row := range ev.Rows {
			var fv model.FeeValues
			for _, f := range row.Fees {
				fv.Set(f.Name, f.Value)
			}
			rows[j] = model.Row{
				DiscountCategory: row.DiscountCategory,
				PriceCategory:    row.PriceCategory,
				HasPriceCategory: row.HasPriceCategory,
				Values:           fv,
			}
		}
		out.Events[i] = model.Event{
			ID:         ev.ID,
			HasID:      ev.HasID,
			Date:       ev.Date,
			EventName:  ev.EventName,
			LocationID: ev.LocationID,
			Location:   ev.Location,
			Address:    ev.Address,
			Rows:       rows,
		}
	}
	return out
}
