// Package parser reconstructs events, price-category rows and fee columns
// from the flat token stream of a sales report.
//
// The report carries no schema. Structure is inferred from token text,
// emphasis and adjacency in a single forward pass: every token is
// classified, and the handler for its class consumes one or more tokens
// and returns the next cursor position.
package parser

import (
	"fmt"
	"strconv"
	"time"

	"github.com/crimson-sun/eventimx/internal/model"
)

// state is the mutable parse state of one Parse call.
type state struct {
	tokens []model.Token
	opts   options
	ref    time.Time

	events  []model.Event
	current model.Event

	discountCategory string
	priceCategory    string
	hasPriceCategory bool

	active *model.FeeNames // fee names of the current event, zip order
	all    *model.FeeNames // union across events, export column order

	diags []model.Diagnostic
}

// Parse reconstructs a report from tokens. It never fails: tokens that fit
// no rule are skipped and, unless disabled, recorded as diagnostics.
// A stream without event headers yields a report with no events.
func Parse(tokens []model.Token, opts ...Option) model.Report {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	s := &state{
		tokens: tokens,
		opts:   o,
		ref:    o.referenceTime(),
		events: []model.Event{},
		active: model.NewFeeNames(),
		all:    model.NewFeeNames(model.DefaultFeeNames...),
	}
	for i := 0; i < len(tokens); {
		i = s.step(i)
	}
	return s.finish()
}

// step handles the token at i and returns the index of the next unhandled token.
func (s *state) step(i int) int {
	switch class := s.classify(i); class {
	case classLegend:
		return s.skipLegend(i)
	case classEventHeader:
		return s.startEvent(i)
	case classLabel:
		return s.label(i)
	default:
		s.skipped(i, class.String())
		return i + 1
	}
}

// skipLegend consumes a price-category legend block through the token
// preceding its "Endpreis" marker. The legend's column names are not kept.
func (s *state) skipLegend(i int) int {
	j := i + 1
	for j+1 < len(s.tokens) && s.tokens[j+1].Text != legendEndToken {
		j++
	}
	if j+1 >= len(s.tokens) {
		s.note(model.DiagTruncated, i, "legend block without "+legendEndToken)
		return len(s.tokens)
	}
	s.skipped(i, fmt.Sprintf("legend block, %d tokens", j+1-i))
	return j + 1
}

// startEvent finalizes the current event if it has an id, reads the new
// header and its fee names, and returns the index after the last fee name.
func (s *state) startEvent(i int) int {
	if s.current.HasID {
		s.events = append(s.events, s.current)
		s.current = model.Event{}
	}

	idText := s.tokens[i].Text
	id, err := strconv.Atoi(idText)
	if err != nil {
		s.note(model.DiagBadHeader, i, "event id out of range")
	}
	s.current.ID = id
	s.current.HasID = true

	dateText := s.tokens[i+1].Text
	if d, ok := parseReportDate(dateText, s.ref, s.opts.location); ok {
		s.current.Date = d
	} else {
		s.note(model.DiagBadDate, i+1, "expected dd.MM.yy HH:mm")
	}

	if line, ok := s.at(i + 2); ok {
		if m := eventLineRe.FindStringSubmatch(line.Text); m != nil {
			s.current.EventName = m[1]
			s.current.LocationID = m[2]
			s.current.Location = m[3]
			s.current.Address = m[4]
		} else {
			s.note(model.DiagBadHeader, i+2, "expected name, location and address lines")
		}
	} else {
		s.note(model.DiagTruncated, i, "event header without name line")
	}

	s.active = model.NewFeeNames(model.DefaultFeeNames...)
	j := min(i+3, len(s.tokens))
	for ; j < len(s.tokens) && s.tokens[j].Emphasized; j++ {
		s.active.Add(s.tokens[j].Text)
		s.all.Add(s.tokens[j].Text)
	}
	return j
}

// label dispatches a plain text token on what follows it.
func (s *state) label(i int) int {
	switch kind := s.classifyLabel(i); kind {
	case labelDiscount:
		s.discountCategory = s.tokens[i].Text
	case labelPriceRow:
		return s.priceRow(i)
	case labelGroupTotal:
		s.priceCategory, s.hasPriceCategory = "", false
	default:
		s.skipped(i, kind.String())
	}
	return i + 1
}

// priceRow records the row labelled by tokens[i] and returns the index of
// the first token after its numeric run. Values are zipped positionally
// onto the active fee names; surplus values are dropped.
func (s *state) priceRow(i int) int {
	s.priceCategory, s.hasPriceCategory = s.tokens[i].Text, true

	var values []float64
	j := i + 1
	for ; j < len(s.tokens) && isNumeric(s.tokens[j]); j++ {
		if isFloat(s.tokens[j]) {
			values = append(values, parseLocaleFloat(s.tokens[j].Text))
		} else {
			values = append(values, parseLocaleInt(s.tokens[j].Text))
		}
	}

	names := s.active.Names()
	var row model.FeeValues
	for k, name := range names {
		if k >= len(values) {
			break
		}
		row.Set(name, values[k])
	}
	if len(values) < len(names) {
		s.note(model.DiagShortRow, i, fmt.Sprintf("%d values for %d fee names", len(values), len(names)))
	}

	s.current.Rows = append(s.current.Rows, model.Row{
		DiscountCategory: s.discountCategory,
		PriceCategory:    s.priceCategory,
		HasPriceCategory: s.hasPriceCategory,
		Values:           row,
	})
	return j
}

func (s *state) finish() model.Report {
	if s.current.HasID || len(s.current.Rows) > 0 {
		if !s.current.HasID {
			s.note(model.DiagEventWithoutID, len(s.tokens), fmt.Sprintf("%d rows before any event header", len(s.current.Rows)))
		}
		s.events = append(s.events, s.current)
	}
	return model.Report{
		Events:      s.events,
		AllFeeNames: s.all.Names(),
		Diagnostics: s.diags,
	}
}

func (s *state) at(i int) (model.Token, bool) {
	if i < 0 || i >= len(s.tokens) {
		return model.Token{}, false
	}
	return s.tokens[i], true
}

func (s *state) skipped(i int, outcome string) {
	s.note(model.DiagSkipped, i, outcome)
}

func (s *state) note(kind model.DiagnosticKind, i int, detail string) {
	if !s.opts.diagnostics {
		return
	}
	d := model.Diagnostic{Kind: kind, Index: i, Detail: detail}
	if t, ok := s.at(i); ok {
		d.Text = t.Text
	}
	s.diags = append(s.diags, d)
}
