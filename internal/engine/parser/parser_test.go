package parser

import (
	"reflect"
	"testing"
	"time"

	"github.com/crimson-sun/eventimx/internal/model"
)

var refTime = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

func bold(s string) model.Token  { return model.Token{Text: s, Emphasized: true} }
func plain(s string) model.Token { return model.Token{Text: s} }

func parse(tokens []model.Token, opts ...Option) model.Report {
	return Parse(tokens, append([]Option{WithReferenceTime(refTime)}, opts...)...)
}

// header returns the three tokens that open an event.
func header(id, date, name, locID, location, address string) []model.Token {
	return []model.Token{
		bold(id),
		plain(date),
		plain(name + "\n" + locID + " / " + location + "\n" + address),
	}
}

func tokens(groups ...[]model.Token) []model.Token {
	var out []model.Token
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// twoEventReport mirrors the layout of a real export: boilerplate, a legend,
// two events with extra fee columns, discount groups, subtotals and totals.
func twoEventReport() []model.Token {
	return tokens(
		[]model.Token{
			bold("Allgemeiner Verkaufsbericht"),
			plain("Gedruckt am: 03.03.23 08:15"),
			plain("Zeitraum: 01.01.23 - 28.02.23"),
			plain("inkl. Stornos"),
			plain("Alle Preise in EUR"),
			bold("VA Nr."),
			bold("Datum"),
			bold("Veranstaltung\nVeranstaltungsstätte: Nr / Name\nAdresse"),
			plain("Preiskategorie"),
			plain("Kat. 1"),
			plain("Kat. 2"),
			bold("Endpreis"),
		},
		header("1001", "01.02.23 19:30", "Jazz Night", "4711", "Stadthalle", "Marktplatz 1, 12345 Musterstadt"),
		[]model.Token{
			bold("Ticketversand"),
			plain("Normalpreis"),
			plain("Kategorie 1"),
			plain("45,00"),
			plain("12"),
			plain("38,50"),
			plain("4,00"),
			plain("2,50"),
			plain("1,00"),
			plain("Kategorie 2"),
			plain("1.234,50"),
			plain("3"),
			plain("30,00"),
			plain("3,00"),
			plain("2,00"),
			plain("0,00"),
			plain("Summe Normalpreis"),
			plain("15"),
			plain("Ermaessigt"),
			plain("Kategorie 1"),
			plain("- 22,50"),
			plain("- 1"),
			plain("Summe Veranstaltung 1001"),
			plain("14"),
		},
		header("1002", "02.02.23 20:00", "Rock Abend", "815", "Club", "Bahnhofstr. 2"),
		[]model.Token{
			plain("Normalpreis"),
			plain("Stehplatz"),
			plain("25,00"),
			plain("100"),
			plain("20,00"),
			plain("3,00"),
			plain("2,00"),
			bold("Gesamt"),
			plain("1.0.3.2"),
		},
	)
}

func TestParseMinimalSingleEvent(t *testing.T) {
	report := parse([]model.Token{
		bold("42"),
		plain("01.02.23 19:30"),
		plain("Show\n1 / Hall\nStreet 1"),
		bold("Grundpreis"),
		plain("VIP"),
		plain("10,00"),
		plain("5"),
	})

	if len(report.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(report.Events))
	}
	ev := report.Events[0]
	if ev.ID != 42 || !ev.HasID {
		t.Fatalf("expected id 42, got %d (HasID=%v)", ev.ID, ev.HasID)
	}
	if ev.EventName != "Show" || ev.LocationID != "1" || ev.Location != "Hall" || ev.Address != "Street 1" {
		t.Fatalf("unexpected event fields: %+v", ev)
	}
	wantDate := time.Date(2023, time.February, 1, 19, 30, 0, 0, time.UTC)
	if !ev.Date.Equal(wantDate) {
		t.Fatalf("expected date %v, got %v", wantDate, ev.Date)
	}
	if len(ev.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(ev.Rows))
	}
	row := ev.Rows[0]
	if row.PriceCategory != "VIP" || !row.HasPriceCategory {
		t.Fatalf("expected price category VIP, got %q", row.PriceCategory)
	}
	// Grundpreis is already a default, so zipping starts at the first default.
	wantKeys := []string{"Einzel Endpreis", "Anzahl Tickets"}
	if got := row.Values.Keys(); !reflect.DeepEqual(got, wantKeys) {
		t.Fatalf("expected keys %v, got %v", wantKeys, got)
	}
	if v, _ := row.Values.Get("Einzel Endpreis"); v != 10 {
		t.Fatalf("expected Einzel Endpreis=10, got %v", v)
	}
	if v, _ := row.Values.Get("Anzahl Tickets"); v != 5 {
		t.Fatalf("expected Anzahl Tickets=5, got %v", v)
	}
	if !reflect.DeepEqual(report.AllFeeNames, model.DefaultFeeNames) {
		t.Fatalf("expected default fee names, got %v", report.AllFeeNames)
	}
}

func TestParseBoilerplateOnly(t *testing.T) {
	report := parse([]model.Token{
		bold("Allgemeiner Verkaufsbericht"),
		plain("Gedruckt am: 03.03.23 08:15"),
		plain("Alle Preise in EUR"),
		plain("inkl. Stornos"),
		bold("Datum"),
		plain("1.0.3.2"),
	})

	if report.Events == nil || len(report.Events) != 0 {
		t.Fatalf("expected empty non-nil events, got %#v", report.Events)
	}
	if !reflect.DeepEqual(report.AllFeeNames, model.DefaultFeeNames) {
		t.Fatalf("expected default fee names, got %v", report.AllFeeNames)
	}
	for _, d := range report.Diagnostics {
		if d.Kind != model.DiagSkipped || d.Detail != "noise" {
			t.Fatalf("expected only noise skips, got %v", d)
		}
	}
	if len(report.Diagnostics) != 6 {
		t.Fatalf("expected 6 diagnostics, got %d", len(report.Diagnostics))
	}
}

func TestParseEmptyInput(t *testing.T) {
	report := parse(nil)
	if len(report.Events) != 0 {
		t.Fatalf("expected no events, got %d", len(report.Events))
	}
	if len(report.Diagnostics) != 0 {
		t.Fatalf("expected no diagnostics, got %v", report.Diagnostics)
	}
}

func TestParseFullReport(t *testing.T) {
	report := parse(twoEventReport())

	if len(report.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(report.Events))
	}
	first, second := report.Events[0], report.Events[1]
	if first.ID != 1001 || second.ID != 1002 {
		t.Fatalf("events out of order: %d, %d", first.ID, second.ID)
	}
	if first.Address != "Marktplatz 1, 12345 Musterstadt" {
		t.Fatalf("unexpected address %q", first.Address)
	}

	wantAll := append(append([]string{}, model.DefaultFeeNames...), "Ticketversand")
	if !reflect.DeepEqual(report.AllFeeNames, wantAll) {
		t.Fatalf("expected all fee names %v, got %v", wantAll, report.AllFeeNames)
	}

	if len(first.Rows) != 3 {
		t.Fatalf("expected 3 rows in first event, got %d", len(first.Rows))
	}
	r0 := first.Rows[0]
	if r0.DiscountCategory != "Normalpreis" || r0.PriceCategory != "Kategorie 1" {
		t.Fatalf("unexpected row labels: %+v", r0)
	}
	if v, _ := r0.Values.Get("Ticketversand"); v != 1 {
		t.Fatalf("expected Ticketversand=1, got %v", v)
	}
	if r0.Values.Len() != 6 {
		t.Fatalf("expected 6 values, got %d", r0.Values.Len())
	}
	if v, _ := first.Rows[1].Values.Get("Einzel Endpreis"); v != 1234.5 {
		t.Fatalf("expected 1234.5, got %v", v)
	}

	r2 := first.Rows[2]
	if r2.DiscountCategory != "Ermaessigt" || r2.PriceCategory != "Kategorie 1" {
		t.Fatalf("unexpected row labels: %+v", r2)
	}
	if v, _ := r2.Values.Get("Einzel Endpreis"); v != -22.5 {
		t.Fatalf("expected -22.5, got %v", v)
	}
	if v, _ := r2.Values.Get("Anzahl Tickets"); v != -1 {
		t.Fatalf("expected -1, got %v", v)
	}

	if len(second.Rows) != 1 {
		t.Fatalf("expected 1 row in second event, got %d", len(second.Rows))
	}
	// The second event has no extra fee column, its active set is the defaults.
	if got := second.Rows[0].Values.Keys(); !reflect.DeepEqual(got, model.DefaultFeeNames) {
		t.Fatalf("expected default keys, got %v", got)
	}
	if second.Rows[0].DiscountCategory != "Normalpreis" {
		t.Fatalf("expected discount category carried, got %q", second.Rows[0].DiscountCategory)
	}
}

func TestParseIdempotent(t *testing.T) {
	input := twoEventReport()
	a := parse(input)
	b := parse(input)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("parsing the same tokens twice produced different reports")
	}
}

func TestParseRowKeysSubsetOfFeeNames(t *testing.T) {
	report := parse(twoEventReport())
	all := model.NewFeeNames(report.AllFeeNames...)
	for _, ev := range report.Events {
		for _, row := range ev.Rows {
			for _, k := range row.Values.Keys() {
				if !all.Contains(k) {
					t.Fatalf("event %d: row key %q not in fee names %v", ev.ID, k, report.AllFeeNames)
				}
			}
		}
	}
	for _, name := range model.DefaultFeeNames {
		if !all.Contains(name) {
			t.Fatalf("expected default fee name %q", name)
		}
	}
}

func TestEventFinalizedOnNextHeader(t *testing.T) {
	input := twoEventReport()
	secondHeader := -1
	for i, tok := range input {
		if tok.Text == "1002" {
			secondHeader = i
		}
	}

	s := &state{
		tokens: input,
		opts:   defaultOptions(),
		ref:    refTime,
		events: []model.Event{},
		active: model.NewFeeNames(),
		all:    model.NewFeeNames(model.DefaultFeeNames...),
	}
	i := 0
	for i < secondHeader {
		i = s.step(i)
		if len(s.events) != 0 {
			t.Fatalf("event finalized early at token %d", i)
		}
	}
	if i != secondHeader {
		t.Fatalf("cursor skipped past the second header: %d", i)
	}
	s.step(i)
	if len(s.events) != 1 || s.events[0].ID != 1001 {
		t.Fatalf("expected event 1001 finalized on second header, got %+v", s.events)
	}
	if s.current.ID != 1002 || len(s.current.Rows) != 0 {
		t.Fatalf("expected fresh current event 1002, got %+v", s.current)
	}
}

func TestGroupTotalClearsPriceCategory(t *testing.T) {
	s := &state{
		tokens: []model.Token{plain("Kat 1"), plain("10,00"), plain("2"), plain("Summe"), plain("2")},
		opts:   defaultOptions(),
		active: model.NewFeeNames(model.DefaultFeeNames...),
		all:    model.NewFeeNames(model.DefaultFeeNames...),
	}
	i := s.step(0)
	if i != 3 || !s.hasPriceCategory || s.priceCategory != "Kat 1" {
		t.Fatalf("after row: i=%d priceCategory=%q has=%v", i, s.priceCategory, s.hasPriceCategory)
	}
	i = s.step(i)
	if i != 4 || s.hasPriceCategory || s.priceCategory != "" {
		t.Fatalf("after subtotal: i=%d priceCategory=%q has=%v", i, s.priceCategory, s.hasPriceCategory)
	}
}

func TestLegendBlockSkipped(t *testing.T) {
	report := parse(tokens(
		[]model.Token{plain("Preiskategorie"), plain("Kat 1"), plain("Kat 2"), bold("Endpreis")},
		header("7", "01.02.23 19:30", "Show", "1", "Hall", "Street"),
		[]model.Token{plain("Kat 1"), plain("10,00"), plain("1")},
	))
	if len(report.Events) != 1 || len(report.Events[0].Rows) != 1 {
		t.Fatalf("expected 1 event with 1 row, got %+v", report.Events)
	}
	if report.Diagnostics[0].Kind != model.DiagSkipped || report.Diagnostics[0].Index != 0 {
		t.Fatalf("expected legend skip first, got %v", report.Diagnostics[0])
	}
}

func TestLegendBlockWithoutEnd(t *testing.T) {
	report := parse(tokens(
		[]model.Token{plain("Preiskategorie"), plain("Kat 1")},
		header("7", "01.02.23 19:30", "Show", "1", "Hall", "Street"),
	))
	if len(report.Events) != 0 {
		t.Fatalf("legend without end should consume the rest, got %+v", report.Events)
	}
	if len(report.Diagnostics) != 1 || report.Diagnostics[0].Kind != model.DiagTruncated {
		t.Fatalf("expected truncated diagnostic, got %v", report.Diagnostics)
	}
}

func TestRowsBeforeFirstHeaderJoinFirstEvent(t *testing.T) {
	report := parse(tokens(
		[]model.Token{plain("Kat A"), plain("10,00"), plain("2")},
		header("9", "01.02.23 19:30", "Show", "1", "Hall", "Street"),
	))
	if len(report.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(report.Events))
	}
	ev := report.Events[0]
	if ev.ID != 9 || len(ev.Rows) != 1 {
		t.Fatalf("expected event 9 with the early row, got %+v", ev)
	}
	// No fee names were active yet.
	if ev.Rows[0].Values.Len() != 0 {
		t.Fatalf("expected empty values, got %v", ev.Rows[0].Values.Keys())
	}
}

func TestEventWithoutIDDiagnostic(t *testing.T) {
	report := parse([]model.Token{plain("Kat A"), plain("10,00"), plain("2")})
	if len(report.Events) != 1 || report.Events[0].HasID {
		t.Fatalf("expected one event without id, got %+v", report.Events)
	}
	found := false
	for _, d := range report.Diagnostics {
		if d.Kind == model.DiagEventWithoutID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected event-without-id diagnostic, got %v", report.Diagnostics)
	}
}

func TestShortRowDiagnostic(t *testing.T) {
	report := parse(tokens(
		header("1", "01.02.23 19:30", "Show", "1", "Hall", "Street"),
		[]model.Token{plain("VIP"), plain("10,00"), plain("5")},
	))
	var short []model.Diagnostic
	for _, d := range report.Diagnostics {
		if d.Kind == model.DiagShortRow {
			short = append(short, d)
		}
	}
	if len(short) != 1 {
		t.Fatalf("expected 1 short-row diagnostic, got %v", report.Diagnostics)
	}
	if short[0].Text != "VIP" || short[0].Detail != "2 values for 5 fee names" {
		t.Fatalf("unexpected diagnostic %v", short[0])
	}
}

func TestSurplusValuesDropped(t *testing.T) {
	report := parse(tokens(
		header("1", "01.02.23 19:30", "Show", "1", "Hall", "Street"),
		[]model.Token{plain("VIP"), plain("1,00"), plain("2"), plain("3,00"), plain("4,00"), plain("5,00"), plain("6,00"), plain("7,00")},
	))
	row := report.Events[0].Rows[0]
	if row.Values.Len() != 5 {
		t.Fatalf("expected 5 values, got %d", row.Values.Len())
	}
	if v, _ := row.Values.Get("Sys-Geb."); v != 5 {
		t.Fatalf("expected Sys-Geb.=5, got %v", v)
	}
}

func TestBadDateAndHeaderLine(t *testing.T) {
	report := parse([]model.Token{bold("5"), plain("31.02.23 10:00"), plain("no structure here")})
	if len(report.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(report.Events))
	}
	ev := report.Events[0]
	if !ev.Date.IsZero() || ev.EventName != "" {
		t.Fatalf("expected zero date and empty name, got %+v", ev)
	}
	kinds := map[model.DiagnosticKind]bool{}
	for _, d := range report.Diagnostics {
		kinds[d.Kind] = true
	}
	if !kinds[model.DiagBadDate] || !kinds[model.DiagBadHeader] {
		t.Fatalf("expected bad-date and bad-header, got %v", report.Diagnostics)
	}
}

func TestTruncatedHeader(t *testing.T) {
	report := parse([]model.Token{bold("5"), plain("01.02.23 10:00")})
	if len(report.Events) != 1 || report.Events[0].ID != 5 {
		t.Fatalf("expected event 5, got %+v", report.Events)
	}
	if report.Diagnostics[0].Kind != model.DiagTruncated {
		t.Fatalf("expected truncated diagnostic, got %v", report.Diagnostics)
	}
}

func TestBoldDigitsWithoutDateAreNotHeaders(t *testing.T) {
	report := parse([]model.Token{bold("5"), plain("Kat 1")})
	if len(report.Events) != 0 {
		t.Fatalf("expected no events, got %+v", report.Events)
	}
}

func TestNoiseMatchesInnerAlternativesAnywhere(t *testing.T) {
	s := &state{tokens: []model.Token{
		plain("Gesamtsumme"),
		plain("Rabatt Kinder"),
		plain("Allgemeiner Verkaufsbericht 2023"),
		plain("Version 1.0.3.2"),
		plain("Bericht: Allgemeiner Verkaufsbericht"),
		plain("1.0.3.2 beta"),
	}}
	// The first pattern is only anchored at the start, the last only at the end.
	want := []tokenClass{classNoise, classNoise, classNoise, classNoise, classLabel, classLabel}
	for i, w := range want {
		if got := s.classify(i); got != w {
			t.Errorf("classify(%q) = %v, want %v", s.tokens[i].Text, got, w)
		}
	}
}

func TestIsRowHeader(t *testing.T) {
	tests := []struct {
		tok  model.Token
		want bool
	}{
		{plain("Kategorie 1"), true},
		{plain("Normal (online): Web"), true},
		{plain("12"), false},
		{plain("12,00"), false},
		{plain("Kat. 1"), false},
		{plain("Ermäßigt"), false},
		{bold("Kategorie 1"), false},
	}
	for _, tt := range tests {
		if got := isRowHeader(tt.tok); got != tt.want {
			t.Errorf("isRowHeader(%+v) = %v, want %v", tt.tok, got, tt.want)
		}
	}
}

func TestWithDiagnosticsOff(t *testing.T) {
	report := parse(twoEventReport(), WithDiagnostics(false))
	if report.Diagnostics != nil {
		t.Fatalf("expected no diagnostics, got %d", len(report.Diagnostics))
	}
}
