package output

import (
	"time"

	"github.com/crimson-sun/eventimx/internal/engine/parser"
	"github.com/crimson-sun/eventimx/internal/model"
)

// FixedColumns lead every exported table, ahead of one column per fee name.
var FixedColumns = []string{
	"VANr",
	"Datum",
	"Veranstaltung",
	"VeranstaltungsstätteNr",
	"VeranstaltungsstätteName",
	"VeranstaltungsstätteAdresse",
	"Rabatt",
	"PK",
}

// Table is the flat, spreadsheet-shaped view of one or more reports:
// one record per (event, row) pair.
type Table struct {
	FeeNames []string
	Records  []Record
}

// Record is one exported line. Fees is aligned with Table.FeeNames.
type Record struct {
	EventID          int
	HasEventID       bool
	Date             time.Time
	EventName        string
	LocationNr       int
	HasLocationNr    bool
	Location         string
	Address          string
	DiscountCategory string
	PriceCategory    string
	HasPriceCategory bool
	Fees             []float64
}

// Header returns FixedColumns followed by the fee names.
func (t Table) Header() []string {
	h := make([]string, 0, len(FixedColumns)+len(t.FeeNames))
	h = append(h, FixedColumns...)
	return append(h, t.FeeNames...)
}

// BuildTable flattens reports into a table. Fee columns are the union of
// every report's fee names in first-seen order; fees a row lacks are 0.
func BuildTable(reports ...model.Report) Table {
	names := model.NewFeeNames()
	for _, r := range reports {
		for _, n := range r.AllFeeNames {
			names.Add(n)
		}
	}
	t := Table{FeeNames: names.Names()}

	for _, r := range reports {
		for _, ev := range r.Events {
			locNr, hasLocNr := parser.ParseInt(ev.LocationID)
			for _, row := range ev.Rows {
				fees := make([]float64, len(t.FeeNames))
				for i, name := range t.FeeNames {
					fees[i], _ = row.Values.Get(name)
				}
				t.Records = append(t.Records, Record{
					EventID:          ev.ID,
					HasEventID:       ev.HasID,
					Date:             ev.Date,
					EventName:        ev.EventName,
					LocationNr:       locNr,
					HasLocationNr:    hasLocNr,
					Location:         ev.Location,
					Address:          ev.Address,
					DiscountCategory: row.DiscountCategory,
					PriceCategory:    row.PriceCategory,
					HasPriceCategory: row.HasPriceCategory,
					Fees:             fees,
				})
			}
		}
	}
	return t
}

// Cells returns the record as typed cell values in header order. Missing
// values (no id, no date, unparsable location number, no price category)
// are nil.
func (r Record) Cells() []any {
	cells := make([]any, 0, len(FixedColumns)+len(r.Fees))
	cells = append(cells,
		optional(r.EventID, r.HasEventID),
		optional(r.Date, !r.Date.IsZero()),
		r.EventName,
		optional(r.LocationNr, r.HasLocationNr),
		r.Location,
		r.Address,
		r.DiscountCategory,
		optional(r.PriceCategory, r.HasPriceCategory),
	)
	for _, f := range r.Fees {
		cells = append(cells, f)
	}
	return cells
}

func optional[T any](v T, ok bool) any {
	if !ok {
		return nil
	}
	return v
}
