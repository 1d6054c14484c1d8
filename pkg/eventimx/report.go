package eventimx

import "time"

// Token is one styled text fragment of a report.
type Token struct {
	Text       string `json:"text"`
	Emphasized bool   `json:"emphasized"` // rendered bold
}

// Report is a parsed sales report.
// This is the stable public type; internal representations may evolve
// independently without breaking consumers.
type Report struct {
	Source      string       `json:"source,omitempty"`
	Events      []Event      `json:"events"`
	AllFeeNames []string     `json:"allFeeNames"` // every fee column seen, first-seen order
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// RowCount returns the number of rows across all events.
func (r Report) RowCount() int {
	n := 0
	for _, e := range r.Events {
		n += len(e.Rows)
	}
	return n
}

// Event is one performance.
type Event struct {
	ID         int       `json:"id"`
	HasID      bool      `json:"-"`
	Date       time.Time `json:"date"` // zero when the report's date was unreadable
	EventName  string    `json:"eventName"`
	LocationID string    `json:"locationId"`
	Location   string    `json:"location"`
	Address    string    `json:"address"`
	Rows       []Row     `json:"rows"`
}

// Row is one (discount category, price category) line of an event.
type Row struct {
	DiscountCategory string `json:"discountCategory"`
	PriceCategory    string `json:"priceCategory,omitempty"`
	HasPriceCategory bool   `json:"-"`
	Fees             []Fee  `json:"fees"` // in the event's fee-column order
}

// Fee is one named value of a row.
type Fee struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Value returns the fee called name.
func (r Row) Value(name string) (float64, bool) {
	for _, f := range r.Fees {
		if f.Name == name {
			return f.Value, true
		}
	}
	return 0, false
}

// Diagnostic describes input the parser tolerated, e.g. a skipped fragment
// or a row with fewer values than fee columns.
type Diagnostic struct {
	Kind   string `json:"kind"`
	Index  int    `json:"index"` // token position
	Text   string `json:"text,omitempty"`
	Detail string `json:"detail,omitempty"`
}
