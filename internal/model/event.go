package model

import "time"

// Event is one performance in a sales report, with its price-category rows.
type Event struct {
	ID         int       `json:"id"`
	HasID      bool      `json:"-"`
	Date       time.Time `json:"date"`
	EventName  string    `json:"eventName"`
	LocationID string    `json:"locationId"`
	Location   string    `json:"location"`
	Address    string    `json:"address"`
	Rows       []Row     `json:"rows"`
}

// Row is one price-category line inside an event.
type Row struct {
	DiscountCategory string `json:"discountCategory"`
	PriceCategory    string `json:"priceCategory,omitempty"`
	// HasPriceCategory is false when the row closed a group without a fresh label.
	HasPriceCategory bool      `json:"-"`
	Values           FeeValues `json:"row"`
}

// Report is the normalized result of parsing one sales report.
type Report struct {
	Source      string       `json:"source,omitempty"`
	Events      []Event      `json:"events"`
	AllFeeNames []string     `json:"allFeeNames"`
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
