package testdata

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"time"
)

//go:embed sample_report.html
var sampleReport []byte

//go:embed expected.json
var expectedJSON []byte

// SampleReport returns a copy of the embedded two-event sales report.
func SampleReport() []byte {
	out := make([]byte, len(sampleReport))
	copy(out, sampleReport)
	return out
}

// ExpectedEvent summarizes one event the sample report must yield.
type ExpectedEvent struct {
	ID         int       `json:"id"`
	EventName  string    `json:"eventName"`
	LocationID string    `json:"locationId"`
	Location   string    `json:"location"`
	Date       time.Time `json:"date"`
	Rows       int       `json:"rows"`
}

// Expectation is the parse result the sample report must produce.
type Expectation struct {
	TokenCount  int             `json:"tokenCount"`
	AllFeeNames []string        `json:"allFeeNames"`
	Events      []ExpectedEvent `json:"events"`
}

// LoadExpectation parses the embedded expected.json.
func LoadExpectation() (Expectation, error) {
	var e Expectation
	if err := json.Unmarshal(expectedJSON, &e); err != nil {
		return Expectation{}, fmt.Errorf("parse expected.json: %w", err)
	}
	return e, nil
}
