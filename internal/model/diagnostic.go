package model

import "fmt"

// DiagnosticKind classifies a parser diagnostic.
type DiagnosticKind string

const (
	DiagSkipped        DiagnosticKind = "skipped"
	DiagEventWithoutID DiagnosticKind = "event-without-id"
	DiagShortRow       DiagnosticKind = "short-row"
	DiagBadDate        DiagnosticKind = "bad-date"
	DiagBadHeader      DiagnosticKind = "bad-header"
	DiagTruncated      DiagnosticKind = "truncated"
)

// Diagnostic records something the parser tolerated instead of failing on.
type Diagnostic struct {
	Kind   DiagnosticKind `json:"kind"`
	Index  int            `json:"index"`
	Text   string         `json:"text,omitempty"`
	Detail string         `json:"detail,omitempty"`
}

func (d Diagnostic) String() string {
	if d.Detail == "" {
		return fmt.Sprintf("%s at token %d: %q", d.Kind, d.Index, d.Text)
	}
	return fmt.Sprintf("%s at token %d: %q (%s)", d.Kind, d.Index, d.Text, d.Detail)
}
