package eventimx

import (
	"time"

	"github.com/crimson-sun/eventimx/internal/engine/parser"
)

type options struct {
	reference   time.Time
	location    *time.Location
	diagnostics bool
	contentType string
}

// Option configures parsing.
type Option func(*options)

// WithReferenceTime anchors two-digit report years: a year is placed in the
// century that keeps it within 50 years of t. Default: now.
func WithReferenceTime(t time.Time) Option {
	return func(o *options) {
		o.reference = t
	}
}

// WithLocation sets the time zone report dates are read in. Default: UTC.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		o.location = loc
	}
}

// WithoutDiagnostics leaves Report.Diagnostics empty.
func WithoutDiagnostics() Option {
	return func(o *options) {
		o.diagnostics = false
	}
}

// WithContentType passes the HTTP Content-Type of the markup to ParseHTML
// for charset detection. Without it the charset is sniffed from the markup.
func WithContentType(ct string) Option {
	return func(o *options) {
		o.contentType = ct
	}
}

func defaultOptions() options {
	return options{diagnostics: true}
}

func (o options) parserOptions() []parser.Option {
	opts := []parser.Option{parser.WithDiagnostics(o.diagnostics)}
	if !o.reference.IsZero() {
		opts = append(opts, parser.WithReferenceTime(o.reference))
	}
	if o.location != nil {
		opts = append(opts, parser.WithLocation(o.location))
	}
	return opts
}
