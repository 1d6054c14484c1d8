package parser

import (
	"time"

	"github.com/crimson-sun/eventimx/internal/clock"
)

type options struct {
	clock       clock.Clock
	reference   time.Time
	location    *time.Location
	diagnostics bool
}

// Option configures a Parse call.
type Option func(*options)

// WithClock sets the clock whose current year anchors two-digit years.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithReferenceTime anchors two-digit years to t. Takes precedence over WithClock.
func WithReferenceTime(t time.Time) Option {
	return func(o *options) { o.reference = t }
}

// WithLocation sets the time zone event dates are read in. Default: UTC.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}

// WithDiagnostics toggles recording of diagnostics on the report. Default: on.
func WithDiagnostics(on bool) Option {
	return func(o *options) { o.diagnostics = on }
}

func defaultOptions() options {
	return options{
		clock:       clock.NewSystem(),
		location:    time.UTC,
		diagnostics: true,
	}
}

func (o options) referenceTime() time.Time {
	if !o.reference.IsZero() {
		return o.reference
	}
	return o.clock.Now()
}
