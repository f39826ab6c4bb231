package parse

import (
	"strconv"

	"github.com/roach88/atemporal/internal/canon"
)

// Options is the resolved option bundle for one parse attempt.
//
// An empty Calendar selects the calendar embedded in the input, else the
// default ISO calendar. An empty TimeZone means no zone was requested at the call site or as a
// process default; strategies then fall back to a zone embedded in the input
// and finally to UTC.
type Options struct {
	TimeZone string         `json:"timeZone,omitempty" yaml:"time_zone,omitempty"`
	Calendar canon.Calendar `json:"calendar,omitempty" yaml:"calendar,omitempty"`
	Strict   bool           `json:"strict,omitempty" yaml:"strict,omitempty"`
}

// Option mutates an Options bundle.
type Option func(*Options)

// WithTimeZone requests the result be expressed in zone.
func WithTimeZone(zone string) Option {
	return func(o *Options) { o.TimeZone = zone }
}

// WithCalendar selects the calendar tag of the result.
func WithCalendar(cal canon.Calendar) Option {
	return func(o *Options) { o.Calendar = cal }
}

// WithStrict toggles strict mode: borderline input (non-integral components,
// sub-second overflow, loose text layouts) is rejected instead of coerced.
func WithStrict(strict bool) Option {
	return func(o *Options) { o.Strict = strict }
}

// Resolve applies opts over defaults. Call-site options always win.
func Resolve(defaults Options, opts ...Option) Options {
	o := defaults
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Zone picks the zone for a result: the requested zone, else the zone
// embedded in the input, else UTC.
func (o Options) Zone(embedded string) string {
	switch {
	case o.TimeZone != "":
		return o.TimeZone
	case embedded != "":
		return embedded
	default:
		return canon.UTC
	}
}

// CalendarOr returns the requested calendar, else embedded, else the default.
func (o Options) CalendarOr(embedded string) canon.Calendar {
	switch {
	case o.Calendar != "":
		return o.Calendar
	case embedded != "":
		return canon.Calendar(embedded)
	default:
		return canon.DefaultCalendar
	}
}

// ValidateOptions checks that the zone and calendar a parse would use both
// resolve, given the identifiers embedded in the input.
func ValidateOptions(o Options, embeddedZone, embeddedCalendar string) []Issue {
	var issues []Issue
	if zone := o.Zone(embeddedZone); !canon.ValidZone(zone) {
		issues = append(issues, Issue{Field: "timeZone", Code: CodeZone, Message: "unknown time zone " + strconv.Quote(zone)})
	}
	if _, err := canon.ParseCalendar(string(o.CalendarOr(embeddedCalendar))); err != nil {
		issues = append(issues, Issue{Field: "calendar", Code: CodeCalendar, Message: err.Error()})
	}
	return issues
}
