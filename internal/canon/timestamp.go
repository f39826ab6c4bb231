package canon

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Fields holds the calendar components of a wall-clock datetime.
// Sub-second precision is split Temporal-style: each of Millisecond,
// Microsecond and Nanosecond is 0-999.
type Fields struct {
	Year        int `json:"year"`
	Month       int `json:"month"`
	Day         int `json:"day"`
	Hour        int `json:"hour"`
	Minute      int `json:"minute"`
	Second      int `json:"second"`
	Millisecond int `json:"millisecond"`
	Microsecond int `json:"microsecond"`
	Nanosecond  int `json:"nanosecond"`
}

// SubsecondNanos returns the combined sub-second part in nanoseconds.
func (f Fields) SubsecondNanos() int {
	return f.Millisecond*1_000_000 + f.Microsecond*1_000 + f.Nanosecond
}

// Check validates every component against its domain and returns the first
// violation found. Day is checked against the month length of Year/Month.
func (f Fields) Check() error {
	if f.Year < MinYear || f.Year > MaxYear {
		return &RangeError{Field: "year", Value: f.Year, Min: MinYear, Max: MaxYear}
	}
	if f.Month < 1 || f.Month > 12 {
		return &RangeError{Field: "month", Value: f.Month, Min: 1, Max: 12}
	}
	if dim := DaysInMonth(f.Year, f.Month); f.Day < 1 || f.Day > dim {
		return &RangeError{Field: "day", Value: f.Day, Min: 1, Max: dim}
	}
	checks := []struct {
		name     string
		val, max int
	}{
		{"hour", f.Hour, 23},
		{"minute", f.Minute, 59},
		{"second", f.Second, 59},
		{"millisecond", f.Millisecond, 999},
		{"microsecond", f.Microsecond, 999},
		{"nanosecond", f.Nanosecond, 999},
	}
	for _, c := range checks {
		if c.val < 0 || c.val > c.max {
			return &RangeError{Field: c.name, Value: c.val, Min: 0, Max: c.max}
		}
	}
	return nil
}

// fieldsOf extracts Fields from the wall clock of t.
func fieldsOf(t time.Time) Fields {
	ns := t.Nanosecond()
	return Fields{
		Year:        t.Year(),
		Month:       int(t.Month()),
		Day:         t.Day(),
		Hour:        t.Hour(),
		Minute:      t.Minute(),
		Second:      t.Second(),
		Millisecond: ns / 1_000_000,
		Microsecond: (ns / 1_000) % 1_000,
		Nanosecond:  ns % 1_000,
	}
}

// Timestamp is an immutable, zone- and calendar-attached point in time.
//
// The zero value is not a valid timestamp and is never returned by a
// successful constructor; use IsZero to detect it.
type Timestamp struct {
	t    time.Time
	zone string
	cal  Calendar
}

// New constructs a Timestamp from calendar fields interpreted as wall-clock
// time in zone. Every component is range checked (calendar-aware for day).
//
// Wall-clock times inside a DST gap resolve the way time.Date does: shifted
// forward by the length of the gap.
func New(f Fields, zone string, cal Calendar) (Timestamp, error) {
	if err := f.Check(); err != nil {
		return Timestamp{}, err
	}
	cal, err := ParseCalendar(string(cal))
	if err != nil {
		return Timestamp{}, err
	}
	loc, name, err := LoadZone(zone)
	if err != nil {
		return Timestamp{}, err
	}
	t := time.Date(f.Year, time.Month(f.Month), f.Day, f.Hour, f.Minute, f.Second, f.SubsecondNanos(), loc)
	return Timestamp{t: t, zone: name, cal: cal}, nil
}

// FromTime re-expresses the instant t in zone.
// Fails when the resulting wall-clock year lies outside MinYear-MaxYear.
func FromTime(t time.Time, zone string, cal Calendar) (Timestamp, error) {
	cal, err := ParseCalendar(string(cal))
	if err != nil {
		return Timestamp{}, err
	}
	loc, name, err := LoadZone(zone)
	if err != nil {
		return Timestamp{}, err
	}
	local := t.In(loc)
	if y := local.Year(); y < MinYear || y > MaxYear {
		return Timestamp{}, &RangeError{Field: "year", Value: y, Min: MinYear, Max: MaxYear}
	}
	return Timestamp{t: local, zone: name, cal: cal}, nil
}

// MustNew is like New but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustNew(f Fields, zone string, cal Calendar) Timestamp {
	ts, err := New(f, zone, cal)
	if err != nil {
		panic(err)
	}
	return ts
}

// WithZone returns the same instant expressed in another zone.
func (ts Timestamp) WithZone(zone string) (Timestamp, error) {
	return FromTime(ts.t, zone, ts.cal)
}

// WithCalendar returns the same instant tagged with another calendar.
func (ts Timestamp) WithCalendar(cal Calendar) (Timestamp, error) {
	cal, err := ParseCalendar(string(cal))
	if err != nil {
		return Timestamp{}, err
	}
	return Timestamp{t: ts.t, zone: ts.zone, cal: cal}, nil
}

// IsZero reports whether ts is the zero value.
func (ts Timestamp) IsZero() bool { return ts.zone == "" }

// Time returns the instant as a time.Time in the timestamp's zone.
func (ts Timestamp) Time() time.Time { return ts.t }

// Zone returns the canonical zone identifier.
func (ts Timestamp) Zone() string { return ts.zone }

// Calendar returns the calendar tag.
func (ts Timestamp) Calendar() Calendar { return ts.cal }

// Fields returns the wall-clock components.
func (ts Timestamp) Fields() Fields { return fieldsOf(ts.t) }

// DateTime returns the zone-naive counterpart.
func (ts Timestamp) DateTime() DateTime { return DateTime{Fields: ts.Fields(), Calendar: ts.cal} }

func (ts Timestamp) Year() int        { return ts.t.Year() }
func (ts Timestamp) Month() int       { return int(ts.t.Month()) }
func (ts Timestamp) Day() int         { return ts.t.Day() }
func (ts Timestamp) Hour() int        { return ts.t.Hour() }
func (ts Timestamp) Minute() int      { return ts.t.Minute() }
func (ts Timestamp) Second() int      { return ts.t.Second() }
func (ts Timestamp) Millisecond() int { return ts.t.Nanosecond() / 1_000_000 }
func (ts Timestamp) Microsecond() int { return (ts.t.Nanosecond() / 1_000) % 1_000 }
func (ts Timestamp) Nanosecond() int  { return ts.t.Nanosecond() % 1_000 }

// UnixMilli returns the instant as milliseconds since the Unix epoch.
func (ts Timestamp) UnixMilli() int64 { return ts.t.UnixMilli() }

// Equal reports whether both timestamps denote the same instant, zone and calendar.
func (ts Timestamp) Equal(other Timestamp) bool {
	return ts.t.Equal(other.t) && ts.zone == other.zone && ts.cal == other.cal
}

const layout = "2006-01-02T15:04:05.999999999-07:00"

// String renders the timestamp as RFC 3339 with a bracketed zone annotation:
// 2023-06-15T14:30:45.123+00:00[UTC].
func (ts Timestamp) String() string {
	if ts.IsZero() {
		return "<invalid>"
	}
	s := ts.t.Format(layout) + "[" + ts.zone + "]"
	if ts.cal != ISO8601 {
		s += "[u-ca=" + string(ts.cal) + "]"
	}
	return s
}

// CacheKey returns a stable fingerprint of the instant, zone and calendar.
func (ts Timestamp) CacheKey() string {
	return "ts:" + strconv.FormatInt(ts.t.Unix(), 10) + "." + fmt.Sprintf("%09d", ts.t.Nanosecond()) + ":" + ts.zone + ":" + string(ts.cal)
}

// MarshalJSON encodes the timestamp as its String form.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return nil, fmt.Errorf("canon: cannot marshal zero timestamp")
	}
	return json.Marshal(ts.String())
}

// DateTime is the zone-naive counterpart of Timestamp: calendar fields without
// an attached zone. Converting it requires choosing a zone.
type DateTime struct {
	Fields
	Calendar Calendar `json:"calendar,omitempty"`
}

// InZone attaches zone and returns the resulting Timestamp.
func (d DateTime) InZone(zone string) (Timestamp, error) {
	return New(d.Fields, zone, d.Calendar)
}

// CacheKey returns a stable fingerprint of the fields and calendar.
func (d DateTime) CacheKey() string {
	f := d.Fields
	return fmt.Sprintf("dt:%04d-%02d-%02dT%02d:%02d:%02d.%03d%03d%03d:%s",
		f.Year, f.Month, f.Day, f.Hour, f.Minute, f.Second,
		f.Millisecond, f.Microsecond, f.Nanosecond, d.Calendar)
}
