package parse

import (
	"fmt"
	"math"
	"strconv"

	"github.com/roach88/atemporal/internal/canon"
)

// Component names one calendar field of a Components record.
type Component int

// Components in significance order. A list input maps positionally onto
// Year through Millisecond.
const (
	Year Component = iota
	Month
	Day
	Hour
	Minute
	Second
	Millisecond
	Microsecond
	Nanosecond
	NumComponents
)

var componentNames = [NumComponents]string{
	"year", "month", "day", "hour", "minute", "second",
	"millisecond", "microsecond", "nanosecond",
}

func (c Component) String() string {
	if c < 0 || c >= NumComponents {
		return "component(" + strconv.Itoa(int(c)) + ")"
	}
	return componentNames[c]
}

// ComponentByName maps a field name to its Component.
func ComponentByName(name string) (Component, bool) {
	for i, n := range componentNames {
		if n == name {
			return Component(i), true
		}
	}
	return 0, false
}

// Transform name prefixes logged by normalization.
const (
	TransformDefault  = "default:"
	TransformRound    = "round:"
	TransformClamp    = "clamp:"
	TransformTruncate = "truncate:"
)

// Components is the typed intermediate record shared by the list, record and
// text strategies. Absent components are tracked separately from zero.
type Components struct {
	values  [NumComponents]float64
	present [NumComponents]bool

	// Zone and Calendar carry identifiers embedded in the input, if any.
	Zone     string
	Calendar string
}

// Set stores v for k and marks it present.
func (c *Components) Set(k Component, v float64) {
	c.values[k] = v
	c.present[k] = true
}

// Get returns the value of k and whether it is present.
func (c Components) Get(k Component) (float64, bool) {
	return c.values[k], c.present[k]
}

// Has reports whether k is present.
func (c Components) Has(k Component) bool { return c.present[k] }

// Count returns the number of present components.
func (c Components) Count() int {
	n := 0
	for _, p := range c.present {
		if p {
			n++
		}
	}
	return n
}

// Fields converts to canon.Fields, truncating values and reading absent
// components as their defaults. Call on normalized components.
func (c Components) Fields() canon.Fields {
	get := func(k Component) int {
		if v, ok := c.Get(k); ok {
			return int(v)
		}
		return defaultValue(k)
	}
	return canon.Fields{
		Year:        get(Year),
		Month:       get(Month),
		Day:         get(Day),
		Hour:        get(Hour),
		Minute:      get(Minute),
		Second:      get(Second),
		Millisecond: get(Millisecond),
		Microsecond: get(Microsecond),
		Nanosecond:  get(Nanosecond),
	}
}

// ComponentsFromFields builds a fully present record from f.
func ComponentsFromFields(f canon.Fields) Components {
	var c Components
	for k, v := range []int{f.Year, f.Month, f.Day, f.Hour, f.Minute, f.Second, f.Millisecond, f.Microsecond, f.Nanosecond} {
		c.Set(Component(k), float64(v))
	}
	return c
}

func defaultValue(k Component) int {
	switch k {
	case Year:
		return canon.MinYear
	case Month, Day:
		return 1
	}
	return 0
}

func isSubsecond(k Component) bool {
	return k == Millisecond || k == Microsecond || k == Nanosecond
}

// bounds returns the valid range of k. Day is bounded by the month length
// when year and month are themselves valid, else by 31.
func (c Components) bounds(k Component) (lo, hi float64) {
	switch k {
	case Year:
		return canon.MinYear, canon.MaxYear
	case Month:
		return 1, 12
	case Day:
		return 1, float64(c.monthLength())
	case Hour:
		return 0, 23
	case Minute, Second:
		return 0, 59
	}
	return 0, 999
}

// monthLength is the length of the month named by the record, or 31 when
// the year or month is itself unusable.
func (c Components) monthLength() int {
	y, m := float64(canon.MinYear), 1.0
	if v, ok := c.Get(Year); ok {
		y = math.Round(v)
	}
	if v, ok := c.Get(Month); ok {
		m = math.Round(v)
	}
	if !IsFinite(y) || !IsFinite(m) || y < canon.MinYear || y > canon.MaxYear || m < 1 || m > 12 {
		return 31
	}
	return canon.DaysInMonth(int(y), int(m))
}

// inRange reports whether the rounded value of k lies in its domain.
func (c Components) inRange(k Component, v float64) bool {
	lo, hi := c.bounds(k)
	r := math.Round(v)
	return r >= lo && r <= hi
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ValidateComponents checks every present component and returns all blocking
// errors and advisory warnings. Range checks apply to the rounded value.
//
// Non-integral values and sub-second values outside 0-999 are warnings,
// or errors when strict is set. Year is required.
func ValidateComponents(c Components, strict bool) (errs, warns []Issue) {
	report := func(blocking bool, is Issue) {
		if blocking {
			errs = append(errs, is)
		} else {
			warns = append(warns, is)
		}
	}

	if !c.Has(Year) {
		errs = append(errs, Issue{Field: "year", Code: CodeType, Message: "year is required"})
	}

	for k := Year; k < NumComponents; k++ {
		v, ok := c.Get(k)
		if !ok {
			continue
		}
		name := k.String()
		if !IsFinite(v) {
			errs = append(errs, Issue{Field: name, Code: CodeType, Message: fmt.Sprintf("%s is not a finite number", name)})
			continue
		}
		if !IsIntegral(v) {
			report(strict, Issue{Field: name, Code: CodeNotIntegral, Message: fmt.Sprintf("%s %s is not an integer", name, formatNumber(v))})
		}

		r := math.Round(v)
		lo, hi := c.bounds(k)
		if r >= lo && r <= hi {
			continue
		}
		switch {
		case isSubsecond(k):
			report(strict, Issue{Field: name, Code: CodeRange, Message: fmt.Sprintf("%s %s out of range 0-999", name, formatNumber(r))})
		case k == Day && r >= 1 && r <= 31:
			y, m := c.Fields().Year, c.Fields().Month
			errs = append(errs, Issue{Field: name, Code: CodeImpossibleDate,
				Message: fmt.Sprintf("day %s does not exist in %04d-%02d", formatNumber(r), y, m)})
		case k == Day:
			errs = append(errs, Issue{Field: name, Code: CodeRange, Message: fmt.Sprintf("day %s out of range 1-31", formatNumber(r))})
		default:
			errs = append(errs, Issue{Field: name, Code: CodeRange,
				Message: fmt.Sprintf("%s %s out of range %s-%s", name, formatNumber(r), formatNumber(lo), formatNumber(hi))})
		}
	}
	return errs, warns
}

// clampBounds are the normalization bounds. Day is only clamped from below
// (and to a representable integer); an overlong day is left for validation
// and conversion to reject.
func clampBounds(k Component) (lo, hi float64) {
	switch k {
	case Year:
		return canon.MinYear, canon.MaxYear
	case Month:
		return 1, 12
	case Day:
		return 1, math.MaxInt32
	case Hour:
		return 0, 23
	case Minute, Second:
		return 0, 59
	}
	return 0, 999
}

// NormalizeComponents fills absent components with their defaults, rounds
// non-integral values half away from zero, and clamps to the normalization
// bounds. Every action is logged by name in order. It never fails and is
// idempotent: normalizing its own output logs nothing.
func NormalizeComponents(c Components) (Components, []string) {
	out := c
	var transforms []string
	for k := Year; k < NumComponents; k++ {
		name := k.String()
		v, ok := out.Get(k)
		if !ok || math.IsNaN(v) {
			out.Set(k, float64(defaultValue(k)))
			transforms = append(transforms, TransformDefault+name)
			continue
		}
		if IsFinite(v) && v != math.Trunc(v) {
			v = math.Round(v)
			transforms = append(transforms, TransformRound+name)
		}
		lo, hi := clampBounds(k)
		switch {
		case v < lo:
			v = lo
			transforms = append(transforms, TransformClamp+name)
		case v > hi:
			v = hi
			transforms = append(transforms, TransformClamp+name)
		}
		out.Set(k, v)
	}
	return out, transforms
}

// ComponentConfidence grades how plausible c is as a calendar record.
// More recognized components raise it; non-finite, non-integral or
// out-of-range components depress it. The result lies in [0.01, 1].
func ComponentConfidence(c Components) float64 {
	conf := 0.6 + 0.05*float64(c.Count())
	for k := Year; k < NumComponents; k++ {
		v, ok := c.Get(k)
		if !ok {
			continue
		}
		switch {
		case !IsFinite(v):
			conf *= 0.1
			continue
		case !IsIntegral(v):
			conf *= 0.8
		}
		if !c.inRange(k, v) {
			conf *= 0.5
		}
	}
	return math.Max(0.01, math.Min(1, conf))
}

// FastFields returns canon.Fields for c when every present component is
// finite, integral and in range and the year is present. Absent components
// take their defaults, exactly as normalization would fill them.
func FastFields(c Components) (canon.Fields, bool) {
	if !c.Has(Year) {
		return canon.Fields{}, false
	}
	for k := Year; k < NumComponents; k++ {
		v, ok := c.Get(k)
		if !ok {
			continue
		}
		if !IsIntegral(v) || !c.inRange(k, v) {
			return canon.Fields{}, false
		}
	}
	return c.Fields(), true
}

// ConvertComponents builds a timestamp from normalized components, resolving
// zone and calendar against opts.
func ConvertComponents(c Components, opts Options) (canon.Timestamp, error) {
	cal, err := canon.ParseCalendar(string(opts.CalendarOr(c.Calendar)))
	if err != nil {
		return canon.Timestamp{}, err
	}
	return canon.New(c.Fields(), opts.Zone(c.Zone), cal)
}
