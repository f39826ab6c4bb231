package canon

import (
	"errors"
	"fmt"
	"strings"
)

// Calendar identifies the calendar system a Timestamp is expressed in.
type Calendar string

const (
	// ISO8601 is the ISO 8601 calendar (proleptic Gregorian). Default.
	ISO8601 Calendar = "iso8601"

	// Gregory is the proleptic Gregorian calendar under its CLDR name.
	Gregory Calendar = "gregory"

	// DefaultCalendar is used whenever no calendar is specified.
	DefaultCalendar = ISO8601
)

// Supported year range. Year 0 and negative years are rejected.
const (
	MinYear = 1
	MaxYear = 9999
)

// ErrUnsupportedCalendar is returned for calendar identifiers outside the
// Gregorian family.
var ErrUnsupportedCalendar = errors.New("canon: unsupported calendar")

// ParseCalendar resolves a calendar identifier.
// The empty string resolves to DefaultCalendar. Matching is case-insensitive.
func ParseCalendar(s string) (Calendar, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "iso8601", "iso":
		return ISO8601, nil
	case "gregory", "gregorian":
		return Gregory, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCalendar, s)
	}
}

// IsLeapYear reports whether year is a leap year in the proleptic Gregorian calendar.
// Century years are leap years only when divisible by 400 (1900 no, 2000 yes).
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInMonth returns the number of days in month (1-12) of year.
// Returns 0 for a month outside 1-12.
func DaysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	default:
		return 0
	}
}
