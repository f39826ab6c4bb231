package canon

import "fmt"

// RangeError reports a component that lies outside its valid domain.
type RangeError struct {
	Field string
	Value int
	Min   int
	Max   int
}

// Error implements the error interface.
func (e *RangeError) Error() string {
	return fmt.Sprintf("canon: %s %d out of range [%d, %d]", e.Field, e.Value, e.Min, e.Max)
}

// ZoneError reports a zone identifier that does not resolve.
type ZoneError struct {
	Zone string
	Err  error
}

// Error implements the error interface.
func (e *ZoneError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("canon: unknown time zone %q: %v", e.Zone, e.Err)
	}
	return fmt.Sprintf("canon: unknown time zone %q", e.Zone)
}

func (e *ZoneError) Unwrap() error {
	return e.Err
}
