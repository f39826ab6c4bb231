package parse

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/atemporal/internal/canon"
)

// Class categorizes blocking parse failures.
type Class string

const (
	// ClassValidation indicates one or more components violated their range or type.
	ClassValidation Class = "validation"

	// ClassImpossibleDate indicates individually valid components that do not
	// form a calendar date, such as February 30th.
	ClassImpossibleDate Class = "impossible_date"

	// ClassConversion indicates the calendar layer rejected a resolved value.
	ClassConversion Class = "conversion"

	// ClassZone indicates a zone identifier that does not resolve.
	ClassZone Class = "zone"

	// ClassUnparseable indicates no strategy recognized the input.
	ClassUnparseable Class = "unparseable"
)

// CodeUnparseable is the error code of the fallback strategy.
const CodeUnparseable = "UNPARSEABLE"

// Issue codes attached to validation errors and warnings.
const (
	CodeRange          = "RANGE"
	CodeImpossibleDate = "IMPOSSIBLE_DATE"
	CodeType           = "TYPE"
	CodeNotIntegral    = "NOT_INTEGRAL"
	CodeZone           = "ZONE"
	CodeCalendar       = "CALENDAR"
	CodeFormat         = "FORMAT"
)

// Issue is one validation finding. Validation collects every issue instead
// of stopping at the first.
type Issue struct {
	Field   string `json:"field,omitempty" yaml:"field,omitempty"`
	Message string `json:"message" yaml:"message"`
	Code    string `json:"code" yaml:"code"`
}

func (i Issue) String() string {
	if i.Field != "" {
		return fmt.Sprintf("%s: %s", i.Field, i.Message)
	}
	return i.Message
}

// Error is a blocking parse failure.
//
// Code is stable and machine readable: <STRATEGY>_<CLASS> such as
// ARRAY_VALIDATION or TEXT_CONVERSION, and UNPARSEABLE for the fallback.
type Error struct {
	Class    Class
	Code     string
	Message  string
	Input    any
	Strategy Type
	Elapsed  time.Duration
	Issues   []Issue
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Code)
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Issues) > 1 || (len(e.Issues) == 1 && e.Issues[0].Message != e.Message) {
		b.WriteString(" (")
		for i, is := range e.Issues {
			if i > 0 {
				b.WriteString("; ")
			}
			b.WriteString(is.String())
		}
		b.WriteString(")")
	}
	if e.Strategy != "" {
		fmt.Fprintf(&b, " [strategy=%s]", e.Strategy)
	}
	return b.String()
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode derives the stable code for a strategy and class.
func ErrorCode(strategy Type, class Class) string {
	if class == ClassUnparseable {
		return CodeUnparseable
	}
	return strings.ToUpper(string(strategy)) + "_" + strings.ToUpper(string(class))
}

// NewError builds an Error with its derived code.
func NewError(strategy Type, class Class, input any, msg string) *Error {
	return &Error{
		Class:    class,
		Code:     ErrorCode(strategy, class),
		Message:  msg,
		Input:    input,
		Strategy: strategy,
	}
}

// ValidationFailure wraps accumulated validation issues. The class is zone
// when a zone issue is present, impossible_date when an impossible date is
// present, and validation otherwise.
func ValidationFailure(strategy Type, input any, issues []Issue) *Error {
	class := ClassValidation
	for _, is := range issues {
		if is.Code == CodeZone {
			class = ClassZone
			break
		}
		if is.Code == CodeImpossibleDate {
			class = ClassImpossibleDate
		}
	}
	msg := "invalid input"
	if len(issues) > 0 {
		msg = issues[0].Message
		if len(issues) > 1 {
			msg = fmt.Sprintf("%d validation errors", len(issues))
		}
	}
	e := NewError(strategy, class, input, msg)
	e.Issues = issues
	return e
}

// ConversionFailure wraps an error raised by the calendar layer. Zone
// resolution errors keep their own class.
func ConversionFailure(strategy Type, input any, err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	class := ClassConversion
	code := CodeRange
	var ze *canon.ZoneError
	if errors.As(err, &ze) {
		class = ClassZone
		code = CodeZone
	}
	if errors.Is(err, canon.ErrUnsupportedCalendar) {
		code = CodeCalendar
	}
	e := NewError(strategy, class, input, err.Error())
	e.Issues = []Issue{{Message: err.Error(), Code: code}}
	e.Err = err
	return e
}

// Unparseable is the terminal failure reported by the fallback strategy.
func Unparseable(strategy Type, input any) *Error {
	return NewError(strategy, ClassUnparseable, input, fmt.Sprintf("unparseable input of type %T", input))
}

// IsValidationError reports whether err is a validation failure, including
// impossible dates. Uses errors.As to handle wrapped errors.
func IsValidationError(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Class == ClassValidation || pe.Class == ClassImpossibleDate
	}
	return false
}

// IsImpossibleDate reports whether err is an impossible composite date.
func IsImpossibleDate(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Class == ClassImpossibleDate
}

// IsConversionError reports whether err is a calendar-layer rejection.
func IsConversionError(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Class == ClassConversion
}

// IsZoneError reports whether err is a zone resolution failure.
func IsZoneError(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Class == ClassZone
}

// IsUnparseable reports whether err is the fallback's terminal failure.
func IsUnparseable(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Class == ClassUnparseable
}
